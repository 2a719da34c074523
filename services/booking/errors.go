package booking

import "fmt"

// ErrCode tags the recoverable booking failures. These are returned as
// values and relayed to the model as tool results, never as hard failures.
type ErrCode string

const (
	ErrDateNotFound ErrCode = "date_not_found"
	ErrInvalidTime  ErrCode = "invalid_time"
	ErrSlotTaken    ErrCode = "slot_taken"
	ErrCodeNotFound ErrCode = "code_not_found"
)

// Error is a domain-level booking failure.
type Error struct {
	Code    ErrCode
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code ErrCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsDomainError returns the booking Error inside err, or nil when err is an
// infrastructure failure (store I/O) that must propagate hard.
func AsDomainError(err error) *Error {
	if derr, ok := err.(*Error); ok {
		return derr
	}
	return nil
}
