package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"advisorbot/models"
	"advisorbot/services/booking"

	"github.com/google/generative-ai-go/genai"
)

// Tool names exposed to the model. The catalog is closed: dispatch is an
// exhaustive switch and an unknown name is answered with an error payload
// instead of being executed.
const (
	toolCheckAvailability = "check_availability"
	toolBookSlot          = "book_slot"
	toolCancelSlot        = "cancel_slot"
	toolAddToWaitlist     = "add_to_waitlist"
	toolAllAvailableDates = "get_all_available_dates"
	toolFindBooking       = "find_booking_by_name_and_time"
)

// BuildToolCatalog declares the booking functions the model may call.
func BuildToolCatalog() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolCheckAvailability,
				Description: "Check available appointment slots for a specific date. Returns a list of available times (e.g., ['14:00', '15:00']).",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date_str": {
							Type:        genai.TypeString,
							Description: "The date to check in YYYY-MM-DD format (e.g., '2026-01-07')",
						},
					},
					Required: []string{"date_str"},
				},
			},
			{
				Name:        toolBookSlot,
				Description: "Book an available appointment slot. Returns booking confirmation with a unique booking code.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date_str": {
							Type:        genai.TypeString,
							Description: "The date to book in YYYY-MM-DD format",
						},
						"time_str": {
							Type:        genai.TypeString,
							Description: "The time slot to book in HH:MM format (either '14:00' or '15:00')",
						},
						"topic": {
							Type:        genai.TypeString,
							Description: "The appointment topic. Must be one of: KYC/Onboarding, SIP/Mandates, Statements/Tax Docs, Withdrawals, Account Changes",
						},
						"user_alias": {
							Type:        genai.TypeString,
							Description: "Optional name or alias for the booking. Default is 'Anonymous'",
						},
					},
					Required: []string{"date_str", "time_str", "topic"},
				},
			},
			{
				Name:        toolCancelSlot,
				Description: "Cancel an existing booking using the booking code. Resets the slot to available.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"booking_code": {
							Type:        genai.TypeString,
							Description: "The booking code (e.g., 'NL-X99Z') provided during booking",
						},
					},
					Required: []string{"booking_code"},
				},
			},
			{
				Name:        toolAddToWaitlist,
				Description: "Add a user to the waitlist for a specific slot when it is not available.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date_str": {
							Type:        genai.TypeString,
							Description: "The preferred date in YYYY-MM-DD format",
						},
						"time_str": {
							Type:        genai.TypeString,
							Description: "The preferred time slot in HH:MM format (either '14:00' or '15:00')",
						},
						"topic": {
							Type:        genai.TypeString,
							Description: "The appointment topic",
						},
						"user_alias": {
							Type:        genai.TypeString,
							Description: "Optional name or alias. Default is 'Anonymous'",
						},
					},
					Required: []string{"date_str", "time_str", "topic"},
				},
			},
			{
				Name:        toolAllAvailableDates,
				Description: "Get a list of all dates that have at least one available slot.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{},
				},
			},
			{
				Name:        toolFindBooking,
				Description: "Find existing bookings by user name/alias and optionally filter by date or time. Useful for reschedule/cancel when user doesn't have booking code.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"user_alias": {
							Type:        genai.TypeString,
							Description: "The name or alias used during booking",
						},
						"time_str": {
							Type:        genai.TypeString,
							Description: "Optional time filter in HH:MM format",
						},
						"date_str": {
							Type:        genai.TypeString,
							Description: "Optional date filter in YYYY-MM-DD format",
						},
					},
					Required: []string{"user_alias"},
				},
			},
		},
	}}
}

type checkAvailabilityArgs struct {
	Date string `json:"date_str"`
}

type bookSlotArgs struct {
	Date      string `json:"date_str"`
	Time      string `json:"time_str"`
	Topic     string `json:"topic"`
	UserAlias string `json:"user_alias"`
}

type cancelSlotArgs struct {
	BookingCode string `json:"booking_code"`
}

type addToWaitlistArgs struct {
	Date      string `json:"date_str"`
	Time      string `json:"time_str"`
	Topic     string `json:"topic"`
	UserAlias string `json:"user_alias"`
}

type findBookingArgs struct {
	UserAlias string `json:"user_alias"`
	Time      string `json:"time_str"`
	Date      string `json:"date_str"`
}

// runTool executes one model-requested function against the booking engine.
// Domain failures come back as an error payload for the model to read; the
// returned error is reserved for infrastructure failures (store I/O), which
// abort the whole turn.
func runTool(ctx context.Context, engine booking.Engine, name string, args map[string]interface{}) (interface{}, *models.UIHint, error) {
	switch name {
	case toolCheckAvailability:
		var a checkAvailabilityArgs
		if err := decodeArgs(args, &a); err != nil {
			return errPayload(err), nil, nil
		}
		times, err := engine.CheckAvailability(ctx, a.Date)
		if err != nil {
			return domainOrFail(err)
		}
		hint := &models.UIHint{
			Type: "calendar_widget",
			Data: map[string]interface{}{"date": a.Date, "slots": times},
		}
		return times, hint, nil

	case toolBookSlot:
		var a bookSlotArgs
		if err := decodeArgs(args, &a); err != nil {
			return errPayload(err), nil, nil
		}
		result, err := engine.BookSlot(ctx, a.Date, a.Time, a.Topic, a.UserAlias)
		if err != nil {
			return domainOrFail(err)
		}
		payload, err := successPayload(result)
		if err != nil {
			return nil, nil, err
		}
		return payload, &models.UIHint{Type: "booking_card", Data: payload}, nil

	case toolCancelSlot:
		var a cancelSlotArgs
		if err := decodeArgs(args, &a); err != nil {
			return errPayload(err), nil, nil
		}
		result, err := engine.CancelBooking(ctx, a.BookingCode)
		if err != nil {
			return domainOrFail(err)
		}
		payload, err := successPayload(result)
		if err != nil {
			return nil, nil, err
		}
		return payload, nil, nil

	case toolAddToWaitlist:
		var a addToWaitlistArgs
		if err := decodeArgs(args, &a); err != nil {
			return errPayload(err), nil, nil
		}
		result, err := engine.AddToWaitlist(ctx, a.Date, a.Time, a.Topic, a.UserAlias)
		if err != nil {
			return domainOrFail(err)
		}
		payload, err := successPayload(result)
		if err != nil {
			return nil, nil, err
		}
		return payload, nil, nil

	case toolAllAvailableDates:
		dates, err := engine.GetAllAvailableDates(ctx)
		if err != nil {
			return domainOrFail(err)
		}
		return dates, nil, nil

	case toolFindBooking:
		var a findBookingArgs
		if err := decodeArgs(args, &a); err != nil {
			return errPayload(err), nil, nil
		}
		matches, err := engine.FindBookingByNameAndTime(ctx, a.UserAlias, a.Time, a.Date)
		if err != nil {
			return domainOrFail(err)
		}
		payload, err := toJSONValue(matches)
		if err != nil {
			return nil, nil, err
		}
		var hint *models.UIHint
		if len(matches) > 0 {
			hint = &models.UIHint{
				Type: "manage_card",
				Data: map[string]interface{}{"status": "success", "bookings": payload},
			}
		}
		return payload, hint, nil

	default:
		return map[string]interface{}{"error": fmt.Sprintf("Unknown function: %s", name)}, nil, nil
	}
}

// domainOrFail splits a tool error: booking errors become a payload for the
// model, anything else propagates.
func domainOrFail(err error) (interface{}, *models.UIHint, error) {
	if derr := booking.AsDomainError(err); derr != nil {
		return map[string]interface{}{"status": "error", "message": derr.Message}, nil, nil
	}
	return nil, nil, err
}

func errPayload(err error) interface{} {
	return map[string]interface{}{"status": "error", "message": err.Error()}
}

// decodeArgs maps the model's loosely typed argument map onto a typed struct.
func decodeArgs(args map[string]interface{}, dst interface{}) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("invalid arguments: %v", err)
	}
	return nil
}

// toJSONValue round-trips v through JSON so function responses only contain
// plain maps, slices and primitives the genai transport can encode.
func toJSONValue(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// successPayload flattens a result struct and tags it status success, the
// shape the model and the booking_card renderer both expect.
func successPayload(v interface{}) (map[string]interface{}, error) {
	raw, err := toJSONValue(v)
	if err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("tool result is not an object")
	}
	m["status"] = "success"
	return m, nil
}
