package booking

import (
	"math/rand"

	"advisorbot/models"
)

const (
	codePrefix   = "NL-"
	codeLength   = 4
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// generateCode produces a random short code of the form NL-XXXX.
func generateCode(rng *rand.Rand) string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}
	return codePrefix + string(buf)
}

// codeInUse reports whether code already identifies a booked slot or a
// waitlist entry.
func codeInUse(store *models.Store, code string) bool {
	for _, times := range store.Slots {
		for _, slot := range times {
			if slot.BookingID != nil && *slot.BookingID == code {
				return true
			}
		}
	}
	for _, entry := range store.Waitlist {
		if entry.WaitlistID == code {
			return true
		}
	}
	return false
}

// uniqueCode generates a code that collides with no current booking or
// waitlist entry. Callers must hold the engine lock.
func uniqueCode(rng *rand.Rand, store *models.Store) string {
	for {
		code := generateCode(rng)
		if !codeInUse(store, code) {
			return code
		}
	}
}
