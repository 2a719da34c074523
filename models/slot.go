package models

// SlotStatus is the occupancy state of a bookable slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// Slot is one bookable (date, time) unit. A slot is booked if and only if
// BookingID is set.
type Slot struct {
	Status    SlotStatus `json:"status"`
	BookingID *string    `json:"booking_id"`
	Topic     *string    `json:"topic"`
	UserAlias *string    `json:"user_alias"`
}

// WaitlistEntry is an overflow request for a specific slot. Entries are kept
// in insertion order; the FIFO position per (date, time) is computed, never
// stored.
type WaitlistEntry struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Topic      string `json:"topic"`
	UserAlias  string `json:"user_alias"`
	WaitlistID string `json:"waitlist_id"`
}

// Store is the persisted aggregate: all slots keyed by date then time, plus
// the ordered waitlist. It is loaded whole, mutated in memory and saved whole.
type Store struct {
	Slots    map[string]map[string]Slot `json:"slots"`
	Waitlist []WaitlistEntry            `json:"waitlist"`
}

// Booking is the read projection of a booked slot.
type Booking struct {
	BookingID string `json:"booking_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Topic     string `json:"topic"`
	UserAlias string `json:"user_alias"`
}

// SlotStatusView is one cell of the ranged slots projection.
type SlotStatusView struct {
	Status        SlotStatus `json:"status"`
	WaitlistCount int        `json:"waitlist_count"`
}

// BookingResult is returned by BookSlot. Message distinguishes the two
// success shapes: confirmed with a calendar link, or saved locally with the
// calendar unavailable.
type BookingResult struct {
	Code         string `json:"code"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Topic        string `json:"topic"`
	UserAlias    string `json:"user_alias"`
	Message      string `json:"message"`
	CalendarLink string `json:"calendar_link,omitempty"`
}

// CancelResult is returned by CancelBooking.
type CancelResult struct {
	Code     string         `json:"code"`
	Date     string         `json:"date"`
	Time     string         `json:"time"`
	Message  string         `json:"message"`
	Promoted *PromotedEntry `json:"promoted,omitempty"`
}

// PromotedEntry describes a waitlisted user moved into a freed slot.
type PromotedEntry struct {
	NewBookingCode string `json:"new_booking_code"`
	UserAlias      string `json:"user_alias"`
	OldWaitlistID  string `json:"old_waitlist_id"`
}

// WaitlistResult is returned by AddToWaitlist.
type WaitlistResult struct {
	WaitlistID string `json:"waitlist_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Position   int    `json:"position"`
	Message    string `json:"message"`
}

// WaitlistView is the read projection of a waitlist entry, with its computed
// FIFO position for that slot.
type WaitlistView struct {
	WaitlistID string `json:"waitlist_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Topic      string `json:"topic"`
	UserAlias  string `json:"user_alias"`
	Position   int    `json:"position"`
}

// LookupResult is a tagged union: Type is "booking" or "waitlist" and exactly
// one of the pointers is set.
type LookupResult struct {
	Type     string        `json:"type"`
	Booking  *Booking      `json:"booking,omitempty"`
	Waitlist *WaitlistView `json:"entry,omitempty"`
}
