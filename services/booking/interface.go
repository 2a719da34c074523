package booking

import (
	"context"

	"advisorbot/models"
)

// Engine is the slot/waitlist state machine. Every write operation is atomic
// with respect to the store snapshot it loads at entry and the single save it
// performs at exit; reads take the same lock for a consistent snapshot.
type Engine interface {
	CheckAvailability(ctx context.Context, date string) ([]string, error)
	GetSlotsWithStatus(ctx context.Context, startDate, endDate string) (map[string]map[string]models.SlotStatusView, error)
	GetAllAvailableDates(ctx context.Context) ([]string, error)

	BookSlot(ctx context.Context, date, timeSlot, topic, userAlias string) (*models.BookingResult, error)
	CancelBooking(ctx context.Context, code string) (*models.CancelResult, error)
	AddToWaitlist(ctx context.Context, date, timeSlot, topic, userAlias string) (*models.WaitlistResult, error)
	CancelWaitlist(ctx context.Context, waitlistID string) (*models.WaitlistEntry, error)
	ModifyBooking(ctx context.Context, code, newTopic, newAlias string) (*models.Booking, error)
	RescheduleBooking(ctx context.Context, code, newDate, newTime string) (*models.Booking, error)

	FindBookingByNameAndTime(ctx context.Context, userAlias, timeFilter, dateFilter string) ([]models.Booking, error)
	LookupBooking(ctx context.Context, code string) (*models.Booking, error)
	LookupWaitlist(ctx context.Context, waitlistID string) (*models.WaitlistView, error)
	LookupAny(ctx context.Context, code string) (*models.LookupResult, error)
}

// CalendarService creates external calendar events for confirmed bookings.
// It is best-effort: a failure changes the confirmation message, nothing else.
type CalendarService interface {
	CreateEvent(ctx context.Context, b models.Booking) (link string, err error)
}
