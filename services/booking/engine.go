package booking

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"advisorbot/database"
	"advisorbot/models"
	"advisorbot/utils"

	"go.uber.org/zap"
)

const (
	// DefaultAlias is used when a caller books or waitlists without a name.
	DefaultAlias = "Anonymous"

	dateLayout      = "2006-01-02"
	calendarTimeout = 10 * time.Second
)

// DefaultEngine is the production Engine. One process-wide mutex serializes
// every load-mutate-persist sequence; the lock is released before any
// external side effect runs.
type DefaultEngine struct {
	Store      database.SlotStore
	Calendar   CalendarService
	Dispatcher EventDispatcher
	Logger     *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDefaultEngine(store database.SlotStore, calendar CalendarService, dispatcher EventDispatcher, logger *zap.Logger) *DefaultEngine {
	return &DefaultEngine{
		Store:      store,
		Calendar:   calendar,
		Dispatcher: dispatcher,
		Logger:     logger,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *DefaultEngine) dispatch(ctx context.Context, evt Event) {
	if e.Dispatcher != nil {
		e.Dispatcher.Dispatch(context.WithoutCancel(ctx), evt)
	}
}

// CheckAvailability returns the available times for a date, ascending. A
// date outside the provisioned window yields an empty list, not an error.
func (e *DefaultEngine) CheckAvailability(ctx context.Context, date string) ([]string, error) {
	utils.LogStep(ctx, "Checking availability for %s", date)

	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	times, ok := store.Slots[date]
	if !ok {
		utils.LogStep(ctx, "No slots found for %s", date)
		return []string{}, nil
	}

	available := []string{}
	for timeSlot, slot := range times {
		if slot.Status == models.SlotAvailable {
			available = append(available, timeSlot)
		}
	}
	sort.Strings(available)

	utils.LogStep(ctx, "Found %d available slot(s)", len(available))
	return available, nil
}

// GetSlotsWithStatus projects the inclusive date range onto slot status and
// per-slot waitlist counts.
func (e *DefaultEngine) GetSlotsWithStatus(ctx context.Context, startDate, endDate string) (map[string]map[string]models.SlotStatusView, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return nil, newError(ErrDateNotFound, "Invalid start date %s", startDate)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return nil, newError(ErrDateNotFound, "Invalid end date %s", endDate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	waitlistCounts := make(map[string]int)
	for _, entry := range store.Waitlist {
		waitlistCounts[entry.Date+"_"+entry.Time]++
	}

	result := make(map[string]map[string]models.SlotStatusView)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		times, ok := store.Slots[date]
		if !ok {
			continue
		}
		day := make(map[string]models.SlotStatusView, len(times))
		for timeSlot, slot := range times {
			day[timeSlot] = models.SlotStatusView{
				Status:        slot.Status,
				WaitlistCount: waitlistCounts[date+"_"+timeSlot],
			}
		}
		result[date] = day
	}
	return result, nil
}

// GetAllAvailableDates returns all dates with at least one available slot,
// ascending.
func (e *DefaultEngine) GetAllAvailableDates(ctx context.Context) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	dates := []string{}
	for date, times := range store.Slots {
		for _, slot := range times {
			if slot.Status == models.SlotAvailable {
				dates = append(dates, date)
				break
			}
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// BookSlot transitions an available slot to booked, persists, then
// best-effort creates a calendar event. A calendar failure does not roll
// back the booking; it only changes the confirmation message.
func (e *DefaultEngine) BookSlot(ctx context.Context, date, timeSlot, topic, userAlias string) (*models.BookingResult, error) {
	if userAlias == "" {
		userAlias = DefaultAlias
	}
	utils.LogStep(ctx, "Attempting to book slot: %s at %s for %s", date, timeSlot, topic)

	code, err := e.bookLocked(date, timeSlot, topic, userAlias)
	if err != nil {
		if derr := AsDomainError(err); derr != nil {
			utils.LogStep(ctx, "Booking failed: %s", derr.Message)
		}
		return nil, err
	}
	utils.LogStep(ctx, "Generated booking code: %s", code)
	utils.LogStep(ctx, "Saved booking to local store")

	result := &models.BookingResult{
		Code:      code,
		Date:      date,
		Time:      timeSlot,
		Topic:     topic,
		UserAlias: userAlias,
	}

	// Calendar side effect runs outside the store lock with a bounded wait.
	link, calErr := e.createCalendarEvent(ctx, result)
	if calErr == nil && link != "" {
		result.Message = "Booking Confirmed! Event added to your Google Calendar."
		result.CalendarLink = link
		utils.LogStep(ctx, "Google Calendar event created")
	} else {
		result.Message = "Booking saved locally. Note: Calendar event could not be created automatically."
		if calErr != nil {
			utils.LogStep(ctx, "Calendar integration failed: %v", calErr)
			e.Logger.Warn("Calendar event creation failed", zap.String("code", code), zap.Error(calErr))
		}
	}

	e.dispatch(ctx, Event{
		Type:      EventSlotBooked,
		Code:      code,
		Date:      date,
		Time:      timeSlot,
		Topic:     topic,
		UserAlias: userAlias,
	})
	return result, nil
}

func (e *DefaultEngine) bookLocked(date, timeSlot, topic, userAlias string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return "", err
	}

	times, ok := store.Slots[date]
	if !ok {
		return "", newError(ErrDateNotFound, "No slots available for date %s", date)
	}
	slot, ok := times[timeSlot]
	if !ok {
		return "", newError(ErrInvalidTime, "Invalid time slot %s. Available slots are %s.", timeSlot, strings.Join(database.SlotTimes, " and "))
	}
	if slot.Status != models.SlotAvailable {
		return "", newError(ErrSlotTaken, "Slot at %s on %s is already booked", timeSlot, date)
	}

	code := uniqueCode(e.rng, store)
	times[timeSlot] = models.Slot{
		Status:    models.SlotBooked,
		BookingID: &code,
		Topic:     &topic,
		UserAlias: &userAlias,
	}

	if err := e.Store.Save(store); err != nil {
		return "", err
	}
	return code, nil
}

func (e *DefaultEngine) createCalendarEvent(ctx context.Context, r *models.BookingResult) (string, error) {
	if e.Calendar == nil {
		return "", fmt.Errorf("calendar not configured")
	}
	calCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), calendarTimeout)
	defer cancel()
	return e.Calendar.CreateEvent(calCtx, models.Booking{
		BookingID: r.Code,
		Date:      r.Date,
		Time:      r.Time,
		Topic:     r.Topic,
		UserAlias: r.UserAlias,
	})
}

// CancelBooking frees the slot held by code. When the slot has waitlisted
// users, the earliest entry is promoted in place: the slot moves directly
// from the canceled occupant to the promoted one without ever being
// available in between.
func (e *DefaultEngine) CancelBooking(ctx context.Context, code string) (*models.CancelResult, error) {
	result, evt, err := e.cancelLocked(code)
	if err != nil {
		return nil, err
	}
	utils.LogStep(ctx, "%s", result.Message)
	e.dispatch(ctx, evt)
	return result, nil
}

func (e *DefaultEngine) cancelLocked(code string) (*models.CancelResult, Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, Event{}, err
	}

	date, timeSlot, _, found := findBooking(store, code)
	if !found {
		return nil, Event{}, newError(ErrCodeNotFound, "Booking code %s not found", code)
	}

	result := &models.CancelResult{Code: code, Date: date, Time: timeSlot}

	// Promote the earliest waitlist entry for this exact slot, if any.
	promoted := -1
	for i, entry := range store.Waitlist {
		if entry.Date == date && entry.Time == timeSlot {
			promoted = i
			break
		}
	}

	if promoted >= 0 {
		entry := store.Waitlist[promoted]
		store.Waitlist = append(store.Waitlist[:promoted], store.Waitlist[promoted+1:]...)

		newCode := uniqueCode(e.rng, store)
		topic, alias := entry.Topic, entry.UserAlias
		store.Slots[date][timeSlot] = models.Slot{
			Status:    models.SlotBooked,
			BookingID: &newCode,
			Topic:     &topic,
			UserAlias: &alias,
		}
		result.Message = fmt.Sprintf("Booking %s cancelled. %s promoted from waitlist!", code, entry.UserAlias)
		result.Promoted = &models.PromotedEntry{
			NewBookingCode: newCode,
			UserAlias:      entry.UserAlias,
			OldWaitlistID:  entry.WaitlistID,
		}
	} else {
		store.Slots[date][timeSlot] = models.Slot{Status: models.SlotAvailable}
		result.Message = fmt.Sprintf("Booking %s cancelled successfully", code)
	}

	if err := e.Store.Save(store); err != nil {
		return nil, Event{}, err
	}

	evt := Event{Type: EventSlotCanceled, Code: code, Date: date, Time: timeSlot}
	return result, evt, nil
}

// AddToWaitlist appends an overflow request for a slot. It always succeeds
// structurally; no availability check is made. Position is FIFO among
// entries for the same (date, time).
func (e *DefaultEngine) AddToWaitlist(ctx context.Context, date, timeSlot, topic, userAlias string) (*models.WaitlistResult, error) {
	if userAlias == "" {
		userAlias = DefaultAlias
	}
	utils.LogStep(ctx, "Slot full. Adding %s to waitlist for %s %s", userAlias, date, timeSlot)

	e.mu.Lock()
	store, err := e.Store.Load()
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	position := 1
	for _, entry := range store.Waitlist {
		if entry.Date == date && entry.Time == timeSlot {
			position++
		}
	}

	entry := models.WaitlistEntry{
		Date:       date,
		Time:       timeSlot,
		Topic:      topic,
		UserAlias:  userAlias,
		WaitlistID: uniqueCode(e.rng, store),
	}
	store.Waitlist = append(store.Waitlist, entry)

	if err := e.Store.Save(store); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	utils.LogStep(ctx, "Added to waitlist (Position: %d)", position)
	e.dispatch(ctx, Event{
		Type:       EventWaitlistJoined,
		Date:       date,
		Time:       timeSlot,
		Topic:      topic,
		UserAlias:  userAlias,
		WaitlistID: entry.WaitlistID,
	})

	return &models.WaitlistResult{
		WaitlistID: entry.WaitlistID,
		Date:       date,
		Time:       timeSlot,
		Position:   position,
		Message:    fmt.Sprintf("Added to waitlist for %s at %s", date, timeSlot),
	}, nil
}

// CancelWaitlist removes a waitlist entry by its ID.
func (e *DefaultEngine) CancelWaitlist(ctx context.Context, waitlistID string) (*models.WaitlistEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	for i, entry := range store.Waitlist {
		if entry.WaitlistID == waitlistID {
			removed := entry
			store.Waitlist = append(store.Waitlist[:i], store.Waitlist[i+1:]...)
			if err := e.Store.Save(store); err != nil {
				return nil, err
			}
			return &removed, nil
		}
	}
	return nil, newError(ErrCodeNotFound, "Waitlist entry %s not found", waitlistID)
}

// ModifyBooking updates the topic and/or alias of an existing booking in
// place. Empty arguments leave the field unchanged.
func (e *DefaultEngine) ModifyBooking(ctx context.Context, code, newTopic, newAlias string) (*models.Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	date, timeSlot, slot, found := findBooking(store, code)
	if !found {
		return nil, newError(ErrCodeNotFound, "Booking %s not found", code)
	}

	if newTopic != "" {
		slot.Topic = &newTopic
	}
	if newAlias != "" {
		slot.UserAlias = &newAlias
	}
	store.Slots[date][timeSlot] = slot

	if err := e.Store.Save(store); err != nil {
		return nil, err
	}
	return bookingView(code, date, timeSlot, slot), nil
}

// RescheduleBooking moves a booking to a new slot: the old slot is reset to
// available and the full payload lands in the new one, in a single persist.
// Waitlisted users of the vacated slot are not promoted here; promotion is
// cancel-only.
func (e *DefaultEngine) RescheduleBooking(ctx context.Context, code, newDate, newTime string) (*models.Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	oldDate, oldTime, slot, found := findBooking(store, code)
	if !found {
		return nil, newError(ErrCodeNotFound, "Booking %s not found", code)
	}

	times, ok := store.Slots[newDate]
	if !ok {
		return nil, newError(ErrDateNotFound, "No slots available on %s", newDate)
	}
	target, ok := times[newTime]
	if !ok {
		return nil, newError(ErrInvalidTime, "Invalid time slot %s", newTime)
	}
	if target.Status != models.SlotAvailable {
		return nil, newError(ErrSlotTaken, "Slot at %s on %s is not available", newTime, newDate)
	}

	store.Slots[oldDate][oldTime] = models.Slot{Status: models.SlotAvailable}
	store.Slots[newDate][newTime] = slot

	if err := e.Store.Save(store); err != nil {
		return nil, err
	}
	return bookingView(code, newDate, newTime, slot), nil
}

// FindBookingByNameAndTime matches booked slots by case-insensitive alias,
// optionally narrowed by exact time and/or date. Results are ordered by
// date then time.
func (e *DefaultEngine) FindBookingByNameAndTime(ctx context.Context, userAlias, timeFilter, dateFilter string) ([]models.Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	matches := []models.Booking{}
	for date, times := range store.Slots {
		if dateFilter != "" && date != dateFilter {
			continue
		}
		for timeSlot, slot := range times {
			if timeFilter != "" && timeSlot != timeFilter {
				continue
			}
			if slot.Status != models.SlotBooked || slot.UserAlias == nil {
				continue
			}
			if !strings.EqualFold(*slot.UserAlias, userAlias) {
				continue
			}
			matches = append(matches, *bookingView(*slot.BookingID, date, timeSlot, slot))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Date != matches[j].Date {
			return matches[i].Date < matches[j].Date
		}
		return matches[i].Time < matches[j].Time
	})
	return matches, nil
}

// LookupBooking returns the booking identified by code.
func (e *DefaultEngine) LookupBooking(ctx context.Context, code string) (*models.Booking, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	date, timeSlot, slot, found := findBooking(store, code)
	if !found {
		return nil, newError(ErrCodeNotFound, "Booking %s not found", code)
	}
	return bookingView(code, date, timeSlot, slot), nil
}

// LookupWaitlist returns the waitlist entry identified by waitlistID with
// its computed position for that slot.
func (e *DefaultEngine) LookupWaitlist(ctx context.Context, waitlistID string) (*models.WaitlistView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}
	return lookupWaitlist(store, waitlistID)
}

func lookupWaitlist(store *models.Store, waitlistID string) (*models.WaitlistView, error) {
	for i, entry := range store.Waitlist {
		if entry.WaitlistID != waitlistID {
			continue
		}
		position := 0
		for _, prior := range store.Waitlist[:i+1] {
			if prior.Date == entry.Date && prior.Time == entry.Time {
				position++
			}
		}
		return &models.WaitlistView{
			WaitlistID: waitlistID,
			Date:       entry.Date,
			Time:       entry.Time,
			Topic:      entry.Topic,
			UserAlias:  entry.UserAlias,
			Position:   position,
		}, nil
	}
	return nil, newError(ErrCodeNotFound, "Waitlist entry %s not found", waitlistID)
}

// LookupAny resolves a code against bookings first, then the waitlist, and
// returns a tagged result.
func (e *DefaultEngine) LookupAny(ctx context.Context, code string) (*models.LookupResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	store, err := e.Store.Load()
	if err != nil {
		return nil, err
	}

	if date, timeSlot, slot, found := findBooking(store, code); found {
		return &models.LookupResult{Type: "booking", Booking: bookingView(code, date, timeSlot, slot)}, nil
	}
	if view, err := lookupWaitlist(store, code); err == nil {
		return &models.LookupResult{Type: "waitlist", Waitlist: view}, nil
	}
	return nil, newError(ErrCodeNotFound, "Code %s not found in bookings or waitlist", code)
}

// findBooking scans all slots for a booking code.
func findBooking(store *models.Store, code string) (date, timeSlot string, slot models.Slot, found bool) {
	for d, times := range store.Slots {
		for t, s := range times {
			if s.BookingID != nil && *s.BookingID == code {
				return d, t, s, true
			}
		}
	}
	return "", "", models.Slot{}, false
}

func bookingView(code, date, timeSlot string, slot models.Slot) *models.Booking {
	b := &models.Booking{BookingID: code, Date: date, Time: timeSlot, UserAlias: DefaultAlias}
	if slot.Topic != nil {
		b.Topic = *slot.Topic
	}
	if slot.UserAlias != nil {
		b.UserAlias = *slot.UserAlias
	}
	return b
}
