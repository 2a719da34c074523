// Package calendar is the Google Calendar adapter for confirmed bookings.
package calendar

import (
	"context"
	"fmt"
	"time"

	"advisorbot/models"

	"go.uber.org/zap"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	istOffset          = "+05:30"
	istTimeZone        = "Asia/Kolkata"
	appointmentLength  = time.Hour
	eventSummaryFormat = "HDFC Mutual Funds - %s Consultation"
)

// GoogleCalendarService creates events on a service-account calendar.
type GoogleCalendarService struct {
	svc        *calendarapi.Service
	calendarID string
	logger     *zap.Logger
}

// NewGoogleCalendarService builds the adapter from a service-account
// credentials file. Returns an error when credentials are absent; callers
// treat a nil calendar as "integration disabled".
func NewGoogleCalendarService(credentialsFile, calendarID string, logger *zap.Logger) (*GoogleCalendarService, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("calendar: no service account file configured")
	}
	svc, err := calendarapi.NewService(context.Background(),
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(calendarapi.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendarService{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// CreateEvent inserts a one-hour appointment event and returns its link.
func (g *GoogleCalendarService) CreateEvent(ctx context.Context, b models.Booking) (string, error) {
	start, err := time.Parse("2006-01-02 15:04", b.Date+" "+b.Time)
	if err != nil {
		return "", fmt.Errorf("calendar: parse booking time: %w", err)
	}
	end := start.Add(appointmentLength)

	event := &calendarapi.Event{
		Summary: fmt.Sprintf(eventSummaryFormat, b.Topic),
		Description: fmt.Sprintf(
			"Appointment Details:\n- Topic: %s\n- Booking Code: %s\n- User: %s\n\nThis is an automated booking from the Advisor Scheduler.",
			b.Topic, b.BookingID, b.UserAlias,
		),
		Start: &calendarapi.EventDateTime{
			DateTime: start.Format("2006-01-02T15:04:05") + istOffset,
			TimeZone: istTimeZone,
		},
		End: &calendarapi.EventDateTime{
			DateTime: end.Format("2006-01-02T15:04:05") + istOffset,
			TimeZone: istTimeZone,
		},
		Reminders: &calendarapi.EventReminders{
			UseDefault: false,
			Overrides: []*calendarapi.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, event).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}

	g.logger.Debug("Calendar event created",
		zap.String("event_id", created.Id),
		zap.String("booking", b.BookingID))
	return created.HtmlLink, nil
}

// DeleteEvent removes an event by ID. A 404 counts as success.
func (g *GoogleCalendarService) DeleteEvent(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		g.logger.Warn("Calendar event delete failed", zap.String("event_id", eventID), zap.Error(err))
		return fmt.Errorf("calendar: delete event: %w", err)
	}
	return nil
}
