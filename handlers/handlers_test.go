package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"advisorbot/models"
	"advisorbot/services/booking"
	ai "advisorbot/services/intelligence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAgent struct {
	mu     sync.Mutex
	reply  *models.ChatReply
	err    error
	chats  []string
	resets int
}

func (a *fakeAgent) Chat(ctx context.Context, msg string) (*models.ChatReply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chats = append(a.chats, msg)
	return a.reply, a.err
}

func (a *fakeAgent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resets++
}

func newRegistry(agent *fakeAgent) (*SessionRegistry, *int) {
	created := 0
	factory := func(ctx context.Context) (ai.AgentService, error) {
		created++
		return agent, nil
	}
	return NewSessionRegistry(factory, 30*time.Minute, zap.NewNop()), &created
}

// fakeEngine satisfies booking.Engine with canned responses.
type fakeEngine struct {
	grid    map[string]map[string]models.SlotStatusView
	gridErr error

	bookResult *models.BookingResult
	bookErr    error

	cancelResult *models.CancelResult
	cancelErr    error

	lookupResult *models.LookupResult
	lookupErr    error

	removedEntry *models.WaitlistEntry
	removeErr    error
}

func (f *fakeEngine) CheckAvailability(ctx context.Context, date string) ([]string, error) {
	return nil, nil
}

func (f *fakeEngine) GetSlotsWithStatus(ctx context.Context, start, end string) (map[string]map[string]models.SlotStatusView, error) {
	return f.grid, f.gridErr
}

func (f *fakeEngine) GetAllAvailableDates(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeEngine) BookSlot(ctx context.Context, date, timeSlot, topic, alias string) (*models.BookingResult, error) {
	return f.bookResult, f.bookErr
}

func (f *fakeEngine) CancelBooking(ctx context.Context, code string) (*models.CancelResult, error) {
	return f.cancelResult, f.cancelErr
}

func (f *fakeEngine) AddToWaitlist(ctx context.Context, date, timeSlot, topic, alias string) (*models.WaitlistResult, error) {
	return &models.WaitlistResult{WaitlistID: "NL-WL01", Date: date, Time: timeSlot, Position: 1}, nil
}

func (f *fakeEngine) CancelWaitlist(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	return f.removedEntry, f.removeErr
}

func (f *fakeEngine) ModifyBooking(ctx context.Context, code, topic, alias string) (*models.Booking, error) {
	return &models.Booking{BookingID: code, Topic: topic}, nil
}

func (f *fakeEngine) RescheduleBooking(ctx context.Context, code, date, timeSlot string) (*models.Booking, error) {
	return &models.Booking{BookingID: code, Date: date, Time: timeSlot}, nil
}

func (f *fakeEngine) FindBookingByNameAndTime(ctx context.Context, alias, timeFilter, dateFilter string) ([]models.Booking, error) {
	return nil, nil
}

func (f *fakeEngine) LookupBooking(ctx context.Context, code string) (*models.Booking, error) {
	return nil, nil
}

func (f *fakeEngine) LookupWaitlist(ctx context.Context, id string) (*models.WaitlistView, error) {
	return nil, nil
}

func (f *fakeEngine) LookupAny(ctx context.Context, code string) (*models.LookupResult, error) {
	return f.lookupResult, f.lookupErr
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.POST(path, handler)

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, handler gin.HandlerFunc, route, url string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.GET(route, handler)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestChatHandlerRejectsMissingMessage(t *testing.T) {
	reg, _ := newRegistry(&fakeAgent{})
	w := postJSON(t, ChatHandler(reg), "/api/chat", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["response"] != "No message provided" {
		t.Errorf("body = %v", body)
	}
}

func TestChatHandlerRejectsBlankMessage(t *testing.T) {
	reg, _ := newRegistry(&fakeAgent{})
	w := postJSON(t, ChatHandler(reg), "/api/chat", models.ChatRequest{Message: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeBody(t, w); body["response"] != "Empty message" {
		t.Errorf("body = %v", body)
	}
}

func TestChatHandlerSuccess(t *testing.T) {
	agent := &fakeAgent{reply: &models.ChatReply{
		Text:   "Welcome!",
		UIHint: &models.UIHint{Type: "topic_selector"},
	}}
	reg, created := newRegistry(agent)

	w := postJSON(t, ChatHandler(reg), "/api/chat", models.ChatRequest{Message: "  hello  "})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["status"] != "success" {
		t.Errorf("status field = %v", body["status"])
	}
	response, ok := body["response"].(map[string]interface{})
	if !ok || response["text"] != "Welcome!" {
		t.Errorf("response = %v", body["response"])
	}
	hint, ok := response["ui_hint"].(map[string]interface{})
	if !ok || hint["type"] != "topic_selector" {
		t.Errorf("ui_hint = %v", response["ui_hint"])
	}

	// The message reaches the agent trimmed.
	if len(agent.chats) != 1 || agent.chats[0] != "hello" {
		t.Errorf("agent received %v", agent.chats)
	}
	if *created != 1 {
		t.Errorf("agents created = %d, want 1", *created)
	}

	// First contact issues a session cookie.
	cookieSet := false
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Errorf("session cookie not issued")
	}
}

func TestChatHandlerReusesSessionAgent(t *testing.T) {
	agent := &fakeAgent{reply: &models.ChatReply{Text: "hi"}}
	reg, created := newRegistry(agent)

	router := gin.New()
	router.POST("/api/chat", ChatHandler(reg))

	first := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"one"}`))
	first.Header.Set("Content-Type", "application/json")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, first)

	second := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"two"}`))
	second.Header.Set("Content-Type", "application/json")
	for _, c := range w1.Result().Cookies() {
		second.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, second)

	if *created != 1 {
		t.Errorf("agents created = %d, want 1 for a continued session", *created)
	}
	if len(agent.chats) != 2 {
		t.Errorf("agent chats = %v", agent.chats)
	}
}

func TestChatHandlerHidesInternalErrors(t *testing.T) {
	agent := &fakeAgent{err: ai.ErrEngineUnavailable}
	reg, _ := newRegistry(agent)

	w := postJSON(t, ChatHandler(reg), "/api/chat", models.ChatRequest{Message: "hello"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["response"] != genericApology {
		t.Errorf("body = %v, internal detail must not leak", body)
	}
}

func TestResetHandlerRemovesSession(t *testing.T) {
	agent := &fakeAgent{reply: &models.ChatReply{Text: "hi"}}
	reg, _ := newRegistry(agent)

	router := gin.New()
	router.POST("/api/chat", ChatHandler(reg))
	router.POST("/api/reset", ResetHandler(reg))

	chat := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hello"}`))
	chat.Header.Set("Content-Type", "application/json")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, chat)
	if reg.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", reg.Len())
	}

	reset := httptest.NewRequest(http.MethodPost, "/api/reset", nil)
	for _, c := range w1.Result().Cookies() {
		reset.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, reset)

	if w2.Code != http.StatusOK {
		t.Fatalf("status = %d", w2.Code)
	}
	if reg.Len() != 0 {
		t.Errorf("session not removed")
	}
	if agent.resets != 1 {
		t.Errorf("agent resets = %d, want 1", agent.resets)
	}
}

func TestSessionRegistryEvictsIdle(t *testing.T) {
	agent := &fakeAgent{}
	reg, _ := newRegistry(agent)

	if _, err := reg.Agent(context.Background(), "stale"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Agent(context.Background(), "fresh"); err != nil {
		t.Fatal(err)
	}
	reg.mu.Lock()
	reg.entries["stale"].lastSeen = time.Now().Add(-time.Hour)
	reg.mu.Unlock()

	if evicted := reg.evictIdle(time.Now()); evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if reg.Len() != 1 {
		t.Errorf("sessions = %d, want 1", reg.Len())
	}
	if agent.resets != 1 {
		t.Errorf("evicted agent must be reset")
	}
}

func TestHealthHandler(t *testing.T) {
	w := getJSON(t, HealthHandler(), "/api/health", "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestSlotsHandler(t *testing.T) {
	engine := &fakeEngine{grid: map[string]map[string]models.SlotStatusView{
		"2026-01-07": {
			"14:00": {Status: models.SlotBooked, WaitlistCount: 2},
			"15:00": {Status: models.SlotAvailable},
		},
	}}

	w := getJSON(t, SlotsHandler(engine), "/api/slots", "/api/slots?start_date=2026-01-07&end_date=2026-01-07")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	slots, ok := body["slots"].(map[string]interface{})
	if !ok {
		t.Fatalf("slots = %v", body["slots"])
	}
	day, ok := slots["2026-01-07"].(map[string]interface{})
	if !ok {
		t.Fatalf("day = %v", slots["2026-01-07"])
	}
	cell, ok := day["14:00"].(map[string]interface{})
	if !ok || cell["status"] != "booked" || cell["waitlist_count"] != float64(2) {
		t.Errorf("cell = %v", day["14:00"])
	}
}

func TestSlotsHandlerBadRange(t *testing.T) {
	engine := &fakeEngine{gridErr: &booking.Error{Code: booking.ErrDateNotFound, Message: "Invalid start date nope"}}
	w := getJSON(t, SlotsHandler(engine), "/api/slots", "/api/slots?start_date=nope&end_date=2026-01-07")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestManualBookHandler(t *testing.T) {
	engine := &fakeEngine{bookResult: &models.BookingResult{
		Code: "NL-AB12", Date: "2026-01-07", Time: "14:00",
		Message: "Booking saved locally. Note: Calendar event could not be created automatically.",
	}}

	w := postJSON(t, ManualBookHandler(engine), "/api/manual/book", map[string]string{
		"date": "2026-01-07", "time": "14:00", "topic": "Withdrawals",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	bookingBody, ok := body["booking"].(map[string]interface{})
	if !ok || bookingBody["code"] != "NL-AB12" {
		t.Errorf("body = %v", body)
	}
}

func TestManualBookHandlerValidation(t *testing.T) {
	w := postJSON(t, ManualBookHandler(&fakeEngine{}), "/api/manual/book", map[string]string{
		"date": "2026-01-07",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestManualBookHandlerConflict(t *testing.T) {
	engine := &fakeEngine{bookErr: &booking.Error{
		Code:    booking.ErrSlotTaken,
		Message: "Slot at 14:00 on 2026-01-07 is already booked",
	}}
	w := postJSON(t, ManualBookHandler(engine), "/api/manual/book", map[string]string{
		"date": "2026-01-07", "time": "14:00", "topic": "Withdrawals",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != "Slot at 14:00 on 2026-01-07 is already booked" {
		t.Errorf("body = %v", body)
	}
}

func TestManualBookHandlerInfraError(t *testing.T) {
	engine := &fakeEngine{bookErr: errors.New("slot store: write store.json: disk full")}
	w := postJSON(t, ManualBookHandler(engine), "/api/manual/book", map[string]string{
		"date": "2026-01-07", "time": "14:00", "topic": "Withdrawals",
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body := decodeBody(t, w); body["message"] != genericApology {
		t.Errorf("internal detail leaked: %v", body)
	}
}

func TestLookupHandler(t *testing.T) {
	engine := &fakeEngine{lookupResult: &models.LookupResult{
		Type:    "booking",
		Booking: &models.Booking{BookingID: "NL-AB12", Date: "2026-01-07", Time: "14:00"},
	}}

	w := getJSON(t, LookupHandler(engine), "/api/booking/lookup", "/api/booking/lookup?code=NL-AB12")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeBody(t, w)
	result, ok := body["result"].(map[string]interface{})
	if !ok || result["type"] != "booking" {
		t.Errorf("body = %v", body)
	}
}

func TestLookupHandlerMissingCode(t *testing.T) {
	w := getJSON(t, LookupHandler(&fakeEngine{}), "/api/booking/lookup", "/api/booking/lookup")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLookupHandlerNotFound(t *testing.T) {
	engine := &fakeEngine{lookupErr: &booking.Error{
		Code:    booking.ErrCodeNotFound,
		Message: "Code NL-0000 not found in bookings or waitlist",
	}}
	w := getJSON(t, LookupHandler(engine), "/api/booking/lookup", "/api/booking/lookup?code=NL-0000")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCancelHandler(t *testing.T) {
	engine := &fakeEngine{cancelResult: &models.CancelResult{
		Code: "NL-AB12", Date: "2026-01-07", Time: "14:00",
		Message: "Booking NL-AB12 cancelled successfully",
	}}
	w := postJSON(t, CancelHandler(engine), "/api/booking/cancel", map[string]string{"code": "NL-AB12"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestWaitlistCancelHandler(t *testing.T) {
	engine := &fakeEngine{removedEntry: &models.WaitlistEntry{
		WaitlistID: "NL-WL01", Date: "2026-01-07", Time: "14:00", UserAlias: "Bob",
	}}
	w := postJSON(t, WaitlistCancelHandler(engine), "/api/waitlist/cancel", map[string]string{
		"waitlist_id": "NL-WL01",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	removed, ok := body["removed"].(map[string]interface{})
	if !ok || removed["user_alias"] != "Bob" {
		t.Errorf("body = %v", body)
	}
}
