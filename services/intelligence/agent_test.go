package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"advisorbot/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
)

// scriptedGenerator replays canned model responses in order.
type scriptedGenerator struct {
	responses []*genai.GenerateContentResponse
	err       error
	calls     int
}

func (g *scriptedGenerator) Generate(ctx context.Context, conversation []*genai.Content) (*genai.GenerateContentResponse, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	idx := g.calls - 1
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

func modelResponse(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: parts}},
		},
	}
}

// fakeEngine satisfies booking.Engine with canned results for the methods a
// test exercises.
type fakeEngine struct {
	availability    []string
	availabilityErr error
	checkedDates    []string

	bookResult *models.BookingResult
	bookErr    error
	bookCalls  int
}

func (f *fakeEngine) CheckAvailability(ctx context.Context, date string) ([]string, error) {
	f.checkedDates = append(f.checkedDates, date)
	return f.availability, f.availabilityErr
}

func (f *fakeEngine) GetSlotsWithStatus(ctx context.Context, start, end string) (map[string]map[string]models.SlotStatusView, error) {
	return nil, nil
}

func (f *fakeEngine) GetAllAvailableDates(ctx context.Context) ([]string, error) {
	return []string{"2026-01-07"}, nil
}

func (f *fakeEngine) BookSlot(ctx context.Context, date, timeSlot, topic, alias string) (*models.BookingResult, error) {
	f.bookCalls++
	return f.bookResult, f.bookErr
}

func (f *fakeEngine) CancelBooking(ctx context.Context, code string) (*models.CancelResult, error) {
	return &models.CancelResult{Code: code, Message: "Booking " + code + " cancelled successfully"}, nil
}

func (f *fakeEngine) AddToWaitlist(ctx context.Context, date, timeSlot, topic, alias string) (*models.WaitlistResult, error) {
	return &models.WaitlistResult{WaitlistID: "NL-WL01", Date: date, Time: timeSlot, Position: 1}, nil
}

func (f *fakeEngine) CancelWaitlist(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	return nil, nil
}

func (f *fakeEngine) ModifyBooking(ctx context.Context, code, topic, alias string) (*models.Booking, error) {
	return nil, nil
}

func (f *fakeEngine) RescheduleBooking(ctx context.Context, code, date, timeSlot string) (*models.Booking, error) {
	return nil, nil
}

func (f *fakeEngine) FindBookingByNameAndTime(ctx context.Context, alias, timeFilter, dateFilter string) ([]models.Booking, error) {
	return []models.Booking{{BookingID: "NL-AB12", Date: "2026-01-07", Time: "14:00", UserAlias: alias}}, nil
}

func (f *fakeEngine) LookupBooking(ctx context.Context, code string) (*models.Booking, error) {
	return nil, nil
}

func (f *fakeEngine) LookupWaitlist(ctx context.Context, id string) (*models.WaitlistView, error) {
	return nil, nil
}

func (f *fakeEngine) LookupAny(ctx context.Context, code string) (*models.LookupResult, error) {
	return nil, nil
}

type memHistory struct {
	sessions int
	turns    map[string][]models.Turn
}

func newMemHistory() *memHistory {
	return &memHistory{turns: make(map[string][]models.Turn)}
}

func (h *memHistory) StartSession(ctx context.Context) (string, error) {
	h.sessions++
	return "session_test", nil
}

func (h *memHistory) LogTurn(ctx context.Context, sessionID string, turn models.Turn) error {
	h.turns[sessionID] = append(h.turns[sessionID], turn)
	return nil
}

func (h *memHistory) GetSession(ctx context.Context, sessionID string) ([]models.Turn, error) {
	return h.turns[sessionID], nil
}

func (h *memHistory) ListSessions(ctx context.Context) ([]string, error) {
	return nil, nil
}

func newTestAgent(gen generator, engine *fakeEngine, hist *memHistory) *Agent {
	return NewAgent(gen, engine, hist, zap.NewNop(), time.Second)
}

func TestChatPlainTextReply(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.Text("Welcome to HDFC Mutual Funds Advisor Scheduler.")),
	}}
	hist := newMemHistory()
	agent := newTestAgent(gen, &fakeEngine{}, hist)

	reply, err := agent.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Text != "Welcome to HDFC Mutual Funds Advisor Scheduler." {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.UIHint != nil {
		t.Errorf("unexpected hint %+v", reply.UIHint)
	}

	if len(agent.conversation) != 2 {
		t.Fatalf("conversation length = %d, want 2", len(agent.conversation))
	}
	if agent.conversation[0].Role != "user" || agent.conversation[1].Role != "model" {
		t.Errorf("conversation roles wrong")
	}

	turns := hist.turns["session_test"]
	if len(turns) != 1 || turns[0].User != "hello" {
		t.Errorf("transcript turns = %+v", turns)
	}
}

func TestChatRunsToolThenAnswers(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.FunctionCall{
			Name: toolCheckAvailability,
			Args: map[string]interface{}{"date_str": "2026-01-07"},
		}),
		modelResponse(genai.Text("Both slots are open on January 7.")),
	}}
	engine := &fakeEngine{availability: []string{"14:00", "15:00"}}
	agent := newTestAgent(gen, engine, newMemHistory())

	reply, err := agent.Chat(context.Background(), "what's free on the 7th?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Text != "Both slots are open on January 7." {
		t.Errorf("text = %q", reply.Text)
	}
	if len(engine.checkedDates) != 1 || engine.checkedDates[0] != "2026-01-07" {
		t.Errorf("engine calls = %v", engine.checkedDates)
	}
	if reply.UIHint == nil || reply.UIHint.Type != "calendar_widget" {
		t.Fatalf("hint = %+v, want calendar_widget", reply.UIHint)
	}

	// user msg, model call, tool results, final model text
	if len(agent.conversation) != 4 {
		t.Fatalf("conversation length = %d, want 4", len(agent.conversation))
	}
	toolTurn := agent.conversation[2]
	if toolTurn.Role != "user" || len(toolTurn.Parts) != 1 {
		t.Fatalf("tool turn = %+v", toolTurn)
	}
	fr, ok := toolTurn.Parts[0].(genai.FunctionResponse)
	if !ok || fr.Name != toolCheckAvailability {
		t.Fatalf("tool part = %+v", toolTurn.Parts[0])
	}
	if _, ok := fr.Response["result"]; !ok {
		t.Errorf("function response missing result envelope: %v", fr.Response)
	}
}

func TestChatRelaysDomainErrorToModel(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.FunctionCall{
			Name: toolBookSlot,
			Args: map[string]interface{}{
				"date_str": "2026-01-07",
				"time_str": "14:00",
				"topic":    "Withdrawals",
			},
		}),
		modelResponse(genai.Text("That slot is already taken, shall I check another?")),
	}}
	engine := &fakeEngine{bookErr: slotTakenErr()}
	agent := newTestAgent(gen, engine, newMemHistory())

	reply, err := agent.Chat(context.Background(), "book the 7th at 2pm")
	if err != nil {
		t.Fatalf("domain tool error must not fail the turn: %v", err)
	}
	if reply.Text != "That slot is already taken, shall I check another?" {
		t.Errorf("text = %q", reply.Text)
	}
	if reply.UIHint != nil {
		t.Errorf("failed booking must not produce a booking card")
	}

	fr := agent.conversation[2].Parts[0].(genai.FunctionResponse)
	payload, ok := fr.Response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("result payload = %+v", fr.Response["result"])
	}
	if payload["status"] != "error" {
		t.Errorf("payload = %v, want status error", payload)
	}
}

func TestChatBookingSuccessYieldsBookingCard(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.FunctionCall{
			Name: toolBookSlot,
			Args: map[string]interface{}{
				"date_str": "2026-01-07",
				"time_str": "14:00",
				"topic":    "Withdrawals",
			},
		}),
		modelResponse(genai.Text("Done! Your code is NL-AB12.")),
	}}
	engine := &fakeEngine{bookResult: &models.BookingResult{
		Code: "NL-AB12", Date: "2026-01-07", Time: "14:00",
		Topic: "Withdrawals", UserAlias: "Anonymous",
		Message: "Booking Confirmed! Event added to your Google Calendar.",
	}}
	agent := newTestAgent(gen, engine, newMemHistory())

	reply, err := agent.Chat(context.Background(), "book it")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.UIHint == nil || reply.UIHint.Type != "booking_card" {
		t.Fatalf("hint = %+v, want booking_card", reply.UIHint)
	}
	data, ok := reply.UIHint.Data.(map[string]interface{})
	if !ok || data["code"] != "NL-AB12" || data["status"] != "success" {
		t.Errorf("hint data = %+v", reply.UIHint.Data)
	}
}

func TestChatInfrastructureErrorAborts(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.FunctionCall{
			Name: toolBookSlot,
			Args: map[string]interface{}{
				"date_str": "2026-01-07",
				"time_str": "14:00",
				"topic":    "Withdrawals",
			},
		}),
	}}
	engine := &fakeEngine{bookErr: errors.New("slot store: read store.json: permission denied")}
	agent := newTestAgent(gen, engine, newMemHistory())

	_, err := agent.Chat(context.Background(), "book it")
	if err == nil {
		t.Fatalf("store failure must abort the turn")
	}
	if errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("store failure is not a model transport failure")
	}
}

func TestChatIterationBound(t *testing.T) {
	// The model never stops calling tools; the loop must give up.
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.FunctionCall{
			Name: toolAllAvailableDates,
			Args: map[string]interface{}{},
		}),
	}}
	agent := newTestAgent(gen, &fakeEngine{}, newMemHistory())

	reply, err := agent.Chat(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Text != fallbackExhausted {
		t.Errorf("text = %q, want exhaustion fallback", reply.Text)
	}
	if gen.calls != maxToolIterations {
		t.Errorf("model calls = %d, want %d", gen.calls, maxToolIterations)
	}
}

func TestChatEmptyCandidates(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		{},
	}}
	agent := newTestAgent(gen, &fakeEngine{}, newMemHistory())

	reply, err := agent.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Text != fallbackNoResponse {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestChatTransportErrorWrapsSentinel(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("quota exceeded")}
	agent := newTestAgent(gen, &fakeEngine{}, newMemHistory())

	_, err := agent.Chat(context.Background(), "hello")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestChatEmptyTextFallsBack(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.Text("")),
	}}
	agent := newTestAgent(gen, &fakeEngine{}, newMemHistory())

	reply, err := agent.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Text != fallbackEmptyText {
		t.Errorf("text = %q", reply.Text)
	}
}

func TestTopicSelectorHeuristic(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.Text("Which topic would you like to discuss?")),
	}}
	agent := newTestAgent(gen, &fakeEngine{}, newMemHistory())

	reply, err := agent.Chat(context.Background(), "I want an appointment")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.UIHint == nil || reply.UIHint.Type != "topic_selector" {
		t.Errorf("hint = %+v, want topic_selector", reply.UIHint)
	}
}

func TestTopicSelectorDoesNotOverrideToolHint(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.FunctionCall{
			Name: toolCheckAvailability,
			Args: map[string]interface{}{"date_str": "2026-01-07"},
		}),
		modelResponse(genai.Text("Two slots are open. Is the topic correct?")),
	}}
	agent := newTestAgent(gen, &fakeEngine{availability: []string{"14:00"}}, newMemHistory())

	reply, err := agent.Chat(context.Background(), "availability on the 7th")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.UIHint == nil || reply.UIHint.Type != "calendar_widget" {
		t.Errorf("hint = %+v, tool hint must win", reply.UIHint)
	}
}

func TestResetClearsConversation(t *testing.T) {
	gen := &scriptedGenerator{responses: []*genai.GenerateContentResponse{
		modelResponse(genai.Text("hi")),
	}}
	hist := newMemHistory()
	agent := newTestAgent(gen, &fakeEngine{}, hist)

	if _, err := agent.Chat(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	agent.Reset()

	if len(agent.conversation) != 0 {
		t.Errorf("conversation not cleared")
	}
	if agent.sessionID != "" {
		t.Errorf("session not detached")
	}

	// The next turn starts a fresh transcript session.
	if _, err := agent.Chat(context.Background(), "hello again"); err != nil {
		t.Fatal(err)
	}
	if hist.sessions != 2 {
		t.Errorf("sessions started = %d, want 2", hist.sessions)
	}
}
