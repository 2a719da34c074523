package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"advisorbot/config"
	"advisorbot/database/repository/history"
	"advisorbot/models"
	"advisorbot/services/booking"
	"advisorbot/utils"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxToolIterations bounds the function-calling loop so a misbehaving model
// can never spin a turn forever.
const maxToolIterations = 10

const (
	fallbackNoResponse = "I apologize, but I couldn't generate a response. Please try again."
	fallbackExhausted  = "I apologize, but I'm having trouble processing your request. Please try again."
	fallbackEmptyText  = "I'm here to help you schedule an appointment."
)

// generator is the model transport. The production implementation talks to
// Gemini; tests substitute a scripted one.
type generator interface {
	Generate(ctx context.Context, conversation []*genai.Content) (*genai.GenerateContentResponse, error)
}

type geminiGenerator struct {
	model *genai.GenerativeModel
}

func (g *geminiGenerator) Generate(ctx context.Context, conversation []*genai.Content) (*genai.GenerateContentResponse, error) {
	if len(conversation) == 0 {
		return nil, fmt.Errorf("empty conversation")
	}
	cs := g.model.StartChat()
	cs.History = conversation[:len(conversation)-1]
	return cs.SendMessage(ctx, conversation[len(conversation)-1].Parts...)
}

// Agent runs the tool-calling loop for a single conversation.
type Agent struct {
	gen     generator
	engine  booking.Engine
	history history.Repository
	logger  *zap.Logger
	timeout time.Duration

	mu           sync.Mutex
	conversation []*genai.Content
	sessionID    string
}

func NewAgent(gen generator, engine booking.Engine, histRepo history.Repository, logger *zap.Logger, timeout time.Duration) *Agent {
	return &Agent{
		gen:     gen,
		engine:  engine,
		history: histRepo,
		logger:  logger,
		timeout: timeout,
	}
}

// NewGeminiAgent builds an Agent backed by the Gemini API, configured with
// the booking tool catalog and the scheduling policy prompt.
func NewGeminiAgent(ctx context.Context, engine booking.Engine, histRepo history.Repository, logger *zap.Logger) (*Agent, error) {
	cfg := config.AppConfig
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.GeminiModel)
	model.Tools = BuildToolCatalog()
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt(
			formatWindowDate(cfg.BookingWindowStart),
			formatWindowDate(cfg.BookingWindowEnd),
		))},
	}

	timeout := time.Duration(cfg.LLMTimeoutSeconds) * time.Second
	return NewAgent(&geminiGenerator{model: model}, engine, histRepo, logger, timeout), nil
}

// formatWindowDate renders a YYYY-MM-DD config date the way the prompt
// speaks about dates. Unparseable values pass through untouched.
func formatWindowDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// Chat appends the user message to the conversation and drives model calls
// until the model answers in text, a fallback fires, or infrastructure
// fails. Tool-level booking errors never fail the turn; they are fed back to
// the model as results.
func (a *Agent) Chat(ctx context.Context, userMessage string) (*models.ChatReply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.conversation = append(a.conversation, &genai.Content{
		Role:  "user",
		Parts: []genai.Part{genai.Text(userMessage)},
	})
	a.ensureSession(ctx)

	var hint *models.UIHint
	for iteration := 0; iteration < maxToolIterations; iteration++ {
		resp, err := a.generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}

		parts := candidateParts(resp)
		if len(parts) == 0 {
			return &models.ChatReply{Text: fallbackNoResponse}, nil
		}

		calls := functionCalls(parts)
		if len(calls) == 0 {
			text := joinText(parts)
			if text == "" {
				text = fallbackEmptyText
			}
			if hint == nil && strings.Contains(strings.ToLower(text), "topic") && strings.Contains(text, "?") {
				hint = &models.UIHint{Type: "topic_selector"}
			}
			a.conversation = append(a.conversation, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(text)},
			})
			a.logTurn(ctx, userMessage, text)
			return &models.ChatReply{Text: text, UIHint: hint}, nil
		}

		a.conversation = append(a.conversation, &genai.Content{Role: "model", Parts: parts})

		responses := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			utils.LogStep(ctx, "Executing tool: %s", fc.Name)
			payload, callHint, err := runTool(ctx, a.engine, fc.Name, fc.Args)
			if err != nil {
				return nil, err
			}
			if callHint != nil {
				hint = callHint
			}
			responses = append(responses, genai.FunctionResponse{
				Name:     fc.Name,
				Response: map[string]interface{}{"result": payload},
			})
		}
		a.conversation = append(a.conversation, &genai.Content{Role: "user", Parts: responses})
	}

	return &models.ChatReply{Text: fallbackExhausted}, nil
}

// Reset drops the conversation; the next Chat starts a fresh transcript
// session.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversation = nil
	a.sessionID = ""
}

func (a *Agent) generate(ctx context.Context) (*genai.GenerateContentResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.gen.Generate(callCtx, a.conversation)
}

func (a *Agent) ensureSession(ctx context.Context) {
	if a.sessionID != "" || a.history == nil {
		return
	}
	id, err := a.history.StartSession(ctx)
	if err != nil {
		a.logger.Warn("Failed to start transcript session", zap.Error(err))
		return
	}
	a.sessionID = id
}

func (a *Agent) logTurn(ctx context.Context, userMessage, agentText string) {
	if a.sessionID == "" || a.history == nil {
		return
	}
	turn := models.Turn{
		Timestamp: time.Now().Format(time.RFC3339),
		User:      userMessage,
		Agent:     agentText,
	}
	if err := a.history.LogTurn(ctx, a.sessionID, turn); err != nil {
		a.logger.Warn("Failed to log transcript turn",
			zap.String("session", a.sessionID), zap.Error(err))
	}
}

func candidateParts(resp *genai.GenerateContentResponse) []genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

func functionCalls(parts []genai.Part) []genai.FunctionCall {
	var calls []genai.FunctionCall
	for _, part := range parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, fc)
		}
	}
	return calls
}

func joinText(parts []genai.Part) string {
	var texts []string
	for _, part := range parts {
		if txt, ok := part.(genai.Text); ok && txt != "" {
			texts = append(texts, string(txt))
		}
	}
	return strings.Join(texts, " ")
}
