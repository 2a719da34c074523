package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// webhookTimeout bounds every outbound call so a slow automation endpoint
// can never stall a booking flow.
const webhookTimeout = 10 * time.Second

// WebhookNotificationService POSTs action envelopes to an n8n-style
// automation webhook.
type WebhookNotificationService struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func NewWebhookNotificationService(url string, logger *zap.Logger) *WebhookNotificationService {
	return &WebhookNotificationService{
		URL:    url,
		Client: &http.Client{Timeout: webhookTimeout},
		Logger: logger,
	}
}

type actionEnvelope struct {
	Action  Action      `json:"action"`
	Payload interface{} `json:"payload"`
}

// TriggerAction sends one action envelope. An unset URL disables delivery
// silently.
func (s *WebhookNotificationService) TriggerAction(ctx context.Context, action Action, payload interface{}) error {
	if s.URL == "" {
		return nil
	}

	body, err := json.Marshal(actionEnvelope{Action: action, Payload: payload})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	s.Logger.Debug("Webhook request", zap.String("action", string(action)))
	resp, err := s.Client.Do(req)
	if err != nil {
		s.Logger.Warn("Webhook delivery failed", zap.String("action", string(action)), zap.Error(err))
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.Logger.Warn("Webhook returned non-OK status",
			zap.String("action", string(action)),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("webhook: status %d", resp.StatusCode)
	}
	return nil
}
