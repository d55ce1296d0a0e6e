package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink POSTs every notification as JSON to a fixed URL, for shops
// that mirror customer messages into another system.
type WebhookSink struct {
	URL     string
	Headers map[string]string
	Client  *http.Client
}

type webhookPayload struct {
	TelegramID int64     `json:"telegram_id"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (s *WebhookSink) Notify(ctx context.Context, telegramID int64, text string) error {
	if s.URL == "" {
		return fmt.Errorf("notification/webhook: URL is empty")
	}

	raw, err := json.Marshal(webhookPayload{TelegramID: telegramID, Text: text, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("notification/webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("notification/webhook: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notification/webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification/webhook: returned HTTP %d", resp.StatusCode)
	}
	return nil
}
