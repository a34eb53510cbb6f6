package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// WebhookSender delivers outbound messages by posting JSON to a configured
// callback URL. A gateway (messaging bridge, bot framework) owns the actual
// chat network connection and forwards inbound messages to our webhook
// endpoint.
type WebhookSender struct {
	url        string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
	healthy    atomic.Bool
}

// NewWebhookSender creates a webhook-backed sender. An empty URL yields a
// sender that reports disconnected, which pushes the approval workflow onto
// its fallback policy.
func NewWebhookSender(url, token string, logger zerolog.Logger) *WebhookSender {
	s := &WebhookSender{
		url:        strings.TrimSpace(url),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "webhook-sender").Logger(),
	}
	s.healthy.Store(s.url != "")
	return s
}

type outboundMessage struct {
	Destination string `json:"destination"`
	Text        string `json:"text"`
}

// Send posts one message to the gateway.
func (s *WebhookSender) Send(ctx context.Context, destination, text string) error {
	if s.url == "" {
		return fmt.Errorf("no webhook url configured")
	}

	body, err := json.Marshal(outboundMessage{Destination: destination, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.healthy.Store(false)
		return fmt.Errorf("delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.healthy.Store(false)
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("delivery failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	s.healthy.Store(true)
	s.logger.Debug().Str("destination", destination).Msg("Message delivered")
	return nil
}

// Connected reports whether the last delivery attempt succeeded. A fresh
// sender with a configured URL starts out optimistic.
func (s *WebhookSender) Connected() bool {
	return s.healthy.Load()
}
