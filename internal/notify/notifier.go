// Package notify delivers fire-and-forget booking notifications. Delivery
// failure must never fail or roll back the operation being announced, so the
// interface has no error return; implementations log and move on.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Notifier interface {
	Notify(ctx context.Context, recipientID uuid.UUID, message string)
}

type payload struct {
	RecipientID      uuid.UUID `json:"recipient_id"`
	Message          string    `json:"message"`
	NotificationType string    `json:"notification_type"`
}

type HTTPNotifier struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewHTTPNotifier(url string, log zerolog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		url:    url,
		client: &http.Client{Timeout: 3 * time.Second},
		log:    log,
	}
}

func (n *HTTPNotifier) Notify(ctx context.Context, recipientID uuid.UUID, message string) {
	body, err := json.Marshal(payload{
		RecipientID:      recipientID,
		Message:          message,
		NotificationType: "SYSTEM",
	})
	if err != nil {
		n.log.Error().Err(err).Msg("marshal notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.log.Error().Err(err).Msg("build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Stringer("recipient_id", recipientID).Msg("notification delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn().Int("status", resp.StatusCode).Stringer("recipient_id", recipientID).Msg("notification rejected")
	}
}

// Nop is used when no notification endpoint is configured, and in tests.
type Nop struct{}

func (Nop) Notify(context.Context, uuid.UUID, string) {}
