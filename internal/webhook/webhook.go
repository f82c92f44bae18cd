package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Dhruv501/contract-intelligence-api/internal/utils"
	"github.com/google/uuid"
)

// Emitter delivers lifecycle events (document.ingested, document.audited,
// document.extracted) to the configured webhook URL. Delivery is best
// effort: failures are logged, never surfaced to the request that caused
// the event.
type Emitter struct {
	url    string
	client *http.Client
	logger *utils.Logger
}

type event struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewEmitter(url string, logger *utils.Logger) *Emitter {
	return &Emitter{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Emit posts one event. A nil or unconfigured emitter is a no-op.
func (e *Emitter) Emit(ctx context.Context, eventType string, payload map[string]any) {
	if e == nil || e.url == "" {
		return
	}

	body, err := json.Marshal(event{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		e.logger.Error("failed to marshal webhook event", "error", err, "event_type", eventType)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		e.logger.Error("failed to create webhook request", "error", err, "event_type", eventType)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("failed to emit webhook event", "error", err, "event_type", eventType)
		return
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		e.logger.Error("webhook endpoint rejected event", "status", resp.StatusCode, "event_type", eventType)
		return
	}

	e.logger.Info("webhook event emitted", "event_type", eventType)
}
