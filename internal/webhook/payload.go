package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Payload is the envelope the ATS posts to our callback URL.
type Payload struct {
	Event     string      `json:"event" validate:"required"`
	EventID   string      `json:"eventId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      PayloadData `json:"data" validate:"required"`
	Metadata  PayloadMeta `json:"metadata" validate:"required"`
}

// PayloadData identifies the record the event is about. Deletion events
// may carry the record's final status.
type PayloadData struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status,omitempty"`
}

type PayloadMeta struct {
	TenantID string `json:"tenantId" validate:"required,uuid"`
}

// ParsePayload unmarshals and validates a webhook body. The event name
// must be of the form resource.action; whether the pair is one we
// recognize is decided later, so new provider events never 400.
func ParsePayload(body []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}

	parts := strings.SplitN(payload.Event, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid payload: event must be of the form resource.action, got %q", payload.Event)
	}

	return &payload, nil
}
