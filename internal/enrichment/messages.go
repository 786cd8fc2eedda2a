package enrichment

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskMessage is published to the task queue for the enrichment service.
// The body carries enough candidate material that the service never
// needs database access.
type TaskMessage struct {
	TaskID            uuid.UUID `json:"taskId"`
	TenantID          uuid.UUID `json:"tenantId"`
	CandidateID       uuid.UUID `json:"candidateId"`
	CandidateSourceID string    `json:"candidateSourceId"`
	Summary           []string  `json:"summary"`
	Skills            []string  `json:"skills"`
	RequestedAt       time.Time `json:"requestedAt"`
}

// ResultMessage is consumed from the result queue once the enrichment
// service finishes a task.
type ResultMessage struct {
	TaskID      uuid.UUID `json:"taskId"`
	TenantID    uuid.UUID `json:"tenantId"`
	CandidateID uuid.UUID `json:"candidateId"`
	Status      string    `json:"status"`
	Summary     string    `json:"summary,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

const (
	ResultStatusCompleted = "completed"
	ResultStatusFailed    = "failed"
)

// encodeEnvelope wraps a message as base64-encoded JSON, the wire
// convention both queues share.
func encodeEnvelope(message any) ([]byte, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(payload)
	return []byte(encoded), nil
}
