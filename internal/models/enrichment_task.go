package models

import (
	"time"

	"github.com/google/uuid"
)

// Enrichment task lifecycle. A candidate has at most one queue entry;
// re-enqueueing a pending or processing task is a no-op.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

type EnrichmentTask struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null" json:"tenant_id"`
	CandidateID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"candidate_id"`
	Status      string     `gorm:"not null;default:'pending'" json:"status"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   *string    `json:"last_error"`
	EnqueuedAt  time.Time  `gorm:"not null;default:now()" json:"enqueued_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (EnrichmentTask) TableName() string {
	return "enrichment_queue"
}
