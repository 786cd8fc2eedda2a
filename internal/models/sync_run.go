package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SyncKindInitial = "initial"
	SyncKindDelta   = "delta"
)

// SyncStats summarizes one reconciliation pass for one tenant.
type SyncStats struct {
	Total           int `json:"total"`
	Created         int `json:"created"`
	Updated         int `json:"updated"`
	Deleted         int `json:"deleted"`
	Errors          int `json:"errors"`
	Enriched        int `json:"enriched"`
	Skipped         int `json:"skipped"`
	PrivacyFiltered int `json:"privacyFiltered"`
}

// Add accumulates another stats block into this one.
func (s *SyncStats) Add(other SyncStats) {
	s.Total += other.Total
	s.Created += other.Created
	s.Updated += other.Updated
	s.Deleted += other.Deleted
	s.Errors += other.Errors
	s.Enriched += other.Enriched
	s.Skipped += other.Skipped
	s.PrivacyFiltered += other.PrivacyFiltered
}

// SyncRun is the persisted record of one sync pass, with its stats JSON.
type SyncRun struct {
	ID         uuid.UUID                     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID   uuid.UUID                     `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Kind       string                        `gorm:"not null" json:"kind"`
	StartedAt  time.Time                     `gorm:"not null;default:now()" json:"started_at"`
	FinishedAt *time.Time                    `json:"finished_at"`
	Stats      datatypes.JSONType[SyncStats] `gorm:"type:jsonb" json:"stats"`
	Error      *string                       `json:"error"`
	CreatedAt  time.Time                     `gorm:"not null;default:now()" json:"created_at"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
