package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job statuses stored locally. Deleted jobs are kept with status "closed".
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
	JobStatusDraft  = "draft"
	JobStatusPaused = "paused"
)

type Job struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_jobs_tenant_source" json:"tenant_id"`
	// SourceID is the job's id in the external ATS.
	SourceID string `gorm:"not null;uniqueIndex:idx_jobs_tenant_source" json:"source_id"`

	Title             string                      `gorm:"not null" json:"title"`
	Slug              string                      `gorm:"not null" json:"slug"`
	Status            string                      `gorm:"not null;default:'open'" json:"status"`
	EmploymentType    string                      `json:"employment_type"`
	Seniority         string                      `json:"seniority"`
	LocationCity      string                      `json:"location_city"`
	LocationCountry   string                      `json:"location_country"`
	Remote            bool                        `gorm:"not null;default:false" json:"remote"`
	SalaryMin         float64                     `json:"salary_min"`
	SalaryMax         float64                     `json:"salary_max"`
	SalaryCurrency    string                      `json:"salary_currency"`
	SalaryPeriod      string                      `json:"salary_period"`
	DescriptionBlocks datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"description_blocks"`
	Responsibilities  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"responsibilities"`
	Requirements      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"requirements"`
	Skills            datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"skills"`

	PostedAt   *time.Time `json:"posted_at"`
	LastSynced time.Time  `gorm:"not null;default:now()" json:"last_synced"`
	CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
