package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Candidate statuses stored locally. Deleted candidates are kept with
// status "inactive".
const (
	CandidateStatusActive   = "active"
	CandidateStatusInactive = "inactive"
)

// AI enrichment states carried on the candidate record.
const (
	EnrichmentPending   = "pending"
	EnrichmentCompleted = "completed"
	EnrichmentFailed    = "failed"
)

// ExperienceEntry is one work-history item on a candidate profile.
type ExperienceEntry struct {
	Title            string   `json:"title"`
	Company          string   `json:"company"`
	Location         string   `json:"location,omitempty"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`
	Current          bool     `json:"current,omitempty"`
	Description      []string `json:"description,omitempty"`
	Responsibilities []string `json:"responsibilities,omitempty"`
	Achievements     []string `json:"achievements,omitempty"`
}

type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartYear   string `json:"start_year,omitempty"`
	EndYear     string `json:"end_year,omitempty"`
}

type PlacementEntry struct {
	JobTitle  string `json:"job_title"`
	Company   string `json:"company,omitempty"`
	Status    string `json:"status"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// PrivacyPrefs are per-candidate visibility settings. New records get
// the conservative defaults from DefaultPrivacyPrefs.
type PrivacyPrefs struct {
	Searchable      bool `json:"searchable"`
	ShowContactInfo bool `json:"show_contact_info"`
}

func DefaultPrivacyPrefs() PrivacyPrefs {
	return PrivacyPrefs{Searchable: false, ShowContactInfo: false}
}

// AIEnrichment tracks the downstream enrichment state for a candidate.
type AIEnrichment struct {
	Status     string     `json:"status"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type Candidate struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_candidates_tenant_source" json:"tenant_id"`
	// SourceID is the candidate's id in the external ATS.
	SourceID string `gorm:"not null;uniqueIndex:idx_candidates_tenant_source" json:"source_id"`

	FirstName     string                               `json:"first_name"`
	LastName      string                               `json:"last_name"`
	Email         string                               `json:"email"`
	Phone         string                               `json:"phone"`
	Headline      string                               `json:"headline"`
	SummaryBlocks datatypes.JSONSlice[string]          `gorm:"type:jsonb" json:"summary_blocks"`
	Skills        datatypes.JSONSlice[string]          `gorm:"type:jsonb" json:"skills"`
	Experience    datatypes.JSONSlice[ExperienceEntry] `gorm:"type:jsonb" json:"experience"`
	Education     datatypes.JSONSlice[EducationEntry]  `gorm:"type:jsonb" json:"education"`
	Placements    datatypes.JSONSlice[PlacementEntry]  `gorm:"type:jsonb" json:"placements"`
	ResumeURL     string                               `json:"resume_url"`
	Status        string                               `gorm:"not null;default:'active'" json:"status"`
	PrivacyPrefs  datatypes.JSONType[PrivacyPrefs]     `gorm:"type:jsonb" json:"privacy_prefs"`
	AIEnrichment  datatypes.JSONType[AIEnrichment]     `gorm:"type:jsonb" json:"ai_enrichment"`

	LastSynced time.Time `gorm:"not null;default:now()" json:"last_synced"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}
