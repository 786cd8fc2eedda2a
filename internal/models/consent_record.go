package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsentRecord captures whether a candidate has consented to processing
// for a given tenant. Absence of a record means no consent.
type ConsentRecord struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_consent_tenant_candidate" json:"tenant_id"`
	CandidateSourceID string     `gorm:"not null;uniqueIndex:idx_consent_tenant_candidate" json:"candidate_source_id"`
	Granted           bool       `gorm:"not null;default:false" json:"granted"`
	Source            string     `json:"source"`
	GrantedAt         *time.Time `json:"granted_at"`
	RevokedAt         *time.Time `json:"revoked_at"`
	CreatedAt         time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (ConsentRecord) TableName() string {
	return "consent_records"
}

// Active reports whether consent is currently granted and not revoked.
func (c *ConsentRecord) Active() bool {
	return c.Granted && c.RevokedAt == nil
}
