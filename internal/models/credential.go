package models

import (
	"time"

	"github.com/google/uuid"
)

// ATSCredential holds the OAuth tokens for one tenant's ATS connection.
// Tokens are never logged; callers log tenant and expiry only.
type ATSCredential struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"tenant_id"`
	AccessToken  string    `gorm:"not null" json:"-"`
	RefreshToken string    `gorm:"not null" json:"-"`
	TokenType    string    `gorm:"not null;default:'Bearer'" json:"token_type"`
	Scope        string    `json:"scope"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	ConnectedAt  time.Time `gorm:"not null;default:now()" json:"connected_at"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ATSCredential) TableName() string {
	return "ats_credentials"
}

// ExpiresWithin reports whether the access token expires inside the
// given safety margin.
func (c *ATSCredential) ExpiresWithin(margin time.Duration) bool {
	return time.Now().Add(margin).After(c.ExpiresAt)
}
