package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name               string    `gorm:"not null" json:"name"`
	Slug               string    `gorm:"not null;uniqueIndex" json:"slug"`
	IntegrationEnabled bool      `gorm:"not null;default:false" json:"integration_enabled"`
	CreatedAt          time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}
