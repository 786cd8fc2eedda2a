package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Audit actions recorded by the ingest paths.
const (
	AuditActionWebhookReceived = "webhook.received"
	AuditActionRecordCreated   = "record.created"
	AuditActionRecordUpdated   = "record.updated"
	AuditActionRecordDeleted   = "record.deleted"
	AuditActionDataAccess      = "data.access"
	AuditActionConsentDenied   = "consent.denied"
	AuditActionSyncCompleted   = "sync.completed"
	AuditActionOAuthConnected  = "oauth.connected"
)

// AuditLog is an append-only record of ingest and access activity.
// Rows are never updated or deleted.
type AuditLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Actor        string         `gorm:"not null" json:"actor"`
	Action       string         `gorm:"not null" json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Detail       datatypes.JSON `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
