package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

// Gate decides whether candidate data may be processed for a tenant and
// records an audit trail of those decisions. Consent is opt-in: no
// record means no processing.
type Gate struct {
	consents store.ConsentStore
	audits   store.AuditStore
	logger   *zap.Logger
}

func NewGate(consents store.ConsentStore, audits store.AuditStore, logger *zap.Logger) *Gate {
	return &Gate{
		consents: consents,
		audits:   audits,
		logger:   logger,
	}
}

// CheckConsent reports whether the candidate has an active consent
// record for this tenant. Missing records and revoked consents both
// deny. Store failures deny as well, so an outage never leaks data.
func (g *Gate) CheckConsent(ctx context.Context, tenantID uuid.UUID, candidateSourceID string) (bool, error) {
	record, err := g.consents.FindByCandidate(ctx, tenantID, candidateSourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load consent record: %w", err)
	}
	return record.Active(), nil
}

// RecordConsent stores a consent decision coming from the ATS, replacing
// any previous decision for the candidate.
func (g *Gate) RecordConsent(ctx context.Context, record *models.ConsentRecord) error {
	if err := g.consents.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save consent record: %w", err)
	}
	return nil
}

// LogConsentDenied audits a processing attempt that was blocked by the
// consent gate. Audit failures are logged, never surfaced.
func (g *Gate) LogConsentDenied(ctx context.Context, tenantID uuid.UUID, candidateSourceID, actor string) {
	g.append(ctx, &models.AuditLog{
		TenantID:     tenantID,
		Actor:        actor,
		Action:       models.AuditActionConsentDenied,
		ResourceType: "candidate",
		ResourceID:   candidateSourceID,
	})
}

// LogDataAccess appends an access entry for a candidate read or write.
// The detail payload is stored as-is for later review.
func (g *Gate) LogDataAccess(ctx context.Context, tenantID uuid.UUID, actor, resource, resourceID string, detail datatypes.JSON) {
	g.append(ctx, &models.AuditLog{
		TenantID:     tenantID,
		Actor:        actor,
		Action:       models.AuditActionDataAccess,
		ResourceType: resource,
		ResourceID:   resourceID,
		Detail:       detail,
	})
}

func (g *Gate) append(ctx context.Context, entry *models.AuditLog) {
	if err := g.audits.Append(ctx, entry); err != nil {
		g.logger.Warn("Failed to append audit entry",
			zap.String("tenant_id", entry.TenantID.String()),
			zap.String("action", entry.Action),
			zap.Error(err),
		)
	}
}
