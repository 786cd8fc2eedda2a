package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/oauth"
	"github.com/hirelens/ats-sync-svc/internal/privacy"
	"github.com/hirelens/ats-sync-svc/internal/store"
	"github.com/hirelens/ats-sync-svc/internal/transform"
)

// EnrichmentQueue enqueues a candidate for AI enrichment.
type EnrichmentQueue interface {
	Enqueue(ctx context.Context, candidate *models.Candidate) (bool, error)
}

// Handler ingests ATS webhook events. Every request gets a response:
// validation failures map to 4xx, recognized events are processed
// inline, and unknown events are acknowledged so the provider does not
// retry them forever.
type Handler struct {
	tenants    store.TenantStore
	jobs       store.JobStore
	candidates store.CandidateStore
	audits     store.AuditStore
	client     *ats.Client
	gate       *privacy.Gate
	queue      EnrichmentQueue
	secret     string
	production bool
	logger     *zap.Logger
}

func NewHandler(
	cfg *config.Config,
	st store.Store,
	client *ats.Client,
	gate *privacy.Gate,
	queue EnrichmentQueue,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		tenants:    st.Tenants(),
		jobs:       st.Jobs(),
		candidates: st.Candidates(),
		audits:     st.Audits(),
		client:     client,
		gate:       gate,
		queue:      queue,
		secret:     cfg.ATS.WebhookSecret,
		production: cfg.Server.IsProduction(),
		logger:     logger,
	}
}

// Handle processes POST /webhooks/ats.
func (h *Handler) Handle(c *fiber.Ctx) error {
	body := c.Body()

	payload, err := ParsePayload(body)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	signature := c.Get("X-ATS-Signature")
	if h.secret == "" {
		if h.production {
			h.logger.Error("Webhook secret not configured, rejecting event")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "webhook signature verification is not configured",
			})
		}
		h.logger.Warn("Webhook secret not configured, accepting unsigned event")
	} else if !VerifySignature(body, h.secret, signature) {
		h.logger.Warn("Webhook signature mismatch",
			zap.String("event", payload.Event),
			zap.String("event_id", payload.EventID),
		)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid signature",
		})
	}

	ctx := c.UserContext()

	// The uuid tag on metadata.tenantId already validated the format.
	tenantID, err := uuid.Parse(payload.Metadata.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tenant id",
		})
	}

	tenant, err := h.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown tenant",
			})
		}
		h.logger.Error("Failed to resolve webhook tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to resolve tenant",
		})
	}
	if !tenant.IntegrationEnabled {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "integration is disabled for this tenant",
		})
	}

	resource, _, _ := strings.Cut(payload.Event, ".")
	h.auditReceived(ctx, tenantID, resource, payload)

	eventType, err := models.ParseEventType(payload.Event)
	if err != nil {
		h.logger.Warn("Ignoring unrecognized webhook event",
			zap.String("event", payload.Event),
			zap.String("tenant_id", tenantID.String()),
		)
		return c.JSON(fiber.Map{"status": "ignored"})
	}

	h.logger.Info("Processing webhook event",
		zap.String("event", payload.Event),
		zap.String("event_id", payload.EventID),
		zap.String("tenant_id", tenantID.String()),
		zap.String("record_id", payload.Data.ID),
	)

	var result string
	switch {
	case eventType.IsDeletion():
		result, err = h.handleDeletion(ctx, tenantID, eventType, payload.Data.ID)
	case eventType.Resource() == "job":
		result, err = h.handleJob(ctx, tenantID, payload.Data.ID)
	case eventType.Resource() == "candidate":
		result, err = h.handleCandidate(ctx, tenantID, payload.Data.ID)
	default:
		// ParseEventType only admits job.* and candidate.* today, but a
		// new resource added there must not fall through silently.
		h.logger.Warn("No processor for webhook event",
			zap.String("event", payload.Event),
		)
		return c.JSON(fiber.Map{"status": "ignored"})
	}
	if err != nil {
		return h.errorResponse(c, payload, err)
	}

	return c.JSON(fiber.Map{"status": result})
}

// handleJob fetches the current job record and upserts it.
func (h *Handler) handleJob(ctx context.Context, tenantID uuid.UUID, sourceID string) (string, error) {
	src, err := h.client.GetJob(ctx, tenantID, sourceID)
	if err != nil {
		if ats.IsNotFound(err) {
			// The record vanished between the event and our fetch. The
			// matching deletion event handles the rest.
			h.logger.Info("Job no longer exists at source, skipping",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source_id", sourceID),
			)
			return "skipped", nil
		}
		return "", err
	}

	job := transform.Job(tenantID, *src, time.Now().UTC())
	created, err := h.jobs.Upsert(ctx, &job)
	if err != nil {
		return "", err
	}

	h.auditRecord(ctx, tenantID, created, "job", sourceID)
	return "processed", nil
}

// handleCandidate runs the consent-gated candidate path: core fetch,
// consent record refresh, gate check, then the sub-resource bundle.
func (h *Handler) handleCandidate(ctx context.Context, tenantID uuid.UUID, sourceID string) (string, error) {
	core, err := h.client.GetCandidate(ctx, tenantID, sourceID)
	if err != nil {
		if ats.IsNotFound(err) {
			h.logger.Info("Candidate no longer exists at source, skipping",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source_id", sourceID),
			)
			return "skipped", nil
		}
		return "", err
	}

	h.recordConsent(ctx, tenantID, core)

	allowed, err := h.gate.CheckConsent(ctx, tenantID, sourceID)
	if err != nil {
		return "", err
	}
	if !allowed {
		h.gate.LogConsentDenied(ctx, tenantID, sourceID, "webhook")
		h.logger.Info("Candidate has no active consent, skipping",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", sourceID),
		)
		return "skipped", nil
	}

	bundle, err := h.client.FetchCandidateBundle(ctx, tenantID, *core)
	if err != nil {
		if !ats.IsPartialFetch(err) {
			return "", err
		}
		h.logger.Warn("Candidate bundle fetched partially",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", sourceID),
			zap.Error(err),
		)
	}

	candidate := transform.Candidate(tenantID, *bundle, time.Now().UTC())
	created, err := h.candidates.Upsert(ctx, &candidate)
	if err != nil {
		return "", err
	}

	h.auditRecord(ctx, tenantID, created, "candidate", sourceID)

	if _, err := h.queue.Enqueue(ctx, &candidate); err != nil {
		h.logger.Warn("Failed to enqueue candidate enrichment",
			zap.String("tenant_id", tenantID.String()),
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err),
		)
	}

	return "processed", nil
}

// handleDeletion soft deletes: jobs close, candidates deactivate. An
// event for a record we never stored is acknowledged as a no-op.
func (h *Handler) handleDeletion(ctx context.Context, tenantID uuid.UUID, eventType models.EventType, sourceID string) (string, error) {
	var err error
	switch eventType.Resource() {
	case "job":
		err = h.jobs.UpdateStatus(ctx, tenantID, sourceID, models.JobStatusClosed)
	case "candidate":
		err = h.candidates.UpdateStatus(ctx, tenantID, sourceID, models.CandidateStatusInactive)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.logger.Info("Deletion event for unknown record, nothing to do",
				zap.String("tenant_id", tenantID.String()),
				zap.String("resource", eventType.Resource()),
				zap.String("source_id", sourceID),
			)
			return "skipped", nil
		}
		return "", err
	}

	h.audit(ctx, tenantID, models.AuditActionRecordDeleted, eventType.Resource(), sourceID)
	return "processed", nil
}

// recordConsent mirrors the consent block from the source record. A
// save failure is logged only: the gate denies by default, so losing a
// grant here fails closed.
func (h *Handler) recordConsent(ctx context.Context, tenantID uuid.UUID, core *ats.SourceCandidate) {
	if core.Consent == nil {
		return
	}
	err := h.gate.RecordConsent(ctx, &models.ConsentRecord{
		TenantID:          tenantID,
		CandidateSourceID: core.ID,
		Granted:           core.Consent.Granted,
		Source:            "ats",
		GrantedAt:         core.Consent.GrantedAt,
		RevokedAt:         core.Consent.RevokedAt,
	})
	if err != nil {
		h.logger.Warn("Failed to record candidate consent",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", core.ID),
			zap.Error(err),
		)
	}
}

func (h *Handler) errorResponse(c *fiber.Ctx, payload *Payload, err error) error {
	if errors.Is(err, oauth.ErrNoCredential) || ats.IsAuthentication(err) {
		h.logger.Error("ATS authentication failed while processing webhook",
			zap.String("event", payload.Event),
			zap.String("tenant_id", payload.Metadata.TenantID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "ATS authentication failed, tenant must reconnect",
		})
	}

	h.logger.Error("Failed to process webhook event",
		zap.String("event", payload.Event),
		zap.String("event_id", payload.EventID),
		zap.String("tenant_id", payload.Metadata.TenantID),
		zap.String("record_id", payload.Data.ID),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "failed to process event",
	})
}

func (h *Handler) audit(ctx context.Context, tenantID uuid.UUID, action, resource, resourceID string) {
	entry := &models.AuditLog{
		TenantID:     tenantID,
		Actor:        "webhook",
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
	}
	if err := h.audits.Append(ctx, entry); err != nil {
		h.logger.Warn("Failed to append audit entry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// auditReceived records the incoming event with its name and id in the
// detail block.
func (h *Handler) auditReceived(ctx context.Context, tenantID uuid.UUID, resource string, payload *Payload) {
	detail, _ := json.Marshal(map[string]string{
		"event":   payload.Event,
		"eventId": payload.EventID,
	})
	entry := &models.AuditLog{
		TenantID:     tenantID,
		Actor:        "webhook",
		Action:       models.AuditActionWebhookReceived,
		ResourceType: resource,
		ResourceID:   payload.Data.ID,
		Detail:       detail,
	}
	if err := h.audits.Append(ctx, entry); err != nil {
		h.logger.Warn("Failed to append audit entry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("action", models.AuditActionWebhookReceived),
			zap.Error(err),
		)
	}
}

func (h *Handler) auditRecord(ctx context.Context, tenantID uuid.UUID, created bool, resource, resourceID string) {
	action := models.AuditActionRecordUpdated
	if created {
		action = models.AuditActionRecordCreated
	}
	h.audit(ctx, tenantID, action, resource, resourceID)
}
