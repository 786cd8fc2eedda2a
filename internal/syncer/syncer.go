package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/privacy"
	"github.com/hirelens/ats-sync-svc/internal/store"
	"github.com/hirelens/ats-sync-svc/internal/transform"
)

// EnrichmentQueue enqueues a candidate for AI enrichment.
type EnrichmentQueue interface {
	Enqueue(ctx context.Context, candidate *models.Candidate) (bool, error)
}

// Syncer reconciles tenant data with the ATS. Webhooks keep records
// fresh in between; the periodic sync catches anything they missed.
type Syncer struct {
	tenants     store.TenantStore
	credentials store.CredentialStore
	jobs        store.JobStore
	candidates  store.CandidateStore
	syncRuns    store.SyncRunStore
	audits      store.AuditStore
	client      *ats.Client
	gate        *privacy.Gate
	queue       EnrichmentQueue

	pageSize          int
	maxConcurrent     int
	initialMaxRecords int
	logger            *zap.Logger
}

func New(
	cfg *config.SyncConfig,
	st store.Store,
	client *ats.Client,
	gate *privacy.Gate,
	queue EnrichmentQueue,
	logger *zap.Logger,
) *Syncer {
	return &Syncer{
		tenants:           st.Tenants(),
		credentials:       st.Credentials(),
		jobs:              st.Jobs(),
		candidates:        st.Candidates(),
		syncRuns:          st.SyncRuns(),
		audits:            st.Audits(),
		client:            client,
		gate:              gate,
		queue:             queue,
		pageSize:          cfg.PageSize,
		maxConcurrent:     cfg.MaxConcurrentTenants,
		initialMaxRecords: cfg.InitialSyncMaxRecords,
		logger:            logger,
	}
}

// SyncAll reconciles every integration-enabled tenant. Tenant syncs run
// concurrently up to the configured bound, and one tenant's failure
// never aborts the others; failures land on that tenant's sync run.
func (s *Syncer) SyncAll(ctx context.Context) error {
	tenants, err := s.tenants.FindIntegrationEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}
	if len(tenants) == 0 {
		s.logger.Debug("No integration-enabled tenants to sync")
		return nil
	}

	group := new(errgroup.Group)
	group.SetLimit(s.maxConcurrent)

	for i := range tenants {
		tenant := tenants[i]
		group.Go(func() error {
			if _, err := s.SyncTenant(ctx, tenant.ID); err != nil {
				s.logger.Error("Tenant sync failed",
					zap.String("tenant_id", tenant.ID.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}

	return group.Wait()
}

// InitialSync runs the first full backfill for a tenant, honoring the
// configured record cap.
func (s *Syncer) InitialSync(ctx context.Context, tenantID uuid.UUID) (models.SyncStats, error) {
	return s.run(ctx, tenantID, models.SyncKindInitial, nil, s.initialMaxRecords)
}

// DeltaSync pulls records updated since the given time. A nil since
// falls back to the start of the last successful run.
func (s *Syncer) DeltaSync(ctx context.Context, tenantID uuid.UUID, since *time.Time) (models.SyncStats, error) {
	if since == nil {
		last, err := s.syncRuns.LastCompleted(ctx, tenantID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return models.SyncStats{}, fmt.Errorf("failed to load last sync run: %w", err)
		}
		if last != nil {
			started := last.StartedAt
			since = &started
		}
	}
	return s.run(ctx, tenantID, models.SyncKindDelta, since, 0)
}

// SyncTenant reconciles one tenant: an initial backfill when it has
// never completed a run, a delta sync otherwise. Tenants that never
// connected are skipped without recording a run.
func (s *Syncer) SyncTenant(ctx context.Context, tenantID uuid.UUID) (models.SyncStats, error) {
	if _, err := s.credentials.FindByTenant(ctx, tenantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Info("Tenant has no ATS connection, skipping sync",
				zap.String("tenant_id", tenantID.String()),
			)
			return models.SyncStats{}, nil
		}
		return models.SyncStats{}, fmt.Errorf("failed to load credential: %w", err)
	}

	last, err := s.syncRuns.LastCompleted(ctx, tenantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.SyncStats{}, fmt.Errorf("failed to load last sync run: %w", err)
	}
	if last == nil {
		return s.InitialSync(ctx, tenantID)
	}

	started := last.StartedAt
	return s.run(ctx, tenantID, models.SyncKindDelta, &started, 0)
}

// run executes one reconciliation pass and records it as a sync run.
func (s *Syncer) run(ctx context.Context, tenantID uuid.UUID, kind string, since *time.Time, maxRecords int) (models.SyncStats, error) {
	syncRun := &models.SyncRun{
		TenantID:  tenantID,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
	if err := s.syncRuns.Create(ctx, syncRun); err != nil {
		return models.SyncStats{}, fmt.Errorf("failed to create sync run: %w", err)
	}

	s.logger.Info("Sync started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", kind),
		zap.Timep("updated_since", since),
	)

	var stats models.SyncStats
	runErr := s.syncJobs(ctx, tenantID, since, maxRecords, &stats)
	if runErr == nil {
		runErr = s.syncCandidates(ctx, tenantID, since, maxRecords, &stats)
	}

	var errMsg *string
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}
	if err := s.syncRuns.Finish(ctx, syncRun.ID, stats, errMsg); err != nil {
		s.logger.Error("Failed to finish sync run",
			zap.String("tenant_id", tenantID.String()),
			zap.String("sync_run_id", syncRun.ID.String()),
			zap.Error(err),
		)
	}

	if runErr != nil {
		return stats, runErr
	}

	s.auditCompleted(ctx, tenantID, syncRun.ID, stats)
	s.logger.Info("Sync completed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("kind", kind),
		zap.Int("total", stats.Total),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated),
		zap.Int("deleted", stats.Deleted),
		zap.Int("errors", stats.Errors),
		zap.Int("enriched", stats.Enriched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("privacy_filtered", stats.PrivacyFiltered),
	)
	return stats, nil
}

// syncJobs pages through the tenant's jobs. Per-record failures count
// into stats and the page continues; a failed list call aborts, since
// further paging would be guesswork.
func (s *Syncer) syncJobs(ctx context.Context, tenantID uuid.UUID, since *time.Time, maxRecords int, stats *models.SyncStats) error {
	seen := 0
	for page := 1; ; page++ {
		items, meta, err := s.client.ListJobs(ctx, tenantID, ats.ListOptions{
			Page:         page,
			PerPage:      s.pageSize,
			UpdatedSince: since,
		})
		if err != nil {
			return fmt.Errorf("failed to list jobs page %d: %w", page, err)
		}

		for i := range items {
			if maxRecords > 0 && seen >= maxRecords {
				return nil
			}
			seen++
			s.applyJob(ctx, tenantID, items[i], stats)
		}

		if !meta.HasMore() {
			return nil
		}
	}
}

func (s *Syncer) applyJob(ctx context.Context, tenantID uuid.UUID, src ats.SourceJob, stats *models.SyncStats) {
	stats.Total++

	if transform.IsDeletedStatus(src.Status) {
		err := s.jobs.UpdateStatus(ctx, tenantID, src.ID, models.JobStatusClosed)
		switch {
		case err == nil:
			stats.Deleted++
		case errors.Is(err, store.ErrNotFound):
			stats.Skipped++
		default:
			stats.Errors++
			s.logger.Warn("Failed to close removed job",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source_id", src.ID),
				zap.Error(err),
			)
		}
		return
	}

	job := transform.Job(tenantID, src, time.Now().UTC())
	created, err := s.jobs.Upsert(ctx, &job)
	if err != nil {
		stats.Errors++
		s.logger.Warn("Failed to upsert job",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return
	}
	if created {
		stats.Created++
	} else {
		stats.Updated++
	}
}

// syncCandidates pages through the tenant's candidates with the consent
// gate ahead of any sub-resource fetch.
func (s *Syncer) syncCandidates(ctx context.Context, tenantID uuid.UUID, since *time.Time, maxRecords int, stats *models.SyncStats) error {
	seen := 0
	for page := 1; ; page++ {
		items, meta, err := s.client.ListCandidates(ctx, tenantID, ats.ListOptions{
			Page:         page,
			PerPage:      s.pageSize,
			UpdatedSince: since,
		})
		if err != nil {
			return fmt.Errorf("failed to list candidates page %d: %w", page, err)
		}

		for i := range items {
			if maxRecords > 0 && seen >= maxRecords {
				return nil
			}
			seen++
			s.applyCandidate(ctx, tenantID, items[i], stats)
		}

		if !meta.HasMore() {
			return nil
		}
	}
}

func (s *Syncer) applyCandidate(ctx context.Context, tenantID uuid.UUID, core ats.SourceCandidate, stats *models.SyncStats) {
	stats.Total++

	if transform.IsDeletedStatus(core.Status) {
		err := s.candidates.UpdateStatus(ctx, tenantID, core.ID, models.CandidateStatusInactive)
		switch {
		case err == nil:
			stats.Deleted++
		case errors.Is(err, store.ErrNotFound):
			stats.Skipped++
		default:
			stats.Errors++
			s.logger.Warn("Failed to deactivate removed candidate",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source_id", core.ID),
				zap.Error(err),
			)
		}
		return
	}

	s.recordConsent(ctx, tenantID, &core)

	allowed, err := s.gate.CheckConsent(ctx, tenantID, core.ID)
	if err != nil {
		stats.Errors++
		s.logger.Warn("Consent check failed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", core.ID),
			zap.Error(err),
		)
		return
	}
	if !allowed {
		stats.PrivacyFiltered++
		s.gate.LogConsentDenied(ctx, tenantID, core.ID, "sync")
		return
	}

	bundle, err := s.client.FetchCandidateBundle(ctx, tenantID, core)
	if err != nil {
		if !ats.IsPartialFetch(err) {
			stats.Errors++
			s.logger.Warn("Failed to fetch candidate bundle",
				zap.String("tenant_id", tenantID.String()),
				zap.String("source_id", core.ID),
				zap.Error(err),
			)
			return
		}
		s.logger.Warn("Candidate bundle fetched partially",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", core.ID),
			zap.Error(err),
		)
	}

	candidate := transform.Candidate(tenantID, *bundle, time.Now().UTC())
	created, err := s.candidates.Upsert(ctx, &candidate)
	if err != nil {
		stats.Errors++
		s.logger.Warn("Failed to upsert candidate",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", core.ID),
			zap.Error(err),
		)
		return
	}
	if created {
		stats.Created++
	} else {
		stats.Updated++
	}

	enqueued, err := s.queue.Enqueue(ctx, &candidate)
	if err != nil {
		s.logger.Warn("Failed to enqueue candidate enrichment",
			zap.String("tenant_id", tenantID.String()),
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err),
		)
		return
	}
	if enqueued {
		stats.Enriched++
		s.gate.LogDataAccess(ctx, tenantID, "enrichment", "candidate", core.ID, nil)
	}
}

func (s *Syncer) recordConsent(ctx context.Context, tenantID uuid.UUID, core *ats.SourceCandidate) {
	if core.Consent == nil {
		return
	}
	err := s.gate.RecordConsent(ctx, &models.ConsentRecord{
		TenantID:          tenantID,
		CandidateSourceID: core.ID,
		Granted:           core.Consent.Granted,
		Source:            "ats",
		GrantedAt:         core.Consent.GrantedAt,
		RevokedAt:         core.Consent.RevokedAt,
	})
	if err != nil {
		s.logger.Warn("Failed to record candidate consent",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_id", core.ID),
			zap.Error(err),
		)
	}
}

func (s *Syncer) auditCompleted(ctx context.Context, tenantID, runID uuid.UUID, stats models.SyncStats) {
	detail, _ := json.Marshal(stats)
	entry := &models.AuditLog{
		TenantID:     tenantID,
		Actor:        "sync",
		Action:       models.AuditActionSyncCompleted,
		ResourceType: "sync_run",
		ResourceID:   runID.String(),
		Detail:       detail,
	}
	if err := s.audits.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append sync audit entry",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}
