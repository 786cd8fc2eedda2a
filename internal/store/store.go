package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hirelens/ats-sync-svc/internal/models"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("store: record not found")

// PersistenceError wraps a failed store write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence checks if the error is a store write failure.
func IsPersistence(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

type JobFilter struct {
	TenantID uuid.UUID
	Status   string
	Limit    int
	Offset   int
}

type CandidateFilter struct {
	TenantID uuid.UUID
	Status   string
	Limit    int
	Offset   int
}

type AuditFilter struct {
	TenantID uuid.UUID
	Action   string
	Limit    int
	Offset   int
}

type TenantStore interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindIntegrationEnabled(ctx context.Context) ([]models.Tenant, error)
}

type CredentialStore interface {
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.ATSCredential, error)
	// Save creates the tenant's credential or replaces the existing one.
	Save(ctx context.Context, cred *models.ATSCredential) error
}

type JobStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceID string) (*models.Job, error)
	Find(ctx context.Context, filter JobFilter) ([]models.Job, error)
	// Upsert atomically creates or updates the record identified by
	// (tenant_id, source_id). Reports whether a new record was created.
	Upsert(ctx context.Context, job *models.Job) (bool, error)
	// UpdateStatus transitions the record's status. Returns ErrNotFound
	// when no record matches.
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, sourceID, status string) error
}

type CandidateStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceID string) (*models.Candidate, error)
	Find(ctx context.Context, filter CandidateFilter) ([]models.Candidate, error)
	Upsert(ctx context.Context, candidate *models.Candidate) (bool, error)
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, sourceID, status string) error
	// SetEnrichment replaces the candidate's AI enrichment block.
	SetEnrichment(ctx context.Context, id uuid.UUID, enrichment models.AIEnrichment) error
}

type ConsentStore interface {
	FindByCandidate(ctx context.Context, tenantID uuid.UUID, candidateSourceID string) (*models.ConsentRecord, error)
	Save(ctx context.Context, record *models.ConsentRecord) error
}

type EnrichmentStore interface {
	// EnqueuePending inserts a pending task for the candidate. A second
	// enqueue for the same candidate is a no-op. Reports whether a new
	// task was created.
	EnqueuePending(ctx context.Context, task *models.EnrichmentTask) (bool, error)
	FindByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.EnrichmentTask, error)
	FindPending(ctx context.Context, limit int) ([]models.EnrichmentTask, error)
	// UpdateResult records the outcome reported by the enrichment worker.
	UpdateResult(ctx context.Context, candidateID uuid.UUID, status string, taskErr *string) error
}

type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	Find(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error)
}

type SyncRunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Finish(ctx context.Context, id uuid.UUID, stats models.SyncStats, runErr *string) error
	FindRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.SyncRun, error)
	// LastCompleted returns the most recent run that finished without an
	// error, or ErrNotFound.
	LastCompleted(ctx context.Context, tenantID uuid.UUID) (*models.SyncRun, error)
}

// Store bundles the per-collection stores behind one dependency.
type Store interface {
	Tenants() TenantStore
	Credentials() CredentialStore
	Jobs() JobStore
	Candidates() CandidateStore
	Consents() ConsentStore
	Enrichments() EnrichmentStore
	Audits() AuditStore
	SyncRuns() SyncRunStore
}
