package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/hirelens/ats-sync-svc/internal/models"
)

// Memory implements Store with in-process maps. It backs tests and
// mirrors the persistence semantics of the Postgres implementation,
// including upsert idempotence on (tenant_id, source_id).
type Memory struct {
	mu                 sync.RWMutex
	tenants            map[uuid.UUID]models.Tenant
	credentials        map[uuid.UUID]models.ATSCredential
	jobs               map[uuid.UUID]models.Job
	jobsBySource       map[sourceKey]uuid.UUID
	candidates         map[uuid.UUID]models.Candidate
	candidatesBySource map[sourceKey]uuid.UUID
	consents           map[sourceKey]models.ConsentRecord
	enrichments        map[uuid.UUID]models.EnrichmentTask
	audits             []models.AuditLog
	syncRuns           map[uuid.UUID]models.SyncRun
}

type sourceKey struct {
	tenantID uuid.UUID
	sourceID string
}

func NewMemory() *Memory {
	return &Memory{
		tenants:            make(map[uuid.UUID]models.Tenant),
		credentials:        make(map[uuid.UUID]models.ATSCredential),
		jobs:               make(map[uuid.UUID]models.Job),
		jobsBySource:       make(map[sourceKey]uuid.UUID),
		candidates:         make(map[uuid.UUID]models.Candidate),
		candidatesBySource: make(map[sourceKey]uuid.UUID),
		consents:           make(map[sourceKey]models.ConsentRecord),
		enrichments:        make(map[uuid.UUID]models.EnrichmentTask),
		syncRuns:           make(map[uuid.UUID]models.SyncRun),
	}
}

func (m *Memory) Tenants() TenantStore         { return &memTenants{m: m} }
func (m *Memory) Credentials() CredentialStore { return &memCredentials{m: m} }
func (m *Memory) Jobs() JobStore               { return &memJobs{m: m} }
func (m *Memory) Candidates() CandidateStore   { return &memCandidates{m: m} }
func (m *Memory) Consents() ConsentStore       { return &memConsents{m: m} }
func (m *Memory) Enrichments() EnrichmentStore { return &memEnrichments{m: m} }
func (m *Memory) Audits() AuditStore           { return &memAudits{m: m} }
func (m *Memory) SyncRuns() SyncRunStore       { return &memSyncRuns{m: m} }

type memTenants struct {
	m *Memory
}

func (s *memTenants) Create(_ context.Context, tenant *models.Tenant) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	s.m.tenants[tenant.ID] = *tenant
	return nil
}

func (s *memTenants) FindByID(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	tenant, ok := s.m.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &tenant, nil
}

func (s *memTenants) FindIntegrationEnabled(_ context.Context) ([]models.Tenant, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var tenants []models.Tenant
	for _, tenant := range s.m.tenants {
		if tenant.IntegrationEnabled {
			tenants = append(tenants, tenant)
		}
	}
	sort.Slice(tenants, func(i, j int) bool {
		return tenants[i].CreatedAt.Before(tenants[j].CreatedAt)
	})
	return tenants, nil
}

type memCredentials struct {
	m *Memory
}

func (s *memCredentials) FindByTenant(_ context.Context, tenantID uuid.UUID) (*models.ATSCredential, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	cred, ok := s.m.credentials[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cred, nil
}

func (s *memCredentials) Save(_ context.Context, cred *models.ATSCredential) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	cred.UpdatedAt = time.Now()
	s.m.credentials[cred.TenantID] = *cred
	return nil
}

type memJobs struct {
	m *Memory
}

func (s *memJobs) FindByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	job, ok := s.m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (s *memJobs) FindBySource(_ context.Context, tenantID uuid.UUID, sourceID string) (*models.Job, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	id, ok := s.m.jobsBySource[sourceKey{tenantID, sourceID}]
	if !ok {
		return nil, ErrNotFound
	}
	job := s.m.jobs[id]
	return &job, nil
}

func (s *memJobs) Find(_ context.Context, filter JobFilter) ([]models.Job, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var jobs []models.Job
	for _, job := range s.m.jobs {
		if filter.TenantID != uuid.Nil && job.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt)
	})
	return paginate(jobs, filter.Limit, filter.Offset), nil
}

func (s *memJobs) Upsert(_ context.Context, job *models.Job) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := sourceKey{job.TenantID, job.SourceID}
	now := time.Now()

	if id, ok := s.m.jobsBySource[key]; ok {
		existing := s.m.jobs[id]
		job.ID = id
		job.CreatedAt = existing.CreatedAt
		job.UpdatedAt = now
		s.m.jobs[id] = *job
		return false, nil
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	s.m.jobs[job.ID] = *job
	s.m.jobsBySource[key] = job.ID
	return true, nil
}

func (s *memJobs) UpdateStatus(_ context.Context, tenantID uuid.UUID, sourceID, status string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id, ok := s.m.jobsBySource[sourceKey{tenantID, sourceID}]
	if !ok {
		return ErrNotFound
	}
	job := s.m.jobs[id]
	job.Status = status
	job.UpdatedAt = time.Now()
	s.m.jobs[id] = job
	return nil
}

type memCandidates struct {
	m *Memory
}

func (s *memCandidates) FindByID(_ context.Context, id uuid.UUID) (*models.Candidate, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	candidate, ok := s.m.candidates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &candidate, nil
}

func (s *memCandidates) FindBySource(_ context.Context, tenantID uuid.UUID, sourceID string) (*models.Candidate, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	id, ok := s.m.candidatesBySource[sourceKey{tenantID, sourceID}]
	if !ok {
		return nil, ErrNotFound
	}
	candidate := s.m.candidates[id]
	return &candidate, nil
}

func (s *memCandidates) Find(_ context.Context, filter CandidateFilter) ([]models.Candidate, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var candidates []models.Candidate
	for _, candidate := range s.m.candidates {
		if filter.TenantID != uuid.Nil && candidate.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && candidate.Status != filter.Status {
			continue
		}
		candidates = append(candidates, candidate)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
	})
	return paginate(candidates, filter.Limit, filter.Offset), nil
}

func (s *memCandidates) Upsert(_ context.Context, candidate *models.Candidate) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	key := sourceKey{candidate.TenantID, candidate.SourceID}
	now := time.Now()

	if id, ok := s.m.candidatesBySource[key]; ok {
		existing := s.m.candidates[id]
		candidate.ID = id
		candidate.CreatedAt = existing.CreatedAt
		// Privacy prefs and enrichment state survive re-syncs.
		candidate.PrivacyPrefs = existing.PrivacyPrefs
		candidate.AIEnrichment = existing.AIEnrichment
		candidate.UpdatedAt = now
		s.m.candidates[id] = *candidate
		return false, nil
	}

	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	s.m.candidates[candidate.ID] = *candidate
	s.m.candidatesBySource[key] = candidate.ID
	return true, nil
}

func (s *memCandidates) UpdateStatus(_ context.Context, tenantID uuid.UUID, sourceID, status string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	id, ok := s.m.candidatesBySource[sourceKey{tenantID, sourceID}]
	if !ok {
		return ErrNotFound
	}
	candidate := s.m.candidates[id]
	candidate.Status = status
	candidate.UpdatedAt = time.Now()
	s.m.candidates[id] = candidate
	return nil
}

func (s *memCandidates) SetEnrichment(_ context.Context, id uuid.UUID, enrichment models.AIEnrichment) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	candidate, ok := s.m.candidates[id]
	if !ok {
		return ErrNotFound
	}
	candidate.AIEnrichment = datatypes.NewJSONType(enrichment)
	candidate.UpdatedAt = time.Now()
	s.m.candidates[id] = candidate
	return nil
}

type memConsents struct {
	m *Memory
}

func (s *memConsents) FindByCandidate(_ context.Context, tenantID uuid.UUID, candidateSourceID string) (*models.ConsentRecord, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	record, ok := s.m.consents[sourceKey{tenantID, candidateSourceID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

func (s *memConsents) Save(_ context.Context, record *models.ConsentRecord) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.UpdatedAt = time.Now()
	s.m.consents[sourceKey{record.TenantID, record.CandidateSourceID}] = *record
	return nil
}

type memEnrichments struct {
	m *Memory
}

func (s *memEnrichments) EnqueuePending(_ context.Context, task *models.EnrichmentTask) (bool, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.enrichments[task.CandidateID]; ok {
		return false, nil
	}

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now()
	}
	s.m.enrichments[task.CandidateID] = *task
	return true, nil
}

func (s *memEnrichments) FindByCandidate(_ context.Context, candidateID uuid.UUID) (*models.EnrichmentTask, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	task, ok := s.m.enrichments[candidateID]
	if !ok {
		return nil, ErrNotFound
	}
	return &task, nil
}

func (s *memEnrichments) FindPending(_ context.Context, limit int) ([]models.EnrichmentTask, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var tasks []models.EnrichmentTask
	for _, task := range s.m.enrichments {
		if task.Status == models.TaskStatusPending {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].EnqueuedAt.Before(tasks[j].EnqueuedAt)
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

func (s *memEnrichments) UpdateResult(_ context.Context, candidateID uuid.UUID, status string, taskErr *string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	task, ok := s.m.enrichments[candidateID]
	if !ok {
		return ErrNotFound
	}
	task.Status = status
	task.Attempts++
	task.LastError = taskErr
	if status == models.TaskStatusCompleted || status == models.TaskStatusFailed {
		now := time.Now()
		task.CompletedAt = &now
	}
	task.UpdatedAt = time.Now()
	s.m.enrichments[candidateID] = task
	return nil
}

type memAudits struct {
	m *Memory
}

func (s *memAudits) Append(_ context.Context, entry *models.AuditLog) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.m.audits = append(s.m.audits, *entry)
	return nil
}

func (s *memAudits) Find(_ context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var entries []models.AuditLog
	for _, entry := range s.m.audits {
		if filter.TenantID != uuid.Nil && entry.TenantID != filter.TenantID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return paginate(entries, filter.Limit, filter.Offset), nil
}

type memSyncRuns struct {
	m *Memory
}

func (s *memSyncRuns) Create(_ context.Context, run *models.SyncRun) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	s.m.syncRuns[run.ID] = *run
	return nil
}

func (s *memSyncRuns) Finish(_ context.Context, id uuid.UUID, stats models.SyncStats, runErr *string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	run, ok := s.m.syncRuns[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	run.FinishedAt = &now
	run.Stats = datatypes.NewJSONType(stats)
	run.Error = runErr
	s.m.syncRuns[id] = run
	return nil
}

func (s *memSyncRuns) FindRecent(_ context.Context, tenantID uuid.UUID, limit int) ([]models.SyncRun, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var runs []models.SyncRun
	for _, run := range s.m.syncRuns {
		if tenantID != uuid.Nil && run.TenantID != tenantID {
			continue
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *memSyncRuns) LastCompleted(_ context.Context, tenantID uuid.UUID) (*models.SyncRun, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	var latest *models.SyncRun
	for id := range s.m.syncRuns {
		run := s.m.syncRuns[id]
		if run.TenantID != tenantID || run.FinishedAt == nil || run.Error != nil {
			continue
		}
		if latest == nil || run.FinishedAt.After(*latest.FinishedAt) {
			copied := run
			latest = &copied
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
