package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hirelens/ats-sync-svc/internal/models"
)

// Gorm implements Store on PostgreSQL via GORM.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Tenants() TenantStore         { return &gormTenants{db: g.db} }
func (g *Gorm) Credentials() CredentialStore { return &gormCredentials{db: g.db} }
func (g *Gorm) Jobs() JobStore               { return &gormJobs{db: g.db} }
func (g *Gorm) Candidates() CandidateStore   { return &gormCandidates{db: g.db} }
func (g *Gorm) Consents() ConsentStore       { return &gormConsents{db: g.db} }
func (g *Gorm) Enrichments() EnrichmentStore { return &gormEnrichments{db: g.db} }
func (g *Gorm) Audits() AuditStore           { return &gormAudits{db: g.db} }
func (g *Gorm) SyncRuns() SyncRunStore       { return &gormSyncRuns{db: g.db} }

// translateErr maps GORM errors onto the store sentinels.
func translateErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}

// lockSourceRow locks the row identified by (tenant_id, source_id) and
// returns its id. Raw().Scan does not report ErrRecordNotFound, so a
// zero id means no row exists.
func lockSourceRow(tx *gorm.DB, table string, tenantID uuid.UUID, sourceID string) (uuid.UUID, error) {
	var row struct {
		ID uuid.UUID
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE tenant_id = $1 AND source_id = $2 FOR UPDATE`, table)
	if err := tx.Raw(query, tenantID, sourceID).Scan(&row).Error; err != nil {
		return uuid.Nil, err
	}
	return row.ID, nil
}

type gormTenants struct {
	db *gorm.DB
}

func (s *gormTenants) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	return translateErr("create tenant", s.db.WithContext(ctx).Create(tenant).Error)
}

func (s *gormTenants) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.WithContext(ctx).First(&tenant, "id = ?", id).Error
	if err != nil {
		return nil, translateErr("find tenant", err)
	}
	return &tenant, nil
}

func (s *gormTenants) FindIntegrationEnabled(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := s.db.WithContext(ctx).
		Where("integration_enabled = ?", true).
		Order("created_at ASC").
		Find(&tenants).Error
	if err != nil {
		return nil, translateErr("list tenants", err)
	}
	return tenants, nil
}

type gormCredentials struct {
	db *gorm.DB
}

func (s *gormCredentials) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*models.ATSCredential, error) {
	var cred models.ATSCredential
	err := s.db.WithContext(ctx).First(&cred, "tenant_id = ?", tenantID).Error
	if err != nil {
		return nil, translateErr("find credential", err)
	}
	return &cred, nil
}

func (s *gormCredentials) Save(ctx context.Context, cred *models.ATSCredential) error {
	if cred.ID == uuid.Nil {
		cred.ID = uuid.New()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "token_type", "scope",
			"expires_at", "connected_at", "updated_at",
		}),
	}).Create(cred).Error
	return translateErr("save credential", err)
}

type gormJobs struct {
	db *gorm.DB
}

func (s *gormJobs) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, translateErr("find job", err)
	}
	return &job, nil
}

func (s *gormJobs) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceID string) (*models.Job, error) {
	var job models.Job
	err := s.db.WithContext(ctx).First(&job, "tenant_id = ? AND source_id = ?", tenantID, sourceID).Error
	if err != nil {
		return nil, translateErr("find job", err)
	}
	return &job, nil
}

func (s *gormJobs) Find(ctx context.Context, filter JobFilter) ([]models.Job, error) {
	query := s.db.WithContext(ctx).Model(&models.Job{})
	if filter.TenantID != uuid.Nil {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var jobs []models.Job
	if err := query.Order("updated_at DESC").Find(&jobs).Error; err != nil {
		return nil, translateErr("list jobs", err)
	}
	return jobs, nil
}

func (s *gormJobs) Upsert(ctx context.Context, job *models.Job) (bool, error) {
	created, err := s.tryUpsert(ctx, job)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent insert won the race; the row exists now and the
		// retry takes the update path.
		created, err = s.tryUpsert(ctx, job)
	}
	if err != nil {
		return false, &PersistenceError{Op: "upsert job", Err: err}
	}
	return created, nil
}

func (s *gormJobs) tryUpsert(ctx context.Context, job *models.Job) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existingID, err := lockSourceRow(tx, "jobs", job.TenantID, job.SourceID)
		if err != nil {
			return err
		}

		if existingID == uuid.Nil {
			if job.ID == uuid.Nil {
				job.ID = uuid.New()
			}
			if err := tx.Create(job).Error; err != nil {
				return err
			}
			created = true
			return nil
		}

		job.ID = existingID
		return tx.Model(&models.Job{}).
			Where("id = ?", existingID).
			Updates(map[string]interface{}{
				"title":              job.Title,
				"slug":               job.Slug,
				"status":             job.Status,
				"employment_type":    job.EmploymentType,
				"seniority":          job.Seniority,
				"location_city":      job.LocationCity,
				"location_country":   job.LocationCountry,
				"remote":             job.Remote,
				"salary_min":         job.SalaryMin,
				"salary_max":         job.SalaryMax,
				"salary_currency":    job.SalaryCurrency,
				"salary_period":      job.SalaryPeriod,
				"description_blocks": job.DescriptionBlocks,
				"responsibilities":   job.Responsibilities,
				"requirements":       job.Requirements,
				"skills":             job.Skills,
				"posted_at":          job.PostedAt,
				"last_synced":        job.LastSynced,
				"updated_at":         time.Now(),
			}).Error
	})
	return created, err
}

func (s *gormJobs) UpdateStatus(ctx context.Context, tenantID uuid.UUID, sourceID, status string) error {
	res := s.db.WithContext(ctx).Model(&models.Job{}).
		Where("tenant_id = ? AND source_id = ?", tenantID, sourceID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return &PersistenceError{Op: "update job status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormCandidates struct {
	db *gorm.DB
}

func (s *gormCandidates) FindByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	err := s.db.WithContext(ctx).First(&candidate, "id = ?", id).Error
	if err != nil {
		return nil, translateErr("find candidate", err)
	}
	return &candidate, nil
}

func (s *gormCandidates) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := s.db.WithContext(ctx).First(&candidate, "tenant_id = ? AND source_id = ?", tenantID, sourceID).Error
	if err != nil {
		return nil, translateErr("find candidate", err)
	}
	return &candidate, nil
}

func (s *gormCandidates) Find(ctx context.Context, filter CandidateFilter) ([]models.Candidate, error) {
	query := s.db.WithContext(ctx).Model(&models.Candidate{})
	if filter.TenantID != uuid.Nil {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var candidates []models.Candidate
	if err := query.Order("updated_at DESC").Find(&candidates).Error; err != nil {
		return nil, translateErr("list candidates", err)
	}
	return candidates, nil
}

func (s *gormCandidates) Upsert(ctx context.Context, candidate *models.Candidate) (bool, error) {
	created, err := s.tryUpsert(ctx, candidate)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		created, err = s.tryUpsert(ctx, candidate)
	}
	if err != nil {
		return false, &PersistenceError{Op: "upsert candidate", Err: err}
	}
	return created, nil
}

func (s *gormCandidates) tryUpsert(ctx context.Context, candidate *models.Candidate) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existingID, err := lockSourceRow(tx, "candidates", candidate.TenantID, candidate.SourceID)
		if err != nil {
			return err
		}

		if existingID == uuid.Nil {
			if candidate.ID == uuid.Nil {
				candidate.ID = uuid.New()
			}
			if err := tx.Create(candidate).Error; err != nil {
				return err
			}
			created = true
			return nil
		}

		candidate.ID = existingID
		return tx.Model(&models.Candidate{}).
			Where("id = ?", existingID).
			Updates(map[string]interface{}{
				"first_name":     candidate.FirstName,
				"last_name":      candidate.LastName,
				"email":          candidate.Email,
				"phone":          candidate.Phone,
				"headline":       candidate.Headline,
				"summary_blocks": candidate.SummaryBlocks,
				"skills":         candidate.Skills,
				"experience":     candidate.Experience,
				"education":      candidate.Education,
				"placements":     candidate.Placements,
				"resume_url":     candidate.ResumeURL,
				"status":         candidate.Status,
				"last_synced":    candidate.LastSynced,
				"updated_at":     time.Now(),
			}).Error
	})
	return created, err
}

func (s *gormCandidates) UpdateStatus(ctx context.Context, tenantID uuid.UUID, sourceID, status string) error {
	res := s.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("tenant_id = ? AND source_id = ?", tenantID, sourceID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return &PersistenceError{Op: "update candidate status", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormCandidates) SetEnrichment(ctx context.Context, id uuid.UUID, enrichment models.AIEnrichment) error {
	res := s.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_enrichment": datatypes.NewJSONType(enrichment),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return &PersistenceError{Op: "set candidate enrichment", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormConsents struct {
	db *gorm.DB
}

func (s *gormConsents) FindByCandidate(ctx context.Context, tenantID uuid.UUID, candidateSourceID string) (*models.ConsentRecord, error) {
	var record models.ConsentRecord
	err := s.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND candidate_source_id = ?", tenantID, candidateSourceID).Error
	if err != nil {
		return nil, translateErr("find consent", err)
	}
	return &record, nil
}

func (s *gormConsents) Save(ctx context.Context, record *models.ConsentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "candidate_source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"granted", "source", "granted_at", "revoked_at", "updated_at",
		}),
	}).Create(record).Error
	return translateErr("save consent", err)
}

type gormEnrichments struct {
	db *gorm.DB
}

func (s *gormEnrichments) EnqueuePending(ctx context.Context, task *models.EnrichmentTask) (bool, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		DoNothing: true,
	}).Create(task)
	if res.Error != nil {
		return false, &PersistenceError{Op: "enqueue enrichment", Err: res.Error}
	}
	return res.RowsAffected > 0, nil
}

func (s *gormEnrichments) FindByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.EnrichmentTask, error) {
	var task models.EnrichmentTask
	err := s.db.WithContext(ctx).First(&task, "candidate_id = ?", candidateID).Error
	if err != nil {
		return nil, translateErr("find enrichment task", err)
	}
	return &task, nil
}

func (s *gormEnrichments) FindPending(ctx context.Context, limit int) ([]models.EnrichmentTask, error) {
	query := s.db.WithContext(ctx).Where("status = ?", models.TaskStatusPending).Order("enqueued_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var tasks []models.EnrichmentTask
	if err := query.Find(&tasks).Error; err != nil {
		return nil, translateErr("list pending enrichment tasks", err)
	}
	return tasks, nil
}

func (s *gormEnrichments) UpdateResult(ctx context.Context, candidateID uuid.UUID, status string, taskErr *string) error {
	updates := map[string]interface{}{
		"status":     status,
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": taskErr,
		"updated_at": time.Now(),
	}
	if status == models.TaskStatusCompleted || status == models.TaskStatusFailed {
		now := time.Now()
		updates["completed_at"] = &now
	}

	res := s.db.WithContext(ctx).Model(&models.EnrichmentTask{}).
		Where("candidate_id = ?", candidateID).
		Updates(updates)
	if res.Error != nil {
		return &PersistenceError{Op: "update enrichment result", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormAudits struct {
	db *gorm.DB
}

func (s *gormAudits) Append(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return translateErr("append audit log", s.db.WithContext(ctx).Create(entry).Error)
}

func (s *gormAudits) Find(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if filter.TenantID != uuid.Nil {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entries []models.AuditLog
	if err := query.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, translateErr("list audit logs", err)
	}
	return entries, nil
}

type gormSyncRuns struct {
	db *gorm.DB
}

func (s *gormSyncRuns) Create(ctx context.Context, run *models.SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return translateErr("create sync run", s.db.WithContext(ctx).Create(run).Error)
}

func (s *gormSyncRuns) Finish(ctx context.Context, id uuid.UUID, stats models.SyncStats, runErr *string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.SyncRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"finished_at": &now,
			"stats":       datatypes.NewJSONType(stats),
			"error":       runErr,
		})
	if res.Error != nil {
		return &PersistenceError{Op: "finish sync run", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormSyncRuns) FindRecent(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.SyncRun, error) {
	query := s.db.WithContext(ctx).Model(&models.SyncRun{})
	if tenantID != uuid.Nil {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.SyncRun
	if err := query.Order("started_at DESC").Find(&runs).Error; err != nil {
		return nil, translateErr("list sync runs", err)
	}
	return runs, nil
}

func (s *gormSyncRuns) LastCompleted(ctx context.Context, tenantID uuid.UUID) (*models.SyncRun, error) {
	var run models.SyncRun
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND finished_at IS NOT NULL AND error IS NULL", tenantID).
		Order("finished_at DESC").
		First(&run).Error
	if err != nil {
		return nil, translateErr("find last completed sync run", err)
	}
	return &run, nil
}
