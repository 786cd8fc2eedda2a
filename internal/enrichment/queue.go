package enrichment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/rabbitmq"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

// Queue enqueues candidates for AI enrichment. The durable record lives
// in the enrichment_queue table; the broker message is a best-effort
// nudge, so a publish failure never fails the caller.
type Queue struct {
	conn        *rabbitmq.Connection
	enrichments store.EnrichmentStore
	taskQueue   string
	logger      *zap.Logger
}

func NewQueue(conn *rabbitmq.Connection, enrichments store.EnrichmentStore, taskQueue string, logger *zap.Logger) *Queue {
	return &Queue{
		conn:        conn,
		enrichments: enrichments,
		taskQueue:   taskQueue,
		logger:      logger,
	}
}

// Setup declares the task queue. Called once at startup.
func (q *Queue) Setup() error {
	if err := q.conn.DeclareQueue(q.taskQueue); err != nil {
		return fmt.Errorf("failed to declare task queue: %w", err)
	}
	return nil
}

// Enqueue records an enrichment task for the candidate and publishes it
// to the task queue. Enqueueing the same candidate twice is a no-op at
// the store level; tasks still pending are re-published so a lost
// broker message heals on the next sync.
func (q *Queue) Enqueue(ctx context.Context, candidate *models.Candidate) (bool, error) {
	created, err := q.enrichments.EnqueuePending(ctx, &models.EnrichmentTask{
		TenantID:    candidate.TenantID,
		CandidateID: candidate.ID,
		Status:      models.TaskStatusPending,
		EnqueuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to record enrichment task: %w", err)
	}

	task, err := q.enrichments.FindByCandidate(ctx, candidate.ID)
	if err != nil {
		return created, fmt.Errorf("failed to load enrichment task: %w", err)
	}
	if task.Status != models.TaskStatusPending {
		return created, nil
	}

	message := TaskMessage{
		TaskID:            task.ID,
		TenantID:          candidate.TenantID,
		CandidateID:       candidate.ID,
		CandidateSourceID: candidate.SourceID,
		Summary:           candidate.SummaryBlocks,
		Skills:            candidate.Skills,
		RequestedAt:       time.Now().UTC(),
	}
	body, err := encodeEnvelope(message)
	if err != nil {
		return created, fmt.Errorf("failed to encode task message: %w", err)
	}

	if err := q.conn.PublishMessage("", q.taskQueue, body); err != nil {
		q.logger.Warn("Failed to publish enrichment task, row stays pending",
			zap.String("tenant_id", candidate.TenantID.String()),
			zap.String("candidate_id", candidate.ID.String()),
			zap.Error(err),
		)
		return created, nil
	}

	q.logger.Debug("Enrichment task published",
		zap.String("tenant_id", candidate.TenantID.String()),
		zap.String("candidate_id", candidate.ID.String()),
		zap.String("task_id", task.ID.String()),
	)
	return created, nil
}
