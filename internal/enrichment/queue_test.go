package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/rabbitmq"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

func seedCandidate(t *testing.T, mem *store.Memory) models.Candidate {
	t.Helper()
	ctx := context.Background()

	tenant := models.Tenant{Name: "Acme Recruiting", Slug: "acme-recruiting", IntegrationEnabled: true}
	require.NoError(t, mem.Tenants().Create(ctx, &tenant))

	candidate := models.Candidate{
		TenantID:  tenant.ID,
		SourceID:  "cand-1",
		FirstName: "Ada",
		Status:    models.CandidateStatusActive,
	}
	_, err := mem.Candidates().Upsert(ctx, &candidate)
	require.NoError(t, err)
	return candidate
}

// An unconnected broker connection makes every publish fail, which is
// exactly the degraded mode Enqueue has to shrug off.
func newOfflineQueue(mem *store.Memory) *Queue {
	conn := rabbitmq.NewConnection(&config.RabbitMQConfig{}, zap.NewNop())
	return NewQueue(conn, mem.Enrichments(), "enrichment.tasks", zap.NewNop())
}

func TestQueue_EnqueueRecordsPendingDespitePublishFailure(t *testing.T) {
	mem := store.NewMemory()
	candidate := seedCandidate(t, mem)
	queue := newOfflineQueue(mem)
	ctx := context.Background()

	created, err := queue.Enqueue(ctx, &candidate)

	require.NoError(t, err, "a broker outage must not fail the enqueue")
	assert.True(t, created)

	task, err := mem.Enrichments().FindByCandidate(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, candidate.TenantID, task.TenantID)
	assert.False(t, task.EnqueuedAt.IsZero())

	created, err = queue.Enqueue(ctx, &candidate)

	require.NoError(t, err)
	assert.False(t, created, "re-enqueueing the same candidate is a no-op")
}

func TestQueue_EnqueueLeavesSettledTasksAlone(t *testing.T) {
	mem := store.NewMemory()
	candidate := seedCandidate(t, mem)
	queue := newOfflineQueue(mem)
	ctx := context.Background()

	_, err := queue.Enqueue(ctx, &candidate)
	require.NoError(t, err)
	require.NoError(t, mem.Enrichments().UpdateResult(ctx, candidate.ID, models.TaskStatusCompleted, nil))

	start := time.Now()
	created, err := queue.Enqueue(ctx, &candidate)

	require.NoError(t, err)
	assert.False(t, created)
	assert.Less(t, time.Since(start), time.Second, "settled tasks skip the publish path")

	task, err := mem.Enrichments().FindByCandidate(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status, "a finished task is never reopened")
}
