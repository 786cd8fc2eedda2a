package enrichment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

// HandleEvent never touches the broker, so a nil connection is fine.
func newResultConsumer(mem *store.Memory) *Consumer {
	return NewConsumer(nil, mem, "enrichment.results", 10, zap.NewNop())
}

func enqueueTask(t *testing.T, mem *store.Memory, candidate models.Candidate) {
	t.Helper()
	_, err := mem.Enrichments().EnqueuePending(context.Background(), &models.EnrichmentTask{
		TenantID:    candidate.TenantID,
		CandidateID: candidate.ID,
		Status:      models.TaskStatusPending,
		EnqueuedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func resultBody(t *testing.T, result ResultMessage) string {
	t.Helper()
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	return string(payload)
}

func TestHandleEvent_CompletedAppliesEnrichment(t *testing.T) {
	mem := store.NewMemory()
	candidate := seedCandidate(t, mem)
	enqueueTask(t, mem, candidate)
	c := newResultConsumer(mem)
	ctx := context.Background()

	completedAt := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	err := c.HandleEvent(resultBody(t, ResultMessage{
		TaskID:      uuid.New(),
		TenantID:    candidate.TenantID,
		CandidateID: candidate.ID,
		Status:      ResultStatusCompleted,
		Summary:     "Seasoned backend engineer with a platform focus.",
		Tags:        []string{"backend", "platform"},
		CompletedAt: completedAt,
	}))

	require.NoError(t, err)

	task, err := mem.Enrichments().FindByCandidate(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.Nil(t, task.LastError)

	stored, err := mem.Candidates().FindBySource(ctx, candidate.TenantID, candidate.SourceID)
	require.NoError(t, err)
	enriched := stored.AIEnrichment.Data()
	assert.Equal(t, models.EnrichmentCompleted, enriched.Status)
	assert.Equal(t, "Seasoned backend engineer with a platform focus.", enriched.Summary)
	assert.Equal(t, []string{"backend", "platform"}, enriched.Tags)
	require.NotNil(t, enriched.EnrichedAt)
	assert.True(t, enriched.EnrichedAt.Equal(completedAt))
}

func TestHandleEvent_CompletedWithoutTimestamp(t *testing.T) {
	mem := store.NewMemory()
	candidate := seedCandidate(t, mem)
	enqueueTask(t, mem, candidate)
	c := newResultConsumer(mem)

	err := c.HandleEvent(resultBody(t, ResultMessage{
		CandidateID: candidate.ID,
		Status:      ResultStatusCompleted,
	}))

	require.NoError(t, err)

	stored, err := mem.Candidates().FindBySource(context.Background(), candidate.TenantID, candidate.SourceID)
	require.NoError(t, err)
	enriched := stored.AIEnrichment.Data()
	require.NotNil(t, enriched.EnrichedAt)
	assert.WithinDuration(t, time.Now().UTC(), *enriched.EnrichedAt, 5*time.Second)
}

func TestHandleEvent_FailedRecordsError(t *testing.T) {
	mem := store.NewMemory()
	candidate := seedCandidate(t, mem)
	enqueueTask(t, mem, candidate)
	c := newResultConsumer(mem)
	ctx := context.Background()

	err := c.HandleEvent(resultBody(t, ResultMessage{
		CandidateID: candidate.ID,
		Status:      ResultStatusFailed,
		Error:       "model timeout",
	}))

	require.NoError(t, err)

	task, err := mem.Enrichments().FindByCandidate(ctx, candidate.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	require.NotNil(t, task.LastError)
	assert.Equal(t, "model timeout", *task.LastError)

	stored, err := mem.Candidates().FindBySource(ctx, candidate.TenantID, candidate.SourceID)
	require.NoError(t, err)
	enriched := stored.AIEnrichment.Data()
	assert.Equal(t, models.EnrichmentFailed, enriched.Status)
	assert.Equal(t, "model timeout", enriched.Error)
}

func TestHandleEvent_UnknownTaskDropped(t *testing.T) {
	mem := store.NewMemory()
	c := newResultConsumer(mem)

	err := c.HandleEvent(resultBody(t, ResultMessage{
		CandidateID: uuid.New(),
		Status:      ResultStatusCompleted,
	}))

	assert.NoError(t, err, "results for unknown tasks are dropped, not retried")
}

func TestHandleEvent_DeletedCandidateDropped(t *testing.T) {
	mem := store.NewMemory()
	candidate := seedCandidate(t, mem)
	orphanID := uuid.New()
	enqueueTask(t, mem, models.Candidate{TenantID: candidate.TenantID, ID: orphanID})
	c := newResultConsumer(mem)

	err := c.HandleEvent(resultBody(t, ResultMessage{
		CandidateID: orphanID,
		Status:      ResultStatusCompleted,
	}))

	require.NoError(t, err)

	// The task row still settles even though the candidate is gone.
	task, err := mem.Enrichments().FindByCandidate(context.Background(), orphanID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
}

func TestHandleEvent_Invalid(t *testing.T) {
	c := newResultConsumer(store.NewMemory())

	tests := []struct {
		name    string
		message string
		wantErr string
	}{
		{
			name:    "malformed json",
			message: "{not json",
			wantErr: "unmarshal",
		},
		{
			name:    "missing candidate id",
			message: `{"status": "completed"}`,
			wantErr: "no candidate id",
		},
		{
			name:    "unknown status",
			message: `{"candidateId": "` + uuid.NewString() + `", "status": "partial"}`,
			wantErr: "unknown result status",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.HandleEvent(tt.message)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTaskMessageEnvelope(t *testing.T) {
	message := TaskMessage{
		TaskID:      uuid.New(),
		TenantID:    uuid.New(),
		CandidateID: uuid.New(),
		Summary:     []string{"Led the payments team."},
		Skills:      []string{"Go", "PostgreSQL"},
		RequestedAt: time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC),
	}

	body, err := encodeEnvelope(message)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(string(body))
	require.NoError(t, err, "queue bodies are base64 on the wire")

	var roundTripped TaskMessage
	require.NoError(t, json.Unmarshal(decoded, &roundTripped))
	assert.Equal(t, message.TaskID, roundTripped.TaskID)
	assert.Equal(t, message.CandidateID, roundTripped.CandidateID)
	assert.Equal(t, message.Skills, roundTripped.Skills)
	assert.True(t, roundTripped.RequestedAt.Equal(message.RequestedAt))
}
