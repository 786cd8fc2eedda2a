package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventType(t *testing.T) {
	eventType, err := ParseEventType("job.created")
	require.NoError(t, err)
	assert.Equal(t, JobCreated, eventType)

	eventType, err = ParseEventType("  Candidate.Deleted  ")
	require.NoError(t, err)
	assert.Equal(t, CandidateDeleted, eventType)

	_, err = ParseEventType("placement.created")
	assert.Error(t, err)

	_, err = ParseEventType("")
	assert.Error(t, err)
}

func TestEventTypeParts(t *testing.T) {
	assert.Equal(t, "job", JobUpdated.Resource())
	assert.Equal(t, "updated", JobUpdated.Action())
	assert.Equal(t, "candidate", CandidateDeleted.Resource())

	assert.True(t, JobDeleted.IsDeletion())
	assert.True(t, CandidateDeleted.IsDeletion())
	assert.False(t, JobCreated.IsDeletion())
	assert.False(t, CandidateUpdated.IsDeletion())
}

func TestAllEventTypes(t *testing.T) {
	all := AllEventTypes()

	assert.Len(t, all, 6)
	assert.Contains(t, all, "job.created")
	assert.Contains(t, all, "candidate.deleted")
}
