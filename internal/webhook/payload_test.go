package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	body := []byte(`{
		"event": "job.created",
		"eventId": "evt-123",
		"timestamp": "2025-06-01T12:00:00Z",
		"data": {"id": "job-42"},
		"metadata": {"tenantId": "7b688895-ffdc-4776-870c-f10cbc6c83b7"}
	}`)

	payload, err := ParsePayload(body)

	require.NoError(t, err)
	assert.Equal(t, "job.created", payload.Event)
	assert.Equal(t, "evt-123", payload.EventID)
	assert.Equal(t, "job-42", payload.Data.ID)
	assert.Equal(t, "7b688895-ffdc-4776-870c-f10cbc6c83b7", payload.Metadata.TenantID)
}

func TestParsePayload_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "malformed JSON",
			body: `{"event": "job.created",`,
		},
		{
			name: "missing event",
			body: `{"data": {"id": "job-1"}, "metadata": {"tenantId": "7b688895-ffdc-4776-870c-f10cbc6c83b7"}}`,
		},
		{
			name: "missing record id",
			body: `{"event": "job.created", "data": {}, "metadata": {"tenantId": "7b688895-ffdc-4776-870c-f10cbc6c83b7"}}`,
		},
		{
			name: "missing tenant",
			body: `{"event": "job.created", "data": {"id": "job-1"}, "metadata": {}}`,
		},
		{
			name: "tenant id not a uuid",
			body: `{"event": "job.created", "data": {"id": "job-1"}, "metadata": {"tenantId": "not-a-uuid"}}`,
		},
		{
			name: "event without action half",
			body: `{"event": "job", "data": {"id": "job-1"}, "metadata": {"tenantId": "7b688895-ffdc-4776-870c-f10cbc6c83b7"}}`,
		},
		{
			name: "event with empty resource half",
			body: `{"event": ".created", "data": {"id": "job-1"}, "metadata": {"tenantId": "7b688895-ffdc-4776-870c-f10cbc6c83b7"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParsePayload_UnrecognizedEventPasses(t *testing.T) {
	// Unknown but well-formed events parse fine; routing decides later.
	body := []byte(`{
		"event": "placement.created",
		"data": {"id": "pl-9"},
		"metadata": {"tenantId": "7b688895-ffdc-4776-870c-f10cbc6c83b7"}
	}`)

	payload, err := ParsePayload(body)

	require.NoError(t, err)
	assert.Equal(t, "placement.created", payload.Event)
}
