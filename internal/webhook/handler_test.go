package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/ats"
	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/oauth"
	"github.com/hirelens/ats-sync-svc/internal/privacy"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

const testSecret = "whsec_test"

type stubTokens struct {
	err error
}

func (s stubTokens) Token(_ context.Context, _ uuid.UUID) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "token-1", nil
}

func (s stubTokens) Refresh(_ context.Context, _ uuid.UUID) (string, error) {
	return s.Token(context.Background(), uuid.Nil)
}

type stubQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	err      error
}

func (q *stubQueue) Enqueue(_ context.Context, candidate *models.Candidate) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return false, q.err
	}
	q.enqueued = append(q.enqueued, candidate.ID)
	return true, nil
}

func (q *stubQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}

type testEnv struct {
	app    *fiber.App
	store  *store.Memory
	queue  *stubQueue
	tenant models.Tenant
}

func newTestEnv(t *testing.T, atsHandler http.Handler, secret, appEnv string, tokens ats.TokenSource) *testEnv {
	t.Helper()

	mem := store.NewMemory()
	tenant := models.Tenant{Name: "Acme Recruiting", Slug: "acme-recruiting", IntegrationEnabled: true}
	require.NoError(t, mem.Tenants().Create(context.Background(), &tenant))

	cfg := &config.Config{
		Server: config.ServerConfig{AppEnv: appEnv},
		ATS:    config.ATSConfig{WebhookSecret: secret},
	}
	if atsHandler != nil {
		server := httptest.NewServer(atsHandler)
		t.Cleanup(server.Close)
		cfg.ATS.BaseURL = server.URL
	}
	if tokens == nil {
		tokens = stubTokens{}
	}

	logger := zap.NewNop()
	client := ats.NewClient(&cfg.ATS, tokens, logger)
	gate := privacy.NewGate(mem.Consents(), mem.Audits(), logger)
	queue := &stubQueue{}

	app := fiber.New()
	app.Post("/webhooks/ats", NewHandler(cfg, mem, client, gate, queue, logger).Handle)

	return &testEnv{app: app, store: mem, queue: queue, tenant: tenant}
}

func eventBody(t *testing.T, event, recordID string, tenantID uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event":     event,
		"eventId":   "evt-" + recordID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      map[string]any{"id": recordID},
		"metadata":  map[string]any{"tenantId": tenantID.String()},
	})
	require.NoError(t, err)
	return body
}

func (e *testEnv) post(t *testing.T, body []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/ats", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-ATS-Signature", signature)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) postSigned(t *testing.T, body []byte) *http.Response {
	t.Helper()
	sig, err := ComputeSignature(body, testSecret)
	require.NoError(t, err)
	return e.post(t, body, sig)
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]string {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func jobStub(id, title string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/jobs/"+id, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": id, "title": title, "status": "open"},
		})
	})
	return mux
}

// candidateStub serves a candidate core record plus empty sub-resources.
func candidateStub(id string, consent map[string]any) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/candidates/"+id, func(w http.ResponseWriter, r *http.Request) {
		candidate := map[string]any{
			"id":        id,
			"firstName": "Ada",
			"lastName":  "Alvarez",
			"status":    "active",
		}
		if consent != nil {
			candidate["consent"] = consent
		}
		json.NewEncoder(w).Encode(map[string]any{"data": candidate})
	})
	mux.HandleFunc("/v1/candidates/"+id+"/resume", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for _, sub := range []string{"experience", "education", "placements"} {
		mux.HandleFunc("/v1/candidates/"+id+"/"+sub, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data": []}`))
		})
	}
	return mux
}

func TestHandle_JobCreated(t *testing.T) {
	env := newTestEnv(t, jobStub("job-1", "Backend Engineer"), testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "job.created", "job-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decodeResponse(t, resp)["status"])

	job, err := env.store.Jobs().FindBySource(context.Background(), env.tenant.ID, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "open", job.Status)

	audits, err := env.store.Audits().Find(context.Background(), store.AuditFilter{TenantID: env.tenant.ID})
	require.NoError(t, err)
	require.Len(t, audits, 2)
	actions := []string{audits[0].Action, audits[1].Action}
	assert.Contains(t, actions, models.AuditActionWebhookReceived)
	assert.Contains(t, actions, models.AuditActionRecordCreated)
}

func TestHandle_RedeliveryUpdatesInPlace(t *testing.T) {
	env := newTestEnv(t, jobStub("job-1", "Backend Engineer"), testSecret, "development", nil)
	body := eventBody(t, "job.created", "job-1", env.tenant.ID)

	resp := env.postSigned(t, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.postSigned(t, body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decodeResponse(t, resp)["status"])

	jobs, err := env.store.Jobs().Find(context.Background(), store.JobFilter{TenantID: env.tenant.ID})
	require.NoError(t, err)
	assert.Len(t, jobs, 1, "re-delivery must not duplicate the record")

	updates, err := env.store.Audits().Find(context.Background(), store.AuditFilter{
		TenantID: env.tenant.ID,
		Action:   models.AuditActionRecordUpdated,
	})
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestHandle_MalformedPayload(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)

	resp := env.post(t, []byte(`{"event": "job.created"`), "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandle_InvalidSignature(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)
	body := eventBody(t, "job.created", "job-1", env.tenant.ID)

	resp := env.post(t, body, "sha256=0000000000000000000000000000000000000000000000000000000000000000")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = env.post(t, body, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "missing signature")
	resp.Body.Close()
}

func TestHandle_NoSecretConfigured(t *testing.T) {
	// Development accepts unsigned events, production rejects them.
	env := newTestEnv(t, jobStub("job-1", "Engineer"), "", "development", nil)
	resp := env.post(t, eventBody(t, "job.created", "job-1", env.tenant.ID), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	env = newTestEnv(t, nil, "", "production", nil)
	resp = env.post(t, eventBody(t, "job.created", "job-1", env.tenant.ID), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestHandle_UnknownTenant(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "job.created", "job-1", uuid.New()))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandle_IntegrationDisabled(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)
	disabled := models.Tenant{Name: "Paused Co", Slug: "paused-co", IntegrationEnabled: false}
	require.NoError(t, env.store.Tenants().Create(context.Background(), &disabled))

	resp := env.postSigned(t, eventBody(t, "job.created", "job-1", disabled.ID))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandle_UnrecognizedEventAcknowledged(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "placement.created", "pl-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ignored", decodeResponse(t, resp)["status"])

	// The event is still audited before being ignored.
	audits, err := env.store.Audits().Find(context.Background(), store.AuditFilter{
		TenantID: env.tenant.ID,
		Action:   models.AuditActionWebhookReceived,
	})
	require.NoError(t, err)
	assert.Len(t, audits, 1)
}

func TestHandle_JobDeleted(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)
	_, err := env.store.Jobs().Upsert(context.Background(), &models.Job{
		TenantID: env.tenant.ID, SourceID: "job-1", Title: "Engineer", Slug: "engineer", Status: "open",
	})
	require.NoError(t, err)

	resp := env.postSigned(t, eventBody(t, "job.deleted", "job-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decodeResponse(t, resp)["status"])

	job, err := env.store.Jobs().FindBySource(context.Background(), env.tenant.ID, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusClosed, job.Status, "deletion soft-closes the job")
}

func TestHandle_CandidateDeleted(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)
	_, err := env.store.Candidates().Upsert(context.Background(), &models.Candidate{
		TenantID: env.tenant.ID, SourceID: "cand-1", FirstName: "Ada", Status: "active",
	})
	require.NoError(t, err)

	resp := env.postSigned(t, eventBody(t, "candidate.deleted", "cand-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	candidate, err := env.store.Candidates().FindBySource(context.Background(), env.tenant.ID, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, models.CandidateStatusInactive, candidate.Status, "deletion deactivates, never drops the row")
}

func TestHandle_DeletionForUnknownRecord(t *testing.T) {
	env := newTestEnv(t, nil, testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "job.deleted", "job-nope", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "skipped", decodeResponse(t, resp)["status"])
}

func TestHandle_CandidateWithConsent(t *testing.T) {
	granted := time.Now().UTC().Format(time.RFC3339)
	env := newTestEnv(t, candidateStub("cand-1", map[string]any{"granted": true, "grantedAt": granted}), testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "candidate.created", "cand-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decodeResponse(t, resp)["status"])

	candidate, err := env.store.Candidates().FindBySource(context.Background(), env.tenant.ID, "cand-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", candidate.FirstName)

	consent, err := env.store.Consents().FindByCandidate(context.Background(), env.tenant.ID, "cand-1")
	require.NoError(t, err)
	assert.True(t, consent.Active(), "consent from the source record is mirrored locally")

	assert.Equal(t, 1, env.queue.count(), "processed candidate goes to enrichment")
}

func TestHandle_CandidateWithoutConsent(t *testing.T) {
	env := newTestEnv(t, candidateStub("cand-1", nil), testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "candidate.created", "cand-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "skipped", decodeResponse(t, resp)["status"])

	_, err := env.store.Candidates().FindBySource(context.Background(), env.tenant.ID, "cand-1")
	assert.ErrorIs(t, err, store.ErrNotFound, "no profile data is stored without consent")
	assert.Equal(t, 0, env.queue.count())

	denied, err := env.store.Audits().Find(context.Background(), store.AuditFilter{
		TenantID: env.tenant.ID,
		Action:   models.AuditActionConsentDenied,
	})
	require.NoError(t, err)
	assert.Len(t, denied, 1)
}

func TestHandle_CandidateConsentRevoked(t *testing.T) {
	granted := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	revoked := time.Now().UTC().Format(time.RFC3339)
	env := newTestEnv(t, candidateStub("cand-1", map[string]any{
		"granted":   true,
		"grantedAt": granted,
		"revokedAt": revoked,
	}), testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "candidate.updated", "cand-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "skipped", decodeResponse(t, resp)["status"])
	assert.Equal(t, 0, env.queue.count())
}

func TestHandle_RecordGoneUpstream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	env := newTestEnv(t, mux, testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "job.updated", "job-gone", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "skipped", decodeResponse(t, resp)["status"])
}

func TestHandle_MissingCredentialMapsTo401(t *testing.T) {
	env := newTestEnv(t, jobStub("job-1", "Engineer"), testSecret, "development", stubTokens{err: oauth.ErrNoCredential})

	resp := env.postSigned(t, eventBody(t, "job.created", "job-1", env.tenant.ID))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, decodeResponse(t, resp)["error"], "reconnect")
}

func TestHandle_UpstreamFailureMapsTo500(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "malformed record"}`))
	})
	env := newTestEnv(t, mux, testSecret, "development", nil)

	resp := env.postSigned(t, eventBody(t, "job.created", "job-1", env.tenant.ID))

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}

func TestHandle_EnqueueFailureDoesNotFailEvent(t *testing.T) {
	granted := time.Now().UTC().Format(time.RFC3339)
	env := newTestEnv(t, candidateStub("cand-1", map[string]any{"granted": true, "grantedAt": granted}), testSecret, "development", nil)
	env.queue.err = assert.AnError

	resp := env.postSigned(t, eventBody(t, "candidate.created", "cand-1", env.tenant.ID))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processed", decodeResponse(t, resp)["status"])

	// The candidate row landed even though enrichment did not.
	_, err := env.store.Candidates().FindBySource(context.Background(), env.tenant.ID, "cand-1")
	assert.NoError(t, err)
}
