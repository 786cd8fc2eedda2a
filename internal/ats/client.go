package ats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/config"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// maxErrorBodySize caps how much of an error response body is read.
	maxErrorBodySize = 4096
)

// TokenSource supplies per-tenant access tokens. Refresh is called at
// most once per operation when the ATS rejects the current token.
type TokenSource interface {
	Token(ctx context.Context, tenantID uuid.UUID) (string, error)
	Refresh(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// Client talks to the ATS REST API on behalf of tenants.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	logger     *zap.Logger
}

func NewClient(cfg *config.ATSConfig, tokens TokenSource, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		tokens:     tokens,
		logger:     logger,
	}
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type listEnvelope[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// ListJobs returns one page of jobs, optionally filtered by update time.
func (c *Client) ListJobs(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]SourceJob, PageMeta, error) {
	var env listEnvelope[SourceJob]
	if err := c.do(ctx, tenantID, http.MethodGet, "/v1/jobs", listQuery(opts), nil, &env); err != nil {
		return nil, PageMeta{}, err
	}
	return env.Data, env.Meta, nil
}

func (c *Client) GetJob(ctx context.Context, tenantID uuid.UUID, id string) (*SourceJob, error) {
	var env dataEnvelope[SourceJob]
	err := c.do(ctx, tenantID, http.MethodGet, "/v1/jobs/"+url.PathEscape(id), nil, nil, &env)
	if err != nil {
		if IsNotFound(err) {
			return nil, &NotFoundError{Resource: "job", ID: id}
		}
		return nil, err
	}
	return &env.Data, nil
}

// ListCandidates returns one page of candidates, optionally filtered by
// update time.
func (c *Client) ListCandidates(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]SourceCandidate, PageMeta, error) {
	var env listEnvelope[SourceCandidate]
	if err := c.do(ctx, tenantID, http.MethodGet, "/v1/candidates", listQuery(opts), nil, &env); err != nil {
		return nil, PageMeta{}, err
	}
	return env.Data, env.Meta, nil
}

func (c *Client) GetCandidate(ctx context.Context, tenantID uuid.UUID, id string) (*SourceCandidate, error) {
	var env dataEnvelope[SourceCandidate]
	err := c.do(ctx, tenantID, http.MethodGet, "/v1/candidates/"+url.PathEscape(id), nil, nil, &env)
	if err != nil {
		if IsNotFound(err) {
			return nil, &NotFoundError{Resource: "candidate", ID: id}
		}
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) GetCandidateResume(ctx context.Context, tenantID uuid.UUID, id string) (*SourceResume, error) {
	var env dataEnvelope[SourceResume]
	err := c.do(ctx, tenantID, http.MethodGet, "/v1/candidates/"+url.PathEscape(id)+"/resume", nil, nil, &env)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) GetCandidateExperience(ctx context.Context, tenantID uuid.UUID, id string) ([]SourceExperience, error) {
	var env dataEnvelope[[]SourceExperience]
	err := c.do(ctx, tenantID, http.MethodGet, "/v1/candidates/"+url.PathEscape(id)+"/experience", nil, nil, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) GetCandidateEducation(ctx context.Context, tenantID uuid.UUID, id string) ([]SourceEducation, error) {
	var env dataEnvelope[[]SourceEducation]
	err := c.do(ctx, tenantID, http.MethodGet, "/v1/candidates/"+url.PathEscape(id)+"/education", nil, nil, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) GetCandidatePlacements(ctx context.Context, tenantID uuid.UUID, id string) ([]SourcePlacement, error) {
	var env dataEnvelope[[]SourcePlacement]
	err := c.do(ctx, tenantID, http.MethodGet, "/v1/candidates/"+url.PathEscape(id)+"/placements", nil, nil, &env)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// FetchCandidateBundle fetches the sub-resources for an already fetched
// candidate. Callers run the consent gate on the core record first so no
// personal data beyond it is pulled for non-consented candidates.
// Sub-resource failures do not abort the fetch: the bundle is returned
// together with a PartialFetchError naming what failed. A missing resume
// is normal and not treated as a failure.
func (c *Client) FetchCandidateBundle(ctx context.Context, tenantID uuid.UUID, candidate SourceCandidate) (*CandidateBundle, error) {
	id := candidate.ID
	bundle := &CandidateBundle{Candidate: candidate}
	var failed []string

	resume, err := c.GetCandidateResume(ctx, tenantID, id)
	switch {
	case err == nil:
		bundle.Resume = resume
	case IsNotFound(err):
		// candidate has no resume uploaded
	default:
		failed = append(failed, "resume")
	}

	if experience, err := c.GetCandidateExperience(ctx, tenantID, id); err != nil {
		failed = append(failed, "experience")
	} else {
		bundle.Experience = experience
	}

	if education, err := c.GetCandidateEducation(ctx, tenantID, id); err != nil {
		failed = append(failed, "education")
	} else {
		bundle.Education = education
	}

	if placements, err := c.GetCandidatePlacements(ctx, tenantID, id); err != nil {
		failed = append(failed, "placements")
	} else {
		bundle.Placements = placements
	}

	if len(failed) > 0 {
		return bundle, &PartialFetchError{Resource: "candidate", ID: id, Failed: failed}
	}
	return bundle, nil
}

func (c *Client) ListWebhookSubscriptions(ctx context.Context, tenantID uuid.UUID) ([]WebhookSubscription, error) {
	var env listEnvelope[WebhookSubscription]
	if err := c.do(ctx, tenantID, http.MethodGet, "/v1/webhooks", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) CreateWebhookSubscription(ctx context.Context, tenantID uuid.UUID, callbackURL string, events []string) (*WebhookSubscription, error) {
	body := map[string]interface{}{
		"url":    callbackURL,
		"events": events,
	}
	var env dataEnvelope[WebhookSubscription]
	if err := c.do(ctx, tenantID, http.MethodPost, "/v1/webhooks", nil, body, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) DeleteWebhookSubscription(ctx context.Context, tenantID uuid.UUID, id string) error {
	return c.do(ctx, tenantID, http.MethodDelete, "/v1/webhooks/"+url.PathEscape(id), nil, nil, nil)
}

// EnsureWebhookSubscription registers the callback URL with the ATS if no
// active subscription for it exists yet. Safe to call repeatedly.
func (c *Client) EnsureWebhookSubscription(ctx context.Context, tenantID uuid.UUID, callbackURL string, events []string) (*WebhookSubscription, error) {
	subs, err := c.ListWebhookSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].URL == callbackURL && subs[i].Active {
			return &subs[i], nil
		}
	}
	return c.CreateWebhookSubscription(ctx, tenantID, callbackURL, events)
}

// do performs one API call with retries. Network errors and 5xx retry on
// the backoff table up to MaxAttempts; a 401 triggers exactly one token
// refresh before the call is retried; other 4xx are terminal.
func (c *Client) do(ctx context.Context, tenantID uuid.UUID, method, path string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	correlationID := uuid.New().String()
	attempt := 1
	refreshed := false

	for {
		token, err := c.tokens.Token(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to resolve access token: %w", err)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Correlation-ID", correlationID)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		latencyMs := time.Since(start).Milliseconds()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("ATS request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.String("tenant_id", tenantID.String()),
				zap.String("correlation_id", correlationID),
				zap.Int("attempt", attempt),
				zap.Int64("latency_ms", latencyMs),
				zap.Error(err),
			)
			if attempt >= MaxAttempts {
				return &TransientNetworkError{Op: method + " " + path, Err: err}
			}
			attempt++
			if err := c.wait(ctx, RetryDelay(attempt)); err != nil {
				return err
			}
			continue
		}

		c.logger.Debug("ATS request completed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("tenant_id", tenantID.String()),
			zap.String("correlation_id", correlationID),
			zap.Int("attempt", attempt),
			zap.Int("status", resp.StatusCode),
			zap.Int64("latency_ms", latencyMs),
		)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			var decodeErr error
			if out != nil {
				decodeErr = json.NewDecoder(resp.Body).Decode(out)
			} else {
				_, _ = io.Copy(io.Discard, resp.Body)
			}
			resp.Body.Close()
			if decodeErr != nil {
				return fmt.Errorf("failed to decode response: %w", decodeErr)
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized:
			reason := readErrorMessage(resp)
			if refreshed {
				return &AuthenticationError{TenantID: tenantID.String(), Reason: reason}
			}
			if _, err := c.tokens.Refresh(ctx, tenantID); err != nil {
				return &AuthenticationError{
					TenantID: tenantID.String(),
					Reason:   fmt.Sprintf("token refresh failed: %v", err),
				}
			}
			refreshed = true
			continue

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			retryAfter := resp.Header.Get("Retry-After")
			message := readErrorMessage(resp)
			if attempt >= MaxAttempts {
				return &TransientNetworkError{
					Op:  method + " " + path,
					Err: &APIError{StatusCode: resp.StatusCode, Message: message, URL: reqURL},
				}
			}
			attempt++
			delay := RetryDelay(attempt)
			if d, ok := ParseRetryAfter(retryAfter); ok {
				delay = d
			}
			if err := c.wait(ctx, delay); err != nil {
				return err
			}
			continue

		default:
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    readErrorMessage(resp),
				URL:        reqURL,
			}
		}
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func listQuery(opts ListOptions) url.Values {
	query := url.Values{}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	query.Set("page", strconv.Itoa(page))
	if opts.PerPage > 0 {
		query.Set("perPage", strconv.Itoa(opts.PerPage))
	}
	if opts.UpdatedSince != nil {
		query.Set("updatedSince", opts.UpdatedSince.UTC().Format(time.RFC3339))
	}
	return query
}

// readErrorMessage extracts a human-readable message from an error
// response and closes the body. Bodies are read capped.
func readErrorMessage(resp *http.Response) string {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var apiMsg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiMsg); err == nil {
		if apiMsg.Message != "" {
			return apiMsg.Message
		}
		if apiMsg.Error != "" {
			return apiMsg.Error
		}
	}
	return strings.TrimSpace(string(body))
}
