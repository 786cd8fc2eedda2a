package ats

import (
	"errors"
	"fmt"
	"strings"
)

// AuthenticationError indicates the tenant's token was rejected and a
// refresh did not help. The tenant has to reconnect via OAuth.
type AuthenticationError struct {
	TenantID string
	Reason   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("ats: authentication failed for tenant %s: %s", e.TenantID, e.Reason)
}

// NotFoundError indicates the requested resource does not exist upstream.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ats: %s %s not found", e.Resource, e.ID)
}

// TransientNetworkError wraps timeouts, connection failures and 5xx
// responses that survived the retry budget.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("ats: transient failure during %s: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error {
	return e.Err
}

// PartialFetchError indicates the primary resource was fetched but one or
// more sub-resources failed. The partial result is still usable.
type PartialFetchError struct {
	Resource string
	ID       string
	Failed   []string
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("ats: partial fetch of %s %s: failed sub-resources [%s]",
		e.Resource, e.ID, strings.Join(e.Failed, ", "))
}

// APIError represents a terminal non-2xx API response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ats: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	if errors.As(err, &nfErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsAuthentication checks if the error indicates an authentication failure.
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsTransient checks if the error is retryable at a later time.
func IsTransient(err error) bool {
	var netErr *TransientNetworkError
	return errors.As(err, &netErr)
}

// IsPartialFetch checks if the error is a partial fetch whose primary
// result is still usable.
func IsPartialFetch(err error) bool {
	var pfErr *PartialFetchError
	return errors.As(err, &pfErr)
}
