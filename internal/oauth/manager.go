package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/hirelens/ats-sync-svc/internal/config"
	"github.com/hirelens/ats-sync-svc/internal/models"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

// ErrNoCredential is returned when a tenant has not connected their ATS
// account. Callers treat it as "skip this tenant", not as a failure.
var ErrNoCredential = errors.New("oauth: tenant has no ATS credential")

// TokenExpiryMargin is the safety window before the recorded expiry in
// which a token is refreshed instead of used.
const TokenExpiryMargin = 2 * time.Minute

// FollowUp runs after a tenant connects. Failures are logged and never
// roll back the stored credential.
type FollowUp struct {
	Name string
	Run  func(ctx context.Context, tenantID uuid.UUID) error
}

// Manager owns the OAuth lifecycle of tenant ATS connections: the
// authorize redirect, the code exchange, persistence, and transparent
// refresh of expiring tokens. Refreshes are single-flight per tenant.
type Manager struct {
	oauthCfg    *oauth2.Config
	tenants     store.TenantStore
	credentials store.CredentialStore
	audits      store.AuditStore
	logger      *zap.Logger

	refreshGroup singleflight.Group
	margin       time.Duration
	followUps    []FollowUp
}

func NewManager(cfg *config.ATSConfig, st store.Store, logger *zap.Logger) *Manager {
	return &Manager{
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
		},
		tenants:     st.Tenants(),
		credentials: st.Credentials(),
		audits:      st.Audits(),
		logger:      logger,
		margin:      TokenExpiryMargin,
	}
}

// OnConnect registers a follow-up to run after a successful connect,
// such as webhook registration or the initial sync.
func (m *Manager) OnConnect(name string, run func(ctx context.Context, tenantID uuid.UUID) error) {
	m.followUps = append(m.followUps, FollowUp{Name: name, Run: run})
}

// AuthorizationURL builds the ATS authorize URL for a tenant. The tenant
// id travels as the OAuth state parameter.
func (m *Manager) AuthorizationURL(ctx context.Context, tenantID uuid.UUID) (string, error) {
	if m.oauthCfg.ClientID == "" {
		return "", fmt.Errorf("ATS client id is not configured")
	}

	tenant, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve tenant: %w", err)
	}
	if !tenant.IntegrationEnabled {
		return "", fmt.Errorf("integration is disabled for tenant %s", tenantID)
	}

	return m.oauthCfg.AuthCodeURL(tenantID.String(), oauth2.AccessTypeOffline), nil
}

// HandleCallback exchanges the authorization code and persists the
// tenant's credential. Registered follow-ups are NOT run here; callers
// trigger RunFollowUps once the credential is stored.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) (uuid.UUID, error) {
	tenantID, err := uuid.Parse(state)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid state parameter: %w", err)
	}

	tenant, err := m.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve tenant from state: %w", err)
	}
	if !tenant.IntegrationEnabled {
		return uuid.Nil, fmt.Errorf("integration is disabled for tenant %s", tenantID)
	}

	token, err := m.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return uuid.Nil, fmt.Errorf("code exchange failed: %w", err)
	}

	now := time.Now()
	cred := &models.ATSCredential{
		TenantID:     tenantID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		ConnectedAt:  now,
	}
	if cred.TokenType == "" {
		cred.TokenType = "Bearer"
	}
	if err := m.credentials.Save(ctx, cred); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	m.logger.Info("Tenant connected to ATS",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("token_expires_at", cred.ExpiresAt),
	)

	if err := m.audits.Append(ctx, &models.AuditLog{
		TenantID: tenantID,
		Actor:    "oauth",
		Action:   models.AuditActionOAuthConnected,
	}); err != nil {
		m.logger.Warn("Failed to write connect audit entry",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}

	return tenantID, nil
}

// RunFollowUps executes the registered post-connect steps in order.
// Each failure is logged and the remaining steps still run.
func (m *Manager) RunFollowUps(ctx context.Context, tenantID uuid.UUID) {
	for _, followUp := range m.followUps {
		if err := followUp.Run(ctx, tenantID); err != nil {
			m.logger.Error("Post-connect step failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("step", followUp.Name),
				zap.Error(err),
			)
			continue
		}
		m.logger.Info("Post-connect step completed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("step", followUp.Name),
		)
	}
}

// Token returns a valid access token for the tenant, refreshing it
// transparently when it is inside the expiry margin. Returns
// ErrNoCredential when the tenant never connected.
func (m *Manager) Token(ctx context.Context, tenantID uuid.UUID) (string, error) {
	cred, err := m.credentials.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}

	if cred.ExpiresWithin(m.margin) {
		return m.Refresh(ctx, tenantID)
	}
	return cred.AccessToken, nil
}

// Refresh performs a refresh-token grant for the tenant and persists the
// rotated credential. Concurrent callers for the same tenant share one
// refresh round trip.
func (m *Manager) Refresh(ctx context.Context, tenantID uuid.UUID) (string, error) {
	token, err, _ := m.refreshGroup.Do(tenantID.String(), func() (interface{}, error) {
		return m.refresh(ctx, tenantID)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (m *Manager) refresh(ctx context.Context, tenantID uuid.UUID) (string, error) {
	cred, err := m.credentials.FindByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoCredential
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("no refresh token stored for tenant %s, reconnect required", tenantID)
	}

	source := m.oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("token refresh failed for tenant %s: %w", tenantID, err)
	}

	cred.AccessToken = token.AccessToken
	// Providers may rotate the refresh token; keep the old one otherwise.
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	if token.TokenType != "" {
		cred.TokenType = token.TokenType
	}
	cred.ExpiresAt = token.Expiry

	if err := m.credentials.Save(ctx, cred); err != nil {
		return "", fmt.Errorf("failed to persist refreshed credential: %w", err)
	}

	m.logger.Debug("Access token refreshed",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("token_expires_at", cred.ExpiresAt),
	)

	return token.AccessToken, nil
}
