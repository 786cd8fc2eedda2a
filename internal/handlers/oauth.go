package handlers

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/oauth"
	"github.com/hirelens/ats-sync-svc/internal/store"
)

// followUpTimeout bounds the post-connect work (webhook registration
// and the initial sync) kicked off by a callback.
const followUpTimeout = 30 * time.Minute

// OAuthHandler drives the browser-facing connect flow.
type OAuthHandler struct {
	Manager     *oauth.Manager
	RedirectURL string
	Logger      *zap.Logger
}

func NewOAuthHandler(manager *oauth.Manager, redirectURL string, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		Manager:     manager,
		RedirectURL: redirectURL,
		Logger:      logger,
	}
}

// Authorize handles GET /oauth/ats/authorize. It sends the tenant's
// browser to the ATS consent screen.
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	tenantParam := c.Query("tenant_id")
	if tenantParam == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id query parameter is required",
		})
	}
	tenantID, err := uuid.Parse(tenantParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id must be a UUID",
		})
	}

	authURL, err := h.Manager.AuthorizationURL(c.UserContext(), tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown tenant",
			})
		}
		h.Logger.Error("Failed to build authorize URL",
			zap.String("tenant_id", tenantParam),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback handles GET /oauth/ats/callback. Whatever happens, the
// browser ends up back on the app with a status parameter; JSON errors
// would strand the user on our API host.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if providerErr := c.Query("error"); providerErr != "" {
		h.Logger.Warn("ATS authorization was denied",
			zap.String("error", providerErr),
			zap.String("description", c.Query("error_description")),
		)
		return h.redirectStatus(c, "error", providerErr)
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return h.redirectStatus(c, "error", "missing code or state")
	}

	tenantID, err := h.Manager.HandleCallback(c.UserContext(), code, state)
	if err != nil {
		h.Logger.Error("OAuth callback failed",
			zap.String("state", state),
			zap.Error(err),
		)
		return h.redirectStatus(c, "error", "connection failed")
	}

	// Webhook registration and the initial sync run detached: the
	// credential is already stored and their failures only get logged.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), followUpTimeout)
		defer cancel()
		h.Manager.RunFollowUps(ctx, tenantID)
	}()

	return h.redirectStatus(c, "connected", "")
}

func (h *OAuthHandler) redirectStatus(c *fiber.Ctx, status, reason string) error {
	target, err := url.Parse(h.RedirectURL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "redirect URL misconfigured",
		})
	}
	query := target.Query()
	query.Set("status", status)
	if reason != "" {
		query.Set("reason", reason)
	}
	target.RawQuery = query.Encode()
	return c.Redirect(target.String(), fiber.StatusFound)
}
