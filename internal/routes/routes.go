package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hirelens/ats-sync-svc/internal/handlers"
	"github.com/hirelens/ats-sync-svc/internal/webhook"
)

// SetupRoutes configures all application routes with dependencies
func SetupRoutes(
	app *fiber.App,
	healthHandler *handlers.HealthHandler,
	oauthHandler *handlers.OAuthHandler,
	webhookHandler *webhook.Handler,
	auditHandler *handlers.AuditHandler,
	syncHandler *handlers.SyncHandler,
) {
	// Health check endpoint
	app.Get("/health", healthHandler.HealthCheck)

	// Tenant connect flow
	app.Get("/oauth/ats/authorize", oauthHandler.Authorize)
	app.Get("/oauth/ats/callback", oauthHandler.Callback)

	// Inbound ATS events
	app.Post("/webhooks/ats", webhookHandler.Handle)

	// Operations surface
	app.Get("/audit", auditHandler.GetAudit)
	app.Get("/sync/runs", syncHandler.GetRuns)
	app.Post("/sync/trigger", syncHandler.TriggerSync)
}
