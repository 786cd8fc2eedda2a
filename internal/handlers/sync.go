package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/store"
	"github.com/hirelens/ats-sync-svc/internal/syncer"
)

// SyncHandler exposes sync run history and the manual trigger.
type SyncHandler struct {
	SyncRuns  store.SyncRunStore
	Syncer    *syncer.Syncer
	Scheduler *syncer.Scheduler
	Logger    *zap.Logger
}

func NewSyncHandler(syncRuns store.SyncRunStore, sync *syncer.Syncer, scheduler *syncer.Scheduler, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		SyncRuns:  syncRuns,
		Syncer:    sync,
		Scheduler: scheduler,
		Logger:    logger,
	}
}

type SyncRunDTO struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	StartedAt  string         `json:"started_at"`
	FinishedAt *string        `json:"finished_at"`
	Stats      map[string]int `json:"stats"`
	Error      *string        `json:"error"`
}

// GetRuns handles GET /sync/runs.
func (h *SyncHandler) GetRuns(c *fiber.Ctx) error {
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

	limit := 10
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsedLimit
	}

	runs, err := h.SyncRuns.FindRecent(c.UserContext(), tenantID, limit)
	if err != nil {
		h.Logger.Error("Failed to query sync runs",
			zap.String("tenant_id", tenantParam),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sync runs",
		})
	}

	dtos := make([]SyncRunDTO, 0, len(runs))
	for _, run := range runs {
		stats := run.Stats.Data()
		dto := SyncRunDTO{
			ID:        run.ID.String(),
			Kind:      run.Kind,
			StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
			Error:     run.Error,
			Stats: map[string]int{
				"total":           stats.Total,
				"created":         stats.Created,
				"updated":         stats.Updated,
				"deleted":         stats.Deleted,
				"errors":          stats.Errors,
				"enriched":        stats.Enriched,
				"skipped":         stats.Skipped,
				"privacyFiltered": stats.PrivacyFiltered,
			},
		}
		if run.FinishedAt != nil {
			finished := run.FinishedAt.UTC().Format(time.RFC3339)
			dto.FinishedAt = &finished
		}
		dtos = append(dtos, dto)
	}

	return c.JSON(fiber.Map{"runs": dtos})
}

type triggerRequest struct {
	TenantID string `json:"tenant_id"`
}

// TriggerSync handles POST /sync/trigger. With a tenant_id in the body
// it kicks off a delta sync for that tenant; without one it queues a
// full pass on the scheduler.
func (h *SyncHandler) TriggerSync(c *fiber.Ctx) error {
	var req triggerRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	if req.TenantID == "" {
		if !h.Scheduler.Trigger() {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "a sync pass is already queued",
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status": "triggered",
		})
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_id must be a UUID",
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := h.Syncer.DeltaSync(ctx, tenantID, nil); err != nil {
			h.Logger.Error("Manual tenant sync failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":    "triggered",
		"tenant_id": tenantID.String(),
	})
}
