package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirelens/ats-sync-svc/internal/store"
)

// AuditHandler serves the audit trail to compliance tooling.
type AuditHandler struct {
	Audits store.AuditStore
	Logger *zap.Logger
}

func NewAuditHandler(audits store.AuditStore, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{Audits: audits, Logger: logger}
}

type AuditResponse struct {
	Entries []AuditEntryDTO `json:"entries"`
	HasMore bool            `json:"has_more"`
}

type AuditEntryDTO struct {
	ID           string `json:"id"`
	Actor        string `json:"actor"`
	Action       string `json:"action"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// GetAudit handles GET /audit.
// Query parameters:
//   - tenant_id (required)
//   - action (optional): filter by audit action
//   - limit (optional, default 25), offset (optional, default 0)
func (h *AuditHandler) GetAudit(c *fiber.Ctx) error {
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

	limit := 25
	if limitStr := c.Query("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsedLimit
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsedOffset, err := strconv.Atoi(offsetStr)
		if err != nil || parsedOffset < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "offset must be a non-negative integer",
			})
		}
		offset = parsedOffset
	}

	// Fetch one extra to determine has_more.
	entries, err := h.Audits.Find(c.UserContext(), store.AuditFilter{
		TenantID: tenantID,
		Action:   c.Query("action"),
		Limit:    limit + 1,
		Offset:   offset,
	})
	if err != nil {
		h.Logger.Error("Failed to query audit entries",
			zap.String("tenant_id", tenantParam),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch audit entries",
		})
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, entry := range entries {
		dtos = append(dtos, AuditEntryDTO{
			ID:           entry.ID.String(),
			Actor:        entry.Actor,
			Action:       entry.Action,
			ResourceType: entry.ResourceType,
			ResourceID:   entry.ResourceID,
			Detail:       string(entry.Detail),
			Timestamp:    entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(AuditResponse{
		Entries: dtos,
		HasMore: hasMore,
	})
}
