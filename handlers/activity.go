package handlers

import (
	"net/http"
	"strconv"
	"time"

	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
)

type activityResponse struct {
	Entries  []models.ActivityLog `json:"entries"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// ListActivity pages through the activity log. Admin only.
func (h *Handler) ListActivity(c echo.Context) error {
	filters := services.ActivityFilters{
		ActorID:    c.QueryParam("actorId"),
		EntityType: c.QueryParam("entityType"),
		Action:     c.QueryParam("action"),
	}

	if raw := c.QueryParam("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return validationError(c, "from must be an RFC 3339 timestamp")
		}
		filters.DateFrom = t
	}
	if raw := c.QueryParam("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return validationError(c, "to must be an RFC 3339 timestamp")
		}
		filters.DateTo = t
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	// Single entity history
	if id := c.QueryParam("entityId"); id != "" && filters.EntityType != "" {
		entries, err := services.GetEntityActivity(c.Request().Context(), h.DB, filters.EntityType, id)
		if err != nil {
			return h.respondError(c, "entity activity", services.NewStoreError("entity activity", err))
		}
		return c.JSON(http.StatusOK, activityResponse{Entries: entries, Total: int64(len(entries)), Page: 1, PageSize: len(entries)})
	}

	entries, total, err := services.ListActivity(c.Request().Context(), h.DB, filters, page, pageSize)
	if err != nil {
		return h.respondError(c, "list activity", services.NewStoreError("list activity", err))
	}
	if entries == nil {
		entries = []models.ActivityLog{}
	}
	return c.JSON(http.StatusOK, activityResponse{Entries: entries, Total: total, Page: page, PageSize: pageSize})
}
