package handlers

import (
	"net/http"
	"strconv"

	"support_directory_go/middleware"
	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
)

type notificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

// ListNotifications returns the caller's unread notifications that are due
func (h *Handler) ListNotifications(c echo.Context) error {
	actor := middleware.GetActor(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	notifications, err := h.Engine.Notifications.GetUnreadNotifications(c.Request().Context(), actor.UserID, limit)
	if err != nil {
		return h.respondError(c, "list notifications", services.NewStoreError("list notifications", err))
	}
	count, err := h.Engine.Notifications.GetNotificationCount(c.Request().Context(), actor.UserID)
	if err != nil {
		return h.respondError(c, "list notifications", services.NewStoreError("count notifications", err))
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return c.JSON(http.StatusOK, notificationsResponse{Notifications: notifications, Unread: count})
}

func (h *Handler) MarkNotificationRead(c echo.Context) error {
	actor := middleware.GetActor(c)
	if err := h.Engine.Notifications.MarkAsRead(c.Request().Context(), c.Param("id"), actor.UserID); err != nil {
		return h.respondError(c, "mark notification read", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	actor := middleware.GetActor(c)
	if err := h.Engine.Notifications.MarkAllAsRead(c.Request().Context(), actor.UserID); err != nil {
		return h.respondError(c, "mark notifications read", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
