package handlers

import (
	"net/http"
	"time"

	"support_directory_go/middleware"
	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
}

// Login exchanges credentials for a bearer token
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return validationError(c, "Email and password are required")
	}

	var duration time.Duration
	if h.Config != nil {
		duration = h.Config.SessionDuration
	}

	session, err := services.Login(c.Request().Context(), h.DB, req.Email, req.Password, c.RealIP(), c.Request().UserAgent(), duration)
	if err != nil {
		if services.IsKind(err, services.KindAuthorization) {
			h.Logger.Info("Failed login attempt", zap.String("ip", c.RealIP()))
		}
		return h.respondError(c, "login", err)
	}

	h.Logger.Info("User logged in", zap.String("user_id", session.UserID))
	return c.JSON(http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		UserID:    session.UserID,
		Role:      session.User.Role,
	})
}

// Logout revokes the presented token
func (h *Handler) Logout(c echo.Context) error {
	session, ok := c.Get(middleware.ContextKeySession).(*models.Session)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required", Code: services.CodeUnauthenticated})
	}
	if err := services.DeleteSession(h.DB.WithContext(c.Request().Context()), session.Token); err != nil {
		return h.respondError(c, "logout", services.NewStoreError("logout", err))
	}
	return c.NoContent(http.StatusNoContent)
}
