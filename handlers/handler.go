package handlers

import (
	"support_directory_go/config"
	"support_directory_go/middleware"
	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler serves the JSON API over one engine
type Handler struct {
	Engine *services.Engine
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
}

func New(engine *services.Engine, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Engine: engine,
		Config: cfg,
		Logger: logger,
		DB:     engine.Deps.DB,
	}
}

// RegisterRoutes mounts every API route. Identity resolution and activity
// context run on the whole /api group; loginLimiter guards credential checks.
func (h *Handler) RegisterRoutes(e *echo.Echo, loginLimiter *middleware.RateLimiter) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api", middleware.Authenticate(h.DB), middleware.ActivityContext())

	loginMiddleware := []echo.MiddlewareFunc{}
	if loginLimiter != nil {
		loginMiddleware = append(loginMiddleware, loginLimiter.Middleware())
	}
	api.POST("/login", h.Login, loginMiddleware...)
	api.POST("/logout", h.Logout, middleware.RequireAuth())

	authed := api.Group("", middleware.RequireAuth())

	// Applications
	authed.POST("/applications", h.CreateApplication)
	authed.GET("/applications/:id", h.GetApplication)
	authed.PATCH("/applications/:id/status", h.TransitionApplication)

	// Cases
	authed.POST("/cases", h.OpenCase)
	authed.GET("/cases/:id", h.GetCase)
	authed.PUT("/cases/:id/assignee", h.ReassignCase)
	authed.PATCH("/cases/:id/status", h.SetCaseStatus)
	authed.POST("/cases/:id/close", h.CloseCase)
	authed.POST("/cases/:id/welfare-checks", h.ScheduleWelfareCheck)

	// Goals
	authed.POST("/goals", h.CreateGoal)
	authed.GET("/goals/:id", h.GetGoal)
	authed.GET("/goals/:id/progress", h.GetGoalProgress)
	authed.POST("/goals/:id/milestones/:milestoneId/complete", h.CompleteMilestone)

	// Notifications
	authed.GET("/notifications", h.ListNotifications)
	authed.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	authed.POST("/notifications/:id/read", h.MarkNotificationRead)

	// Activity log
	authed.GET("/activity", h.ListActivity, middleware.RequireRole(models.RoleAdmin))

	// Directory domains. Discovery is public; writes are checked by the engine.
	api.GET("/domains", h.ListDomains)
	api.GET("/:domain", h.SearchResources)
	api.GET("/:domain/export", h.ExportResources)
	api.GET("/:domain/:id", h.GetResource)
	authed.POST("/:domain", h.CreateResource)
	authed.PATCH("/:domain/:id", h.UpdateResource)
	authed.POST("/:domain/:id/attributes/:category", h.AppendAttributes)
	authed.PUT("/:domain/:id/attributes/:category", h.ReplaceAttributes)
	authed.POST("/:domain/:id/deactivate", h.DeactivateResource)
	authed.POST("/:domain/:id/verify", h.VerifyResource)
}
