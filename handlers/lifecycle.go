package handlers

import (
	"net/http"

	"support_directory_go/middleware"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
)

type reassignRequest struct {
	AssigneeID string `json:"assigneeId"`
}

type closeCaseRequest struct {
	Outcome string `json:"outcome"`
}

type caseStatusRequest struct {
	Status string `json:"status"`
}

// CreateApplication handles POST /api/applications
func (h *Handler) CreateApplication(c echo.Context) error {
	var in services.CreateApplicationInput
	if err := c.Bind(&in); err != nil {
		return validationError(c, "Invalid request body")
	}

	app, err := h.Engine.Applications.Create(c.Request().Context(), middleware.GetActor(c), in)
	if err != nil {
		return h.respondError(c, "create application", err)
	}
	return c.JSON(http.StatusCreated, app)
}

func (h *Handler) GetApplication(c echo.Context) error {
	app, err := h.Engine.Applications.Get(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, "get application", err)
	}
	return c.JSON(http.StatusOK, app)
}

// TransitionApplication handles PATCH /api/applications/:id/status
func (h *Handler) TransitionApplication(c echo.Context) error {
	var in services.TransitionInput
	if err := c.Bind(&in); err != nil {
		return validationError(c, "Invalid request body")
	}

	app, err := h.Engine.Applications.Transition(c.Request().Context(), middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return h.respondError(c, "transition application", err)
	}
	return c.JSON(http.StatusOK, app)
}

// OpenCase handles POST /api/cases
func (h *Handler) OpenCase(c echo.Context) error {
	var in services.OpenCaseInput
	if err := c.Bind(&in); err != nil {
		return validationError(c, "Invalid request body")
	}

	record, err := h.Engine.Cases.Open(c.Request().Context(), middleware.GetActor(c), in)
	if err != nil {
		return h.respondError(c, "open case", err)
	}
	return c.JSON(http.StatusCreated, record)
}

func (h *Handler) GetCase(c echo.Context) error {
	record, err := h.Engine.Cases.Get(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, "get case", err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) ReassignCase(c echo.Context) error {
	var req reassignRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, "Invalid request body")
	}

	record, err := h.Engine.Cases.Reassign(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.AssigneeID)
	if err != nil {
		return h.respondError(c, "reassign case", err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) SetCaseStatus(c echo.Context) error {
	var req caseStatusRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, "Invalid request body")
	}

	record, err := h.Engine.Cases.SetStatus(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Status)
	if err != nil {
		return h.respondError(c, "set case status", err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) CloseCase(c echo.Context) error {
	var req closeCaseRequest
	if err := c.Bind(&req); err != nil {
		return validationError(c, "Invalid request body")
	}

	record, err := h.Engine.Cases.Close(c.Request().Context(), middleware.GetActor(c), c.Param("id"), req.Outcome)
	if err != nil {
		return h.respondError(c, "close case", err)
	}
	return c.JSON(http.StatusOK, record)
}

func (h *Handler) ScheduleWelfareCheck(c echo.Context) error {
	var in services.WelfareCheckInput
	if err := c.Bind(&in); err != nil {
		return validationError(c, "Invalid request body")
	}

	check, err := h.Engine.Cases.ScheduleWelfareCheck(c.Request().Context(), middleware.GetActor(c), c.Param("id"), in)
	if err != nil {
		return h.respondError(c, "schedule welfare check", err)
	}
	return c.JSON(http.StatusCreated, check)
}

// CreateGoal handles POST /api/goals
func (h *Handler) CreateGoal(c echo.Context) error {
	var in services.CreateGoalInput
	if err := c.Bind(&in); err != nil {
		return validationError(c, "Invalid request body")
	}

	goal, err := h.Engine.Goals.Create(c.Request().Context(), middleware.GetActor(c), in)
	if err != nil {
		return h.respondError(c, "create goal", err)
	}
	return c.JSON(http.StatusCreated, goal)
}

func (h *Handler) GetGoal(c echo.Context) error {
	goal, err := h.Engine.Goals.Get(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, "get goal", err)
	}
	return c.JSON(http.StatusOK, goal)
}

func (h *Handler) GetGoalProgress(c echo.Context) error {
	progress, err := h.Engine.Goals.Progress(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, "goal progress", err)
	}
	return c.JSON(http.StatusOK, map[string]int{"progress": progress})
}

// CompleteMilestone marks a milestone done and returns the recomputed goal
func (h *Handler) CompleteMilestone(c echo.Context) error {
	goal, err := h.Engine.Goals.CompleteMilestone(c.Request().Context(), middleware.GetActor(c), c.Param("id"), c.Param("milestoneId"))
	if err != nil {
		return h.respondError(c, "complete milestone", err)
	}
	return c.JSON(http.StatusOK, goal)
}
