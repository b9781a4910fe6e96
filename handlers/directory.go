package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"support_directory_go/middleware"
	"support_directory_go/models"
	"support_directory_go/services"

	"github.com/labstack/echo/v4"
)

// reservedSearchParams are discovery parameters that are not domain options
var reservedSearchParams = map[string]bool{
	"lat":    true,
	"lng":    true,
	"radius": true,
	"unit":   true,
	"limit":  true,
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type domainSummary struct {
	Key           string   `json:"key"`
	Segment       string   `json:"segment"`
	Label         string   `json:"label"`
	DefaultRadius float64  `json:"defaultRadius"`
	Options       []string `json:"options"`
	Categories    []string `json:"categories"`
}

type attributeValuesRequest struct {
	Values []string `json:"values"`
}

// ListDomains describes every directory domain and its discovery options
func (h *Handler) ListDomains(c echo.Context) error {
	var out []domainSummary
	for _, dir := range h.Engine.Directories() {
		d := dir.Domain()
		summary := domainSummary{
			Key:           d.Key,
			Segment:       d.Segment,
			Label:         d.Label,
			DefaultRadius: d.DefaultRadius,
			Options:       []string{},
			Categories:    []string{},
		}
		for _, p := range d.Vocabulary {
			if p.Option != "" {
				summary.Options = append(summary.Options, p.Option)
			}
		}
		for _, cat := range d.Categories {
			summary.Categories = append(summary.Categories, cat.JSON)
		}
		out = append(out, summary)
	}
	return c.JSON(http.StatusOK, out)
}

// SearchResources runs a discovery query against one domain
func (h *Handler) SearchResources(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}

	criteria, err := parseCriteria(c, dir.Domain())
	if err != nil {
		return h.respondError(c, "search resources", err)
	}

	rows, err := dir.Search(c.Request().Context(), middleware.GetActor(c), criteria)
	if err != nil {
		return h.respondError(c, "search resources", err)
	}
	if rows == nil {
		rows = []models.Resource{}
	}
	return c.JSON(http.StatusOK, rows)
}

// ExportResources runs the same discovery query and returns the result as a
// spreadsheet
func (h *Handler) ExportResources(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}

	criteria, err := parseCriteria(c, dir.Domain())
	if err != nil {
		return h.respondError(c, "export resources", err)
	}

	rows, err := dir.Search(c.Request().Context(), middleware.GetActor(c), criteria)
	if err != nil {
		return h.respondError(c, "export resources", err)
	}

	buf, err := services.ExportResources(dir.Domain(), rows)
	if err != nil {
		return h.respondError(c, "export resources", err)
	}

	filename := fmt.Sprintf("%s.xlsx", dir.Domain().Segment)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetResource returns one active resource, or any resource for staff
func (h *Handler) GetResource(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}

	resource, err := dir.Lookup(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, "get resource", err)
	}
	return c.JSON(http.StatusOK, resource)
}

func (h *Handler) CreateResource(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return validationError(c, "Unable to read request body")
	}

	resource, err := dir.CreateJSON(c.Request().Context(), middleware.GetActor(c), raw)
	if err != nil {
		return h.respondError(c, "create resource", err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": resource.GetID()})
}

func (h *Handler) UpdateResource(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return validationError(c, "Unable to read request body")
	}

	if _, err := dir.UpdateJSON(c.Request().Context(), middleware.GetActor(c), c.Param("id"), raw); err != nil {
		return h.respondError(c, "update resource", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// AppendAttributes adds values to a category, skipping ones already present
func (h *Handler) AppendAttributes(c echo.Context) error {
	return h.writeAttributes(c, "append attributes", func(dir services.DirectoryService, values []string) error {
		return dir.AppendAttributes(c.Request().Context(), middleware.GetActor(c), c.Param("id"), c.Param("category"), values)
	})
}

// ReplaceAttributes swaps a category's values wholesale
func (h *Handler) ReplaceAttributes(c echo.Context) error {
	return h.writeAttributes(c, "replace attributes", func(dir services.DirectoryService, values []string) error {
		return dir.ReplaceAttributes(c.Request().Context(), middleware.GetActor(c), c.Param("id"), c.Param("category"), values)
	})
}

func (h *Handler) writeAttributes(c echo.Context, op string, write func(services.DirectoryService, []string) error) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}

	var req attributeValuesRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return validationError(c, "Request body must be {\"values\": [...]}")
	}
	if req.Values == nil {
		return validationError(c, "values is required")
	}

	if err := write(dir, req.Values); err != nil {
		return h.respondError(c, op, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) DeactivateResource(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}
	if err := dir.Deactivate(c.Request().Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		return h.respondError(c, "deactivate resource", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) VerifyResource(c echo.Context) error {
	dir, err := h.directory(c)
	if err != nil {
		return err
	}
	if err := dir.Verify(c.Request().Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		return h.respondError(c, "verify resource", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// directory resolves the :domain segment
func (h *Handler) directory(c echo.Context) (services.DirectoryService, error) {
	segment := c.Param("domain")
	dir, ok := h.Engine.Directory(segment)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown directory %q", segment))
	}
	return dir, nil
}

// parseCriteria turns query parameters into discovery criteria. lat and lng
// must be supplied together; radius falls back to the domain default.
func parseCriteria(c echo.Context, domain services.ResourceDomain) (services.FilterCriteria, error) {
	q := c.QueryParams()

	var origin *models.Location
	var radius *float64

	latRaw, lngRaw := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if latRaw != "" || lngRaw != "" {
		if latRaw == "" || lngRaw == "" {
			return services.FilterCriteria{}, services.NewValidationError("lat and lng must be supplied together")
		}
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return services.FilterCriteria{}, services.NewValidationError("lat must be a number")
		}
		lng, err := strconv.ParseFloat(lngRaw, 64)
		if err != nil {
			return services.FilterCriteria{}, services.NewValidationError("lng must be a number")
		}
		origin = &models.Location{Latitude: lat, Longitude: lng}

		r := domain.DefaultRadius
		if raw := strings.TrimSpace(q.Get("radius")); raw != "" {
			r, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return services.FilterCriteria{}, services.NewValidationError("radius must be a number")
			}
		}
		radius = &r
	} else if q.Get("radius") != "" {
		return services.FilterCriteria{}, services.NewValidationError("radius requires lat and lng")
	}

	unit, err := services.ParseDistanceUnit(q.Get("unit"))
	if err != nil {
		return services.FilterCriteria{}, err
	}

	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return services.FilterCriteria{}, services.NewValidationError("limit must be a positive integer")
		}
	}

	options := map[string]string{}
	for key, values := range q {
		if reservedSearchParams[key] || len(values) == 0 {
			continue
		}
		options[key] = values[len(values)-1]
	}

	return services.NewFilterCriteria(origin, radius, unit, options, limit)
}
