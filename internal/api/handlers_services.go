package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chatarr/chatarr/internal/services"
)

// serviceInput is the write shape for service configurations. The stored
// Service never serializes its API key, so writes need their own type.
type serviceInput struct {
	Kind             services.Kind `json:"kind"`
	Name             string        `json:"name"`
	BaseURL          string        `json:"baseUrl"`
	APIKey           string        `json:"apiKey"`
	Enabled          *bool         `json:"enabled"`
	Priority         int           `json:"priority"`
	MaxResults       int           `json:"maxResults"`
	QualityProfileID int           `json:"qualityProfileId"`
	RootFolder       string        `json:"rootFolder"`
}

func (s *Server) listServices(c echo.Context) error {
	list, err := s.deps.Services.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []*services.Service{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) createService(c echo.Context) error {
	var input serviceInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	svc := services.Service{
		Kind:             input.Kind,
		Name:             input.Name,
		BaseURL:          input.BaseURL,
		APIKey:           input.APIKey,
		Enabled:          input.Enabled == nil || *input.Enabled,
		Priority:         input.Priority,
		MaxResults:       input.MaxResults,
		QualityProfileID: input.QualityProfileID,
		RootFolder:       input.RootFolder,
	}

	created, err := s.deps.Services.Create(c.Request().Context(), &svc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) getService(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	svc, err := s.deps.Services.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, svc)
}

func (s *Server) updateService(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	existing, err := s.deps.Services.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var input serviceInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	existing.Kind = input.Kind
	existing.Name = input.Name
	existing.BaseURL = input.BaseURL
	existing.Priority = input.Priority
	existing.MaxResults = input.MaxResults
	existing.QualityProfileID = input.QualityProfileID
	existing.RootFolder = input.RootFolder
	if input.Enabled != nil {
		existing.Enabled = *input.Enabled
	}
	// An omitted API key keeps the stored one.
	if input.APIKey != "" {
		existing.APIKey = input.APIKey
	}

	if err := s.deps.Services.Update(ctx, existing); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "service not found"})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	updated, err := s.deps.Services.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteService(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}

	if err := s.deps.Services.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "service not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
