package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chatarr/chatarr/internal/request"
)

// Request lifecycle handlers

func (s *Server) listRequests(c echo.Context) error {
	ctx := c.Request().Context()

	if statusParam := c.QueryParam("status"); statusParam != "" {
		status := request.Status(strings.ToUpper(statusParam))
		switch status {
		case request.StatusPending, request.StatusSubmitted, request.StatusFailed, request.StatusRejected:
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		}

		list, err := s.deps.Requests.ListByStatus(ctx, status)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if list == nil {
			list = []*request.MediaRequest{}
		}
		return c.JSON(http.StatusOK, list)
	}

	limit := 50
	offset := 0
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil {
			offset = parsed
		}
	}

	list, err := s.deps.Requests.List(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if list == nil {
		list = []*request.MediaRequest{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) getRequest(c echo.Context) error {
	req, err := s.deps.Requests.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, req)
}

func (s *Server) approveRequest(c echo.Context) error {
	req, err := s.deps.Workflow.Approve(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "request not found"})
		}
		if req != nil {
			// Already decided; nothing left to approve.
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if s.deps.Hub != nil {
		s.deps.Hub.BroadcastRequestUpdated(req)
	}
	return c.JSON(http.StatusOK, req)
}

func (s *Server) declineRequest(c echo.Context) error {
	req, err := s.deps.Workflow.Decline(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "request not found"})
		}
		if req != nil {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if s.deps.Hub != nil {
		s.deps.Hub.BroadcastRequestUpdated(req)
	}
	return c.JSON(http.StatusOK, req)
}

func (s *Server) deleteRequest(c echo.Context) error {
	if err := s.deps.Requests.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, request.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.NoContent(http.StatusNoContent)
}
