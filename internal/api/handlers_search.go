package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/search"
)

// Manual search and cache handlers

func (s *Server) searchMedia(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing query parameter q"})
	}
	kind := media.ParseKind(c.QueryParam("kind"))

	resp, err := s.deps.Aggregator.Search(c.Request().Context(), query, kind)
	if err != nil {
		if errors.Is(err, search.ErrNoServices) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no enabled services can serve this search"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getCacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Aggregator.Cache().Stats())
}

func (s *Server) clearCache(c echo.Context) error {
	s.deps.Aggregator.Cache().Clear()
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}
