package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chatarr/chatarr/internal/scheduler"
)

func (s *Server) listScheduledTasks(c echo.Context) error {
	tasks := s.deps.Scheduler.ListTasks()
	if tasks == nil {
		tasks = []scheduler.TaskInfo{}
	}
	return c.JSON(http.StatusOK, tasks)
}
