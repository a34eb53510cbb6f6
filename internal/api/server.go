//nolint:revive // Package name 'api' is intentionally generic for the HTTP API layer
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/approval"
	"github.com/chatarr/chatarr/internal/chat"
	"github.com/chatarr/chatarr/internal/config"
	"github.com/chatarr/chatarr/internal/conversation"
	"github.com/chatarr/chatarr/internal/request"
	"github.com/chatarr/chatarr/internal/scheduler"
	"github.com/chatarr/chatarr/internal/search"
	"github.com/chatarr/chatarr/internal/services"
	"github.com/chatarr/chatarr/internal/websocket"
)

// Dependencies carries the wired application services the API exposes.
type Dependencies struct {
	Services   *services.Store
	Requests   *request.Store
	Contacts   *conversation.ContactStore
	Aggregator *search.Aggregator
	Workflow   *approval.Workflow
	Dispatcher *chat.Dispatcher
	Sender     chat.Sender
	Scheduler  *scheduler.Scheduler
	Hub        *websocket.Hub
	Logs       LogsProvider
}

// Server handles HTTP requests for the chatarr API.
type Server struct {
	echo      *echo.Echo
	cfg       *config.Config
	logger    zerolog.Logger
	deps      Dependencies
	startTime time.Time
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		cfg:       cfg,
		logger:    logger,
		deps:      deps,
		startTime: time.Now().UTC(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID
	s.echo.Use(middleware.RequestID())

	// CORS
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Request logging
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	// Gzip compression
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// Skip compression for WebSocket
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// WebSocket for dashboard updates and log streaming
	if s.deps.Hub != nil {
		s.echo.GET("/ws", s.deps.Hub.HandleWebSocket)
	}

	// API v1 group
	api := s.echo.Group("/api/v1")

	// System routes
	api.GET("/status", s.getStatus)

	// Inbound chat gateway webhook
	api.POST("/chat/inbound", s.chatInbound)

	// Service configuration routes
	svcs := api.Group("/services")
	svcs.GET("", s.listServices)
	svcs.POST("", s.createService)
	svcs.GET("/:id", s.getService)
	svcs.PUT("/:id", s.updateService)
	svcs.DELETE("/:id", s.deleteService)

	// Request lifecycle routes
	reqs := api.Group("/requests")
	reqs.GET("", s.listRequests)
	reqs.GET("/:id", s.getRequest)
	reqs.POST("/:id/approve", s.approveRequest)
	reqs.POST("/:id/decline", s.declineRequest)
	reqs.DELETE("/:id", s.deleteRequest)

	// Manual search for the dashboard
	api.GET("/search", s.searchMedia)

	// Search cache routes
	api.GET("/cache/stats", s.getCacheStats)
	api.POST("/cache/clear", s.clearCache)

	// Known requester contacts
	api.GET("/contacts", s.listContacts)

	// Scheduler routes
	api.GET("/scheduler/tasks", s.listScheduledTasks)

	// Log routes
	if s.deps.Logs != nil {
		logsHandlers := NewLogsHandlers(s.deps.Logs)
		logsHandlers.RegisterRoutes(api.Group("/logs"))
	}
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	ctx := c.Request().Context()

	serviceCount, _ := s.deps.Services.Count(ctx)
	pending, _ := s.deps.Requests.ListByStatus(ctx, request.StatusPending)

	wsClients := 0
	if s.deps.Hub != nil {
		wsClients = s.deps.Hub.ClientCount()
	}

	chatConnected := false
	if s.deps.Sender != nil {
		chatConnected = s.deps.Sender.Connected()
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":         "0.0.1-dev",
		"startTime":       s.startTime.Format(time.RFC3339),
		"serviceCount":    serviceCount,
		"pendingRequests": len(pending),
		"chatConnected":   chatConnected,
		"wsClients":       wsClients,
	})
}
