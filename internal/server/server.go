package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"genotasks/internal/board"
	"genotasks/internal/interchange"
	"genotasks/internal/models"
	"genotasks/internal/replica"
)

// RoleHeader carries the declared role of the caller. It is not authenticated.
const RoleHeader = "X-GenoTasks-Role"

// ReplicaFeed is the part of a replica exposed to peers.
type ReplicaFeed interface {
	Since(cursor uint64) replica.Feed
	Merge(ctx context.Context, events []replica.Event) (int, error)
}

// Server provides HTTP handlers for the GenoTasks board.
type Server struct {
	engine    *gin.Engine
	board     *board.Service
	feed      ReplicaFeed
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
// feed may be nil, in which case peers cannot sync from this node.
func New(svc *board.Service, feed ReplicaFeed, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/events", "/api/replica/events"))

	srv := &Server{
		engine:    router,
		board:     svc,
		feed:      feed,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/weeks", s.handleListWeeks)
		api.GET("/events", s.handleEvents)

		tasks := api.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.PUT(":id/status", s.handleUpdateStatus)
			tasks.PUT(":id/priority", s.handleUpdatePriority)
			tasks.POST(":id/comments", s.handleAddComment)
		}

		api.POST("/import", s.handleImport)
		api.GET("/export", s.handleExport)

		if s.feed != nil {
			api.GET("/replica/events", s.handleReplicaFeed)
			api.POST("/replica/events", s.handleReplicaPush)
		}
	}

	s.mountStatic()
}

// handleHealth reports readiness and whether any replicated data has arrived.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"synced": s.board.Repository().Synced(),
	})
}

// role reads the declared role of the caller, defaulting to Leader.
func role(c *gin.Context) models.Role {
	if models.Role(c.GetHeader(RoleHeader)) == models.RoleHead {
		return models.RoleHead
	}
	return models.RoleLeader
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, board.ErrQuotaExceeded):
		return http.StatusConflict
	case errors.Is(err, board.ErrNothingImported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, board.ErrInvalidTask), errors.Is(err, interchange.ErrNoWeek):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	var qe *board.QuotaError
	if errors.As(err, &qe) {
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
			"quota": gin.H{
				"week":  qe.Decision.Group.Week,
				"team":  qe.Decision.Group.Team,
				"area":  qe.Decision.Group.Area,
				"tier":  qe.Decision.Tier,
				"count": qe.Decision.Count,
				"cap":   qe.Decision.Cap,
			},
		})
		return
	}
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
