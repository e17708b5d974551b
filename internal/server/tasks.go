package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"genotasks/internal/models"
	"genotasks/internal/query"
)

type taskRequest struct {
	Title        string `json:"title"`
	Week         string `json:"week"`
	Area         string `json:"area"`
	Responsible  string `json:"responsible"`
	Requester    string `json:"requester"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	DeliveryDate string `json:"deliveryDate"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type priorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

type commentRequest struct {
	Author string `json:"author"`
	Text   string `json:"text" binding:"required"`
}

// handleListTasks returns the filtered board in display order.
func (s *Server) handleListTasks(c *gin.Context) {
	var f query.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	repo := s.board.Repository()
	respondSuccess(c, http.StatusOK, gin.H{
		"tasks":   s.board.Tasks(f),
		"synced":  repo.Synced(),
		"version": repo.Version(),
	})
}

// handleListWeeks returns the weeks present on the board and today's week.
func (s *Server) handleListWeeks(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"weeks":   s.board.Weeks(),
		"current": s.board.CurrentWeek(),
	})
}

// handleGetTask fetches a single task.
func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.board.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleCreateTask broadcasts a new task built by the creation wizard.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" {
		s.respondError(c, http.StatusBadRequest, fmt.Errorf("title is required"))
		return
	}

	task, err := s.board.Create(c.Request.Context(), models.Task{
		Title:        req.Title,
		Week:         req.Week,
		Area:         models.Area(req.Area),
		Responsible:  models.Team(req.Responsible),
		Requester:    req.Requester,
		Priority:     models.Priority(req.Priority),
		Status:       models.Status(req.Status),
		DeliveryDate: req.DeliveryDate,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleUpdateStatus moves a task to another status.
func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.board.UpdateStatus(c.Request.Context(), c.Param("id"), models.Status(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleUpdatePriority changes a task's priority, subject to role and quota.
func (s *Server) handleUpdatePriority(c *gin.Context) {
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.board.UpdatePriority(c.Request.Context(), role(c), c.Param("id"), models.Priority(req.Priority))
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}

// handleAddComment appends a comment to a task.
func (s *Server) handleAddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	task, err := s.board.AddComment(c.Request.Context(), c.Param("id"), req.Author, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleDeleteTask broadcasts a tombstone for a task.
func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.board.Delete(c.Request.Context(), role(c), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
