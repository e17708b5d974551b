package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"genotasks/internal/query"
	"genotasks/internal/repository"
)

// handleEvents streams a "snapshot" Server-Sent Event with the filtered board
// every time the repository changes. The first event is sent right away.
func (s *Server) handleEvents(c *gin.Context) {
	var f query.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	repo := s.board.Repository()
	updates := make(chan repository.Snapshot, 1)
	cancel := repo.Observe(func(snap repository.Snapshot) {
		// Keep only the latest snapshot for slow clients.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap := <-updates:
			c.SSEvent("snapshot", gin.H{
				"synced":  repo.Synced(),
				"version": repo.Version(),
				"tasks":   query.Apply(snap, f),
			})
			return true
		}
	})
}
