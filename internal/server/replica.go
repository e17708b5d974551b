package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"genotasks/internal/replica"
)

// handleReplicaFeed returns the winners accepted after the "since" cursor.
func (s *Server) handleReplicaFeed(c *gin.Context) {
	var cursor uint64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("invalid cursor %q", raw))
			return
		}
		cursor = parsed
	}
	respondSuccess(c, http.StatusOK, s.feed.Since(cursor))
}

// handleReplicaPush merges events pushed by a peer.
func (s *Server) handleReplicaPush(c *gin.Context) {
	var feed replica.Feed
	if err := c.ShouldBindJSON(&feed); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}

	accepted, err := s.feed.Merge(c.Request.Context(), feed.Events)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{
		"received": len(feed.Events),
		"accepted": accepted,
	})
}
