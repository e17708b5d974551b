package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"genotasks/internal/board"
)

const maxImportBytes = 4 << 20

// handleImport reads an export document, either as the raw request body or
// as the "file" field of a multipart form, and broadcasts its tasks.
func (s *Server) handleImport(c *gin.Context) {
	var body io.Reader
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			s.respondError(c, http.StatusBadRequest, fmt.Errorf("missing file: %w", err))
			return
		}
		f, err := header.Open()
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		defer f.Close()
		body = f
	} else {
		body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	}

	result, err := s.board.Import(c.Request.Context(), body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(c, http.StatusRequestEntityTooLarge,
			fmt.Errorf("import larger than %d bytes", tooLarge.Limit))
		return
	}
	if errors.Is(err, board.ErrNothingImported) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    err.Error(),
			"warnings": result.Warnings,
		})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{
		"imported": len(result.Tasks),
		"tasks":    result.Tasks,
		"warnings": result.Warnings,
	})
}

// handleExport downloads the plain-text document of a week. The filter week
// wins over the caller's working week.
func (s *Server) handleExport(c *gin.Context) {
	week := c.Query("week")
	if strings.TrimSpace(week) == "" {
		week = c.Query("working_week")
	}

	filename, body, err := s.board.Export(week)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}
