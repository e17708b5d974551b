package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// rootFiles are served from the top of the frontend build when present.
var rootFiles = []string{"favicon.ico", "manifest.webmanifest", "robots.txt"}

// mountStatic serves the board frontend. Unknown non-API paths fall back to
// index.html so client-side routes survive a reload.
func (s *Server) mountStatic() {
	s.engine.NoRoute(s.handleNoRoute)

	if s.staticDir == "" {
		s.logger.Warn("static directory not configured; API only mode")
		return
	}
	if info, err := os.Stat(s.staticDir); err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing; API only mode", "path", s.staticDir, "error", err)
		s.staticDir = ""
		return
	}

	if assets := filepath.Join(s.staticDir, "assets"); isDir(assets) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}
	for _, name := range rootFiles {
		if path := filepath.Join(s.staticDir, name); isFile(path) {
			s.engine.StaticFile("/"+name, path)
		}
	}
	if index := filepath.Join(s.staticDir, "index.html"); isFile(index) {
		s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	} else {
		s.logger.Warn("index.html not found", "path", index)
	}
}

func (s *Server) handleNoRoute(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") || s.staticDir == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
		return
	}
	index := filepath.Join(s.staticDir, "index.html")
	if !isFile(index) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.File(index)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
