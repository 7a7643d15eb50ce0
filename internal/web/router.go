// Package web serves the attendance pages and JSON actions over gin.
package web

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/huyquangvevo/chamcong-web/internal/attendance"
	"github.com/huyquangvevo/chamcong-web/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps are the collaborators a router needs.
type Deps struct {
	Auth       *auth.Service
	Attendance *attendance.Service
	Sessions   sessions.Store
	Logger     *slog.Logger

	// Health pings the backing stores. Nil means always healthy.
	Health func(ctx context.Context) error
}

type server struct {
	auth       *auth.Service
	attendance *attendance.Service
	logger     *slog.Logger
	health     func(ctx context.Context) error
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(deps Deps) (*gin.Engine, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{
		auth:       deps.Auth,
		attendance: deps.Attendance,
		logger:     logger,
		health:     deps.Health,
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(requestID(), requestLogger(logger), gin.Recovery(), auth.Sessions(deps.Sessions))

	r.GET("/healthz", s.healthz)
	r.GET("/", s.index)
	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.GET("/logout", s.logout)

	pages := r.Group("/dashboard", auth.RequireIdentity(s.loginRequired))
	pages.GET("", s.dashboard)
	pages.GET("/export", s.export)

	api := r.Group("/", auth.RequireIdentity(s.unauthenticated))
	api.POST("/apply_leave", s.applyLeave)
	api.POST("/toggle_check", s.toggleCheck)

	return r, nil
}

func (s *server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", "request_id", RequestIDFrom(c), "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
