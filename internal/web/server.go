package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"folio/internal/attachment"
	"folio/internal/auth"
	"folio/internal/comment"
	"folio/internal/config"
	"folio/internal/history"
	"folio/internal/page"
	"folio/internal/report"
	"folio/internal/silo"
	"folio/internal/throttle"
	"folio/internal/web/renderer"
	"folio/internal/web/templates"
)

// Server holds the dependencies for the web server.
type Server struct {
	cfg            config.Config
	logger         *zap.Logger
	templates      map[string]*template.Template
	authService    *auth.Service
	attachmentRepo *attachment.Repository
	pageRepo       *page.Repository
	siloRepo       *silo.Repository
	comments       *comment.Service
	history        *history.Service
	reports        *report.Registry
	handler        http.Handler
}

// NewServer wires the repositories and services on top of db. akismet and
// limiter may be nil to disable Akismet and comment throttling.
func NewServer(db *sql.DB, cfg config.Config, logger *zap.Logger, akismet comment.SpamChecker, limiter throttle.Limiter) (*Server, error) {
	tmpl, err := templates.Load()
	if err != nil {
		return nil, err
	}
	store, err := auth.NewSessionStore(cfg.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}

	pageRepo := page.NewRepository(db)
	siloRepo := silo.NewRepository(db)

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		templates:      tmpl,
		authService:    auth.NewService(auth.NewRepository(db), store, logger),
		attachmentRepo: attachment.NewRepository(db),
		pageRepo:       pageRepo,
		siloRepo:       siloRepo,
		comments: comment.NewService(comment.NewRepository(db), akismet, limiter, store, comment.Options{
			PerPage:           cfg.CommentsPerPage,
			ModerationEnabled: cfg.ModerationEnabled,
			MathEnabled:       cfg.MathSpamEnabled,
			SaveSpam:          cfg.AkismetSaveSpam,
			AdminEmail:        cfg.AdminEmail,
			BaseURL:           cfg.BaseURL,
		}, logger),
		history: history.NewService(pageRepo, siloRepo, renderer.Org),
		reports: report.NewRegistry(report.EmptyPages{Pages: pageRepo}),
	}
	s.handler = s.routes()
	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
