package web

import (
	"net/http"

	"folio/internal/web/controller"
	"folio/internal/web/middleware"
)

func (s *Server) routes() http.Handler {
	view := controller.View{Templates: s.templates, Logger: s.logger}

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", StaticFileServer()))
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadsDir))))

	// Wildcard silo routes would overlap /static/ and /uploads/, so they
	// live on their own mux.
	publicMux := http.NewServeMux()
	authController := controller.Auth{View: view, AuthService: s.authService}
	authController.Register(publicMux)

	pageController := controller.Page{View: view, PageRepo: s.pageRepo, SiloRepo: s.siloRepo, Comments: s.comments}
	pageController.Register(publicMux)

	commentController := controller.Comment{View: view, Service: s.comments, PageRepo: s.pageRepo, SiloRepo: s.siloRepo}
	commentController.Register(publicMux)

	authenticatedMux := http.NewServeMux()
	siloController := controller.Silo{View: view, SiloRepo: s.siloRepo, UploadsDir: s.cfg.UploadsDir}
	siloController.Register(authenticatedMux)

	pageController.RegisterEditing(authenticatedMux)

	historyController := controller.History{View: view, Service: s.history, PageRepo: s.pageRepo, SiloRepo: s.siloRepo}
	historyController.Register(authenticatedMux)

	miscController := controller.Misc{View: view, AttachmentRepo: s.attachmentRepo, UploadsDir: s.cfg.UploadsDir}
	miscController.Register(authenticatedMux)

	adminMux := http.NewServeMux()
	commentController.RegisterAdmin(adminMux)
	reportController := controller.Report{View: view, Registry: s.reports}
	reportController.Register(adminMux)

	admin := middleware.Admin(s.authService)(adminMux)
	for _, prefix := range []string{"/admin/comments", "/admin/comments/", "/admin/reports", "/admin/reports/"} {
		authenticatedMux.Handle(prefix, admin)
	}

	publicMux.Handle("/", middleware.Auth(s.authService)(authenticatedMux))
	mux.Handle("/", publicMux)

	return middleware.Logging(s.logger)(middleware.WithUser(s.authService)(mux))
}
