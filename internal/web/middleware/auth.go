package middleware

import (
	"net/http"

	"folio/internal/auth"
)

// Auth returns a new auth middleware
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return authService.RequireLogin
}

// Admin returns a middleware that only lets administrators through
func Admin(authService *auth.Service) func(http.Handler) http.Handler {
	return authService.RequireAdmin
}

// WithUser returns a new with user middleware
func WithUser(authService *auth.Service) func(http.Handler) http.Handler {
	return authService.WithUser
}
