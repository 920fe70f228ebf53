package auth

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"folio/internal/models"
)

// SessionName is the cookie holding the signed-in user and form state.
const SessionName = "folio-session"

var (
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned for a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func init() {
	gob.Register(&models.User{})
}

// NewSessionStore returns a cookie store signed with sessionKey.
func NewSessionStore(sessionKey string) (*sessions.CookieStore, error) {
	if len(sessionKey) < 32 {
		return nil, errors.New("session key must be at least 32 characters long")
	}
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options.HttpOnly = true
	store.Options.Path = "/"
	store.Options.SameSite = http.SameSiteLaxMode
	return store, nil
}

// Service provides authentication-related services.
type Service struct {
	Repo     *Repository
	Sessions sessions.Store
	Logger   *zap.Logger
}

// NewService creates a new authentication service.
func NewService(repo *Repository, store sessions.Store, logger *zap.Logger) *Service {
	return &Service{Repo: repo, Sessions: store, Logger: logger}
}

// RegisterUser creates a new user with a local password identity.
func (s *Service) RegisterUser(ctx context.Context, username, displayName, password string, admin bool) (*models.User, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if _, err := s.Repo.FindUserByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	passwordHash := string(hashedPassword)

	if displayName == "" {
		displayName = username
	}
	user := &models.User{
		Username:    username,
		DisplayName: displayName,
		IsAdmin:     admin,
	}
	identity := &models.Identity{
		Provider:       models.ProviderLocal,
		ProviderUserID: username,
		PasswordHash:   &passwordHash,
	}

	if err := s.Repo.CreateUser(ctx, user, identity); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks a username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.Repo.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	identity, err := s.Repo.FindIdentityByProvider(ctx, models.ProviderLocal, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if identity.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*identity.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and stores them in the session.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, username, password string) (*models.User, error) {
	user, err := s.Authenticate(r.Context(), username, password)
	if err != nil {
		return nil, err
	}

	session, _ := s.Sessions.Get(r, SessionName)
	session.Values["user"] = user
	session.Options.Secure = secureRequest(r)
	if err := session.Save(r, w); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return user, nil
}

// Logout removes the user from the session.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.Sessions.Get(r, SessionName)
	delete(session.Values, "user")
	session.Options.Secure = secureRequest(r)
	if err := session.Save(r, w); err != nil {
		s.Logger.Warn("logout: save session", zap.Error(err))
	}
}

// GetCurrentUser returns the currently logged-in user.
func (s *Service) GetCurrentUser(r *http.Request) *models.User {
	session, _ := s.Sessions.Get(r, SessionName)
	if user, ok := session.Values["user"].(*models.User); ok {
		return user
	}
	return nil
}

// RequireLogin redirects anonymous requests to the login page.
func (s *Service) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()) == nil && s.GetCurrentUser(r) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 403 unless the current user is an administrator.
func (s *Service) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil {
			user = s.GetCurrentUser(r)
		}
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if !user.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser adds the current user to the request context.
func (s *Service) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.GetCurrentUser(r)
		ctx := context.WithValue(r.Context(), models.UserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUser returns the user WithUser stored in ctx, or nil.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(models.UserKey).(*models.User)
	return user
}

// secureRequest reports whether the request reached us over TLS, directly
// or through a proxy.
func secureRequest(r *http.Request) bool {
	return r.TLS != nil || r.URL.Scheme == "https" || r.Header.Get("X-Forwarded-Proto") == "https"
}
