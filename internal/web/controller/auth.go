package controller

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"folio/internal/auth"
)

// Auth provides auth handlers
type Auth struct {
	View
	AuthService *auth.Service
}

// Register registers the auth routes
func (a *Auth) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /login", a.loginGet)
	mux.HandleFunc("POST /login", a.loginPost)
	mux.HandleFunc("GET /logout", a.logout)
	mux.HandleFunc("GET /register", a.registerGet)
	mux.HandleFunc("POST /register", a.registerPost)
}

func (a *Auth) loginGet(w http.ResponseWriter, r *http.Request) {
	data := a.pageData(r)
	data.Title = "Log in"
	a.render(w, r, http.StatusOK, "login.html", data)
}

func (a *Auth) loginPost(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	user, err := a.AuthService.Login(w, r, username, r.FormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		a.Logger.Info("login failed", zap.String("username", username))
		data := a.pageData(r)
		data.Title = "Log in"
		data.Error = "Invalid credentials"
		a.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}
	a.Logger.Info("user logged in", zap.Int("user_id", user.ID))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *Auth) logout(w http.ResponseWriter, r *http.Request) {
	a.AuthService.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *Auth) registerGet(w http.ResponseWriter, r *http.Request) {
	data := a.pageData(r)
	data.Title = "Register"
	a.render(w, r, http.StatusOK, "register.html", data)
}

func (a *Auth) registerPost(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	displayName := r.FormValue("display_name")
	password := r.FormValue("password")
	if username == "" || displayName == "" || password == "" {
		http.Error(w, "All fields are required", http.StatusBadRequest)
		return
	}

	_, err := a.AuthService.RegisterUser(r.Context(), username, displayName, password, false)
	if errors.Is(err, auth.ErrUserExists) {
		data := a.pageData(r)
		data.Title = "Register"
		data.Error = "That username is taken"
		a.render(w, r, http.StatusConflict, "register.html", data)
		return
	}
	if err != nil {
		a.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}
