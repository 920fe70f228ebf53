package controller

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"folio/internal/auth"
	"folio/internal/web/viewmodels"
)

// View renders templates for the controllers.
type View struct {
	Templates map[string]*template.Template
	Logger    *zap.Logger
}

// pageData starts the view model with the current user.
func (v View) pageData(r *http.Request) viewmodels.PageData {
	user := auth.CurrentUser(r.Context())
	return viewmodels.PageData{
		CurrentUser: user,
		IsLoggedIn:  user != nil,
		IsAdmin:     user != nil && user.IsAdmin,
	}
}

// render executes the layout of the named template set.
func (v View) render(w http.ResponseWriter, r *http.Request, status int, name string, data viewmodels.PageData) {
	v.execute(w, r, status, name, "layout.html", data)
}

// fragment executes a single template of a set without the layout.
func (v View) fragment(w http.ResponseWriter, r *http.Request, status int, name, tmpl string, data any) {
	v.execute(w, r, status, name, tmpl, data)
}

func (v View) execute(w http.ResponseWriter, r *http.Request, status int, name, tmpl string, data any) {
	t, ok := v.Templates[name]
	if !ok {
		v.serverError(w, r, errUnknownTemplate(name))
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, tmpl, data); err != nil {
		v.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (v View) serverError(w http.ResponseWriter, r *http.Request, err error) {
	v.Logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

type errUnknownTemplate string

func (e errUnknownTemplate) Error() string {
	return "unknown template " + string(e)
}

// isAjax reports whether the client only wants the fragment it asked for.
func isAjax(r *http.Request) bool {
	return r.Header.Get("X-Pjax") != "" || r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// redirectBack sends the client to the referring page, or fallback.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	target := fallback
	if ref := r.Referer(); ref != "" {
		target = ref
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
