package controller

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"folio/internal/auth"
	"folio/internal/history"
	"folio/internal/models"
	"folio/internal/page"
	"folio/internal/silo"
)

// History provides the page history handlers
type History struct {
	View
	Service  *history.Service
	PageRepo *page.Repository
	SiloRepo *silo.Repository
}

// Register registers the history routes
func (h *History) Register(mux *http.ServeMux) {
	base := history.BasePath
	mux.HandleFunc("GET "+base+"/show/{id}", h.show)
	mux.HandleFunc("GET "+base+"/show/{id}/{version}", h.show)
	mux.HandleFunc("GET "+base+"/form/{id}", h.form)
	mux.HandleFunc("GET "+base+"/form/{id}/{version...}", h.form)
	mux.HandleFunc("GET "+base+"/compare/{id}", h.compare)
	mux.HandleFunc("GET "+base+"/compare/{id}/{versions...}", h.compare)
	mux.HandleFunc("GET "+base+"/versions/{id}", h.versions)
	mux.HandleFunc("POST "+base+"/rollback/{id}/{version}", h.rollback)

	mux.HandleFunc("GET /{siloSlug}/history/{pagePath...}", h.pageHistory)
	mux.HandleFunc("GET /{siloSlug}/diff/{pagePath...}", h.pageDiff)
}

// pathInt reads an optional numeric path segment; missing or malformed
// values are 0.
func pathInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.PathValue(name))
	return n
}

// fail maps a service error onto a response.
func (h *History) fail(w http.ResponseWriter, r *http.Request, err error) {
	var herr *history.Error
	if errors.As(err, &herr) {
		http.Error(w, herr.Message, herr.Status)
		return
	}
	h.serverError(w, r, err)
}

// respond renders a history form, or the empty placeholder when form is
// nil. Pjax and XHR requests only get the form fragment.
func (h *History) respond(w http.ResponseWriter, r *http.Request, status int, pageID int, form *history.Form) {
	if isAjax(r) {
		if form == nil {
			h.fragment(w, r, status, "history.html", "history_empty", nil)
			return
		}
		h.fragment(w, r, status, "history.html", "history_form", form)
		return
	}

	ctx := r.Context()
	user := auth.CurrentUser(ctx)
	data := h.pageData(r)
	data.Title = "History"
	data.History = form

	req := history.VersionsRequest{PageID: pageID}
	if form != nil {
		data.Page = form.Page
		req.VersionID = form.Version
		if form.Compare {
			req.Action = "compare"
			req.VersionID = form.FromVersion
			req.OtherVersionID = form.ToVersion
		}
	} else if pg, err := h.PageRepo.FindByID(ctx, pageID); err == nil {
		data.Page = pg
	}
	if data.Page.ID != 0 {
		data.Title = data.Page.Title + " history"
		data.Crumbs = h.Service.Breadcrumbs(ctx, data.Page)
	}

	loadVersionsQuery(r, &req)
	versions, err := h.Service.Versions(ctx, user, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data.Versions = versions

	h.render(w, r, status, "history.html", data)
}

func (h *History) show(w http.ResponseWriter, r *http.Request) {
	pageID := pathInt(r, "id")
	form, err := h.Service.Show(r.Context(), auth.CurrentUser(r.Context()), pageID, pathInt(r, "version"))
	if errors.Is(err, history.ErrNoRecord) {
		h.respond(w, r, http.StatusNotFound, pageID, nil)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, pageID, form)
}

// form serves the edit form fragment of one version.
func (h *History) form(w http.ResponseWriter, r *http.Request) {
	version := strings.Trim(r.PathValue("version"), "/")
	if version == "" {
		http.Error(w, "Missing VersionID", http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(version)
	if err != nil {
		http.Error(w, "Invalid VersionID", http.StatusBadRequest)
		return
	}

	form, err := h.Service.Show(r.Context(), auth.CurrentUser(r.Context()), pathInt(r, "id"), n)
	if errors.Is(err, history.ErrNoRecord) {
		h.fragment(w, r, http.StatusNotFound, "history.html", "history_empty", nil)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.fragment(w, r, http.StatusOK, "history.html", "history_form", form)
}

func (h *History) compare(w http.ResponseWriter, r *http.Request) {
	pageID := pathInt(r, "id")
	var versions [2]int
	for i, part := range strings.SplitN(strings.Trim(r.PathValue("versions"), "/"), "/", 2) {
		versions[i], _ = strconv.Atoi(part)
	}

	form, err := h.Service.Compare(r.Context(), auth.CurrentUser(r.Context()), pageID, versions[0], versions[1])
	if errors.Is(err, history.ErrNoRecord) {
		h.respond(w, r, http.StatusOK, pageID, nil)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, pageID, form)
}

// versions serves the version list on its own. The query may carry
// version, other and action along with the form's own checkboxes.
func (h *History) versions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := history.VersionsRequest{PageID: pathInt(r, "id"), Action: q.Get("action")}
	req.VersionID, _ = strconv.Atoi(q.Get("version"))
	req.OtherVersionID, _ = strconv.Atoi(q.Get("other"))
	loadVersionsQuery(r, &req)

	form, err := h.Service.Versions(r.Context(), auth.CurrentUser(r.Context()), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.fragment(w, r, http.StatusOK, "history.html", "versions", form)
}

// loadVersionsQuery applies the ShowUnpublished and CompareMode checkboxes
// of the versions form when the request carries them.
func loadVersionsQuery(r *http.Request, req *history.VersionsRequest) {
	q := r.URL.Query()
	if v, ok := queryFlag(q, "ShowUnpublished"); ok {
		req.ShowUnpublished = &v
	}
	if v, ok := queryFlag(q, "CompareMode"); ok {
		if v {
			req.Action = "compare"
		} else if req.Action == "compare" {
			req.Action = ""
		}
	}
}

// queryFlag reads a checkbox value, matching the name case-insensitively.
func queryFlag(q url.Values, name string) (value, ok bool) {
	for key, values := range q {
		if !strings.EqualFold(key, name) || len(values) == 0 {
			continue
		}
		switch strings.ToLower(values[0]) {
		case "1", "true", "on", "yes":
			return true, true
		}
		return false, true
	}
	return false, false
}

func (h *History) rollback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := auth.CurrentUser(ctx)
	pageID := pathInt(r, "id")
	version := pathInt(r, "version")

	rev, err := h.Service.Rollback(ctx, user, pageID, version)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Logger.Info("page reverted",
		zap.Int("page_id", pageID),
		zap.Int("from_version", version),
		zap.Int("new_version", rev.Version),
		zap.String("user", user.Username))

	http.Redirect(w, r, history.Link("show", pageID, rev.Version), http.StatusSeeOther)
}

// lookupByPath resolves /{siloSlug}/.../{pagePath...} to a page.
func (h *History) lookupByPath(w http.ResponseWriter, r *http.Request) (models.Page, bool) {
	ctx := r.Context()
	s, err := h.SiloRepo.FindBySlug(ctx, r.PathValue("siloSlug"))
	if err != nil {
		http.NotFound(w, r)
		return models.Page{}, false
	}
	pg, err := h.PageRepo.FindByPath(ctx, s.ID, strings.Split(r.PathValue("pagePath"), "/"))
	if err != nil {
		http.NotFound(w, r)
		return models.Page{}, false
	}
	return pg, true
}

func (h *History) pageHistory(w http.ResponseWriter, r *http.Request) {
	pg, ok := h.lookupByPath(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, history.Link("show", pg.ID), http.StatusFound)
}

func (h *History) pageDiff(w http.ResponseWriter, r *http.Request) {
	from, err := strconv.Atoi(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "Invalid 'from' version", http.StatusBadRequest)
		return
	}
	to, err := strconv.Atoi(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "Invalid 'to' version", http.StatusBadRequest)
		return
	}

	pg, ok := h.lookupByPath(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, history.Link("compare", pg.ID, from, to), http.StatusFound)
}
