package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"folio/internal/auth"
	"folio/internal/comment"
	"folio/internal/models"
	"folio/internal/page"
	"folio/internal/silo"
	"folio/internal/web/renderer"
	"folio/internal/web/viewmodels"
)

// Page provides page handlers
type Page struct {
	View
	PageRepo *page.Repository
	SiloRepo *silo.Repository
	Comments *comment.Service
}

// Register registers the public page routes
func (p *Page) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{siloSlug}/wiki/{pagePath...}", p.view)
}

// RegisterEditing registers the routes that need a logged in user
func (p *Page) RegisterEditing(mux *http.ServeMux) {
	mux.HandleFunc("GET /{siloSlug}/new", p.new)
	mux.HandleFunc("POST /{siloSlug}/new", p.create)
	mux.HandleFunc("GET /{siloSlug}/edit/{pagePath...}", p.edit)
	mux.HandleFunc("POST /{siloSlug}/edit/{pagePath...}", p.save)
	mux.HandleFunc("POST /{siloSlug}/delete/{pagePath...}", p.delete)
	mux.HandleFunc("POST /{siloSlug}/publish/{pagePath...}", p.publish)
}

// lookup resolves the silo and page a request addresses. It writes the
// error response itself and reports whether the handler may continue.
func (p *Page) lookup(w http.ResponseWriter, r *http.Request) (*models.Silo, models.Page, bool) {
	ctx := r.Context()
	s, err := p.SiloRepo.FindBySlug(ctx, r.PathValue("siloSlug"))
	if errors.Is(err, silo.ErrNotFound) {
		http.NotFound(w, r)
		return nil, models.Page{}, false
	}
	if err != nil {
		p.serverError(w, r, err)
		return nil, models.Page{}, false
	}

	pagePath := r.PathValue("pagePath")
	pg, err := p.PageRepo.FindByPath(ctx, s.ID, strings.Split(pagePath, "/"))
	if errors.Is(err, page.ErrNotFound) {
		http.NotFound(w, r)
		return nil, models.Page{}, false
	}
	if err != nil {
		p.serverError(w, r, err)
		return nil, models.Page{}, false
	}
	pg.Path = pagePath
	return s, pg, true
}

// withSidebar fills the silo and its page tree into data.
func (p *Page) withSidebar(ctx context.Context, data *viewmodels.PageData, s *models.Silo) error {
	pages, err := p.PageRepo.ListBySilo(ctx, s.ID)
	if err != nil {
		return err
	}
	data.Silo = *s
	data.SiloPages = buildPageTree(pages)
	data.AllSiloPages = pages
	data.ShowSidebar = true
	return nil
}

func (p *Page) view(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, pg, ok := p.lookup(w, r)
	if !ok {
		return
	}

	latest, err := p.PageRepo.LatestVersion(ctx, pg.ID)
	if err != nil {
		p.serverError(w, r, err)
		return
	}

	if pg.PageType == models.PageTypeRedirector {
		if target := strings.TrimSpace(latest.Content); target != "" {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
	}

	data := p.pageData(r)
	data.Title = pg.Title
	data.Page = pg
	if err := p.withSidebar(ctx, &data, s); err != nil {
		p.serverError(w, r, err)
		return
	}

	data.Content, err = renderer.Org(latest.Content)
	if err != nil {
		p.serverError(w, r, err)
		return
	}
	data.Revisions, err = p.PageRepo.ListVersions(ctx, pg.ID)
	if err != nil {
		p.serverError(w, r, err)
		return
	}

	if p.Comments != nil {
		data.Comments, err = p.commentsWidget(w, r, pg, data.IsAdmin)
		if err != nil {
			p.serverError(w, r, err)
			return
		}
	}

	p.render(w, r, http.StatusOK, "view.html", data)
}

// commentsWidget builds the comment holder shown under a page. Only
// administrators may list spam, with ?showspam=1.
func (p *Page) commentsWidget(w http.ResponseWriter, r *http.Request, pg models.Page, admin bool) (*viewmodels.CommentsWidget, error) {
	q := r.URL.Query()
	start, _ := strconv.Atoi(q.Get("commentStart"))
	showSpam := admin && q.Get("showspam") != ""

	form, err := p.Comments.PostCommentForm(w, r, pg.ID)
	if err != nil {
		return nil, err
	}
	listing, err := p.Comments.Comments(r.Context(), pg.ID, start, showSpam)
	if err != nil {
		return nil, err
	}

	widget := &viewmodels.CommentsWidget{
		Form:              form,
		Listing:           listing,
		RSSLink:           p.Comments.RSSLink(pg.ID),
		PrevLink:          commentStartLink(r.URL, listing.PrevStart),
		NextLink:          commentStartLink(r.URL, listing.NextStart),
		ModerationEnabled: p.Comments.Options.ModerationEnabled,
	}
	for _, c := range listing.Comments {
		widget.Comments = append(widget.Comments, viewmodels.CommentView{Comment: c, Body: renderer.Comment(c.Comment)})
	}
	return widget, nil
}

func commentStartLink(u *url.URL, start int) string {
	q := u.Query()
	q.Set("commentStart", strconv.Itoa(start))
	return u.Path + "?" + q.Encode() + "#PageComments"
}

func (p *Page) new(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := p.SiloRepo.FindBySlug(ctx, r.PathValue("siloSlug"))
	if errors.Is(err, silo.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		p.serverError(w, r, err)
		return
	}

	data := p.pageData(r)
	data.Title = "New page"
	if err := p.withSidebar(ctx, &data, s); err != nil {
		p.serverError(w, r, err)
		return
	}
	data.ParentID, _ = strconv.Atoi(r.URL.Query().Get("parent"))

	p.render(w, r, http.StatusOK, "new.html", data)
}

func (p *Page) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	siloSlug := r.PathValue("siloSlug")

	s, err := p.SiloRepo.FindBySlug(ctx, siloSlug)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	title := r.PostFormValue("title")
	slug := r.PostFormValue("slug")
	if title == "" || slug == "" {
		http.Error(w, "Title and slug are required", http.StatusBadRequest)
		return
	}
	note := r.PostFormValue("comment")
	parentID, _ := strconv.Atoi(r.PostFormValue("parent"))
	pageType := models.PageTypePage
	if r.PostFormValue("page_type") == models.PageTypeRedirector {
		pageType = models.PageTypeRedirector
	}

	user := auth.CurrentUser(ctx)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pg := &models.Page{
		SiloID:   s.ID,
		Slug:     slug,
		Title:    title,
		PageType: pageType,
	}
	if parentID != 0 {
		pg.ParentID = &parentID
	}

	revision := &models.Revision{
		AuthorID: user.ID,
		Comment:  &note,
		Content:  r.PostFormValue("content"),
	}

	if _, err := p.PageRepo.Create(ctx, pg, revision); err != nil {
		p.serverError(w, r, err)
		return
	}
	p.Logger.Info("page created", zap.Int("page_id", pg.ID), zap.String("silo", siloSlug), zap.String("user", user.Username))

	redirectPath := slug
	if parentID != 0 {
		parentPath, err := p.PageRepo.GetPathByID(ctx, parentID)
		if err != nil {
			p.serverError(w, r, err)
			return
		}
		redirectPath = parentPath + "/" + slug
	}

	http.Redirect(w, r, fmt.Sprintf("/%s/wiki/%s", siloSlug, redirectPath), http.StatusSeeOther)
}

func (p *Page) edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, pg, ok := p.lookup(w, r)
	if !ok {
		return
	}

	latest, err := p.PageRepo.LatestVersion(ctx, pg.ID)
	if err != nil {
		p.serverError(w, r, err)
		return
	}

	data := p.pageData(r)
	data.Title = "Editing " + pg.Title
	data.Page = pg
	data.Source = latest.Content
	if err := p.withSidebar(ctx, &data, s); err != nil {
		p.serverError(w, r, err)
		return
	}

	p.render(w, r, http.StatusOK, "edit.html", data)
}

func (p *Page) save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, pg, ok := p.lookup(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}
	note := r.PostFormValue("comment")

	user := auth.CurrentUser(ctx)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	revision := &models.Revision{
		AuthorID: user.ID,
		Title:    r.PostFormValue("title"),
		Comment:  &note,
		Content:  r.PostFormValue("content"),
	}
	if err := p.PageRepo.CreateRevision(ctx, revision, pg.ID); err != nil {
		p.serverError(w, r, err)
		return
	}
	p.Logger.Info("page saved", zap.Int("page_id", pg.ID), zap.Int("version", revision.Version), zap.String("user", user.Username))

	http.Redirect(w, r, fmt.Sprintf("/%s/wiki/%s", s.Slug, pg.Path), http.StatusSeeOther)
}

func (p *Page) publish(w http.ResponseWriter, r *http.Request) {
	s, pg, ok := p.lookup(w, r)
	if !ok {
		return
	}

	if err := p.PageRepo.Publish(r.Context(), pg.ID); err != nil {
		p.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/%s/wiki/%s", s.Slug, pg.Path), http.StatusSeeOther)
}

func (p *Page) delete(w http.ResponseWriter, r *http.Request) {
	s, pg, ok := p.lookup(w, r)
	if !ok {
		return
	}

	if err := p.PageRepo.Delete(r.Context(), pg.ID); err != nil {
		p.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/%s/wiki/home", s.Slug), http.StatusSeeOther)
}

// buildPageTree takes a flat list of pages (already sorted by position)
// and organizes them into a hierarchical tree.
func buildPageTree(pages []models.Page) []*models.Page {
	pageMap := make(map[int]*models.Page)
	for i := range pages {
		p := pages[i]
		pageMap[p.ID] = &p
	}

	var rootPages []*models.Page
	for _, p := range pages {
		node := pageMap[p.ID]
		if node.ParentID == nil {
			rootPages = append(rootPages, node)
		} else if parent, ok := pageMap[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}

	var constructPath func(pages []*models.Page, basePath string)
	constructPath = func(pages []*models.Page, basePath string) {
		for _, node := range pages {
			node.Path = node.Slug
			if basePath != "" {
				node.Path = basePath + "/" + node.Slug
			}
			constructPath(node.Children, node.Path)
		}
	}
	constructPath(rootPages, "")

	return rootPages
}

// pageURL is the public path of a page.
func pageURL(ctx context.Context, pages *page.Repository, silos *silo.Repository, pg models.Page) (string, error) {
	s, err := silos.FindByID(ctx, pg.SiloID)
	if err != nil {
		return "", err
	}
	path, err := pages.GetPathByID(ctx, pg.ID)
	if err != nil {
		return "", err
	}
	return "/" + s.Slug + "/wiki/" + path, nil
}
