package controller

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"folio/internal/comment"
	"folio/internal/models"
	"folio/internal/page"
	"folio/internal/silo"
	"folio/internal/web/renderer"
	"folio/internal/web/viewmodels"
)

const wrongAnswerHTML = "<div class='BlogError'><p>You got the spam protection question wrong.</p></div>"

// Comment provides the page comment handlers
type Comment struct {
	View
	Service  *comment.Service
	PageRepo *page.Repository
	SiloRepo *silo.Repository
}

// Register registers the public comment routes
func (c *Comment) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /comments/{pageID}", c.post)
	mux.HandleFunc("GET /comments/rss", c.rss)
}

// RegisterAdmin registers the moderation routes
func (c *Comment) RegisterAdmin(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/comments", c.moderation)
	mux.HandleFunc("POST /admin/comments/{id}/{action}", c.moderate)
}

// livePage loads a page that accepts comments.
func (c *Comment) livePage(w http.ResponseWriter, r *http.Request, id int) (models.Page, bool) {
	pg, err := c.PageRepo.FindByID(r.Context(), id)
	if errors.Is(err, page.ErrNotFound) || (err == nil && pg.Archived()) {
		http.NotFound(w, r)
		return pg, false
	}
	if err != nil {
		c.serverError(w, r, err)
		return pg, false
	}
	return pg, true
}

func (c *Comment) post(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID, err := strconv.Atoi(r.PathValue("pageID"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	pg, ok := c.livePage(w, r, pageID)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	link, err := pageURL(ctx, c.PageRepo, c.SiloRepo, pg)
	if err != nil {
		c.serverError(w, r, err)
		return
	}

	in := comment.Input{
		PageID:    pg.ID,
		Name:      r.PostFormValue("Name"),
		Comment:   r.PostFormValue("Comment"),
		Math:      r.PostFormValue("Math"),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		Permalink: strings.TrimSuffix(c.Service.Options.BaseURL, "/") + link,
	}
	res, err := c.Service.Post(w, r, in)
	if err != nil {
		c.serverError(w, r, err)
		return
	}

	switch res.Outcome {
	case comment.Invalid:
		http.Error(w, "Please enter your name and a comment", http.StatusBadRequest)
	case comment.Throttled:
		http.Error(w, "Too many comments, please try again later", http.StatusTooManyRequests)
	case comment.Spam:
		data := c.pageData(r)
		data.Title = "Spam detected"
		data.Spam = &viewmodels.SpamNotice{
			Contact: c.Service.SpamContact(),
			Message: in.Comment,
		}
		c.render(w, r, http.StatusOK, "spam.html", data)
	case comment.WrongAnswer:
		if isAjax(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, wrongAnswerHTML)
			return
		}
		redirectBack(w, r, link)
	case comment.Saved:
		c.Logger.Info("comment posted",
			zap.Int("comment_id", res.Comment.ID),
			zap.Int("page_id", pg.ID),
			zap.Bool("needs_moderation", res.Comment.NeedsModeration))
		if isAjax(r) {
			view := viewmodels.CommentView{Comment: res.Comment, Body: renderer.Comment(res.Comment.Comment)}
			c.fragment(w, r, http.StatusOK, "view.html", "comment", view)
			return
		}
		redirectBack(w, r, link)
	}
}

func (c *Comment) rss(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pageID, err := strconv.Atoi(r.URL.Query().Get("pageid"))
	if err != nil {
		http.Error(w, "Missing pageid", http.StatusBadRequest)
		return
	}
	pg, ok := c.livePage(w, r, pageID)
	if !ok {
		return
	}

	link, err := pageURL(ctx, c.PageRepo, c.SiloRepo, pg)
	if err != nil {
		c.serverError(w, r, err)
		return
	}
	feed, err := c.Service.Feed(ctx, pg, strings.TrimSuffix(c.Service.Options.BaseURL, "/")+link)
	if err != nil {
		c.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	fmt.Fprint(w, feed)
}

func (c *Comment) moderation(w http.ResponseWriter, r *http.Request) {
	comments, err := c.Service.Repo.ListModeration(r.Context(), 100)
	if err != nil {
		c.serverError(w, r, err)
		return
	}

	data := c.pageData(r)
	data.Title = "Comment moderation"
	for _, cm := range comments {
		data.Moderation = append(data.Moderation, viewmodels.CommentView{Comment: cm, Body: renderer.Comment(cm.Comment)})
	}
	c.render(w, r, http.StatusOK, "moderation.html", data)
}

func (c *Comment) moderate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	action := r.PathValue("action")

	err = c.Service.Moderate(r.Context(), id, action)
	switch {
	case errors.Is(err, comment.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, comment.ErrUnknownAction):
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	case err != nil:
		c.serverError(w, r, err)
		return
	}
	c.Logger.Info("comment moderated", zap.Int("comment_id", id), zap.String("action", action))

	if isAjax(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/admin/comments", http.StatusSeeOther)
}

// clientIP is the address the request came from, without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
