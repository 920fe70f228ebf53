// Package history implements the page history area: read-only views of
// single versions, comparisons between two versions and reverting a page to
// an older version.
package history

import (
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"folio/internal/diff"
	"folio/internal/models"
	"folio/internal/page"
)

// BasePath is where the history routes are mounted.
const BasePath = "/admin/pages/history"

// User facing messages.
const (
	MsgViewingLatest  = "Currently viewing the latest version."
	MsgViewingVersion = "Currently viewing version %d."
	MsgComparing      = "Comparing versions %s and %s."
	RevertTitle       = "Revert to this version"
)

// Error carries the HTTP status a history failure should produce.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func historyError(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrNoRecord means there is nothing to show; callers render the empty
// placeholder instead of a form.
var ErrNoRecord = errors.New("no record to show")

// PageStore is the versioned page storage the history area reads and writes.
type PageStore interface {
	FindByID(ctx context.Context, id int) (models.Page, error)
	GetVersion(ctx context.Context, pageID, version int) (models.Revision, error)
	LatestVersion(ctx context.Context, pageID int) (models.Revision, error)
	ListVersions(ctx context.Context, pageID int) ([]models.Revision, error)
	Rollback(ctx context.Context, pageID, version, authorID int) (models.Revision, error)
}

// SiloStore resolves the silo a page lives in.
type SiloStore interface {
	FindByID(ctx context.Context, id int) (*models.Silo, error)
}

// RenderFunc turns stored page content into HTML.
type RenderFunc func(content string) (template.HTML, error)

// Field is one read-only form field.
type Field struct {
	Name  string
	Label string
	Value template.HTML
}

// Action is a form button.
type Action struct {
	Name     string
	Title    string
	Readonly bool
}

// Form is the read-only record form shown for a version or a comparison.
type Form struct {
	Name         string
	HTMLID       string
	Action       string
	PageID       int
	Version      int
	Message      template.HTML
	MessageClass string
	Fields       []Field
	Actions      []Action
	ExtraClasses []string
	Page         models.Page
	Record       models.Revision
	Compare      bool
	FromVersion  int
	ToVersion    int
}

// Classes joins the form's extra CSS classes.
func (f *Form) Classes() string {
	return strings.Join(f.ExtraClasses, " ")
}

// VersionRow is one entry in the versions list.
type VersionRow struct {
	models.Revision
	Active bool
	Hidden bool
}

// VersionsForm selects versions to view or compare.
type VersionsForm struct {
	HTMLID          string
	PageID          int
	ShowUnpublished bool
	CompareMode     bool
	Versions        []VersionRow
	CompareLinkTmpl string
	ShowLinkTmpl    string
}

// Crumb is a breadcrumb entry.
type Crumb struct {
	Title string
	Link  string
}

// Service builds history views on top of the page store.
type Service struct {
	Pages  PageStore
	Silos  SiloStore
	Render RenderFunc
}

// NewService returns a history service.
func NewService(pages PageStore, silos SiloStore, render RenderFunc) *Service {
	return &Service{Pages: pages, Silos: silos, Render: render}
}

// Link joins path parts under BasePath.
func Link(action string, parts ...int) string {
	link := BasePath + "/" + action
	for _, p := range parts {
		link += "/" + strconv.Itoa(p)
	}
	return link
}

// CanView reports whether user may look at the history of p. Archived pages
// are only visible to administrators.
func CanView(p models.Page, user *models.User) bool {
	if !p.Archived() {
		return true
	}
	return user != nil && user.IsAdmin
}

// CanEdit reports whether user may revert p.
func CanEdit(p models.Page, user *models.User) bool {
	if user == nil {
		return false
	}
	return !p.Archived() || user.IsAdmin
}

// loadRecord returns the page and the requested version, or ErrNoRecord.
func (s *Service) loadRecord(ctx context.Context, pageID, version int) (models.Page, models.Revision, error) {
	p, err := s.Pages.FindByID(ctx, pageID)
	if errors.Is(err, page.ErrNotFound) {
		return p, models.Revision{}, ErrNoRecord
	}
	if err != nil {
		return p, models.Revision{}, err
	}
	rev, err := s.Pages.GetVersion(ctx, pageID, version)
	if errors.Is(err, page.ErrVersionNotFound) {
		return p, rev, ErrNoRecord
	}
	return p, rev, err
}

// Show returns the read-only form for one version. version 0 selects the
// latest version; the returned form carries the resolved version number.
func (s *Service) Show(ctx context.Context, user *models.User, pageID, version int) (*Form, error) {
	if pageID <= 0 {
		return nil, ErrNoRecord
	}
	p, rev, err := s.loadRecord(ctx, pageID, version)
	if err != nil {
		return nil, err
	}
	if !CanView(p, user) {
		return nil, historyError(http.StatusForbidden, "You do not have permission to view page %d", pageID)
	}

	latest, err := s.Pages.LatestVersion(ctx, pageID)
	if err != nil {
		return nil, err
	}
	isLatest := latest.Version == rev.Version

	form, err := s.editForm(p, rev)
	if err != nil {
		return nil, err
	}
	if isLatest {
		form.Message = template.HTML(MsgViewingLatest)
		form.Actions[0].Readonly = true
	} else {
		form.Message = template.HTML(fmt.Sprintf(MsgViewingVersion, rev.Version))
	}
	if !CanEdit(p, user) {
		form.Actions[0].Readonly = true
	}
	return form, nil
}

// editForm builds the shared read-only form for a record.
func (s *Service) editForm(p models.Page, rev models.Revision) (*Form, error) {
	content := template.HTML(html.EscapeString(rev.Content))
	if s.Render != nil && p.PageType != models.PageTypeRedirector {
		rendered, err := s.Render(rev.Content)
		if err != nil {
			return nil, fmt.Errorf("render version %d of page %d: %w", rev.Version, p.ID, err)
		}
		content = rendered
	}

	return &Form{
		Name:         "EditForm",
		HTMLID:       "Form_EditForm",
		Action:       Link("rollback", p.ID, rev.Version),
		PageID:       p.ID,
		Version:      rev.Version,
		MessageClass: "notice",
		Fields: []Field{
			{Name: "Title", Label: "Page name", Value: template.HTML(html.EscapeString(rev.Title))},
			{Name: "URLSegment", Label: "URL segment", Value: template.HTML(html.EscapeString(p.Slug))},
			{Name: "PageType", Label: "Page type", Value: template.HTML(html.EscapeString(p.PageType))},
			{Name: "Content", Label: "Content", Value: content},
		},
		Actions: []Action{{Name: "doRollback", Title: RevertTitle}},
		Page:    p,
		Record:  rev,
	}, nil
}

// Compare returns the comparison form between two versions of a page. The
// lower version is always the "from" side.
func (s *Service) Compare(ctx context.Context, user *models.User, pageID, versionID, otherVersionID int) (*Form, error) {
	fromVersion, toVersion := versionID, otherVersionID
	if versionID > otherVersionID {
		fromVersion, toVersion = otherVersionID, versionID
	}
	if fromVersion <= 0 || toVersion <= 0 {
		return nil, ErrNoRecord
	}

	p, err := s.Pages.FindByID(ctx, pageID)
	if errors.Is(err, page.ErrNotFound) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, err
	}
	if !CanView(p, user) {
		return nil, historyError(http.StatusForbidden, "You do not have permission to view page %d", pageID)
	}

	from, err := s.Pages.GetVersion(ctx, pageID, fromVersion)
	if errors.Is(err, page.ErrVersionNotFound) {
		return nil, historyError(http.StatusNotFound, "Can't find version %d of page %d", fromVersion, pageID)
	}
	if err != nil {
		return nil, err
	}
	to, err := s.Pages.GetVersion(ctx, pageID, toVersion)
	if errors.Is(err, page.ErrVersionNotFound) {
		return nil, historyError(http.StatusNotFound, "Can't find version %d of page %d", toVersion, pageID)
	}
	if err != nil {
		return nil, err
	}

	view := func(v int) string {
		return fmt.Sprintf(`%d (<a href="%s">view</a>)`, v, Link("show", pageID, v))
	}

	form := &Form{
		Name:         "CompareVersionsForm",
		HTMLID:       "Form_CompareVersionsForm",
		Action:       Link("compare", pageID, fromVersion, toVersion),
		PageID:       pageID,
		Version:      fromVersion,
		Message:      template.HTML(fmt.Sprintf(MsgComparing, view(fromVersion), view(toVersion))),
		MessageClass: "notice",
		ExtraClasses: []string{"compare"},
		Page:         p,
		Record:       from,
		Compare:      true,
		FromVersion:  fromVersion,
		ToVersion:    toVersion,
	}
	for _, f := range []diff.Field{
		diff.Compare("Title", "Page name", from.Title, to.Title),
		diff.Compare("Content", "Content", from.Content, to.Content),
	} {
		form.Fields = append(form.Fields, Field{Name: f.Name, Label: f.Label, Value: f.HTML})
	}
	return form, nil
}

// VersionsRequest carries the request parameters the versions form adapts to.
type VersionsRequest struct {
	PageID         int
	Action         string
	VersionID      int
	OtherVersionID int
	// ShowUnpublished is nil when the request did not set it.
	ShowUnpublished *bool
}

// Versions builds the version selection form.
func (s *Service) Versions(ctx context.Context, user *models.User, req VersionsRequest) (*VersionsForm, error) {
	form := &VersionsForm{
		HTMLID:          "Form_VersionsForm",
		PageID:          req.PageID,
		CompareMode:     req.Action == "compare",
		CompareLinkTmpl: BasePath + "/compare/%s/%s/%s",
		ShowLinkTmpl:    BasePath + "/show/%s/%s",
	}

	p, err := s.Pages.FindByID(ctx, req.PageID)
	if errors.Is(err, page.ErrNotFound) {
		return form, nil
	}
	if err != nil {
		return nil, err
	}
	if !CanView(p, user) {
		return nil, historyError(http.StatusForbidden, "You do not have permission to view page %d", req.PageID)
	}

	versions, err := s.Pages.ListVersions(ctx, req.PageID)
	if err != nil {
		return nil, err
	}

	versionID := req.VersionID
	if versionID == 0 && len(versions) > 0 {
		versionID = versions[0].Version
	}

	for _, v := range versions {
		row := VersionRow{Revision: v}
		if v.Version == versionID || v.Version == req.OtherVersionID {
			row.Active = true
			if !v.WasPublished {
				form.ShowUnpublished = true
			}
		}
		form.Versions = append(form.Versions, row)
	}
	if req.ShowUnpublished != nil {
		form.ShowUnpublished = *req.ShowUnpublished
	}
	for i := range form.Versions {
		row := &form.Versions[i]
		row.Hidden = !form.ShowUnpublished && !row.WasPublished && !row.Active
	}
	return form, nil
}

// Rollback reverts a page to version and returns the newly written version.
func (s *Service) Rollback(ctx context.Context, user *models.User, pageID, version int) (models.Revision, error) {
	p, err := s.Pages.FindByID(ctx, pageID)
	if errors.Is(err, page.ErrNotFound) {
		return models.Revision{}, historyError(http.StatusNotFound, "Page %d not found", pageID)
	}
	if err != nil {
		return models.Revision{}, err
	}
	if !CanEdit(p, user) {
		return models.Revision{}, historyError(http.StatusForbidden, "You do not have permission to revert page %d", pageID)
	}

	rev, err := s.Pages.Rollback(ctx, pageID, version, user.ID)
	switch {
	case errors.Is(err, page.ErrVersionNotFound):
		return rev, historyError(http.StatusNotFound, "Can't find version %d of page %d", version, pageID)
	case errors.Is(err, page.ErrLatestVersion):
		return rev, historyError(http.StatusBadRequest, "Version %d is already the latest version", version)
	}
	return rev, err
}

// Breadcrumbs returns the trail for a page's history screen.
func (s *Service) Breadcrumbs(ctx context.Context, p models.Page) []Crumb {
	crumbs := []Crumb{{Title: "Pages", Link: "/"}}
	if s.Silos != nil {
		if sl, err := s.Silos.FindByID(ctx, p.SiloID); err == nil {
			crumbs = append(crumbs, Crumb{Title: sl.Name, Link: "/" + sl.Slug + "/wiki/home"})
		}
	}
	if p.ID != 0 {
		crumbs = append(crumbs,
			Crumb{Title: p.Title, Link: Link("show", p.ID)},
			Crumb{Title: "History"},
		)
	}
	return crumbs
}
