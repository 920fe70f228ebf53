package viewmodels

import (
	"html/template"

	"folio/internal/comment"
	"folio/internal/history"
	"folio/internal/models"
	"folio/internal/report"
)

// CommentView is a comment with its rendered body.
type CommentView struct {
	models.Comment
	Body template.HTML
}

// CommentsWidget is everything the comment holder under a page needs.
type CommentsWidget struct {
	Form              comment.Form
	Comments          []CommentView
	Listing           comment.Listing
	RSSLink           string
	PrevLink          string
	NextLink          string
	ModerationEnabled bool
}

// SpamNotice is shown when a posted comment was rejected as spam.
type SpamNotice struct {
	Contact string
	Message string
}

// PageData is a unified struct to hold all possible data for any page.
// SiloPages is a tree structure instead of a flat list.
type PageData struct {
	Title       string
	ShowSidebar bool
	Silos       []models.Silo
	Silo        models.Silo
	// The current page being viewed
	Page      models.Page
	Revisions []models.Revision
	// The page tree for the sidebar
	SiloPages []*models.Page
	Content   template.HTML
	// Raw page content for the editor
	Source string
	// For the parent dropdown on the new page
	AllSiloPages []models.Page
	ParentID     int
	CurrentUser  *models.User
	IsLoggedIn   bool
	IsAdmin      bool
	Error        string

	Comments   *CommentsWidget
	Spam       *SpamNotice
	Moderation []CommentView

	Crumbs   []history.Crumb
	History  *history.Form
	Versions *history.VersionsForm

	Reports []report.Report
	Report  report.Report
	Records []report.Record
}
