// Package comment is the page comment widget: the post form, the paginated
// comment list, spam filtering of new posts, moderation and the RSS feed.
package comment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"folio/internal/comment/spam"
	"folio/internal/models"
	"folio/internal/throttle"
)

// NameCookie remembers the commenter's name between posts.
const NameCookie = "PageCommentInterface_Name"

const (
	sessionName      = "folio-comments"
	mathAnswerKey    = "math_answer"
	nameCookieMaxAge = 90 * 24 * 60 * 60
)

// ErrUnknownAction is returned by Moderate for an unsupported action.
var ErrUnknownAction = errors.New("unknown moderation action")

// SpamChecker is the Akismet surface the widget needs.
type SpamChecker interface {
	CheckComment(ctx context.Context, c spam.Comment) (bool, error)
	SubmitSpam(ctx context.Context, c spam.Comment) error
	SubmitHam(ctx context.Context, c spam.Comment) error
}

// Options configures the widget.
type Options struct {
	PerPage           int
	ModerationEnabled bool
	MathEnabled       bool
	SaveSpam          bool
	AdminEmail        string
	BaseURL           string
}

// Service implements the comment widget.
type Service struct {
	Repo     *Repository
	Akismet  SpamChecker
	Limiter  throttle.Limiter
	Sessions sessions.Store
	Options  Options
	Logger   *zap.Logger
}

// NewService returns a comment service. akismet and limiter may be nil.
func NewService(repo *Repository, akismet SpamChecker, limiter throttle.Limiter, store sessions.Store, opts Options, logger *zap.Logger) *Service {
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	return &Service{
		Repo:     repo,
		Akismet:  akismet,
		Limiter:  limiter,
		Sessions: store,
		Options:  opts,
		Logger:   logger,
	}
}

// Form is the post-comment form.
type Form struct {
	Action       string
	ParentID     int
	Name         string
	MathQuestion string
}

// FormAction is where the form for a page posts to.
func FormAction(pageID int) string {
	return "/comments/" + strconv.Itoa(pageID)
}

// PostCommentForm builds the form for a page. When math protection is on a
// fresh question is asked and its answer kept in the session.
func (s *Service) PostCommentForm(w http.ResponseWriter, r *http.Request, pageID int) (Form, error) {
	form := Form{
		Action:   FormAction(pageID),
		ParentID: pageID,
	}
	if c, err := r.Cookie(NameCookie); err == nil {
		if name, err := url.QueryUnescape(c.Value); err == nil {
			form.Name = name
		}
	}

	if s.Options.MathEnabled {
		q := spam.NewMathQuestion()
		session, _ := s.Sessions.Get(r, sessionName)
		session.Values[mathAnswerKey] = q.Answer()
		if err := session.Save(r, w); err != nil {
			return form, fmt.Errorf("save math answer: %w", err)
		}
		form.MathQuestion = "Spam protection question: " + q.Text()
	}
	return form, nil
}

// Listing is one page of comments.
type Listing struct {
	Comments  []models.Comment
	Total     int
	Start     int
	PerPage   int
	ShowSpam  bool
	PrevStart int
	NextStart int
	HasPrev   bool
	HasNext   bool
}

// Comments lists the comments of a page starting at offset start. Spam is
// only included with showSpam; comments awaiting moderation never are.
func (s *Service) Comments(ctx context.Context, pageID, start int, showSpam bool) (Listing, error) {
	if start < 0 {
		start = 0
	}
	comments, total, err := s.Repo.List(ctx, ListFilter{
		PageID:      pageID,
		IncludeSpam: showSpam,
		Offset:      start,
		Limit:       s.Options.PerPage,
	})
	if err != nil {
		return Listing{}, err
	}

	l := Listing{
		Comments: comments,
		Total:    total,
		Start:    start,
		PerPage:  s.Options.PerPage,
		ShowSpam: showSpam,
		HasPrev:  start > 0,
		HasNext:  start+s.Options.PerPage < total,
	}
	l.PrevStart = max(start-s.Options.PerPage, 0)
	l.NextStart = start + s.Options.PerPage
	return l, nil
}

// RSSLink is the absolute URL of a page's comment feed.
func (s *Service) RSSLink(pageID int) string {
	return s.Options.BaseURL + "comments/rss?pageid=" + strconv.Itoa(pageID)
}

// SpamContact is the admin address with the @ obscured.
func (s *Service) SpamContact() string {
	return strings.ReplaceAll(s.Options.AdminEmail, "@", " _(at)_")
}

// Input is a submitted comment with request metadata.
type Input struct {
	PageID    int
	Name      string
	Comment   string
	Math      string
	IP        string
	UserAgent string
	Referrer  string
	Permalink string
}

// Outcome is what happened to a submitted comment.
type Outcome int

const (
	Saved Outcome = iota
	Spam
	WrongAnswer
	Throttled
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Spam:
		return "spam"
	case WrongAnswer:
		return "wrong-answer"
	case Throttled:
		return "throttled"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

// Result reports the outcome of Post and the stored comment, if any.
type Result struct {
	Outcome Outcome
	Comment models.Comment
	Stored  bool
}

// Post runs a submitted comment through the throttle, Akismet and the
// math question, then stores it.
func (s *Service) Post(w http.ResponseWriter, r *http.Request, in Input) (Result, error) {
	ctx := r.Context()
	in.Name = strings.TrimSpace(in.Name)
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Name == "" || in.Comment == "" {
		return Result{Outcome: Invalid}, nil
	}

	if s.Limiter != nil && in.IP != "" {
		ok, err := s.Limiter.Allow(ctx, in.IP)
		if err != nil {
			s.Logger.Warn("comment throttle unavailable", zap.Error(err))
		} else if !ok {
			return Result{Outcome: Throttled}, nil
		}
	}

	comment := models.Comment{
		PageID:   in.PageID,
		Name:     in.Name,
		Comment:  in.Comment,
		AuthorIP: in.IP,
	}

	if s.Akismet != nil {
		isSpam, err := s.Akismet.CheckComment(ctx, spamComment(in))
		if err != nil {
			// Akismet didn't work, continue without the spam check.
			s.Logger.Warn("akismet check failed", zap.Error(err))
		} else if isSpam {
			res := Result{Outcome: Spam, Comment: comment}
			if s.Options.SaveSpam {
				res.Comment.IsSpam = true
				if err := s.Repo.Create(ctx, &res.Comment); err != nil {
					return res, err
				}
				res.Stored = true
			}
			s.Logger.Info("comment rejected as spam", zap.Int("page_id", in.PageID), zap.String("ip", in.IP))
			return res, nil
		}
	}

	if s.Options.MathEnabled {
		ok, err := s.checkMath(w, r, in.Math)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{Outcome: WrongAnswer}, nil
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     NameCookie,
		Value:    url.QueryEscape(in.Name),
		Path:     "/",
		MaxAge:   nameCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	comment.IsSpam = false
	comment.NeedsModeration = s.Options.ModerationEnabled
	if err := s.Repo.Create(ctx, &comment); err != nil {
		return Result{}, err
	}
	return Result{Outcome: Saved, Comment: comment, Stored: true}, nil
}

// checkMath compares answer with the one stored for this session. The
// stored answer is consumed either way.
func (s *Service) checkMath(w http.ResponseWriter, r *http.Request, answer string) (bool, error) {
	session, _ := s.Sessions.Get(r, sessionName)
	expected, ok := session.Values[mathAnswerKey].(int)
	if !ok {
		return false, nil
	}
	delete(session.Values, mathAnswerKey)
	if err := session.Save(r, w); err != nil {
		return false, fmt.Errorf("clear math answer: %w", err)
	}
	return spam.CorrectAnswer(expected, answer), nil
}

func spamComment(in Input) spam.Comment {
	return spam.Comment{
		UserIP:    in.IP,
		UserAgent: in.UserAgent,
		Referrer:  in.Referrer,
		Permalink: in.Permalink,
		Author:    in.Name,
		Content:   in.Comment,
	}
}

// Moderation actions.
const (
	ActionApprove = "approve"
	ActionSpam    = "spam"
	ActionHam     = "ham"
	ActionDelete  = "delete"
)

// Moderate applies an admin action to a comment. Spam and ham verdicts are
// reported back to Akismet when it is enabled.
func (s *Service) Moderate(ctx context.Context, id int, action string) error {
	c, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	switch action {
	case ActionApprove:
		return s.Repo.Approve(ctx, id)
	case ActionDelete:
		return s.Repo.Delete(ctx, id)
	case ActionSpam, ActionHam:
		isSpam := action == ActionSpam
		if err := s.Repo.SetSpam(ctx, id, isSpam); err != nil {
			return err
		}
		if s.Akismet != nil && c.IsSpam != isSpam {
			sc := spam.Comment{UserIP: c.AuthorIP, Author: c.Name, Content: c.Comment}
			if isSpam {
				err = s.Akismet.SubmitSpam(ctx, sc)
			} else {
				err = s.Akismet.SubmitHam(ctx, sc)
			}
			if err != nil {
				s.Logger.Warn("akismet feedback failed", zap.String("action", action), zap.Int("comment_id", id), zap.Error(err))
			}
		}
		return nil
	}
	return ErrUnknownAction
}

// Feed renders the RSS feed of a page's visible comments.
func (s *Service) Feed(ctx context.Context, p models.Page, pageLink string) (string, error) {
	comments, _, err := s.Repo.List(ctx, ListFilter{PageID: p.ID, Limit: s.Options.PerPage * 2})
	if err != nil {
		return "", err
	}

	feed := &feeds.Feed{
		Title:       "Comments on " + p.Title,
		Link:        &feeds.Link{Href: pageLink},
		Description: "Page comments",
		Created:     time.Now(),
	}
	for _, c := range comments {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          fmt.Sprintf("%s#comment-%d", pageLink, c.ID),
			Title:       "Comment by " + c.Name,
			Link:        &feeds.Link{Href: fmt.Sprintf("%s#comment-%d", pageLink, c.ID)},
			Author:      &feeds.Author{Name: c.Name},
			Description: c.Comment,
			Created:     c.CreatedAt,
		})
	}
	return feed.ToRss()
}
