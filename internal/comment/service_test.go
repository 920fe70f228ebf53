package comment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"folio/internal/comment/spam"
	"folio/internal/models"
	"folio/internal/testutil"
	"folio/internal/throttle"
)

type fakeAkismet struct {
	spam      bool
	err       error
	checked   []spam.Comment
	submitted []string
}

func (f *fakeAkismet) CheckComment(_ context.Context, c spam.Comment) (bool, error) {
	f.checked = append(f.checked, c)
	return f.spam, f.err
}

func (f *fakeAkismet) SubmitSpam(_ context.Context, c spam.Comment) error {
	f.submitted = append(f.submitted, "spam:"+c.Author)
	return nil
}

func (f *fakeAkismet) SubmitHam(_ context.Context, c spam.Comment) error {
	f.submitted = append(f.submitted, "ham:"+c.Author)
	return nil
}

type env struct {
	svc    *Service
	repo   *Repository
	pageID int
}

func newEnv(t *testing.T, opts Options, akismet SpamChecker, limiter throttle.Limiter) env {
	t.Helper()
	db := testutil.NewDB(t)
	siloID := testutil.SeedSilo(t, db, "docs")
	res, err := db.Exec("INSERT INTO pages (silo_id, slug, title, current_revision_id) VALUES (?, 'home', 'Home', -1)", siloID)
	require.NoError(t, err)
	pageID, _ := res.LastInsertId()

	if opts.AdminEmail == "" {
		opts.AdminEmail = "admin@example.com"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://cms.test/"
	}
	repo := NewRepository(db)
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	return env{
		svc:    NewService(repo, akismet, limiter, store, opts, zap.NewNop()),
		repo:   repo,
		pageID: int(pageID),
	}
}

func postRequest(cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/comments/1", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func (e env) input(name, text string) Input {
	return Input{PageID: e.pageID, Name: name, Comment: text, IP: "192.0.2.1"}
}

func TestPostSavesComment(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)
	rec := httptest.NewRecorder()

	res, err := e.svc.Post(rec, postRequest(), e.input("Ada", "Lovely page"))
	require.NoError(t, err)
	assert.Equal(t, Saved, res.Outcome)
	assert.True(t, res.Stored)
	assert.False(t, res.Comment.IsSpam)
	assert.False(t, res.Comment.NeedsModeration)

	var nameCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == NameCookie {
			nameCookie = c
		}
	}
	require.NotNil(t, nameCookie)
	assert.Equal(t, "Ada", nameCookie.Value)
}

func TestPostInvalid(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)

	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("  ", "text"))
	require.NoError(t, err)
	assert.Equal(t, Invalid, res.Outcome)
}

func TestPostModeration(t *testing.T) {
	e := newEnv(t, Options{ModerationEnabled: true}, nil, nil)

	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("Ada", "Hold me"))
	require.NoError(t, err)
	assert.True(t, res.Comment.NeedsModeration)

	listing, err := e.svc.Comments(context.Background(), e.pageID, 0, false)
	require.NoError(t, err)
	assert.Empty(t, listing.Comments, "pending comments are not public")
}

func TestPostAkismetSpamSaved(t *testing.T) {
	ak := &fakeAkismet{spam: true}
	e := newEnv(t, Options{SaveSpam: true, MathEnabled: true}, ak, nil)

	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("Bot", "cheap pills"))
	require.NoError(t, err)
	assert.Equal(t, Spam, res.Outcome)
	assert.True(t, res.Stored)
	assert.True(t, res.Comment.IsSpam)
	require.Len(t, ak.checked, 1)
	assert.Equal(t, "Bot", ak.checked[0].Author)
	assert.Equal(t, "cheap pills", ak.checked[0].Content)

	listing, err := e.svc.Comments(context.Background(), e.pageID, 0, true)
	require.NoError(t, err)
	assert.Len(t, listing.Comments, 1)

	listing, err = e.svc.Comments(context.Background(), e.pageID, 0, false)
	require.NoError(t, err)
	assert.Empty(t, listing.Comments)
}

func TestPostAkismetSpamDiscarded(t *testing.T) {
	e := newEnv(t, Options{SaveSpam: false}, &fakeAkismet{spam: true}, nil)

	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("Bot", "cheap pills"))
	require.NoError(t, err)
	assert.Equal(t, Spam, res.Outcome)
	assert.False(t, res.Stored)

	listing, err := e.svc.Comments(context.Background(), e.pageID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, listing.Comments)
}

func TestPostAkismetErrorContinues(t *testing.T) {
	e := newEnv(t, Options{}, &fakeAkismet{err: errors.New("timeout")}, nil)

	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("Ada", "Still here"))
	require.NoError(t, err)
	assert.Equal(t, Saved, res.Outcome)
}

func TestMathQuestionFlow(t *testing.T) {
	e := newEnv(t, Options{MathEnabled: true}, nil, nil)

	formRec := httptest.NewRecorder()
	form, err := e.svc.PostCommentForm(formRec, httptest.NewRequest(http.MethodGet, "/docs/wiki/home", nil), e.pageID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(form.MathQuestion, "Spam protection question: What is "))
	assert.Equal(t, FormAction(e.pageID), form.Action)
	cookies := formRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	session, err := e.svc.Sessions.Get(postRequest(cookies...), sessionName)
	require.NoError(t, err)
	answer, ok := session.Values[mathAnswerKey].(int)
	require.True(t, ok)

	in := e.input("Ada", "I can add")
	in.Math = "999"
	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(cookies...), in)
	require.NoError(t, err)
	assert.Equal(t, WrongAnswer, res.Outcome)

	// The cookie store is client side, so the first cookie still holds the answer.
	in.Math = strconv.Itoa(answer)
	res, err = e.svc.Post(httptest.NewRecorder(), postRequest(cookies...), in)
	require.NoError(t, err)
	assert.Equal(t, Saved, res.Outcome)
}

func TestMathWithoutQuestionFails(t *testing.T) {
	e := newEnv(t, Options{MathEnabled: true}, nil, nil)

	in := e.input("Ada", "No form")
	in.Math = "4"
	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), in)
	require.NoError(t, err)
	assert.Equal(t, WrongAnswer, res.Outcome)
}

func TestFormPrefillsName(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: NameCookie, Value: url.QueryEscape("Ada L")})

	form, err := e.svc.PostCommentForm(httptest.NewRecorder(), req, e.pageID)
	require.NoError(t, err)
	assert.Equal(t, "Ada L", form.Name)
	assert.Empty(t, form.MathQuestion)
}

func TestPostThrottled(t *testing.T) {
	e := newEnv(t, Options{}, nil, throttle.NewMemoryLimiter(1, time.Minute))

	res, err := e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("Ada", "one"))
	require.NoError(t, err)
	assert.Equal(t, Saved, res.Outcome)

	res, err = e.svc.Post(httptest.NewRecorder(), postRequest(), e.input("Ada", "two"))
	require.NoError(t, err)
	assert.Equal(t, Throttled, res.Outcome)
}

func TestCommentsPagination(t *testing.T) {
	e := newEnv(t, Options{PerPage: 2}, nil, nil)
	ctx := context.Background()
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, e.repo.Create(ctx, &models.Comment{PageID: e.pageID, Name: "n", Comment: text}))
	}

	first, err := e.svc.Comments(ctx, e.pageID, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Total)
	require.Len(t, first.Comments, 2)
	assert.Equal(t, "c", first.Comments[0].Comment, "newest first")
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrev)
	assert.Equal(t, 2, first.NextStart)

	second, err := e.svc.Comments(ctx, e.pageID, 2, false)
	require.NoError(t, err)
	require.Len(t, second.Comments, 1)
	assert.Equal(t, "a", second.Comments[0].Comment)
	assert.False(t, second.HasNext)
	assert.True(t, second.HasPrev)
	assert.Equal(t, 0, second.PrevStart)
}

func TestCommentsShowSpam(t *testing.T) {
	e := newEnv(t, Options{PerPage: 10}, nil, nil)
	ctx := context.Background()
	require.NoError(t, e.repo.Create(ctx, &models.Comment{PageID: e.pageID, Name: "Ada", Comment: "ham"}))
	require.NoError(t, e.repo.Create(ctx, &models.Comment{PageID: e.pageID, Name: "Bot", Comment: "spam", IsSpam: true}))
	require.NoError(t, e.repo.Create(ctx, &models.Comment{PageID: e.pageID, Name: "New", Comment: "held", NeedsModeration: true}))

	public, err := e.svc.Comments(ctx, e.pageID, 0, false)
	require.NoError(t, err)
	require.Len(t, public.Comments, 1)
	assert.Equal(t, "ham", public.Comments[0].Comment)
	assert.False(t, public.ShowSpam)

	all, err := e.svc.Comments(ctx, e.pageID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	require.Len(t, all.Comments, 2)
	assert.Equal(t, "spam", all.Comments[0].Comment)
	assert.True(t, all.Comments[0].IsSpam)
	assert.True(t, all.ShowSpam)
}

func TestRSSLinkAndSpamContact(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)

	assert.Equal(t, "http://cms.test/comments/rss?pageid=7", e.svc.RSSLink(7))
	assert.Equal(t, "admin _(at)_example.com", e.svc.SpamContact())
}

func TestModerate(t *testing.T) {
	ak := &fakeAkismet{}
	e := newEnv(t, Options{ModerationEnabled: true}, ak, nil)
	ctx := context.Background()
	c := models.Comment{PageID: e.pageID, Name: "Eve", Comment: "hmm", NeedsModeration: true}
	require.NoError(t, e.repo.Create(ctx, &c))

	require.NoError(t, e.svc.Moderate(ctx, c.ID, ActionSpam))
	got, err := e.repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSpam)

	require.NoError(t, e.svc.Moderate(ctx, c.ID, ActionHam))
	got, err = e.repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSpam)
	assert.False(t, got.NeedsModeration)
	assert.Equal(t, []string{"spam:Eve", "ham:Eve"}, ak.submitted)

	assert.ErrorIs(t, e.svc.Moderate(ctx, c.ID, "frobnicate"), ErrUnknownAction)

	require.NoError(t, e.svc.Moderate(ctx, c.ID, ActionDelete))
	assert.ErrorIs(t, e.svc.Moderate(ctx, c.ID, ActionApprove), ErrNotFound)
}

func TestFeed(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)
	ctx := context.Background()
	require.NoError(t, e.repo.Create(ctx, &models.Comment{PageID: e.pageID, Name: "Ada", Comment: "Great"}))
	require.NoError(t, e.repo.Create(ctx, &models.Comment{PageID: e.pageID, Name: "Spammer", Comment: "buy", IsSpam: true}))

	rss, err := e.svc.Feed(ctx, models.Page{ID: e.pageID, Title: "Home"}, "http://cms.test/docs/wiki/home")
	require.NoError(t, err)
	assert.Contains(t, rss, "<rss")
	assert.Contains(t, rss, "Comments on Home")
	assert.Contains(t, rss, "Comment by Ada")
	assert.NotContains(t, rss, "Spammer")
}
