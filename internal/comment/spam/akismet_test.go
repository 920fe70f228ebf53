package spam

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAkismetServer(t *testing.T, handler http.HandlerFunc) *Akismet {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAkismet("k3y", "http://example.org/", srv.URL)
}

func TestCheckComment(t *testing.T) {
	a := newAkismetServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/comment-check", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "k3y", r.PostForm.Get("api_key"))
		assert.Equal(t, "http://example.org/", r.PostForm.Get("blog"))
		assert.Equal(t, "comment", r.PostForm.Get("comment_type"))
		if r.PostForm.Get("comment_author") == "viagra-test-123" {
			w.Write([]byte("true"))
			return
		}
		w.Write([]byte("false"))
	})
	ctx := context.Background()

	spam, err := a.CheckComment(ctx, Comment{Author: "viagra-test-123", Content: "buy"})
	require.NoError(t, err)
	assert.True(t, spam)

	spam, err = a.CheckComment(ctx, Comment{Author: "Ada", Content: "Nice page"})
	require.NoError(t, err)
	assert.False(t, spam)
}

func TestCheckCommentInvalidResponse(t *testing.T) {
	a := newAkismetServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-akismet-debug-help", "Empty \"blog\" value")
		w.Write([]byte("invalid"))
	})

	_, err := a.CheckComment(context.Background(), Comment{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Empty")
}

func TestCheckCommentServerError(t *testing.T) {
	a := newAkismetServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := a.CheckComment(context.Background(), Comment{})
	assert.Error(t, err)
}

func TestVerifyKeyAndSubmit(t *testing.T) {
	var paths []string
	a := newAkismetServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/verify-key" {
			w.Write([]byte("valid"))
			return
		}
		w.Write([]byte("Thanks for making the web a better place."))
	})
	ctx := context.Background()

	require.NoError(t, a.VerifyKey(ctx))
	require.NoError(t, a.SubmitSpam(ctx, Comment{Author: "x"}))
	require.NoError(t, a.SubmitHam(ctx, Comment{Author: "y"}))
	assert.Equal(t, []string{"/verify-key", "/submit-spam", "/submit-ham"}, paths)
}

func TestVerifyKeyInvalid(t *testing.T) {
	a := newAkismetServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid"))
	})

	assert.ErrorIs(t, a.VerifyKey(context.Background()), ErrInvalidKey)
}
