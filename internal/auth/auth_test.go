package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"folio/internal/database"
)

const testSessionKey = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	store, err := NewSessionStore(testSessionKey)
	require.NoError(t, err)
	return NewService(NewRepository(db), store, zap.NewNop())
}

func TestNewSessionStoreRejectsShortKey(t *testing.T) {
	_, err := NewSessionStore("short")
	assert.Error(t, err)
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "ada", "Ada", "s3cret", true)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.True(t, user.IsAdmin)

	_, err = svc.RegisterUser(ctx, "ada", "Ada again", "other", false)
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := svc.Authenticate(ctx, "ada", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)

	_, err = svc.Authenticate(ctx, "ada", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSessionRoundTrip(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RegisterUser(context.Background(), "grace", "", "hopper", false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	user, err := svc.Login(rec, req, "grace", "hopper")
	require.NoError(t, err)
	assert.Equal(t, "grace", user.DisplayName)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		next.AddCookie(c)
	}
	current := svc.GetCurrentUser(next)
	require.NotNil(t, current)
	assert.Equal(t, user.ID, current.ID)
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := svc.WithUser(svc.RequireAdmin(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reports", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
}
