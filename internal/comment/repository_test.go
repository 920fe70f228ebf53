package comment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/models"
)

func TestRepositoryListModeration(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)
	ctx := context.Background()

	visible := models.Comment{PageID: e.pageID, Name: "a", Comment: "fine"}
	spammy := models.Comment{PageID: e.pageID, Name: "b", Comment: "buy", IsSpam: true}
	pending := models.Comment{PageID: e.pageID, Name: "c", Comment: "wait", NeedsModeration: true}
	for _, c := range []*models.Comment{&visible, &spammy, &pending} {
		require.NoError(t, e.repo.Create(ctx, c))
		assert.NotZero(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	}

	queue, err := e.repo.ListModeration(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, pending.ID, queue[0].ID)
	assert.Equal(t, spammy.ID, queue[1].ID)

	require.NoError(t, e.repo.Approve(ctx, pending.ID))
	queue, err = e.repo.ListModeration(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, queue, 1)

	all, total, err := e.repo.List(ctx, ListFilter{PageID: e.pageID, IncludeSpam: true, IncludePending: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)
}

func TestRepositoryMissing(t *testing.T) {
	e := newEnv(t, Options{}, nil, nil)
	ctx := context.Background()

	_, err := e.repo.FindByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.repo.Approve(ctx, 42), ErrNotFound)
	assert.ErrorIs(t, e.repo.SetSpam(ctx, 42, true), ErrNotFound)
	assert.ErrorIs(t, e.repo.Delete(ctx, 42), ErrNotFound)
}
