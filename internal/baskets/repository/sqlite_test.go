package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	basketserrors "sharebasket/internal/baskets/errors"
	"sharebasket/pkg/config"
	"sharebasket/pkg/db/sqlite"
	"sharebasket/pkg/model"
)

func newSQLiteRepo(t *testing.T) BasketRepository {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "baskets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
	return NewSQLiteBasketRepository(cfg, db)
}

func TestSQLiteBasketRepository_CreateAndFind(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	b := &model.Basket{Code: "AB12CD", Participants: []string{"Alice"}}
	require.NoError(t, repo.Create(ctx, b))
	assert.False(t, b.CreatedAt.IsZero())

	got, err := repo.FindByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", got.Code)
	assert.Equal(t, []string{"Alice"}, got.Participants)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLiteBasketRepository_EmptyBasket(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Basket{Code: "EMPTY1"}))

	got, err := repo.FindByCode(ctx, "EMPTY1")
	require.NoError(t, err)
	assert.NotNil(t, got.Participants)
	assert.Empty(t, got.Participants)
}

func TestSQLiteBasketRepository_CodeTaken(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Basket{Code: "AB12CD"}))
	err := repo.Create(ctx, &model.Basket{Code: "AB12CD", Participants: []string{"Mallory"}})
	assert.ErrorIs(t, err, basketserrors.ErrCodeTaken)

	got, err := repo.FindByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Empty(t, got.Participants, "failed create must not leak participants")
}

func TestSQLiteBasketRepository_FindUnknown(t *testing.T) {
	repo := newSQLiteRepo(t)
	_, err := repo.FindByCode(context.Background(), "ZZZZZZ")
	assert.ErrorIs(t, err, basketserrors.ErrNotFound)
}

func TestSQLiteBasketRepository_AddParticipant(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.Basket{Code: "AB12CD"}))

	require.NoError(t, repo.AddParticipant(ctx, "AB12CD", "Bob"))
	require.NoError(t, repo.AddParticipant(ctx, "AB12CD", "Alice"))
	require.NoError(t, repo.AddParticipant(ctx, "AB12CD", "Bob"))

	got, err := repo.FindByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob", "Alice"}, got.Participants)

	err = repo.AddParticipant(ctx, "NOPE99", "Bob")
	assert.ErrorIs(t, err, basketserrors.ErrNotFound)
}

func TestSQLiteBasketRepository_ConcurrentJoins(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.Basket{Code: "AB12CD"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AddParticipant(ctx, "AB12CD", "Carol"))
		}()
	}
	wg.Wait()

	got, err := repo.FindByCode(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol"}, got.Participants)
}
