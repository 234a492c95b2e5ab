package user

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/user-registry/internal/infrastructure/database"
)

func newSQLiteRepo(t *testing.T) (*SQLRepository, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite3", filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = database.Migrate(ctx, db, "sqlite3")
	require.NoError(t, err)
	return NewSQLRepository(db), db
}

func TestSQLRepository_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	pic := "ann.png"
	created, err := repo.Create(ctx, User{Name: "Ann", Email: "ann@example.com", Phone: "111", ProfilePicture: &pic})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@example.com", got.Email)
	require.NotNil(t, got.ProfilePicture)
	assert.Equal(t, "ann.png", *got.ProfilePicture)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.Create(ctx, User{Name: "Other", Email: "ann@example.com", Phone: "222"})
	assert.ErrorIs(t, err, ErrEmailExists)

	require.NoError(t, repo.Update(ctx, created.ID, User{Name: "Ann B", Email: "ann.b@example.com", Phone: "333"}))
	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann B", got.Name)
	assert.Equal(t, "333", got.Phone)
	require.NotNil(t, got.ProfilePicture, "picture must survive an update without a file")
	assert.Equal(t, "ann.png", *got.ProfilePicture)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, created.ID, User{Name: "x", Email: "x@example.com", Phone: "1"}), ErrNotFound)
}

func TestSQLRepository_SQLiteUpdateConflict(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSQLiteRepo(t)

	a, err := repo.Create(ctx, User{Name: "Ann", Email: "ann@example.com", Phone: "1"})
	require.NoError(t, err)
	b, err := repo.Create(ctx, User{Name: "Bea", Email: "bea@example.com", Phone: "2"})
	require.NoError(t, err)

	err = repo.Update(ctx, b.ID, User{Name: "Bea", Email: "ann@example.com", Phone: "2"})
	assert.True(t, errors.Is(err, ErrEmailExists), "got %v", err)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestSQLRepository_SQLiteListOrder(t *testing.T) {
	ctx := context.Background()
	repo, db := newSQLiteRepo(t)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	var ids []int
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u, err := repo.Create(ctx, User{Name: "n", Email: email, Phone: "1"})
		require.NoError(t, err)
		ids = append(ids, u.ID)
	}

	stamps := []string{"2026-01-01 10:00:00", "2026-01-03 10:00:00", "2026-01-02 10:00:00"}
	for i, id := range ids {
		_, err := db.ExecContext(ctx, `UPDATE users SET created_at = $1 WHERE id = $2`, stamps[i], id)
		require.NoError(t, err)
	}

	users, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []int{ids[1], ids[2], ids[0]}, []int{users[0].ID, users[1].ID, users[2].ID})
}
