package repository

import (
	"context"
	"regexp"
	"testing"

	"readit/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubRepository_TopByPostCount(t *testing.T) {
	f := newFixture(t)
	repo := NewSubRepository(f.db)
	ctx := context.Background()

	alice := f.user("alice")
	golang, rust, zig := f.sub("golang", alice), f.sub("rust", alice), f.sub("zig", alice)
	f.sub("empty", alice)
	for i := 0; i < 3; i++ {
		f.post(rust, alice)
	}
	f.post(golang, alice)
	f.post(zig, alice)

	top, err := repo.TopByPostCount(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "rust", top[0].Name)
	assert.Equal(t, int64(3), top[0].PostCount)
	assert.Equal(t, "golang", top[1].Name, "ties are broken by name")
	assert.Equal(t, "zig", top[2].Name)

	all, err := repo.TopByPostCount(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "empty", all[3].Name)
	assert.Zero(t, all[3].PostCount)
	assert.Equal(t, "EMPTY", all[3].Title)
}

func TestSubRepository_NameTakenIgnoresCase(t *testing.T) {
	f := newFixture(t)
	repo := NewSubRepository(f.db)
	ctx := context.Background()
	f.sub("golang", f.user("alice"))

	taken, err := repo.NameTaken(ctx, "GoLang")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.NameTaken(ctx, "rust")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestSubRepository_CreateDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	repo := NewSubRepository(f.db)
	alice := f.user("alice")
	require.NoError(t, repo.Create(context.Background(), &models.Sub{Name: "golang", Title: "Go", UserID: alice.ID}))

	err := repo.Create(context.Background(), &models.Sub{Name: "golang", Title: "Go again", UserID: alice.ID})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeConflict, appErr.Code)
	assert.Contains(t, appErr.Fields, "name")
}

func TestSubRepository_TopByPostCountQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSubRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT s.name, s.title, s.image_urn, COUNT(p.id) AS post_count FROM subs AS s LEFT JOIN posts p ON p.sub_name = s.name GROUP BY s.id, s.name, s.title, s.image_urn ORDER BY post_count DESC,s.name ASC LIMIT $1`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"name", "title", "image_urn", "post_count"}).
			AddRow("golang", "Go", "go.png", 4))

	top, err := repo.TopByPostCount(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.NotNil(t, top[0].ImageURN)
	assert.Equal(t, "go.png", *top[0].ImageURN)
	assert.NoError(t, mock.ExpectationsWereMet())
}
