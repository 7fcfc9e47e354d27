package repository

import (
	"fmt"
	"strings"
	"testing"

	"readit/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Sub{}, &models.Post{}, &models.Comment{}, &models.Vote{}))
	return db
}

type fixture struct {
	db *gorm.DB
	t  *testing.T
	n  int
}

func newFixture(t *testing.T) *fixture {
	return &fixture{db: setupSQLiteDB(t), t: t}
}

func (f *fixture) user(name string) *models.User {
	u := &models.User{Username: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

func (f *fixture) sub(name string, owner *models.User) *models.Sub {
	s := &models.Sub{Name: name, Title: strings.ToUpper(name), UserID: owner.ID}
	require.NoError(f.t, f.db.Create(s).Error)
	return s
}

func (f *fixture) post(sub *models.Sub, author *models.User) *models.Post {
	f.n++
	p := &models.Post{
		Identifier: fmt.Sprintf("p%d", f.n),
		Title:      fmt.Sprintf("Post %d", f.n),
		Slug:       fmt.Sprintf("post_%d", f.n),
		SubName:    sub.Name,
		UserID:     author.ID,
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

func (f *fixture) comment(post *models.Post, author *models.User) *models.Comment {
	f.n++
	c := &models.Comment{Identifier: fmt.Sprintf("c%d", f.n), Body: "reply", PostID: post.ID, UserID: author.ID}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

// stored reads voter's record for target straight from the table.
func (f *fixture) stored(voter *models.User, target models.VoteTarget) *models.Vote {
	var votes []models.Vote
	require.NoError(f.t, f.db.
		Where("user_id = ?", voter.ID).
		Where(target.Kind.Column()+" = ?", target.ID).
		Find(&votes).Error)
	require.LessOrEqual(f.t, len(votes), 1)
	if len(votes) == 0 {
		return nil
	}
	return &votes[0]
}

func postTarget(p *models.Post) models.VoteTarget {
	return models.VoteTarget{Kind: models.TargetPost, ID: p.ID}
}

func commentTarget(c *models.Comment) models.VoteTarget {
	return models.VoteTarget{Kind: models.TargetComment, ID: c.ID}
}
