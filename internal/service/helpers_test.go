package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"readit/internal/cache"
	"readit/internal/models"
	"readit/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var images = models.ImageResolver{BaseURL: "http://localhost:4000"}

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_fk=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Sub{}, &models.Post{}, &models.Comment{}, &models.Vote{}))
	return db
}

func newTestStore(t *testing.T) (*miniredis.Miniredis, *cache.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, cache.NewStore(rdb)
}

// env wires the real repositories over an in-memory database.
type env struct {
	t           *testing.T
	db          *gorm.DB
	users       repository.UserRepository
	subs        repository.SubRepository
	posts       repository.PostRepository
	comments    repository.CommentRepository
	votes       repository.VoteRepository
	perspective *Perspective
	publisher   *recordingPublisher
	voteSvc     *VoteService
	n           int
}

func newEnv(t *testing.T) *env {
	db := setupSQLiteDB(t)
	e := &env{
		t:         t,
		db:        db,
		users:     repository.NewUserRepository(db),
		subs:      repository.NewSubRepository(db),
		posts:     repository.NewPostRepository(db),
		comments:  repository.NewCommentRepository(db),
		votes:     repository.NewVoteRepository(db),
		publisher: &recordingPublisher{},
	}
	e.perspective = NewPerspective(e.votes, e.comments, images)
	e.voteSvc = NewVoteService(e.votes, e.posts, e.comments, e.publisher)
	return e
}

func (e *env) user(name string) *models.User {
	u := &models.User{Username: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(e.t, e.db.Create(u).Error)
	return u
}

func (e *env) sub(name string, owner *models.User) *models.Sub {
	s := &models.Sub{Name: name, Title: "About " + name, UserID: owner.ID}
	require.NoError(e.t, e.db.Create(s).Error)
	return s
}

func (e *env) post(sub *models.Sub, author *models.User) *models.Post {
	e.n++
	p := &models.Post{
		Identifier: fmt.Sprintf("p%d", e.n),
		Title:      fmt.Sprintf("Post %d", e.n),
		Slug:       fmt.Sprintf("post_%d", e.n),
		SubName:    sub.Name,
		UserID:     author.ID,
	}
	require.NoError(e.t, e.db.Create(p).Error)
	p.User = author
	return p
}

func (e *env) comment(post *models.Post, author *models.User) *models.Comment {
	e.n++
	c := &models.Comment{Identifier: fmt.Sprintf("c%d", e.n), Body: "reply", PostID: post.ID, UserID: author.ID}
	require.NoError(e.t, e.db.Create(c).Error)
	c.User = author
	c.Post = post
	return c
}

func (e *env) vote(voter *models.User, target models.VoteTarget, value int) *VoteResult {
	res, err := e.voteSvc.ApplyVote(context.Background(), ApplyVoteInput{VoterID: voter.ID, Target: target, Value: value})
	require.NoError(e.t, err)
	return res
}

func postTarget(p *models.Post) models.VoteTarget {
	return models.VoteTarget{Kind: models.TargetPost, ID: p.ID}
}

func commentTarget(c *models.Comment) models.VoteTarget {
	return models.VoteTarget{Kind: models.TargetComment, ID: c.ID}
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []ScoreUpdate
}

func (p *recordingPublisher) PublishScoreUpdate(_ context.Context, u ScoreUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

func (p *recordingPublisher) last() ScoreUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates[len(p.updates)-1]
}

// voteRepoStub is a stub for repository.VoteRepository.
type voteRepoStub struct {
	upsertFn       func(context.Context, uint, models.VoteTarget, repository.VoteDecision) (*repository.VoteChange, error)
	scoresFn       func(context.Context, models.TargetKind, []uint) (map[uint]int64, error)
	viewerValuesFn func(context.Context, models.TargetKind, uint, []uint) (map[uint]int8, error)
}

func (s *voteRepoStub) Upsert(ctx context.Context, voterID uint, target models.VoteTarget, decide repository.VoteDecision) (*repository.VoteChange, error) {
	return s.upsertFn(ctx, voterID, target, decide)
}
func (s *voteRepoStub) Scores(ctx context.Context, kind models.TargetKind, ids []uint) (map[uint]int64, error) {
	return s.scoresFn(ctx, kind, ids)
}
func (s *voteRepoStub) ViewerValues(ctx context.Context, kind models.TargetKind, voterID uint, ids []uint) (map[uint]int8, error) {
	return s.viewerValuesFn(ctx, kind, voterID, ids)
}

// subRepoStub is a stub for repository.SubRepository.
type subRepoStub struct {
	createFn    func(context.Context, *models.Sub) error
	getByNameFn func(context.Context, string) (*models.Sub, error)
	nameTakenFn func(context.Context, string) (bool, error)
	topFn       func(context.Context, int) ([]repository.SubRanking, error)
}

func (s *subRepoStub) Create(ctx context.Context, sub *models.Sub) error {
	return s.createFn(ctx, sub)
}
func (s *subRepoStub) GetByName(ctx context.Context, name string) (*models.Sub, error) {
	return s.getByNameFn(ctx, name)
}
func (s *subRepoStub) NameTaken(ctx context.Context, name string) (bool, error) {
	return s.nameTakenFn(ctx, name)
}
func (s *subRepoStub) TopByPostCount(ctx context.Context, limit int) ([]repository.SubRanking, error) {
	return s.topFn(ctx, limit)
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func int8Ptr(v int8) *int8 { return &v }
