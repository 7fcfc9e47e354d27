package service

import (
	"context"
	"testing"

	"readit/internal/cache"
	"readit/internal/models"
	"readit/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommunityService(e *env, store *cache.Store) *CommunityService {
	return NewCommunityService(e.subs, e.posts, e.perspective, store, images, 0)
}

func TestTopCommunities_OrderAndImages(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	a, b, c := e.sub("alpha", alice), e.sub("bravo", alice), e.sub("charlie", alice)
	urn := "bravo.png"
	require.NoError(t, e.db.Model(b).Update("image_urn", urn).Error)
	for i := 0; i < 3; i++ {
		e.post(b, alice)
		e.post(a, alice)
	}
	e.post(c, alice)

	svc := newCommunityService(e, nil)
	for i := 0; i < 3; i++ {
		top, err := svc.TopCommunities(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, []models.TopSub{
			{Title: "About alpha", Name: "alpha", ImageURL: models.DefaultSubImageURL, PostCount: 3},
			{Title: "About bravo", Name: "bravo", ImageURL: "http://localhost:4000/images/bravo.png", PostCount: 3},
			{Title: "About charlie", Name: "charlie", ImageURL: models.DefaultSubImageURL, PostCount: 1},
		}, top)
	}
}

func TestTopCommunities_Limits(t *testing.T) {
	var seen []int
	stub := &subRepoStub{
		topFn: func(_ context.Context, limit int) ([]repository.SubRanking, error) {
			seen = append(seen, limit)
			return nil, nil
		},
	}
	svc := NewCommunityService(stub, nil, nil, nil, images, 0)
	ctx := context.Background()

	for _, limit := range []int{0, -3, 12, 1000} {
		top, err := svc.TopCommunities(ctx, limit)
		require.NoError(t, err)
		assert.NotNil(t, top)
	}
	assert.Equal(t, []int{DefaultTopCommunities, DefaultTopCommunities, 12, MaxTopCommunities}, seen)

	seen = nil
	configured := NewCommunityService(stub, nil, nil, nil, images, 3)
	_, err := configured.TopCommunities(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, seen)
}

func TestTopCommunities_CachedAndInvalidated(t *testing.T) {
	e := newEnv(t)
	mr, store := newTestStore(t)
	alice := e.user("alice")
	golang := e.sub("golang", alice)
	e.post(golang, alice)

	svc := newCommunityService(e, store)
	posts := NewPostService(e.posts, e.comments, e.subs, e.perspective, store)
	ctx := context.Background()

	top, err := svc.TopCommunities(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.True(t, mr.Exists(cache.TopSubsKey(5)))

	e.post(golang, alice)
	top, err = svc.TopCommunities(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), top[0].PostCount, "served from cache")

	_, err = posts.Create(ctx, CreatePostInput{UserID: alice.ID, SubName: "golang", Title: "Fresh"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.TopSubsKey(5)))

	top, err = svc.TopCommunities(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), top[0].PostCount)

	_, err = svc.Create(ctx, CreateCommunityInput{UserID: alice.ID, Name: "rust", Title: "Rust"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.TopSubsKey(5)))

	top, err = svc.TopCommunities(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, top, 2)
	e.vote(alice, postTarget(e.post(golang, alice)), 1)
	assert.True(t, mr.Exists(cache.TopSubsKey(5)), "votes leave the ranking cached")
}

func TestCommunityService_Create(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	svc := newCommunityService(e, nil)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateCommunityInput{UserID: alice.ID, Name: "golang", Title: "Go", Description: "gophers"})
	require.NoError(t, err)
	assert.Equal(t, "golang", view.Name)
	assert.Equal(t, "alice", view.Username)
	assert.Equal(t, models.DefaultSubImageURL, view.ImageURL)

	_, err = svc.Create(ctx, CreateCommunityInput{UserID: alice.ID, Name: "GoLang", Title: "Go again"})
	appErr := assertAppError(t, err, models.CodeConflict)
	assert.Contains(t, appErr.Fields, "name")

	_, err = svc.Create(ctx, CreateCommunityInput{UserID: alice.ID})
	appErr = assertAppError(t, err, models.CodeValidation)
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "title")
}

func TestCommunityService_Get(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user("alice"), e.user("bob")
	golang := e.sub("golang", alice)
	post := e.post(golang, alice)
	e.post(e.sub("rust", alice), alice)
	e.vote(bob, postTarget(post), -1)

	svc := newCommunityService(e, nil)
	view, err := svc.Get(context.Background(), "golang", bob.ID)
	require.NoError(t, err)
	require.Len(t, view.Posts, 1)
	assert.Equal(t, int64(-1), view.Posts[0].VoteScore)
	assert.Equal(t, int8Ptr(-1), view.Posts[0].UserVote)

	_, err = svc.Get(context.Background(), "missing", 0)
	assertAppError(t, err, models.CodeNotFound)
}
