package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"readit/internal/models"
	"readit/internal/observability"
	"readit/internal/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVote_RepeatingAValueClearsIt(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user("alice"), e.user("bob")
	post := e.post(e.sub("golang", alice), alice)

	e.vote(bob, postTarget(post), 1)
	first := e.vote(alice, postTarget(post), 1)
	assert.Equal(t, observability.OutcomeCreated, first.Outcome)
	assert.Nil(t, first.Previous)
	assert.Equal(t, int64(2), first.Score)

	second := e.vote(alice, postTarget(post), 1)
	assert.Equal(t, observability.OutcomeCleared, second.Outcome)
	assert.Equal(t, int8(0), second.Vote.Value)
	assert.Equal(t, int8Ptr(1), second.Previous)
	assert.Equal(t, int64(1), second.Score, "bob's vote is unaffected")

	stored := &models.Vote{}
	require.NoError(t, e.db.Where("user_id = ? AND post_id = ?", alice.ID, post.ID).First(stored).Error)
	require.NotNil(t, stored, "the record is kept at 0")
	assert.Equal(t, int8(0), stored.Value)
}

func TestApplyVote_ScoreAdditivity(t *testing.T) {
	e := newEnv(t)
	alice, bob, carol := e.user("alice"), e.user("bob"), e.user("carol")
	post := e.post(e.sub("golang", alice), alice)
	target := postTarget(post)

	assert.Equal(t, int64(1), e.vote(alice, target, 1).Score)
	assert.Equal(t, int64(2), e.vote(bob, target, 1).Score)

	flipped := e.vote(bob, target, -1)
	assert.Equal(t, observability.OutcomeChanged, flipped.Outcome)
	assert.Equal(t, int64(0), flipped.Score, "+1 to -1 moves the score by 2")

	assert.Equal(t, int64(-1), e.vote(carol, target, -1).Score)
	assert.Equal(t, int64(0), e.vote(carol, target, 0).Score, "an explicit 0 withdraws carol's vote")

	score, err := e.voteSvc.ScoreOf(context.Background(), models.TargetPost, post.ID)
	require.NoError(t, err)
	var sum int64
	require.NoError(t, e.db.Model(&models.Vote{}).Select("COALESCE(SUM(value), 0)").Where("post_id = ?", post.ID).Scan(&sum).Error)
	assert.Equal(t, sum, score)
}

func TestApplyVote_CommentTargets(t *testing.T) {
	e := newEnv(t)
	alice, bob := e.user("alice"), e.user("bob")
	post := e.post(e.sub("golang", alice), alice)
	comment := e.comment(post, alice)

	res := e.vote(bob, commentTarget(comment), -1)
	assert.Equal(t, int64(-1), res.Score)

	postScore, err := e.voteSvc.ScoreOf(context.Background(), models.TargetPost, post.ID)
	require.NoError(t, err)
	assert.Zero(t, postScore, "comment votes do not count toward the post")

	update := e.publisher.last()
	assert.Equal(t, ScoreUpdate{
		TargetKind:     models.TargetComment,
		Identifier:     comment.Identifier,
		PostIdentifier: post.Identifier,
		VoteScore:      -1,
	}, update)
}

func TestApplyVote_Rejections(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	post := e.post(e.sub("golang", alice), alice)
	ctx := context.Background()

	t.Run("invalid value", func(t *testing.T) {
		_, err := e.voteSvc.ApplyVote(ctx, ApplyVoteInput{VoterID: alice.ID, Target: postTarget(post), Value: 2})
		appErr := assertAppError(t, err, models.CodeValidation)
		assert.Contains(t, appErr.Fields, "value")
		assert.True(t, errors.Is(err, ErrInvalidVoteValue))
	})

	t.Run("anonymous voter", func(t *testing.T) {
		_, err := e.voteSvc.ApplyVote(ctx, ApplyVoteInput{Target: postTarget(post), Value: 1})
		assertAppError(t, err, models.CodeUnauthorized)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := e.voteSvc.ApplyVote(ctx, ApplyVoteInput{VoterID: alice.ID, Target: models.VoteTarget{Kind: models.TargetPost, ID: 999}, Value: 1})
		assertAppError(t, err, models.CodeNotFound)
		assert.True(t, errors.Is(err, ErrTargetNotFound))
	})

	t.Run("missing comment", func(t *testing.T) {
		_, err := e.voteSvc.ApplyVote(ctx, ApplyVoteInput{VoterID: alice.ID, Target: models.VoteTarget{Kind: models.TargetComment, ID: 999}, Value: -1})
		assert.True(t, errors.Is(err, ErrTargetNotFound))
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := e.voteSvc.ApplyVote(ctx, ApplyVoteInput{VoterID: alice.ID, Target: models.VoteTarget{Kind: "sub", ID: 1}, Value: 1})
		assert.True(t, errors.Is(err, ErrTargetNotFound))
	})

	var count int64
	require.NoError(t, e.db.Model(&models.Vote{}).Count(&count).Error)
	assert.Zero(t, count, "rejected votes never reach storage")
}

func TestApplyVote_ConcurrentTogglesKeepOneRecord(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	post := e.post(e.sub("golang", alice), alice)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.voteSvc.ApplyVote(context.Background(), ApplyVoteInput{VoterID: alice.ID, Target: postTarget(post), Value: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var votes []models.Vote
	require.NoError(t, e.db.Where("user_id = ? AND post_id = ?", alice.ID, post.ID).Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, int8(0), votes[0].Value, "an even number of identical clicks nets out")
}

func TestApplyVote_RecordsOutcomeMetric(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	post := e.post(e.sub("golang", alice), alice)

	before := testutil.ToFloat64(observability.VotesApplied.WithLabelValues("post", observability.OutcomeCleared))
	e.vote(alice, postTarget(post), -1)
	e.vote(alice, postTarget(post), -1)
	after := testutil.ToFloat64(observability.VotesApplied.WithLabelValues("post", observability.OutcomeCleared))
	assert.Equal(t, before+1, after)
}

func TestApplyVote_StorageFailureIsInternal(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	post := e.post(e.sub("golang", alice), alice)

	stub := &voteRepoStub{
		upsertFn: func(context.Context, uint, models.VoteTarget, repository.VoteDecision) (*repository.VoteChange, error) {
			return nil, models.NewInternalError(errors.New("connection reset"))
		},
	}
	svc := NewVoteService(stub, e.posts, e.comments, nil)
	_, err := svc.ApplyVote(context.Background(), ApplyVoteInput{VoterID: alice.ID, Target: postTarget(post), Value: 1})
	assertAppError(t, err, models.CodeInternal)
}

func TestApplyVote_ResolvedTargetIsNotReloaded(t *testing.T) {
	post := &models.Post{ID: 4, Identifier: "p4"}
	comment := &models.Comment{ID: 9, Identifier: "c9", PostID: post.ID}
	target := models.VoteTarget{Kind: models.TargetComment, ID: comment.ID}

	stub := &voteRepoStub{
		upsertFn: func(_ context.Context, voterID uint, got models.VoteTarget, decide repository.VoteDecision) (*repository.VoteChange, error) {
			return &repository.VoteChange{Vote: models.NewVote(voterID, got, decide(nil))}, nil
		},
		scoresFn: func(context.Context, models.TargetKind, []uint) (map[uint]int64, error) {
			return map[uint]int64{comment.ID: 1}, nil
		},
	}
	publisher := &recordingPublisher{}
	// No post or comment repository: describing the target would panic.
	svc := NewVoteService(stub, nil, nil, publisher)

	_, err := svc.ApplyVote(context.Background(), ApplyVoteInput{
		VoterID:  1,
		Target:   target,
		Value:    1,
		Resolved: &ResolvedTarget{Target: target, Post: post, Comment: comment},
	})
	require.NoError(t, err)
	assert.Equal(t, ScoreUpdate{
		TargetKind:     models.TargetComment,
		Identifier:     "c9",
		PostIdentifier: "p4",
		VoteScore:      1,
	}, publisher.last())
}

func TestApplyVote_MismatchedResolvedTargetIsIgnored(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	sub := e.sub("golang", alice)
	voted, other := e.post(sub, alice), e.post(sub, alice)

	_, err := e.voteSvc.ApplyVote(context.Background(), ApplyVoteInput{
		VoterID:  alice.ID,
		Target:   postTarget(voted),
		Value:    1,
		Resolved: &ResolvedTarget{Target: postTarget(other), Post: other},
	})
	require.NoError(t, err)
	assert.Equal(t, voted.Identifier, e.publisher.last().Identifier)
}

func TestToggle(t *testing.T) {
	tests := []struct {
		name      string
		current   *int8
		requested int8
		want      int8
	}{
		{"first vote", nil, 1, 1},
		{"first zero", nil, 0, 0},
		{"repeat up", int8Ptr(1), 1, 0},
		{"repeat down", int8Ptr(-1), -1, 0},
		{"flip", int8Ptr(1), -1, -1},
		{"from cleared", int8Ptr(0), -1, -1},
		{"explicit unset", int8Ptr(1), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toggle(tt.requested)(tt.current))
		})
	}
}

func TestResolveTarget(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	sub := e.sub("golang", alice)
	post, other := e.post(sub, alice), e.post(sub, alice)
	comment := e.comment(post, alice)
	ctx := context.Background()

	resolved, err := e.voteSvc.ResolveTarget(ctx, post.Identifier, post.Slug, "")
	require.NoError(t, err)
	assert.Equal(t, postTarget(post), resolved.Target)
	assert.Nil(t, resolved.Comment)

	resolved, err = e.voteSvc.ResolveTarget(ctx, post.Identifier, post.Slug, comment.Identifier)
	require.NoError(t, err)
	assert.Equal(t, commentTarget(comment), resolved.Target)
	require.NotNil(t, resolved.Comment)
	assert.Equal(t, post.Identifier, resolved.Comment.Post.Identifier)

	_, err = e.voteSvc.ResolveTarget(ctx, other.Identifier, other.Slug, comment.Identifier)
	assertAppError(t, err, models.CodeNotFound)

	_, err = e.voteSvc.ResolveTarget(ctx, "nope", "nope", "")
	assertAppError(t, err, models.CodeNotFound)
}

func TestScoresOf_EveryIDPresent(t *testing.T) {
	e := newEnv(t)
	alice := e.user("alice")
	sub := e.sub("golang", alice)
	voted, silent := e.post(sub, alice), e.post(sub, alice)
	e.vote(alice, postTarget(voted), -1)

	scores, err := e.voteSvc.ScoresOf(context.Background(), models.TargetPost, []uint{voted.ID, silent.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{voted.ID: -1, silent.ID: 0}, scores)
}
