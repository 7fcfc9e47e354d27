// Package service holds the forum's business rules: vote mutation and score
// aggregation, per-viewer annotation, community ranking, posts and accounts.
package service

import (
	"context"
	"errors"

	"readit/internal/models"
	"readit/internal/observability"
	"readit/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrInvalidVoteValue is returned for values outside -1, 0 and 1.
	ErrInvalidVoteValue = errors.New("vote value must be -1, 0 or 1")
	// ErrTargetNotFound is returned when the voted post or comment does not exist.
	ErrTargetNotFound = errors.New("vote target not found")
)

func invalidVoteValue() error {
	return &models.AppError{
		Code:    models.CodeValidation,
		Message: "Validation failed",
		Fields:  map[string]string{"value": "Value must be -1, 0 or 1"},
		Err:     ErrInvalidVoteValue,
	}
}

func targetNotFound(target models.VoteTarget) error {
	return &models.AppError{
		Code:    models.CodeNotFound,
		Message: "Vote target not found",
		Err:     errors.Join(ErrTargetNotFound, errors.New(target.String())),
	}
}

// ApplyVoteInput is one vote action. Value is the voter's intended value; the
// toggle against the stored value happens inside the write. Resolved, when it
// addresses Target, supplies the identifiers for the score update so the
// target is not loaded again.
type ApplyVoteInput struct {
	VoterID  uint
	Target   models.VoteTarget
	Value    int
	Resolved *ResolvedTarget
}

// VoteResult describes what an applied vote did.
type VoteResult struct {
	Vote     *models.Vote
	Previous *int8
	Outcome  string
	Score    int64
}

// ResolvedTarget is a vote target addressed by public identifiers.
type ResolvedTarget struct {
	Target  models.VoteTarget
	Post    *models.Post
	Comment *models.Comment
}

// VoteService applies votes and aggregates scores.
type VoteService struct {
	votes     repository.VoteRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	publisher ScorePublisher
}

// NewVoteService creates a VoteService. A nil publisher drops score updates.
func NewVoteService(
	votes repository.VoteRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	publisher ScorePublisher,
) *VoteService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &VoteService{
		votes:     votes,
		posts:     posts,
		comments:  comments,
		publisher: publisher,
	}
}

// toggle stores 0 when the voter repeats the stored value and the requested
// value otherwise.
func toggle(requested int8) repository.VoteDecision {
	return func(current *int8) int8 {
		if current != nil && *current == requested {
			return 0
		}
		return requested
	}
}

func outcomeOf(previous *int8, next int8) string {
	switch {
	case previous == nil:
		return observability.OutcomeCreated
	case next == 0:
		return observability.OutcomeCleared
	default:
		return observability.OutcomeChanged
	}
}

// ResolveTarget maps a post identifier and slug, plus an optional comment
// identifier, to the target they address. A comment must belong to the post.
func (s *VoteService) ResolveTarget(ctx context.Context, identifier, slug, commentIdentifier string) (*ResolvedTarget, error) {
	post, err := s.posts.GetByIdentifier(ctx, identifier, slug)
	if err != nil {
		return nil, err
	}
	if commentIdentifier == "" {
		return &ResolvedTarget{
			Target: models.VoteTarget{Kind: models.TargetPost, ID: post.ID},
			Post:   post,
		}, nil
	}
	comment, err := s.comments.GetByIdentifier(ctx, post.ID, commentIdentifier)
	if err != nil {
		return nil, err
	}
	comment.Post = post
	return &ResolvedTarget{
		Target:  models.VoteTarget{Kind: models.TargetComment, ID: comment.ID},
		Post:    post,
		Comment: comment,
	}, nil
}

// ApplyVote records the voter's vote on the target. Repeating the stored
// value clears it to 0; the record itself is kept.
func (s *VoteService) ApplyVote(ctx context.Context, in ApplyVoteInput) (result *VoteResult, err error) {
	span, ctx := observability.NewSpan(ctx, "vote.apply",
		attribute.String("vote.target", in.Target.String()),
		attribute.Int("vote.requested", in.Value),
	)
	defer func() {
		span.SetError(err)
		span.End()
	}()

	if in.VoterID == 0 {
		return nil, models.NewUnauthorizedError("Unauthenticated")
	}
	if !models.ValidVoteValue(in.Value) {
		return nil, invalidVoteValue()
	}
	if !in.Target.Kind.Valid() {
		return nil, targetNotFound(in.Target)
	}

	var update ScoreUpdate
	if in.Resolved != nil && in.Resolved.Target == in.Target {
		update = in.Resolved.scoreUpdate()
	} else if update, err = s.describe(ctx, in.Target); err != nil {
		return nil, err
	}

	change, err := s.votes.Upsert(ctx, in.VoterID, in.Target, toggle(int8(in.Value)))
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, targetNotFound(in.Target)
		}
		return nil, err
	}

	score, err := s.ScoreOf(ctx, in.Target.Kind, in.Target.ID)
	if err != nil {
		return nil, err
	}

	outcome := outcomeOf(change.Previous, change.Vote.Value)
	observability.RecordVote(string(in.Target.Kind), outcome)
	span.AddAttributes(
		attribute.String("vote.outcome", outcome),
		attribute.Int("vote.stored", int(change.Vote.Value)),
	)

	update.VoteScore = score
	s.publisher.PublishScoreUpdate(ctx, update)

	return &VoteResult{
		Vote:     change.Vote,
		Previous: change.Previous,
		Outcome:  outcome,
		Score:    score,
	}, nil
}

func (r *ResolvedTarget) scoreUpdate() ScoreUpdate {
	update := ScoreUpdate{TargetKind: r.Target.Kind}
	if r.Post != nil {
		update.Identifier = r.Post.Identifier
		update.PostIdentifier = r.Post.Identifier
	}
	if r.Comment != nil {
		update.Identifier = r.Comment.Identifier
	}
	return update
}

// describe checks the target exists and returns its public identifiers.
func (s *VoteService) describe(ctx context.Context, target models.VoteTarget) (ScoreUpdate, error) {
	update := ScoreUpdate{TargetKind: target.Kind}
	if target.Kind == models.TargetComment {
		comment, err := s.comments.GetByID(ctx, target.ID)
		if err != nil {
			return update, notFoundAsTarget(err, target)
		}
		update.Identifier = comment.Identifier
		if comment.Post != nil {
			update.PostIdentifier = comment.Post.Identifier
		}
		return update, nil
	}
	post, err := s.posts.GetByID(ctx, target.ID)
	if err != nil {
		return update, notFoundAsTarget(err, target)
	}
	update.Identifier = post.Identifier
	update.PostIdentifier = post.Identifier
	return update, nil
}

func notFoundAsTarget(err error, target models.VoteTarget) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
		return targetNotFound(target)
	}
	return err
}

// ScoreOf is the sum of all vote values on one target, 0 without votes.
func (s *VoteService) ScoreOf(ctx context.Context, kind models.TargetKind, id uint) (int64, error) {
	scores, err := s.ScoresOf(ctx, kind, []uint{id})
	if err != nil {
		return 0, err
	}
	return scores[id], nil
}

// ScoresOf computes scores for a batch of targets in one query. Every
// requested id is present in the result.
func (s *VoteService) ScoresOf(ctx context.Context, kind models.TargetKind, ids []uint) (map[uint]int64, error) {
	sums, err := s.votes.Scores(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	scores := make(map[uint]int64, len(ids))
	for _, id := range ids {
		scores[id] = sums[id]
	}
	return scores, nil
}
