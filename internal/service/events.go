package service

import (
	"context"

	"readit/internal/models"
)

// ScoreUpdate announces a target's score after a vote was applied.
type ScoreUpdate struct {
	TargetKind     models.TargetKind `json:"targetKind"`
	Identifier     string            `json:"identifier"`
	PostIdentifier string            `json:"postIdentifier"`
	VoteScore      int64             `json:"voteScore"`
}

// ScorePublisher fans score updates out to realtime subscribers. Publishing
// is best effort and must not fail the vote.
type ScorePublisher interface {
	PublishScoreUpdate(ctx context.Context, update ScoreUpdate)
}

type noopPublisher struct{}

func (noopPublisher) PublishScoreUpdate(context.Context, ScoreUpdate) {}
