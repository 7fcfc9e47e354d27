package repository

import (
	"context"
	"errors"
	"fmt"

	"readit/internal/models"
	"readit/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteDecision computes the value to store from the current stored value,
// which is nil when the voter has no record for the target yet.
type VoteDecision func(current *int8) int8

// VoteChange is the outcome of an Upsert.
type VoteChange struct {
	Vote *models.Vote
	// Previous is the stored value before the upsert, nil for a new record.
	Previous *int8
}

// VoteRepository persists the vote ledger: at most one record per voter and
// target, holding -1, 0 or 1.
type VoteRepository interface {
	Upsert(ctx context.Context, voterID uint, target models.VoteTarget, decide VoteDecision) (*VoteChange, error)
	Scores(ctx context.Context, kind models.TargetKind, ids []uint) (map[uint]int64, error)
	ViewerValues(ctx context.Context, kind models.TargetKind, voterID uint, ids []uint) (map[uint]int8, error)
}

type voteRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewVoteRepository returns a gorm backed VoteRepository.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics("votes"),
		log:     observability.NewRepoLogger("votes"),
	}
}

// Upsert writes decide's value for (voterID, target) in a single transaction.
// A new record is inserted with ON CONFLICT DO NOTHING; when a record already
// exists it is locked FOR UPDATE before decide sees its value, so concurrent
// upserts by the same voter on the same target are serialized. Records are
// never deleted: a cleared vote stays as value 0.
func (r *voteRepository) Upsert(ctx context.Context, voterID uint, target models.VoteTarget, decide VoteDecision) (*VoteChange, error) {
	defer r.metrics.TrackQuery("upsert")()

	change := &VoteChange{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh := models.NewVote(voterID, target, decide(nil))
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			change.Vote = fresh
			return nil
		}

		var existing models.Vote
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("user_id = ?", voterID).
			Where(fmt.Sprintf("%s = ?", target.Kind.Column()), target.ID).
			First(&existing).Error
		if err != nil {
			return err
		}

		previous := existing.Value
		next := decide(&previous)
		if next != previous {
			if err := tx.Model(&existing).Update("value", next).Error; err != nil {
				return err
			}
		}
		existing.Value = next
		change.Vote = &existing
		change.Previous = &previous
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "upsert", "voter_id", voterID, "target", target.String())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewInternalError(fmt.Errorf("vote for %s vanished during upsert: %w", target, err))
		}
		return nil, models.NewInternalError(err)
	}
	r.log.LogWrite(ctx, "upsert", "voter_id", voterID, "target", target.String(), "value", change.Vote.Value)
	return change, nil
}

type targetScore struct {
	TargetID uint
	Score    int64
}

// Scores sums vote values per target in one grouped query. Targets without
// votes are absent from the result.
func (r *voteRepository) Scores(ctx context.Context, kind models.TargetKind, ids []uint) (map[uint]int64, error) {
	scores := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return scores, nil
	}
	defer r.metrics.TrackQuery("scores")()

	col := kind.Column()
	var rows []targetScore
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select(fmt.Sprintf("%s AS target_id, COALESCE(SUM(value), 0) AS score", col)).
		Where(fmt.Sprintf("%s IN ?", col), ids).
		Group(col).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		scores[row.TargetID] = row.Score
	}
	return scores, nil
}

type viewerValue struct {
	TargetID uint
	Value    int8
}

// ViewerValues returns voterID's stored value per target in one query.
// Targets the voter never voted on are absent; a stored 0 is present.
func (r *voteRepository) ViewerValues(ctx context.Context, kind models.TargetKind, voterID uint, ids []uint) (map[uint]int8, error) {
	values := make(map[uint]int8, len(ids))
	if voterID == 0 || len(ids) == 0 {
		return values, nil
	}
	defer r.metrics.TrackQuery("viewer_values")()

	col := kind.Column()
	var rows []viewerValue
	err := r.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select(fmt.Sprintf("%s AS target_id, value", col)).
		Where("user_id = ?", voterID).
		Where(fmt.Sprintf("%s IN ?", col), ids).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		values[row.TargetID] = row.Value
	}
	return values, nil
}
