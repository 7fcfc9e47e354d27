package seed

import (
	"context"
	"fmt"
	"log/slog"

	"readit/internal/middleware"
	"readit/internal/models"

	"gorm.io/gorm"
)

// Options controls how much demo data Seed generates.
type Options struct {
	Users           int
	PostsPerSub     int
	CommentsPerPost int
	// VotersPerTarget caps how many members vote on each post and comment.
	VotersPerTarget int
	MaxDays         int
	Clean           bool
	// SkipBcrypt hashes the shared password at bcrypt.MinCost.
	SkipBcrypt bool
	RandSeed   int64
}

// DefaultOptions is what cmd/seed uses without flags.
func DefaultOptions() Options {
	return Options{
		Users:           25,
		PostsPerSub:     8,
		CommentsPerPost: 5,
		VotersPerTarget: 10,
		MaxDays:         30,
		Clean:           true,
	}
}

// Summary counts what a Seed run created.
type Summary struct {
	Users    int
	Subs     int
	Posts    int
	Comments int
	Votes    int
}

// Seed fills db with the built-in communities and fake activity inside them.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log := middleware.Logger

	if opts.Clean {
		if err := Clear(ctx, db); err != nil {
			return nil, fmt.Errorf("clear: %w", err)
		}
	}

	subs, err := Communities(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("communities: %w", err)
	}
	summary := &Summary{Subs: len(subs)}
	if opts.Users <= 0 {
		return summary, nil
	}

	f := NewFactory(db, opts)
	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user, err := f.CreateUser(ctx)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	summary.Users = len(users)
	log.InfoContext(ctx, "seed users created", slog.Int("count", summary.Users))

	for _, sub := range subs {
		for i := 0; i < opts.PostsPerSub; i++ {
			author := f.pick(users, 1)[0]
			post, err := f.CreatePost(ctx, author, sub)
			if err != nil {
				return nil, err
			}
			summary.Posts++

			n, err := f.voteOn(ctx, users, models.VoteTarget{Kind: models.TargetPost, ID: post.ID})
			if err != nil {
				return nil, err
			}
			summary.Votes += n

			for j := f.faker.Number(0, opts.CommentsPerPost); j > 0; j-- {
				comment, err := f.CreateComment(ctx, f.pick(users, 1)[0], post)
				if err != nil {
					return nil, err
				}
				summary.Comments++

				n, err := f.voteOn(ctx, users, models.VoteTarget{Kind: models.TargetComment, ID: comment.ID})
				if err != nil {
					return nil, err
				}
				summary.Votes += n
			}
		}
	}

	log.InfoContext(ctx, "seed completed",
		slog.Int("users", summary.Users),
		slog.Int("subs", summary.Subs),
		slog.Int("posts", summary.Posts),
		slog.Int("comments", summary.Comments),
		slog.Int("votes", summary.Votes),
	)
	return summary, nil
}

func (f *Factory) voteOn(ctx context.Context, users []*models.User, target models.VoteTarget) (int, error) {
	voters := f.pick(users, f.faker.Number(0, f.opts.VotersPerTarget))
	for _, voter := range voters {
		if _, err := f.CastVote(ctx, voter, target, f.randomVote()); err != nil {
			return 0, err
		}
	}
	return len(voters), nil
}

// Clear removes every forum row. Postgres truncates and resets identities;
// other dialects delete children before parents.
func Clear(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE votes, comments, posts, subs, users RESTART IDENTITY CASCADE`).Error
	}

	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Vote{}, &models.Comment{}, &models.Post{}, &models.Sub{}, &models.User{}} {
		if err := all.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
