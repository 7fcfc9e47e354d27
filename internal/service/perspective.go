package service

import (
	"context"

	"readit/internal/models"
	"readit/internal/observability"
	"readit/internal/repository"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

// Perspective turns stored posts and comments into views for one viewer:
// shared scores and comment counts plus the viewer's own vote. Each batch
// costs one grouped query per aggregate and one query for the viewer's votes,
// run concurrently.
type Perspective struct {
	votes    repository.VoteRepository
	comments repository.CommentRepository
	images   models.ImageResolver
}

// NewPerspective creates a Perspective.
func NewPerspective(votes repository.VoteRepository, comments repository.CommentRepository, images models.ImageResolver) *Perspective {
	return &Perspective{votes: votes, comments: comments, images: images}
}

// AnnotatePosts builds post views. viewerID 0 leaves every userVote null.
func (p *Perspective) AnnotatePosts(ctx context.Context, posts []*models.Post, viewerID uint) ([]*models.PostView, error) {
	views := make([]*models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	span, ctx := observability.NewSpan(ctx, "perspective.annotate_posts",
		attribute.Int("batch.size", len(posts)),
		attribute.Bool("viewer.present", viewerID != 0),
	)
	defer span.End()

	ids := make([]uint, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}

	var (
		scores map[uint]int64
		counts map[uint]int64
		mine   map[uint]int8
	)
	g := pool.New().WithContext(ctx).WithCancelOnError()
	g.Go(func(ctx context.Context) error {
		var err error
		scores, err = p.votes.Scores(ctx, models.TargetPost, ids)
		return err
	})
	g.Go(func(ctx context.Context) error {
		var err error
		counts, err = p.comments.CountByPosts(ctx, ids)
		return err
	})
	if viewerID != 0 {
		g.Go(func(ctx context.Context) error {
			var err error
			mine, err = p.votes.ViewerValues(ctx, models.TargetPost, viewerID, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	for _, post := range posts {
		views = append(views, &models.PostView{
			Identifier:   post.Identifier,
			Slug:         post.Slug,
			Title:        post.Title,
			Body:         post.Body,
			SubName:      post.SubName,
			Username:     post.Username(),
			URL:          post.URL(),
			VoteScore:    scores[post.ID],
			CommentCount: counts[post.ID],
			UserVote:     viewerVote(mine, post.ID),
			Sub:          models.NewSubView(post.Sub, p.images),
			CreatedAt:    post.CreatedAt,
			UpdatedAt:    post.UpdatedAt,
		})
	}
	return views, nil
}

// AnnotateComments builds comment views. viewerID 0 leaves every userVote null.
func (p *Perspective) AnnotateComments(ctx context.Context, comments []*models.Comment, viewerID uint) ([]*models.CommentView, error) {
	views := make([]*models.CommentView, 0, len(comments))
	if len(comments) == 0 {
		return views, nil
	}

	span, ctx := observability.NewSpan(ctx, "perspective.annotate_comments",
		attribute.Int("batch.size", len(comments)),
		attribute.Bool("viewer.present", viewerID != 0),
	)
	defer span.End()

	ids := make([]uint, len(comments))
	for i, comment := range comments {
		ids[i] = comment.ID
	}

	var (
		scores map[uint]int64
		mine   map[uint]int8
	)
	g := pool.New().WithContext(ctx).WithCancelOnError()
	g.Go(func(ctx context.Context) error {
		var err error
		scores, err = p.votes.Scores(ctx, models.TargetComment, ids)
		return err
	})
	if viewerID != 0 {
		g.Go(func(ctx context.Context) error {
			var err error
			mine, err = p.votes.ViewerValues(ctx, models.TargetComment, viewerID, ids)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	for _, comment := range comments {
		view := &models.CommentView{
			Identifier: comment.Identifier,
			Body:       comment.Body,
			Username:   comment.Username(),
			VoteScore:  scores[comment.ID],
			UserVote:   viewerVote(mine, comment.ID),
			CreatedAt:  comment.CreatedAt,
			UpdatedAt:  comment.UpdatedAt,
		}
		if comment.Post != nil {
			view.PostIdentifier = comment.Post.Identifier
		}
		views = append(views, view)
	}
	return views, nil
}

// viewerVote is nil when the viewer has no record, which differs from a
// stored 0.
func viewerVote(values map[uint]int8, id uint) *int8 {
	v, ok := values[id]
	if !ok {
		return nil
	}
	return &v
}
