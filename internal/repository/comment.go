package repository

import (
	"context"

	"readit/internal/models"
	"readit/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	GetByIdentifier(ctx context.Context, postID uint, identifier string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	CountByPosts(ctx context.Context, postIDs []uint) (map[uint]int64, error)
}

type commentRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, metrics: observability.NewDatabaseMetrics("comments")}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	defer r.metrics.TrackQuery("create")()
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID loads a comment with its author and post.
func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").Preload("Post").First(&comment, id).Error; err != nil {
		return nil, notFoundOrInternal(err, "Comment", id)
	}
	return &comment, nil
}

// GetByIdentifier finds a comment that belongs to postID.
func (r *commentRepository) GetByIdentifier(ctx context.Context, postID uint, identifier string) (*models.Comment, error) {
	defer r.metrics.TrackQuery("get_by_identifier")()
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("identifier = ? AND post_id = ?", identifier, postID).
		First(&comment).Error
	if err != nil {
		return nil, notFoundOrInternal(err, "Comment", identifier)
	}
	return &comment, nil
}

// ListByPost returns a post's comments newest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	defer r.metrics.TrackQuery("list_by_post")()
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

type postCommentCount struct {
	PostID uint
	Total  int64
}

// CountByPosts counts comments per post in one grouped query. Posts without
// comments are absent.
func (r *commentRepository) CountByPosts(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}
	defer r.metrics.TrackQuery("count_by_posts")()

	var rows []postCommentCount
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		counts[row.PostID] = row.Total
	}
	return counts, nil
}
