// Package repository implements persistence for users, communities, posts,
// comments and the vote ledger on top of gorm.
package repository

import (
	"context"

	"readit/internal/models"
	"readit/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByIdentifier(ctx context.Context, identifier, slug string) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListBySub(ctx context.Context, subName string, limit int) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics("posts"),
		log:     observability.NewRepoLogger("posts"),
	}
}

func (r *postRepository) withAuthor(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("User").Preload("Sub")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer r.metrics.TrackQuery("create")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogWrite(ctx, "create", "identifier", post.Identifier)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	var post models.Post
	if err := r.withAuthor(ctx).First(&post, id).Error; err != nil {
		return nil, notFoundOrInternal(err, "Post", id)
	}
	return &post, nil
}

// GetByIdentifier finds a post by its public identifier and slug.
func (r *postRepository) GetByIdentifier(ctx context.Context, identifier, slug string) (*models.Post, error) {
	defer r.metrics.TrackQuery("get_by_identifier")()
	var post models.Post
	err := r.withAuthor(ctx).
		Where("identifier = ? AND slug = ?", identifier, slug).
		First(&post).Error
	if err != nil {
		return nil, notFoundOrInternal(err, "Post", identifier)
	}
	return &post, nil
}

// List returns posts newest first.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("list")()
	var posts []*models.Post
	err := r.withAuthor(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListBySub returns a community's posts newest first.
func (r *postRepository) ListBySub(ctx context.Context, subName string, limit int) ([]*models.Post, error) {
	defer r.metrics.TrackQuery("list_by_sub")()
	var posts []*models.Post
	err := r.withAuthor(ctx).
		Where("sub_name = ?", subName).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// Delete removes a post together with its comments and every vote on either.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete", "post_id", id)
		return notFoundOrInternal(err, "Post", id)
	}
	r.log.LogWrite(ctx, "delete", "post_id", id)
	return nil
}
