package repository

import (
	"context"
	"errors"

	"readit/internal/models"
	"readit/internal/observability"

	"gorm.io/gorm"
)

// SubRanking is one community with the number of posts it holds.
type SubRanking struct {
	Name      string
	Title     string
	ImageURN  *string
	PostCount int64
}

// SubRepository persists communities.
type SubRepository interface {
	Create(ctx context.Context, sub *models.Sub) error
	GetByName(ctx context.Context, name string) (*models.Sub, error)
	NameTaken(ctx context.Context, name string) (bool, error)
	TopByPostCount(ctx context.Context, limit int) ([]SubRanking, error)
}

type subRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
	log     *observability.RepoLogger
}

// NewSubRepository returns a gorm backed SubRepository.
func NewSubRepository(db *gorm.DB) SubRepository {
	return &subRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics("subs"),
		log:     observability.NewRepoLogger("subs"),
	}
}

func (r *subRepository) Create(ctx context.Context, sub *models.Sub) error {
	defer r.metrics.TrackQuery("create")()
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("name", "Sub exists already")
		}
		r.log.LogError(ctx, err, "create", "name", sub.Name)
		return models.NewInternalError(err)
	}
	r.log.LogWrite(ctx, "create", "name", sub.Name)
	return nil
}

func (r *subRepository) GetByName(ctx context.Context, name string) (*models.Sub, error) {
	defer r.metrics.TrackQuery("get_by_name")()
	var sub models.Sub
	if err := r.db.WithContext(ctx).Preload("User").Where("name = ?", name).First(&sub).Error; err != nil {
		return nil, notFoundOrInternal(err, "Sub", name)
	}
	return &sub, nil
}

// NameTaken compares names case-insensitively.
func (r *subRepository) NameTaken(ctx context.Context, name string) (bool, error) {
	defer r.metrics.TrackQuery("name_taken")()
	var sub models.Sub
	err := r.db.WithContext(ctx).Select("id").Where("lower(name) = lower(?)", name).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}

// TopByPostCount ranks communities by post count, ties broken by name.
// Communities with no posts are included with a count of 0.
func (r *subRepository) TopByPostCount(ctx context.Context, limit int) ([]SubRanking, error) {
	defer r.metrics.TrackQuery("top_by_post_count")()
	var rows []SubRanking
	err := r.db.WithContext(ctx).
		Table("subs AS s").
		Select("s.name, s.title, s.image_urn, COUNT(p.id) AS post_count").
		Joins("LEFT JOIN posts p ON p.sub_name = s.name").
		Group("s.id, s.name, s.title, s.image_urn").
		Order("post_count DESC").
		Order("s.name ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
