package repository

import (
	"context"
	"errors"

	"readit/internal/models"
	"readit/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, metrics: observability.NewDatabaseMetrics("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_id")()
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOrInternal(err, "User", id)
	}
	return &user, nil
}

// GetByUsername returns nil, nil when no user has that name.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_username")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Taken reports which of username and email are already registered.
func (r *userRepository) Taken(ctx context.Context, username, email string) (bool, bool, error) {
	defer r.metrics.TrackQuery("taken")()
	var existing []models.User
	err := r.db.WithContext(ctx).
		Select("username", "email").
		Where("username = ? OR email = ?", username, email).
		Find(&existing).Error
	if err != nil {
		return false, false, models.NewInternalError(err)
	}
	var usernameTaken, emailTaken bool
	for _, u := range existing {
		usernameTaken = usernameTaken || u.Username == username
		emailTaken = emailTaken || u.Email == email
	}
	return usernameTaken, emailTaken, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("create")()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if IsUniqueViolation(err) {
			if uniqueViolationColumn(err, "email", "username") == "email" {
				return models.NewConflictError("email", "Email is already taken")
			}
			return models.NewConflictError("username", "Username is already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}
