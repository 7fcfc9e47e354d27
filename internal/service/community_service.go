package service

import (
	"context"
	"strings"

	"readit/internal/cache"
	"readit/internal/models"
	"readit/internal/repository"
	"readit/internal/validation"
)

const (
	// DefaultTopCommunities is used when no limit is configured or requested.
	DefaultTopCommunities = 5
	// MaxTopCommunities caps the ranking size.
	MaxTopCommunities = 100

	subPostsLimit = 100
)

// CommunityService creates and ranks communities.
type CommunityService struct {
	subs         repository.SubRepository
	posts        repository.PostRepository
	perspective  *Perspective
	cache        *cache.Store
	images       models.ImageResolver
	defaultLimit int
}

// CreateCommunityInput is a request to create a community.
type CreateCommunityInput struct {
	UserID      uint
	Name        string
	Title       string
	Description string
}

// NewCommunityService creates a CommunityService. defaultLimit applies when a
// ranking request gives no limit.
func NewCommunityService(
	subs repository.SubRepository,
	posts repository.PostRepository,
	perspective *Perspective,
	store *cache.Store,
	images models.ImageResolver,
	defaultLimit int,
) *CommunityService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultTopCommunities
	}
	return &CommunityService{
		subs:         subs,
		posts:        posts,
		perspective:  perspective,
		cache:        store,
		images:       images,
		defaultLimit: defaultLimit,
	}
}

// TopCommunities ranks communities by post count, ties broken by name.
// Results are cached briefly; votes never change the ranking.
func (s *CommunityService) TopCommunities(ctx context.Context, limit int) ([]models.TopSub, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > MaxTopCommunities {
		limit = MaxTopCommunities
	}
	return cache.Aside(ctx, s.cache, cache.FamilyTopSubs, cache.TopSubsKey(limit), cache.TopSubsTTL,
		func(ctx context.Context) ([]models.TopSub, error) {
			rows, err := s.subs.TopByPostCount(ctx, limit)
			if err != nil {
				return nil, err
			}
			top := make([]models.TopSub, 0, len(rows))
			for _, row := range rows {
				top = append(top, models.TopSub{
					Title:     row.Title,
					Name:      row.Name,
					ImageURL:  s.images.ImageURL(row.ImageURN),
					PostCount: row.PostCount,
				})
			}
			return top, nil
		})
}

func (s *CommunityService) Create(ctx context.Context, in CreateCommunityInput) (*models.SubView, error) {
	name := strings.TrimSpace(in.Name)
	fields := map[string]string{}
	if err := validation.ValidateSubName(name); err != nil {
		fields["name"] = err.Error()
	}
	if err := validation.ValidateSubTitle(in.Title); err != nil {
		fields["title"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	taken, err := s.subs.NameTaken(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("name", "Sub exists already")
	}

	sub := &models.Sub{
		Name:        name,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		UserID:      in.UserID,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.cache.InvalidateTopSubs(ctx)

	created, err := s.subs.GetByName(ctx, sub.Name)
	if err != nil {
		return nil, err
	}
	return models.NewSubView(created, s.images), nil
}

// Get returns the community with its newest posts annotated for viewerID.
func (s *CommunityService) Get(ctx context.Context, name string, viewerID uint) (*models.SubView, error) {
	sub, err := s.subs.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListBySub(ctx, sub.Name, subPostsLimit)
	if err != nil {
		return nil, err
	}
	views, err := s.perspective.AnnotatePosts(ctx, posts, viewerID)
	if err != nil {
		return nil, err
	}
	view := models.NewSubView(sub, s.images)
	view.Posts = views
	return view, nil
}
