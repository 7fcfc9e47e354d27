package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"readit/internal/cache"
	"readit/internal/ident"
	"readit/internal/models"
	"readit/internal/repository"
)

const (
	// DefaultPageSize is the number of posts per page when none is requested.
	DefaultPageSize = 8
	// MaxPageSize caps the requested page size.
	MaxPageSize = 100

	maxTitleLen   = 300
	maxBodyLen    = 40000
	maxCommentLen = 10000
)

// PostService creates, lists and deletes posts and their comments.
type PostService struct {
	posts       repository.PostRepository
	comments    repository.CommentRepository
	subs        repository.SubRepository
	perspective *Perspective
	cache       *cache.Store
}

// CreatePostInput is a new post in a community.
type CreatePostInput struct {
	UserID  uint
	SubName string
	Title   string
	Body    string
}

// ListPostsInput filters and pages a post listing.
type ListPostsInput struct {
	Page     int
	Count    int
	ViewerID uint
}

// CreateCommentInput is a new top-level comment on a post.
type CreateCommentInput struct {
	UserID     uint
	Identifier string
	Slug       string
	Body       string
}

// NewPostService creates a PostService.
func NewPostService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	subs repository.SubRepository,
	perspective *Perspective,
	store *cache.Store,
) *PostService {
	return &PostService{
		posts:       posts,
		comments:    comments,
		subs:        subs,
		perspective: perspective,
		cache:       store,
	}
}

// Create stores a post in an existing community. The public identifier and
// slug are generated here.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.PostView, error) {
	title := strings.TrimSpace(in.Title)
	fields := map[string]string{}
	switch {
	case title == "":
		fields["title"] = "Title must not be empty"
	case utf8.RuneCountInString(title) > maxTitleLen:
		fields["title"] = "Title must be at most 300 characters"
	}
	if strings.TrimSpace(in.SubName) == "" {
		fields["sub"] = "Sub must not be empty"
	}
	if len(in.Body) > maxBodyLen {
		fields["body"] = "Body is too long"
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	sub, err := s.subs.GetByName(ctx, in.SubName)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Identifier: ident.New(),
		Title:      title,
		Slug:       ident.Slugify(title),
		Body:       in.Body,
		SubName:    sub.Name,
		UserID:     in.UserID,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.cache.InvalidateTopSubs(ctx)

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return s.one(ctx, created, in.UserID)
}

// List pages through all posts newest first. Page is 0-based.
func (s *PostService) List(ctx context.Context, in ListPostsInput) ([]*models.PostView, error) {
	count := in.Count
	if count <= 0 {
		count = DefaultPageSize
	}
	if count > MaxPageSize {
		count = MaxPageSize
	}
	page := in.Page
	if page < 0 {
		page = 0
	}

	posts, err := s.posts.List(ctx, count, page*count)
	if err != nil {
		return nil, err
	}
	return s.perspective.AnnotatePosts(ctx, posts, in.ViewerID)
}

func (s *PostService) Get(ctx context.Context, identifier, slug string, viewerID uint) (*models.PostView, error) {
	post, err := s.posts.GetByIdentifier(ctx, identifier, slug)
	if err != nil {
		return nil, err
	}
	return s.one(ctx, post, viewerID)
}

// View annotates an already loaded post for viewerID.
func (s *PostService) View(ctx context.Context, post *models.Post, viewerID uint) (*models.PostView, error) {
	return s.one(ctx, post, viewerID)
}

// Delete removes the post with its comments and votes. Only the author may
// delete a post.
func (s *PostService) Delete(ctx context.Context, identifier, slug string, userID uint) error {
	post, err := s.posts.GetByIdentifier(ctx, identifier, slug)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.posts.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.cache.InvalidateTopSubs(ctx)
	return nil
}

func (s *PostService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.CommentView, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, models.NewFieldValidationError(map[string]string{"body": "Body must not be empty"})
	}
	if len(body) > maxCommentLen {
		return nil, models.NewFieldValidationError(map[string]string{"body": "Comment is too long"})
	}

	post, err := s.posts.GetByIdentifier(ctx, in.Identifier, in.Slug)
	if err != nil {
		return nil, err
	}
	comment := &models.Comment{
		Identifier: ident.New(),
		Body:       body,
		PostID:     post.ID,
		UserID:     in.UserID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, err
	}
	return s.oneComment(ctx, created, in.UserID)
}

// ListComments returns the post's comments newest first.
func (s *PostService) ListComments(ctx context.Context, identifier, slug string, viewerID uint) ([]*models.CommentView, error) {
	post, err := s.posts.GetByIdentifier(ctx, identifier, slug)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		c.Post = post
	}
	return s.perspective.AnnotateComments(ctx, comments, viewerID)
}

// ViewComment annotates an already loaded comment for viewerID.
func (s *PostService) ViewComment(ctx context.Context, comment *models.Comment, viewerID uint) (*models.CommentView, error) {
	return s.oneComment(ctx, comment, viewerID)
}

func (s *PostService) one(ctx context.Context, post *models.Post, viewerID uint) (*models.PostView, error) {
	views, err := s.perspective.AnnotatePosts(ctx, []*models.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *PostService) oneComment(ctx context.Context, comment *models.Comment, viewerID uint) (*models.CommentView, error) {
	views, err := s.perspective.AnnotateComments(ctx, []*models.Comment{comment}, viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
