// Package seed creates demo data: the built-in communities plus fake members,
// posts, comments and votes. It is meant for development and tests.
package seed

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"readit/internal/ident"
	"readit/internal/models"
	"readit/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated member.
const DefaultPassword = "password123"

var nonNameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Factory builds domain entities and persists them. Votes go through the
// vote ledger so seeded data obeys the same one-record-per-voter rule as
// live traffic.
type Factory struct {
	db    *gorm.DB
	votes repository.VoteRepository
	faker *gofakeit.Faker
	opts  Options

	passwordHash string
	seq          int
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed picks a
// random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{
		db:    db,
		votes: repository.NewVoteRepository(db),
		faker: gofakeit.New(opts.RandSeed),
		opts:  opts,
	}
}

func (f *Factory) next() int {
	f.seq++
	return f.seq
}

// password hashes DefaultPassword once per factory.
func (f *Factory) password() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	f.passwordHash = string(hash)
	return f.passwordHash, nil
}

// name squeezes s into [A-Za-z0-9_] and appends a sequence number so that
// generated names never collide within one run.
func (f *Factory) name(s string, maxLen int) string {
	base := strings.Trim(nonNameChars.ReplaceAllString(s, ""), "_")
	suffix := fmt.Sprintf("_%d", f.next())
	if room := maxLen - len(suffix); len(base) > room {
		base = base[:room]
	}
	if base == "" {
		base = "x"
	}
	return strings.ToLower(base) + suffix
}

// pastTime returns a moment within the last opts.MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	minutes := f.faker.Number(1, maxDays*24*60)
	return time.Now().Add(-time.Duration(minutes) * time.Minute)
}

// CreateUser persists a fake member whose password is DefaultPassword.
// Optional overrides may modify the user before saving.
func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.password()
	if err != nil {
		return nil, err
	}
	username := f.name(f.faker.Username(), 32)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// CreateSub persists a fake community owned by owner.
func (f *Factory) CreateSub(ctx context.Context, owner *models.User, overrides ...func(*models.Sub)) (*models.Sub, error) {
	sub := &models.Sub{
		Name:        f.name(f.faker.Noun(), 21),
		Title:       strings.TrimSuffix(f.faker.Sentence(3), "."),
		Description: f.faker.Sentence(12),
		UserID:      owner.ID,
	}
	for _, override := range overrides {
		override(sub)
	}

	if err := f.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, fmt.Errorf("create sub %s: %w", sub.Name, err)
	}
	return sub, nil
}

// CreatePost persists a fake post by author in sub, dated within opts.MaxDays.
func (f *Factory) CreatePost(ctx context.Context, author *models.User, sub *models.Sub, overrides ...func(*models.Post)) (*models.Post, error) {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 9)), ".")
	post := &models.Post{
		Identifier: ident.New(),
		Title:      title,
		Slug:       ident.Slugify(title),
		Body:       f.faker.Paragraph(1, 3, 10, "\n\n"),
		SubName:    sub.Name,
		UserID:     author.ID,
		CreatedAt:  f.pastTime(),
	}
	for _, override := range overrides {
		override(post)
	}

	if err := f.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// CreateComment persists a fake comment by author on post, dated after it.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	createdAt := time.Now()
	if !post.CreatedAt.IsZero() {
		window := int(time.Since(post.CreatedAt).Minutes())
		if window > 0 {
			createdAt = post.CreatedAt.Add(time.Duration(f.faker.Number(0, window)) * time.Minute)
		}
	}
	comment := &models.Comment{
		Identifier: ident.New(),
		Body:       f.faker.Sentence(f.faker.Number(4, 20)),
		PostID:     post.ID,
		UserID:     author.ID,
		CreatedAt:  createdAt,
	}
	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// CastVote records value as voter's stance on target, replacing any earlier
// stance. Unlike the HTTP path there is no toggle: the stored value is value.
func (f *Factory) CastVote(ctx context.Context, voter *models.User, target models.VoteTarget, value int8) (*models.Vote, error) {
	if !models.ValidVoteValue(int(value)) {
		return nil, fmt.Errorf("vote value %d out of range", value)
	}
	change, err := f.votes.Upsert(ctx, voter.ID, target, func(*int8) int8 { return value })
	if err != nil {
		return nil, fmt.Errorf("cast vote on %s: %w", target, err)
	}
	return change.Vote, nil
}

// randomVote leans positive: three upvotes for every downvote.
func (f *Factory) randomVote() int8 {
	if f.faker.Number(1, 4) == 1 {
		return -1
	}
	return 1
}

// pick returns up to n distinct members of users in random order.
func (f *Factory) pick(users []*models.User, n int) []*models.User {
	if n > len(users) {
		n = len(users)
	}
	shuffled := make([]*models.User, len(users))
	copy(shuffled, users)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := f.faker.Number(0, i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled[:n]
}
