package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"readit/internal/middleware"
	"readit/internal/models"
	"readit/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// SystemUsername owns the built-in communities. Its password is random and
// never stored anywhere, so the account cannot sign in.
const SystemUsername = "readit"

//go:embed fixtures/communities.yml
var communitiesYAML []byte

// Community is one built-in community definition.
type Community struct {
	Name        string `yaml:"name"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type communityFile struct {
	Communities []Community `yaml:"communities"`
}

// LoadCommunities returns the embedded built-in communities.
func LoadCommunities() ([]Community, error) {
	return parseCommunities(communitiesYAML)
}

func parseCommunities(raw []byte) ([]Community, error) {
	var file communityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse community fixtures: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Communities))
	for _, c := range file.Communities {
		if err := validation.ValidateSubName(c.Name); err != nil {
			return nil, fmt.Errorf("community %q: %w", c.Name, err)
		}
		if err := validation.ValidateSubTitle(c.Title); err != nil {
			return nil, fmt.Errorf("community %q: %w", c.Name, err)
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("community %q listed twice", c.Name)
		}
		seen[key] = struct{}{}
	}
	return file.Communities, nil
}

// Communities creates the built-in communities. Running it again refreshes the
// title and description of communities still owned by the system account;
// a member's community that happens to share a name is left alone.
func Communities(ctx context.Context, db *gorm.DB) ([]*models.Sub, error) {
	defs, err := LoadCommunities()
	if err != nil {
		return nil, err
	}

	subs := make([]*models.Sub, 0, len(defs))
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := systemUser(tx)
		if err != nil {
			return err
		}

		for _, def := range defs {
			var existing models.Sub
			findErr := tx.Where("lower(name) = ?", strings.ToLower(def.Name)).First(&existing).Error
			switch {
			case errors.Is(findErr, gorm.ErrRecordNotFound):
				sub := &models.Sub{
					Name:        def.Name,
					Title:       def.Title,
					Description: def.Description,
					UserID:      owner.ID,
				}
				if err := tx.Create(sub).Error; err != nil {
					return fmt.Errorf("create community %s: %w", def.Name, err)
				}
				subs = append(subs, sub)
			case findErr != nil:
				return findErr
			default:
				if existing.UserID == owner.ID {
					existing.Title = def.Title
					existing.Description = def.Description
					if err := tx.Model(&existing).Select("title", "description").Updates(&existing).Error; err != nil {
						return fmt.Errorf("refresh community %s: %w", def.Name, err)
					}
				}
				subs = append(subs, &existing)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "built-in communities seeded", slog.Int("count", len(subs)))
	return subs, nil
}

func systemUser(tx *gorm.DB) (*models.User, error) {
	var user models.User
	err := tx.Where("username = ?", SystemUsername).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash system password: %w", err)
	}
	user = models.User{
		Username: SystemUsername,
		Email:    SystemUsername + "@readit.local",
		Password: string(hash),
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("create system user: %w", err)
	}
	return &user, nil
}
