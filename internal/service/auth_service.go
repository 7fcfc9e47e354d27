package service

import (
	"context"
	"strings"
	"time"

	"readit/internal/models"
	"readit/internal/repository"
	"readit/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs session tokens for a user.
type TokenIssuer interface {
	Issue(user *models.User) (token string, expires time.Time, err error)
}

// AuthService registers members and signs them in.
type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	cost   int
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Session is a logged in user with its signed token.
type Session struct {
	User    *models.User
	Token   string
	Expires time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(users repository.UserRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register validates and stores a new account. Every failing field is
// reported at once, including names and emails that are already taken.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)

	fields := map[string]string{}
	if err := validation.ValidateEmail(email); err != nil {
		fields["email"] = err.Error()
	}
	if err := validation.ValidateUsername(username); err != nil {
		fields["username"] = err.Error()
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	usernameTaken, emailTaken, err := s.users.Taken(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if usernameTaken || emailTaken {
		conflict := &models.AppError{Code: models.CodeConflict, Message: "Account already exists", Fields: map[string]string{}}
		if emailTaken {
			conflict.Fields["email"] = "Email is already taken"
		}
		if usernameTaken {
			conflict.Fields["username"] = "Username is already taken"
		}
		return nil, conflict
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user := &models.User{Username: username, Email: email, Password: string(hash)}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and issues a session token. Unknown users and
// wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	fields := map[string]string{}
	if strings.TrimSpace(username) == "" {
		fields["username"] = "Username must not be empty"
	}
	if password == "" {
		fields["password"] = "Password must not be empty"
	}
	if len(fields) > 0 {
		return nil, models.NewFieldValidationError(fields)
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Session{User: user, Token: token, Expires: expires}, nil
}
