package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"readit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Fiber locals written by Session.
const (
	LocalUserID = "userID"
	LocalUser   = "user"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

const (
	tokenIssuer   = "readit-api"
	tokenAudience = "readit-client"
	// SessionTTL is how long an issued session token stays valid.
	SessionTTL = 7 * 24 * time.Hour
)

// SessionClaims are the claims embedded in a session token.
type SessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the token.
func (c *SessionClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return uint(id), nil
}

// SessionTokens issues and verifies HS256 session tokens.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens creates a token codec signing with secret.
func NewSessionTokens(secret string) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: SessionTTL, now: time.Now}
}

// Issue signs a token for user and returns it with its expiry.
func (t *SessionTokens) Issue(user *models.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := SessionClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse verifies signature, issuer, audience and expiry.
func (t *SessionTokens) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenFromRequest reads the session cookie, falling back to a bearer header.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	header := c.Get(fiber.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// UserLookup loads the user a token refers to.
type UserLookup func(ctx context.Context, id uint) (*models.User, error)

// Session resolves the caller from its session token. Requests without a
// token continue anonymously; a token that fails verification or names an
// unknown user is rejected with 401.
func Session(tokens *SessionTokens, lookup UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := TokenFromRequest(c)
		if raw == "" {
			return c.Next()
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid session"))
		}
		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid session"))
		}

		user, err := lookup(c.UserContext(), userID)
		if err != nil {
			appErr := models.AsAppError(err)
			if appErr.Code != models.CodeNotFound {
				Logger.ErrorContext(c.UserContext(), "session user lookup failed",
					"user_id", userID, "error", err)
				return models.RespondWithError(c, fiber.StatusInternalServerError, err)
			}
			user = nil
		}
		if user == nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid session"))
		}

		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUser, user)
		c.SetUserContext(WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// RequireUser rejects requests that Session did not authenticate.
func RequireUser(c *fiber.Ctx) error {
	if CurrentUser(c) == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Unauthenticated"))
	}
	return c.Next()
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// CurrentUserID returns the authenticated user's id, or 0 for anonymous callers.
func CurrentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(LocalUserID).(uint)
	return id
}
