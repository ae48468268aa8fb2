package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-todo-api/internal/model"
	"go-todo-api/internal/notify"
	"go-todo-api/internal/password"
	"go-todo-api/internal/token"
)

// UserStore is the slice of the credential store the auth flows need.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email string, username string) (bool, error)
	Create(ctx context.Context, u model.User) error
	List(ctx context.Context) ([]model.PublicUser, error)
}

type AuthService struct {
	users  UserStore
	tokens *token.Manager
	mailer notify.EmailSender
}

// NewAuthService wires the session boundary. mailer may be nil when
// welcome emails are disabled.
func NewAuthService(users UserStore, tokens *token.Manager, mailer notify.EmailSender) *AuthService {
	return &AuthService{users: users, tokens: tokens, mailer: mailer}
}

// SignUp creates the user record and triggers the welcome email. An email
// delivery failure is reported as ErrEmailDelivery with the user already
// committed; callers must not treat it as a sign-up failure.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (model.PublicUser, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return model.PublicUser{}, fmt.Errorf("%w: username, email and password are required", model.ErrInvalidInput)
	}

	// Advisory pre-check; the unique indexes are the source of truth.
	exists, err := s.users.ExistsByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil {
		return model.PublicUser{}, err
	}
	if exists {
		return model.PublicUser{}, model.ErrUserAlreadyExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		PhoneNumber:  req.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return model.PublicUser{}, err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, user.Username); err != nil {
			return user.Public(), fmt.Errorf("%w: %v", model.ErrEmailDelivery, err)
		}
	}

	return user.Public(), nil
}

// Login verifies credentials and mints the access/refresh pair. Unknown
// username and wrong password collapse into the same error so the response
// does not reveal which field was wrong.
func (s *AuthService) Login(ctx context.Context, username string, plaintext string) (token.Pair, model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return token.Pair{}, model.User{}, model.ErrInvalidCredentials
		}
		return token.Pair{}, model.User{}, err
	}

	if !password.Check(plaintext, user.PasswordHash) {
		return token.Pair{}, model.User{}, model.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.Username, user.ID)
	if err != nil {
		return token.Pair{}, model.User{}, fmt.Errorf("issue token pair: %w", err)
	}

	return pair, user, nil
}

// Refresh validates a refresh token and issues a new access token. The
// refresh token itself is not rotated and no server-side state exists to
// invalidate. Every failure collapses to ErrUnauthorized with the cause
// preserved in the wrapped message for logs.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, model.User, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return "", model.User{}, fmt.Errorf("%w: refresh token rejected: %v", model.ErrUnauthorized, err)
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", model.User{}, fmt.Errorf("%w: subject no longer exists", model.ErrUnauthorized)
		}
		return "", model.User{}, err
	}

	access, err := s.tokens.IssueAccess(user.Username, user.ID)
	if err != nil {
		return "", model.User{}, fmt.Errorf("issue access token: %w", err)
	}

	return access, user, nil
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (model.PublicUser, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return model.PublicUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]model.PublicUser, error) {
	return s.users.List(ctx)
}

// IsAdmin reports whether the named user carries the administrative flag.
// Used by the admin guard; a missing user is simply not an admin.
func (s *AuthService) IsAdmin(ctx context.Context, username string) (bool, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin, nil
}

// VerifyToken exposes token verification to the middleware layer.
func (s *AuthService) VerifyToken(tokenString string) (token.Claims, error) {
	return s.tokens.Verify(tokenString)
}

// AccessTTL is the configured access token lifetime, used for cookie ages.
func (s *AuthService) AccessTTL() time.Duration { return s.tokens.AccessTTL() }

// RefreshTTL is the configured refresh token lifetime.
func (s *AuthService) RefreshTTL() time.Duration { return s.tokens.RefreshTTL() }
