package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository"
	"github.com/amorozov/userhub/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during login or password change
	// Defaults to BcryptHasher
	Hasher PasswordHasher

	// Token transport settings, defaults are used for empty values
	AccessHeaderName  string
	AccessAuthScheme  string
	AccessCookieName  string
	RefreshCookieName string
}

// AuthService owns the session lifecycle: it issues token pairs and keeps
// the single stored refresh secret consistent with the tokens handed out.
type AuthService struct {
	token    *tokenmanager.TokenManager
	hasher   PasswordHasher
	userRepo repository.UserRepo

	accessHeaderName  string
	accessAuthScheme  string
	accessCookieName  string
	refreshCookieName string
}

func NewService(cfg Config, token *tokenmanager.TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	if token == nil || userRepo == nil {
		return nil, errors.New("token manager and user repo must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessHeaderName, defaultAccessHeaderName)
	setDefaultString(&cfg.AccessAuthScheme, defaultAccessAuthScheme)
	setDefaultString(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefaultString(&cfg.RefreshCookieName, defaultRefreshCookieName)

	return &AuthService{
		token:             token,
		hasher:            hasher,
		userRepo:          userRepo,
		accessHeaderName:  cfg.AccessHeaderName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
	}, nil
}

// Login with username or email.
// Overwrites the stored refresh secret on success: this one write is the
// rotation point, every refresh token issued earlier dies the moment it
// completes. One active session per user.
func (s *AuthService) Login(ctx context.Context, login string, password string) (models.User, models.TokenPair, error) {
	user, err := s.userRepo.GetUserByLogin(ctx, login)
	if err != nil {
		return models.User{}, models.TokenPair{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, models.TokenPair{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.token.Issue(user.ID)
	if err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &pair.Refresh.Value); err != nil {
		return models.User{}, models.TokenPair{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}

	return user, pair, nil
}

// Refresh exchanges a still-valid refresh token for a fresh pair.
// The presented token must be well-formed AND byte-equal to the stored
// secret; the equality check and the overwrite are one conditional update,
// so of N concurrent refreshes with the same token exactly one wins and the
// rest fail as unauthenticated. A mismatch on a well-formed token means the
// token was already rotated away, i.e. reuse.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	if refresh == "" {
		return models.TokenPair{}, apperrors.ErrUnauthenticated
	}

	userID, err := s.token.ParseRefresh(refresh)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	pair, err := s.token.Issue(userID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	err = s.userRepo.RotateRefreshToken(ctx, userID, &refresh, pair.Refresh.Value)
	switch {
	case err == nil:
		return pair, nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return models.TokenPair{}, apperrors.ErrUnauthenticated
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return models.TokenPair{}, err
	default:
		return models.TokenPair{}, fmt.Errorf("error while rotating refresh token. Err: %w", err)
	}
}

// Logout clears the stored refresh secret, invalidating every outstanding
// refresh token for the user regardless of expiry. Idempotent.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.userRepo.SetRefreshToken(ctx, userID, nil)
}
