package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/models"
)

type CreateUserParams struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	Avatar       models.AssetRef
	CoverURL     string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If username or email is taken already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// Get user by id, or by username-or-email (both matched case-insensitively)
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByLogin(ctx context.Context, login string) (models.User, error)

	// Overwrite refresh token unconditionally. Login rotates through here,
	// logout passes nil. Idempotent.
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// Rotate refresh token only if the stored one still equals old (NULL
	// matches nil old). This compare-and-set makes the validate and the
	// overwrite one atomic unit, so of several concurrent refreshes with the
	// same token exactly one may win.
	// Has to return apperrors.ErrUnauthenticated if the stored token changed,
	// apperrors.ErrUserNotFound if there is no such user.
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, old *string, new string) error

	// Replace password hash
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error

	// Update profile fields, return the updated user
	UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)

	// Persist asset references, return the updated user
	UpdateAvatar(ctx context.Context, userID uuid.UUID, ref models.AssetRef) (models.User, error)
	UpdateCover(ctx context.Context, userID uuid.UUID, url string) (models.User, error)
}
