// Package user manages account records: registration, profile details and
// password changes. Session concerns live in the auth service.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository"
	"github.com/amorozov/userhub/internal/service/auth"
)

// AssetUploader pushes staged files to remote storage. Satisfied by the
// asset service.
type AssetUploader interface {
	Upload(ctx context.Context, file models.StagedFile) (models.AssetRef, error)
}

type RegisterParams struct {
	Username string
	Email    string
	FullName string
	Password string

	// Avatar is required, cover is optional.
	Avatar models.StagedFile
	Cover  *models.StagedFile
}

type UserService struct {
	repo    repository.UserRepo
	uploads AssetUploader
	hasher  auth.PasswordHasher
}

func NewService(repo repository.UserRepo, uploads AssetUploader, hasher auth.PasswordHasher) (*UserService, error) {
	if repo == nil {
		return nil, errors.New("user repo is required")
	}
	if uploads == nil {
		return nil, errors.New("asset uploader is required")
	}
	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}

	return &UserService{repo: repo, uploads: uploads, hasher: hasher}, nil
}

// Register creates an account. The avatar must be staged already, the cover
// may be. Uploads happen before the record is written, so a duplicate
// username leaves an unreferenced object in remote storage. That leak is
// acceptable, registration never leaves a half written record.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (models.User, error) {
	params.Username = strings.TrimSpace(params.Username)
	params.Email = strings.TrimSpace(params.Email)
	params.FullName = strings.TrimSpace(params.FullName)

	if params.Username == "" || params.Email == "" || params.FullName == "" || params.Password == "" {
		return models.User{}, fmt.Errorf("%w: all fields are required", apperrors.ErrInvalidInput)
	}

	// Login accepts username or email through a single lookup, so a username
	// shaped like an email could shadow another user's address there.
	if strings.ContainsRune(params.Username, '@') {
		return models.User{}, fmt.Errorf("%w: username must not contain @", apperrors.ErrInvalidInput)
	}

	avatar, err := s.uploads.Upload(ctx, params.Avatar)
	if err != nil {
		return models.User{}, err
	}

	var coverURL string
	if params.Cover != nil {
		cover, err := s.uploads.Upload(ctx, *params.Cover)
		if err != nil {
			return models.User{}, err
		}
		coverURL = cover.URL
	}

	// Hashing after the uploads: every error past this point leaves only a
	// stranded remote object, never a staged local file.
	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("user.HashPasswordErr: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, repository.CreateUserParams{
		Username:     params.Username,
		Email:        params.Email,
		FullName:     params.FullName,
		PasswordHash: hash,
		Avatar:       avatar,
		CoverURL:     coverURL,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("user.CreateErr: %w", err)
	}

	return user, nil
}

// ChangePassword replaces the password hash after checking the old password.
// The refresh token stays untouched: a password change does not log the
// user out anywhere, logout is a separate explicit action.
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", apperrors.ErrInvalidInput)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user.GetErr: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, oldPassword); err != nil {
		return fmt.Errorf("%w: old password does not match", apperrors.ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("user.HashPasswordErr: %w", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("user.UpdatePasswordErr: %w", err)
	}

	return nil
}

// UpdateDetails replaces the full name and email.
func (s *UserService) UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if fullName == "" || email == "" {
		return models.User{}, fmt.Errorf("%w: full name and email are required", apperrors.ErrInvalidInput)
	}

	user, err := s.repo.UpdateDetails(ctx, userID, fullName, email)
	if err != nil {
		return models.User{}, fmt.Errorf("user.UpdateDetailsErr: %w", err)
	}

	return user, nil
}
