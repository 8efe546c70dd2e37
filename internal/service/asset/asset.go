// Package asset replaces user images kept in remote object storage.
//
// Replacement is ordered so failures never corrupt the user record: the new
// object is uploaded first, then the record is repointed, and only then the
// previous object is removed. A failure at any step leaves the record on a
// live object. Staged files are removed in every outcome.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/logger"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository"
)

// RemoteStore is the object storage the assets live in.
type RemoteStore interface {
	Upload(ctx context.Context, file models.StagedFile) (models.AssetRef, error)
	Delete(ctx context.Context, remoteID string) error
}

type AssetService struct {
	store RemoteStore
	repo  repository.UserRepo
	log   logger.Logger
}

func NewService(store RemoteStore, repo repository.UserRepo, log logger.Logger) (*AssetService, error) {
	if store == nil {
		return nil, errors.New("remote store is required")
	}
	if repo == nil {
		return nil, errors.New("user repo is required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &AssetService{store: store, repo: repo, log: log}, nil
}

// Upload pushes a staged file to remote storage and removes the local copy.
// The staged file is removed even when the upload fails.
func (s *AssetService) Upload(ctx context.Context, file models.StagedFile) (models.AssetRef, error) {
	if file.Path == "" {
		return models.AssetRef{}, fmt.Errorf("%w: no file staged", apperrors.ErrFileMissing)
	}
	if _, err := os.Stat(file.Path); err != nil {
		return models.AssetRef{}, fmt.Errorf("%w: %s", apperrors.ErrFileMissing, file.Path)
	}

	defer s.removeStaged(file)

	ref, err := s.store.Upload(ctx, file)
	if err != nil {
		return models.AssetRef{}, fmt.Errorf("%w: %w", apperrors.ErrUploadFailed, err)
	}

	return ref, nil
}

// Replace swaps the user's asset in the file's slot for the staged file.
// The previous remote object is deleted best effort after the record points
// at the new one. A failed delete is logged, never surfaced: the record is
// already consistent and the orphaned object is harmless.
func (s *AssetService) Replace(ctx context.Context, user models.User, file models.StagedFile) (models.User, error) {
	if file.Slot != models.SlotAvatar && file.Slot != models.SlotCover {
		s.removeStaged(file)
		return models.User{}, fmt.Errorf("%w: unknown asset slot %q", apperrors.ErrInvalidInput, file.Slot)
	}

	ref, err := s.Upload(ctx, file)
	if err != nil {
		return models.User{}, err
	}

	var previous models.AssetRef
	var updated models.User

	switch file.Slot {
	case models.SlotAvatar:
		previous = user.Avatar
		updated, err = s.repo.UpdateAvatar(ctx, user.ID, ref)
	case models.SlotCover:
		previous = user.Cover
		updated, err = s.repo.UpdateCover(ctx, user.ID, ref.URL)
	}
	if err != nil {
		// The uploaded object stays in remote storage. An unreferenced
		// object is recoverable, a record pointing at a deleted one is not.
		return models.User{}, fmt.Errorf("%w: uploaded but not recorded: %w", apperrors.ErrUploadFailed, err)
	}

	s.deleteRemote(ctx, previous)
	return updated, nil
}

func (s *AssetService) deleteRemote(ctx context.Context, ref models.AssetRef) {
	if ref.RemoteID == "" {
		return
	}

	if err := s.store.Delete(ctx, ref.RemoteID); err != nil {
		s.log.Warn("previous asset left in remote storage", "remote_id", ref.RemoteID, "error", err.Error())
	}
}

func (s *AssetService) removeStaged(file models.StagedFile) {
	err := os.Remove(file.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("staged file not removed", "path", file.Path, "error", err.Error())
	}
}
