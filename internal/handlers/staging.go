package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
)

const maxUploadBytes = 8 << 20

var errFileTooLarge = errors.New("file too large")

// stageUploadedFile copies the named multipart field into the staging dir
// and returns the local path for the asset pipeline. The pipeline owns the
// staged file from here on and removes it on every outcome.
func stageUploadedFile(r *http.Request, field string, slot models.AssetSlot, stagingDir string) (models.StagedFile, error) {
	src, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return models.StagedFile{}, fmt.Errorf("%w: %s", apperrors.ErrFileMissing, field)
		}
		return models.StagedFile{}, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidInput, field, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(stagingDir, "staged-*"+filepath.Ext(header.Filename))
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("handlers.StageFileErr: %w", err)
	}

	// Read one byte past the limit so an oversized upload is detected
	// instead of silently staged truncated.
	written, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes+1))
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > maxUploadBytes {
		err = fmt.Errorf("%w: %s exceeds %d bytes", errFileTooLarge, field, maxUploadBytes)
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		if errors.Is(err, errFileTooLarge) {
			return models.StagedFile{}, err
		}
		return models.StagedFile{}, fmt.Errorf("handlers.StageFileErr: %w", err)
	}

	return models.StagedFile{Path: dst.Name(), Slot: slot}, nil
}

// discardStaged removes a staged file that may already be consumed by the
// asset pipeline. Removing an already removed path is a no-op.
func discardStaged(file models.StagedFile) {
	_ = os.Remove(file.Path)
}
