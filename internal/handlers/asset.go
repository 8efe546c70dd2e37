package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/handlers/render"
	"github.com/amorozov/userhub/internal/handlers/userctx"
	"github.com/amorozov/userhub/internal/logger"
	"github.com/amorozov/userhub/internal/models"
)

// handleReplaceAsset serves both the avatar and the cover endpoint, they
// differ only in the slot and the multipart field name.
func handleReplaceAsset(assets assetService, l logger.Logger, stagingDir string, slot models.AssetSlot, field string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		file, err := stageUploadedFile(r, field, slot, stagingDir)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrFileMissing):
				render.ServiceError(w, fmt.Sprintf("File %q is required", field), http.StatusBadRequest)
			case errors.Is(err, errFileTooLarge):
				render.ServiceError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			default:
				render.ServiceError(w, "Failed to read uploaded file", http.StatusBadRequest)
			}
			return
		}

		updated, err := assets.Replace(r.Context(), user, file)

		switch {
		case err == nil:
			render.JSON(w, newUserResponse(updated))
		case errors.Is(err, apperrors.ErrUploadFailed):
			l.Error("Failed to replace asset", "slot", slot, "error", err)
			render.ServiceError(w, "Failed to store image", http.StatusBadGateway)
		default:
			l.Error("Failed to replace asset", "slot", slot, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
