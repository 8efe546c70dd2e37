package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/handlers/render"
	"github.com/amorozov/userhub/internal/handlers/userctx"
	"github.com/amorozov/userhub/internal/logger"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/service/user"
)

// userResponse is the only user shape that leaves the API. Password hash
// and refresh token have no place here.
type userResponse struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url"`
	CoverURL  string    `json:"cover_url,omitempty"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		CreatedAt: u.CreatedAt,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.Avatar.URL,
		CoverURL:  u.Cover.URL,
	}
}

func handleRegister(users userService, l logger.Logger, stagingDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		avatar, err := stageUploadedFile(r, "avatar", models.SlotAvatar, stagingDir)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrFileMissing):
				render.ServiceError(w, "Avatar image is required", http.StatusBadRequest)
			case errors.Is(err, errFileTooLarge):
				render.ServiceError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			default:
				render.ServiceError(w, "Failed to read avatar image", http.StatusBadRequest)
			}
			return
		}
		defer discardStaged(avatar)

		params := user.RegisterParams{
			Username: r.FormValue("username"),
			Email:    r.FormValue("email"),
			FullName: r.FormValue("full_name"),
			Password: r.FormValue("password"),
			Avatar:   avatar,
		}

		cover, err := stageUploadedFile(r, "coverImage", models.SlotCover, stagingDir)
		switch {
		case err == nil:
			defer discardStaged(cover)
			params.Cover = &cover
		case errors.Is(err, apperrors.ErrFileMissing):
			// cover is optional
		case errors.Is(err, errFileTooLarge):
			render.ServiceError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			return
		default:
			render.ServiceError(w, "Failed to read cover image", http.StatusBadRequest)
			return
		}

		created, err := users.Register(r.Context(), params)

		switch {
		case err == nil:
			render.JSONWithStatus(w, newUserResponse(created), http.StatusCreated)
		case errors.Is(err, apperrors.ErrInvalidInput):
			render.ServiceError(w, "Invalid registration data", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		case errors.Is(err, apperrors.ErrUploadFailed):
			l.Error("Failed to store image on registration", "error", err)
			render.ServiceError(w, "Failed to store image", http.StatusBadGateway)
		default:
			l.Error("Failed to register user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, newUserResponse(user))
	})
}

func handleChangePassword(users userService, l logger.Logger) http.Handler {
	type request struct {
		OldPassword string `json:"old_password" validate:"required"`
		NewPassword string `json:"new_password" validate:"required,min=8"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = users.ChangePassword(r.Context(), user.ID, data.OldPassword, data.NewPassword)

		switch {
		case err == nil:
			render.JSON(w, response{Message: "Password changed successfully"})
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid old password", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrInvalidInput):
			render.ServiceError(w, "New password is required", http.StatusBadRequest)
		default:
			l.Error("Failed to change password", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleUpdateDetails(users userService, l logger.Logger) http.Handler {
	type request struct {
		FullName string `json:"full_name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		updated, err := users.UpdateDetails(r.Context(), user.ID, data.FullName, data.Email)

		switch {
		case err == nil:
			render.JSON(w, newUserResponse(updated))
		case errors.Is(err, apperrors.ErrInvalidInput):
			render.ServiceError(w, "Full name and email are required", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Email is already taken", http.StatusConflict)
		default:
			l.Error("Failed to update user details", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
