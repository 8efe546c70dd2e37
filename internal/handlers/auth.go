package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/handlers/render"
	"github.com/amorozov/userhub/internal/handlers/userctx"
	"github.com/amorozov/userhub/internal/logger"
)

func handleLogin(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := auth.Login(r.Context(), data.Login, data.Password)

		switch {
		case err == nil:
			auth.SetTokenPairToResponse(w, pair)
			render.JSON(w, newUserResponse(user))
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			l.Error("Failed to login user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleTokenRefresh(auth authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refresh_token"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refresh, err := auth.GetRefreshString(r)
		if err != nil {
			// Cookie and header came up empty, the body is the last place
			var data request
			if decodeErr := json.NewDecoder(r.Body).Decode(&data); decodeErr == nil {
				refresh = data.RefreshToken
			}
		}
		if refresh == "" {
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
			return
		}

		pair, err := auth.Refresh(r.Context(), refresh)

		switch {
		case err == nil:
			auth.SetTokenPairToResponse(w, pair)
			render.JSON(w, response{Message: "Tokens refreshed successfully"})
		case errors.Is(err, apperrors.ErrUnauthenticated):
			render.ServiceError(w, "Refresh token invalid or already used", http.StatusUnauthorized)
		default:
			l.Error("Failed to refresh tokens", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleLogout(auth authService, l logger.Logger) http.Handler {
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		if err := auth.Logout(r.Context(), user.ID); err != nil {
			l.Error("Failed to logout user", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		auth.DropTokensFromResponse(w)
		render.JSON(w, response{Message: "User logged out successfully"})
	})
}
