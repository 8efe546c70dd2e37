package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/handlers/middleware"
	"github.com/amorozov/userhub/internal/logger"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/service/user"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth authService,
	users userService,
	assets assetService,
	stagingDir string,
	logger logger.Logger,
) http.Handler {
	authMiddleware := middleware.AuthMiddleware(auth)
	withAuth := func(h http.Handler) http.Handler {
		return authMiddleware(h)
	}

	apiusers := http.NewServeMux()

	apiusers.Handle("POST /register", handleRegister(users, logger, stagingDir))
	apiusers.Handle("POST /login", handleLogin(auth, logger))
	apiusers.Handle("POST /refresh", handleTokenRefresh(auth, logger))

	apiusers.Handle("POST /logout", withAuth(handleLogout(auth, logger)))
	apiusers.Handle("POST /change-password", withAuth(handleChangePassword(users, logger)))
	apiusers.Handle("GET /me", withAuth(handleUserMe()))
	apiusers.Handle("PATCH /details", withAuth(handleUpdateDetails(users, logger)))
	apiusers.Handle("PUT /avatar", withAuth(handleReplaceAsset(assets, logger, stagingDir, models.SlotAvatar, "avatar")))
	apiusers.Handle("PUT /cover", withAuth(handleReplaceAsset(assets, logger, stagingDir, models.SlotCover, "coverImage")))

	root := http.NewServeMux()
	root.Handle("/api/users/", http.StripPrefix("/api/users", apiusers))

	handler := chain(root,
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

type authService interface {
	// Login user with username-or-email and password
	// Has to return apperrors.ErrUserNotFound if user not found and
	// apperrors.ErrInvalidCredentials if the password does not match
	Login(ctx context.Context, login string, password string) (models.User, models.TokenPair, error)

	// Refresh rotates the token pair
	// Has to return apperrors.ErrUnauthenticated if the token is invalid,
	// expired or already used
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Logout invalidates every outstanding refresh token. Idempotent
	Logout(ctx context.Context, userID uuid.UUID) error

	// Set auth tokens (access, refresh) to response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Expire auth cookies on response
	DropTokensFromResponse(w http.ResponseWriter)

	// Get refresh token from request
	GetRefreshString(r *http.Request) (string, error)

	// Get request and return user if it authenticated or error
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type userService interface {
	Register(ctx context.Context, params user.RegisterParams) (models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error
	UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error)
}

type assetService interface {
	Replace(ctx context.Context, user models.User, file models.StagedFile) (models.User, error)
}
