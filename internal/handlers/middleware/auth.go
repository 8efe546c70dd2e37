package middleware

import (
	"context"
	"net/http"

	"github.com/amorozov/userhub/internal/handlers/render"
	"github.com/amorozov/userhub/internal/handlers/userctx"
	"github.com/amorozov/userhub/internal/models"
)

type authService interface {
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware resolves the access token into a user and stores it in the
// request context. Requests without a valid access token get 401.
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.GetUserFromRequest(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
