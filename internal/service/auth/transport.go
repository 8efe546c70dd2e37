package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
)

const (
	defaultAccessHeaderName  = "Authorization"
	defaultAccessAuthScheme  = "Bearer"
	defaultAccessCookieName  = "accesstoken"
	defaultRefreshCookieName = "refreshtoken"
)

// SetTokenPairToResponse attaches both tokens to the response: the access
// token as an auth header, both as HttpOnly cookies. Either both tokens are
// written or the method is not called at all, the pair is never split.
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	w.Header().Set(s.accessHeaderName, s.accessAuthScheme+" "+pair.Access.Value)

	http.SetCookie(w, &http.Cookie{
		Name:     s.accessCookieName,
		Value:    pair.Access.Value,
		Path:     "/",
		MaxAge:   int(time.Until(pair.Access.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     s.refreshCookieName,
		Value:    pair.Refresh.Value,
		Path:     "/",
		MaxAge:   int(time.Until(pair.Refresh.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// DropTokensFromResponse expires both token cookies, used on logout
func (s *AuthService) DropTokensFromResponse(w http.ResponseWriter) {
	for _, name := range []string{s.accessCookieName, s.refreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// GetRefreshString extracts the refresh token from the request: cookie
// first, then the auth header. The handler may still fall back to the
// request body, that preference order is part of the transport contract.
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(s.refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := s.tokenFromHeader(r); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("no refresh token in request: %w", apperrors.ErrUnauthenticated)
}

// GetUserFromRequest authenticates the request by its access token, read
// from the auth header or the access cookie. The freshness of the session
// is not checked here: access tokens stay valid until expiry even after
// logout, that is what short access TTLs are for.
func (s *AuthService) GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	token := s.tokenFromHeader(r)
	if token == "" {
		if cookie, err := r.Cookie(s.accessCookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return models.User{}, apperrors.ErrUnauthenticated
	}

	userID, err := s.token.ParseAccess(token)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", apperrors.ErrUnauthenticated, err)
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: no user for valid token", apperrors.ErrUnauthenticated)
	}

	return user, nil
}

func (s *AuthService) tokenFromHeader(r *http.Request) string {
	header := r.Header.Get(s.accessHeaderName)
	if header == "" {
		return ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, s.accessAuthScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}
