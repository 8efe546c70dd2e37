package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorozov/userhub/internal/apperrors"
)

func newTestManager(t *testing.T, accessTTL time.Duration, refreshTTL time.Duration) *TokenManager {
	t.Helper()

	m, err := New(Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	})
	require.NoError(t, err, "token manager should be created without errors")
	return m
}

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{AccessSecret: "access", RefreshSecret: "refresh"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, m.refreshTTL, "default refresh token TTL should be set")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fails without secrets", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)

		_, err = New(Config{AccessSecret: "only-access"})
		require.Error(t, err)
	})

	t.Run("new fails with equal secrets", func(t *testing.T) {
		_, err := New(Config{AccessSecret: "same", RefreshSecret: "same"})
		require.Error(t, err, "identical secrets would let one token kind replay as the other")
	})

	t.Run("Issue", func(t *testing.T) {
		t.Run("return token pair", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)

			require.NoError(t, err)
			assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.Access.ExpiresAt, time.Second)
			assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
			assert.WithinDuration(t, time.Now().Add(24*time.Hour), pair.Refresh.ExpiresAt, time.Second)
			assert.NotEqual(t, pair.Access.Value, pair.Refresh.Value)
		})

		t.Run("access claims", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(pair.Access.Value, &Claims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-access-secret"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*Claims)
			require.True(t, ok, "claims should be of type Claims")
			assert.Equal(t, userID, claims.UserID, "user ID in token should match")
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
			assert.WithinDuration(t, pair.Access.ExpiresAt, claims.ExpiresAt.Time, 0, "access expires at should match token pair")
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair1, err := m.Issue(userID)
			require.NoError(t, err)

			// jti differs between calls even within the same second
			pair2, err := m.Issue(userID)
			require.NoError(t, err)

			assert.NotEqual(t, pair1.Access.Value, pair2.Access.Value, "access tokens should be different")
			assert.NotEqual(t, pair1.Refresh.Value, pair2.Refresh.Value, "refresh tokens should be different")
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("roundtrip ok", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			got, err := m.ParseAccess(pair.Access.Value)

			require.NoError(t, err)
			assert.Equal(t, userID, got, "parsed user ID should match the issued one")
		})

		t.Run("refresh token must not verify as access", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			_, err = m.ParseAccess(pair.Refresh.Value)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("garbage fails", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			_, err := m.ParseAccess("not-a-jwt")

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("expired fails", func(t *testing.T) {
			m := newTestManager(t, -time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			_, err = m.ParseAccess(pair.Access.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})
	})

	t.Run("ParseRefresh", func(t *testing.T) {
		t.Run("roundtrip ok", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			got, err := m.ParseRefresh(pair.Refresh.Value)

			require.NoError(t, err)
			assert.Equal(t, userID, got)
		})

		t.Run("access token must not verify as refresh", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			_, err = m.ParseRefresh(pair.Access.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("expired fails", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, -time.Minute)

			pair, err := m.Issue(userID)
			require.NoError(t, err)

			_, err = m.ParseRefresh(pair.Refresh.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})

		t.Run("token signed elsewhere fails", func(t *testing.T) {
			m := newTestManager(t, 15*time.Minute, 24*time.Hour)
			other := newTestManager(t, 15*time.Minute, 24*time.Hour)
			other.refreshKey = "different-refresh-secret"

			pair, err := other.Issue(userID)
			require.NoError(t, err)

			_, err = m.ParseRefresh(pair.Refresh.Value)

			require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
		})
	})
}
