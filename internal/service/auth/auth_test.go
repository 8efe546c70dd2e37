package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository"
	"github.com/amorozov/userhub/internal/service/auth/tokenmanager"
	"github.com/amorozov/userhub/internal/testutil"
)

func newTestService(t *testing.T) (*AuthService, *testutil.FakeUserRepo) {
	t.Helper()

	tm, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err, "token manager should be created without errors")

	repo := testutil.NewFakeUserRepo()

	s, err := NewService(Config{}, tm, repo)
	require.NoError(t, err, "auth service could't be started")

	return s, repo
}

func createUser(t *testing.T, s *AuthService, repo *testutil.FakeUserRepo, username string, password string) models.User {
	t.Helper()

	hash, err := s.hasher.Hash(password)
	require.NoError(t, err)

	user, err := repo.CreateUser(t.Context(), repository.CreateUserParams{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     "Test User",
		PasswordHash: hash,
		Avatar:       models.AssetRef{URL: "https://store.local/a.png", RemoteID: "a-1"},
	})
	require.NoError(t, err)
	return user
}

func Test_AuthService(t *testing.T) {
	t.Parallel()

	t.Run("new service defaults", func(t *testing.T) {
		s, _ := newTestService(t)

		require.Equal(t, defaultAccessHeaderName, s.accessHeaderName, "default access header name should be set")
		require.Equal(t, defaultAccessAuthScheme, s.accessAuthScheme, "default access auth scheme should be set")
		require.Equal(t, defaultAccessCookieName, s.accessCookieName, "default access cookie name should be set")
		require.Equal(t, defaultRefreshCookieName, s.refreshCookieName, "default refresh cookie name should be set")
		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be set to BcryptHasher")
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("by username ok", func(t *testing.T) {
			s, repo := newTestService(t)
			created := createUser(t, s, repo, "ana", "P@ss1")

			user, pair, err := s.Login(t.Context(), "ana", "P@ss1")

			require.NoError(t, err)
			assert.Equal(t, created.ID, user.ID)
			assert.NotEmpty(t, pair.Access.Value, "access token should not be empty")
			assert.NotEmpty(t, pair.Refresh.Value, "refresh token should not be empty")
			assert.NotEqual(t, pair.Access.Value, pair.Refresh.Value, "tokens should be distinct")

			// Issued access token maps back to the same user
			userID, err := s.token.ParseAccess(pair.Access.Value)
			require.NoError(t, err)
			assert.Equal(t, created.ID, userID)
		})

		t.Run("by email ok", func(t *testing.T) {
			s, repo := newTestService(t)
			created := createUser(t, s, repo, "ana", "P@ss1")

			user, _, err := s.Login(t.Context(), "ana@example.com", "P@ss1")

			require.NoError(t, err)
			assert.Equal(t, created.ID, user.ID)
		})

		t.Run("stores the refresh token", func(t *testing.T) {
			s, repo := newTestService(t)
			created := createUser(t, s, repo, "ana", "P@ss1")

			_, pair, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			stored, err := repo.GetUserByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.NotNil(t, stored.RefreshToken)
			assert.Equal(t, pair.Refresh.Value, *stored.RefreshToken)
		})

		t.Run("wrong password", func(t *testing.T) {
			s, repo := newTestService(t)
			createUser(t, s, repo, "ana", "P@ss1")

			_, _, err := s.Login(t.Context(), "ana", "wrong")

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
		})

		t.Run("user not found", func(t *testing.T) {
			s, _ := newTestService(t)

			_, _, err := s.Login(t.Context(), "nobody", "password")

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})

		t.Run("second login invalidates first refresh token", func(t *testing.T) {
			s, repo := newTestService(t)
			createUser(t, s, repo, "ana", "P@ss1")

			_, first, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			_, second, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)
			assert.NotEqual(t, first.Refresh.Value, second.Refresh.Value, "new pair should differ")
			assert.NotEqual(t, first.Access.Value, second.Access.Value, "new pair should differ")

			// The rotated away token is dead even though not expired
			_, err = s.Refresh(t.Context(), first.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("once ok", func(t *testing.T) {
			s, repo := newTestService(t)
			created := createUser(t, s, repo, "ana", "P@ss1")

			_, initial, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			pair, err := s.Refresh(t.Context(), initial.Refresh.Value)

			require.NoError(t, err)
			assert.NotEqual(t, initial.Access.Value, pair.Access.Value, "new access token should be different")
			assert.NotEqual(t, initial.Refresh.Value, pair.Refresh.Value, "new refresh token should be different")

			userID, err := s.token.ParseAccess(pair.Access.Value)
			require.NoError(t, err)
			assert.Equal(t, created.ID, userID)
		})

		t.Run("fail if used once", func(t *testing.T) {
			s, repo := newTestService(t)
			createUser(t, s, repo, "ana", "P@ss1")

			_, initial, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), initial.Refresh.Value)
			require.NoError(t, err)

			// Presenting the rotated away token again is reuse
			_, err = s.Refresh(t.Context(), initial.Refresh.Value)
			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})

		t.Run("fail if empty", func(t *testing.T) {
			s, _ := newTestService(t)

			_, err := s.Refresh(t.Context(), "")

			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})

		t.Run("fail if malformed", func(t *testing.T) {
			s, _ := newTestService(t)

			_, err := s.Refresh(t.Context(), "not-a-jwt")

			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})

		t.Run("fail if token of wrong kind", func(t *testing.T) {
			s, repo := newTestService(t)
			createUser(t, s, repo, "ana", "P@ss1")

			_, pair, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			_, err = s.Refresh(t.Context(), pair.Access.Value)

			require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})

		t.Run("exactly one concurrent refresh wins", func(t *testing.T) {
			s, repo := newTestService(t)
			createUser(t, s, repo, "ana", "P@ss1")

			_, initial, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			const workers = 16
			var wg sync.WaitGroup
			errs := make([]error, workers)

			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = s.Refresh(t.Context(), initial.Refresh.Value)
				}()
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				require.ErrorIs(t, err, apperrors.ErrUnauthenticated, "losers must fail as unauthenticated")
			}
			assert.Equal(t, 1, succeeded, "exactly one concurrent refresh should win")
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("kills outstanding refresh token", func(t *testing.T) {
			s, repo := newTestService(t)
			created := createUser(t, s, repo, "ana", "P@ss1")

			_, pair, err := s.Login(t.Context(), "ana", "P@ss1")
			require.NoError(t, err)

			require.NoError(t, s.Logout(t.Context(), created.ID))

			_, err = s.Refresh(t.Context(), pair.Refresh.Value)
			require.ErrorIs(t, err, apperrors.ErrUnauthenticated, "refresh after logout must fail even before expiry")
		})

		t.Run("idempotent", func(t *testing.T) {
			s, repo := newTestService(t)
			created := createUser(t, s, repo, "ana", "P@ss1")

			require.NoError(t, s.Logout(t.Context(), created.ID))
			require.NoError(t, s.Logout(t.Context(), created.ID), "second logout should not fail")
		})
	})
}
