package integration

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stretchr/testify/require"

	"github.com/amorozov/userhub/internal/handlers"
	"github.com/amorozov/userhub/internal/logger"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository/postgres"
	"github.com/amorozov/userhub/internal/service/asset"
	"github.com/amorozov/userhub/internal/service/auth"
	"github.com/amorozov/userhub/internal/service/auth/tokenmanager"
	"github.com/amorozov/userhub/internal/service/user"
	"github.com/amorozov/userhub/internal/testutil"
)

type Services struct {
	AuthService  *auth.AuthService
	UserService  *user.UserService
	AssetService *asset.AssetService
	RemoteStore  *FakeRemoteStore
}

// FakeRemoteStore stands in for the S3 store: uploads succeed and return a
// predictable ref, deletes are recorded.
type FakeRemoteStore struct {
	Deletes []string
}

func (f *FakeRemoteStore) Upload(_ context.Context, file models.StagedFile) (models.AssetRef, error) {
	return models.AssetRef{
		URL:      "https://store.local/" + string(file.Slot) + ".png",
		RemoteID: string(file.Slot) + "-1",
	}, nil
}

func (f *FakeRemoteStore) Delete(_ context.Context, remoteID string) error {
	f.Deletes = append(f.Deletes, remoteID)
	return nil
}

// RegisterTestUser creates a user with a staged avatar and the password
// "StrongEnoughPassword".
func RegisterTestUser(t *testing.T, s Services, username string) models.User {
	t.Helper()

	path := filepath.Join(t.TempDir(), "avatar.png")
	require.NoError(t, os.WriteFile(path, []byte("avatar bytes"), 0o600))

	u, err := s.UserService.Register(t.Context(), user.RegisterParams{
		Username: username,
		Email:    username + "@example.com",
		FullName: "Test User",
		Password: "StrongEnoughPassword",
		Avatar:   models.StagedFile{Path: path, Slot: models.SlotAvatar},
	})
	require.NoError(t, err)

	return u
}

// Create db transaction and run server with that connection (one connection cause one transaction)
// The created transaction passed to inner function: so, you can safely use testutil.WithTx with it
func ServeWithTx(dbpool *pgxpool.Pool, t *testing.T, fn func(tx pgx.Tx, srvURL string, services Services)) {
	testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
		userRepo := &postgres.UserRepo{DB: tx}

		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
		})
		require.NoError(t, err, "token manager should be created without errors")

		as, err := auth.NewService(auth.Config{}, tokenManager, userRepo)
		require.NoError(t, err, "auth service starting error")

		store := &FakeRemoteStore{}
		assets, err := asset.NewService(store, userRepo, nil)
		require.NoError(t, err, "asset service starting error")

		us, err := user.NewService(userRepo, assets, nil)
		require.NoError(t, err, "user service starting error")

		router := handlers.NewRouter(as, us, assets, t.TempDir(), logger.NewNoOpLogger())

		// Run http server with the router in transaction
		srv := httptest.NewServer(router)
		defer srv.Close()

		fn(tx, srv.URL, Services{
			AuthService:  as,
			UserService:  us,
			AssetService: assets,
			RemoteStore:  store,
		})
	})
}
