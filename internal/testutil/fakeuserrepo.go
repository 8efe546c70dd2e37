package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository"
)

// FakeUserRepo is an in-memory repository.UserRepo for service level tests.
// The mutex makes RotateRefreshToken the same atomic compare-and-set the
// postgres conditional UPDATE provides, so rotation races are observable.
type FakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{users: map[uuid.UUID]models.User{}}
}

func (r *FakeUserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username := strings.ToLower(params.Username)
	email := strings.ToLower(params.Email)

	for _, u := range r.users {
		if u.Username == username || u.Email == email {
			return models.User{}, apperrors.ErrUserAlreadyExists
		}
	}

	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		Username:       username,
		Email:          email,
		FullName:       params.FullName,
		HashedPassword: params.PasswordHash,
		Avatar:         params.Avatar,
		Cover:          models.AssetRef{URL: params.CoverURL},
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *FakeUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r *FakeUserRepo) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	login = strings.ToLower(login)
	for _, u := range r.users {
		if u.Username == login || u.Email == login {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

func (r *FakeUserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.RefreshToken = token
	r.users[userID] = user
	return nil
}

func (r *FakeUserRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, old *string, new string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if !equalToken(user.RefreshToken, old) {
		return apperrors.ErrUnauthenticated
	}

	user.RefreshToken = &new
	r.users[userID] = user
	return nil
}

func (r *FakeUserRepo) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.HashedPassword = hash
	r.users[userID] = user
	return nil
}

func (r *FakeUserRepo) UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	user.FullName = fullName
	user.Email = strings.ToLower(email)
	r.users[userID] = user
	return user, nil
}

func (r *FakeUserRepo) UpdateAvatar(ctx context.Context, userID uuid.UUID, ref models.AssetRef) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	user.Avatar = ref
	r.users[userID] = user
	return user, nil
}

func (r *FakeUserRepo) UpdateCover(ctx context.Context, userID uuid.UUID, url string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	user.Cover = models.AssetRef{URL: url}
	r.users[userID] = user
	return user, nil
}

// DeleteUser is a test hook to simulate a record disappearing mid-flight.
// Not part of repository.UserRepo.
func (r *FakeUserRepo) DeleteUser(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, userID)
}

func equalToken(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
