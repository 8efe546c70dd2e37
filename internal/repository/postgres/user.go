package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
	"github.com/amorozov/userhub/internal/repository"
)

type UserRepo struct {
	DB DBTX
}

const userColumns = `id, created_at, username, email, full_name, password_hash, refresh_token, avatar_url, avatar_id, cover_url`

const createUser = `-- name: CreateUser
INSERT INTO users (id, username, email, full_name, password_hash, avatar_url, avatar_id, cover_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + userColumns

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser,
		uuid.New(),
		strings.ToLower(params.Username),
		strings.ToLower(params.Email),
		params.FullName,
		params.PasswordHash,
		params.Avatar.URL,
		params.Avatar.RemoteID,
		params.CoverURL,
	)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByID = `-- name: GetUserByID
SELECT ` + userColumns + ` FROM users
WHERE id = $1
`

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByID, userID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const getUserByLogin = `-- name: GetUserByLogin
SELECT ` + userColumns + ` FROM users
WHERE username = lower($1) OR email = lower($1)
`

// GetUserByLogin matches either username or email, both stored lowercase
func (r *UserRepo) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByLogin, login)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const setRefreshToken = `-- name: SetRefreshToken unconditionally
UPDATE users
SET refresh_token = $2
WHERE id = $1
`

// SetRefreshToken overwrites the stored refresh token whatever it was.
// Login rotates through here, invalidating every earlier session; logout
// passes nil. Idempotent.
func (r *UserRepo) SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	tag, err := r.DB.Exec(ctx, setRefreshToken, userID, token)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const rotateRefreshToken = `-- name: RotateRefreshToken if stored one still matches
UPDATE users
SET refresh_token = $3
WHERE id = $1 AND refresh_token IS NOT DISTINCT FROM $2
RETURNING id
`

const userExists = `-- name: UserExists
SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
`

// RotateRefreshToken is the rotation point of the refresh flow: the token is
// overwritten only if the stored value still equals old, as a single
// conditional UPDATE. Concurrent rotations with the same old value cannot
// both win.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, old *string, new string) error {
	rows, _ := r.DB.Query(ctx, rotateRefreshToken, userID, old, new)
	_, err := pgx.CollectOneRow(rows, pgx.RowTo[uuid.UUID])

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		// No row updated: user absent or stored token already rotated away
		var exists bool
		if err := r.DB.QueryRow(ctx, userExists, userID).Scan(&exists); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if !exists {
			return apperrors.ErrUserNotFound
		}
		return apperrors.ErrUnauthenticated
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

const updatePasswordHash = `-- name: UpdatePasswordHash
UPDATE users
SET password_hash = $2
WHERE id = $1
`

func (r *UserRepo) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	tag, err := r.DB.Exec(ctx, updatePasswordHash, userID, hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

const updateDetails = `-- name: UpdateDetails
UPDATE users
SET full_name = $2, email = lower($3)
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateDetails(ctx context.Context, userID uuid.UUID, fullName string, email string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateDetails, userID, fullName, email)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}
		return user, fmt.Errorf("db error: %w", err)
	}
}

const updateAvatar = `-- name: UpdateAvatar
UPDATE users
SET avatar_url = $2, avatar_id = $3
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateAvatar(ctx context.Context, userID uuid.UUID, ref models.AssetRef) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateAvatar, userID, ref.URL, ref.RemoteID)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const updateCover = `-- name: UpdateCover
UPDATE users
SET cover_url = $2
WHERE id = $1
RETURNING ` + userColumns

func (r *UserRepo) UpdateCover(ctx context.Context, userID uuid.UUID, url string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, updateCover, userID, url)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.CreatedAt,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.HashedPassword,
		&u.RefreshToken,
		&u.Avatar.URL,
		&u.Avatar.RemoteID,
		&u.Cover.URL,
	)
	return u, err
}
