package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
)

const (
	defaultSigningMethod   = "HS256"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 10 * 24 * time.Hour
)

type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// Token manager with sensible defaults
type Config struct {
	// Secret keys to sign tokens. Required to be set and distinct per kind,
	// so a refresh token can never verify as an access token or vice versa
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set than default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenManager mints and verifies token pairs. It is a pure function of its
// secrets and the clock: freshness against the stored rotating secret is the
// session service's job, not the manager's.
type TokenManager struct {
	accessKey  string
	refreshKey string

	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("both signing secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenManager{
		accessKey:  cfg.AccessSecret,
		refreshKey: cfg.RefreshSecret,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

// Issue mints a signed access and refresh token pair for the user
func (m *TokenManager) Issue(userID uuid.UUID) (models.TokenPair, error) {
	var pair models.TokenPair
	now := time.Now().Truncate(time.Second)

	access, accessExpiresAt, err := m.sign(userID, now, m.accessTTL, m.accessKey)
	if err != nil {
		return pair, fmt.Errorf("error while signing access token. Err: %w", err)
	}

	refresh, refreshExpiresAt, err := m.sign(userID, now, m.refreshTTL, m.refreshKey)
	if err != nil {
		return pair, fmt.Errorf("error while signing refresh token. Err: %w", err)
	}

	return models.TokenPair{
		Access:  models.IssuedToken{Value: access, ExpiresAt: accessExpiresAt},
		Refresh: models.IssuedToken{Value: refresh, ExpiresAt: refreshExpiresAt},
	}, nil
}

func (m *TokenManager) sign(userID uuid.UUID, now time.Time, ttl time.Duration, key string) (string, time.Time, error) {
	expiresAt := now.Add(ttl)

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
		},
	)

	signed, err := token.SignedString([]byte(key))
	return signed, expiresAt, err
}

// ParseAccess parses and validates an access token
func (m *TokenManager) ParseAccess(access string) (uuid.UUID, error) {
	return m.parse(access, m.accessKey)
}

// ParseRefresh parses and validates a refresh token. A valid signature only
// proves the token was issued here: whether it is still the active one is
// decided against the stored secret by the caller.
func (m *TokenManager) ParseRefresh(refresh string) (uuid.UUID, error) {
	return m.parse(refresh, m.refreshKey)
}

func (m *TokenManager) parse(tokenString string, key string) (uuid.UUID, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(key), nil },
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", apperrors.ErrTokenInvalid, err)
	}

	return claims.UserID, nil
}
