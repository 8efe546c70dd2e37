package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Username  string
	Email     string
	FullName  string

	// Never exposed outward. Handlers build their own response structs,
	// so neither field ever reaches a serializer.
	HashedPassword string

	// Currently valid refresh token. Nil means logged out everywhere:
	// every outstanding refresh token is invalid regardless of expiry.
	RefreshToken *string

	// Avatar is mandatory from registration on, cover may stay empty.
	Avatar AssetRef
	Cover  AssetRef
}
