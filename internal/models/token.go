package models

import (
	"time"
)

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by the token manager on login or refresh.
// Ephemeral: never persisted as a unit, only the refresh value is stored
// on the user record as the rotating secret.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
