package apperrors

import (
	"errors"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token is malformed, expired, of the wrong kind or signed with
	// the wrong key. The session layer maps it to ErrUnauthenticated.
	ErrTokenInvalid = errors.New("token invalid")

	// Missing, expired or rotated-away credentials. A well-formed refresh
	// token that no longer matches the stored secret lands here too: that
	// mismatch is the reuse-detection signal.
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrFileMissing  = errors.New("file missing")
	ErrUploadFailed = errors.New("upload failed")
)
