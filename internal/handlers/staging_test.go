package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorozov/userhub/internal/apperrors"
	"github.com/amorozov/userhub/internal/models"
)

func multipartRequest(t *testing.T, files map[string][]byte) *http.Request {
	t.Helper()

	body, contentType := multipartBody(t, nil, files)
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", contentType)

	return req
}

func Test_StageUploadedFile(t *testing.T) {
	t.Parallel()

	t.Run("stages the file intact", func(t *testing.T) {
		dir := t.TempDir()
		content := bytes.Repeat([]byte("a"), maxUploadBytes)
		req := multipartRequest(t, map[string][]byte{"avatar": content})

		file, err := stageUploadedFile(req, "avatar", models.SlotAvatar, dir)

		require.NoError(t, err)
		staged, err := os.ReadFile(file.Path)
		require.NoError(t, err)
		assert.Len(t, staged, len(content), "staged file must hold every uploaded byte")
		assert.Equal(t, models.SlotAvatar, file.Slot)
	})

	t.Run("oversized upload rejected, nothing staged", func(t *testing.T) {
		dir := t.TempDir()
		content := bytes.Repeat([]byte("a"), maxUploadBytes+1)
		req := multipartRequest(t, map[string][]byte{"avatar": content})

		_, err := stageUploadedFile(req, "avatar", models.SlotAvatar, dir)

		require.ErrorIs(t, err, errFileTooLarge, "a too large upload must fail, not stage truncated")

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "no staged file may be left behind")
	})

	t.Run("missing field", func(t *testing.T) {
		req := multipartRequest(t, map[string][]byte{"other": []byte("x")})

		_, err := stageUploadedFile(req, "avatar", models.SlotAvatar, t.TempDir())

		require.ErrorIs(t, err, apperrors.ErrFileMissing)
	})
}
