package users

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorozov/userhub/internal/testutil"
	"github.com/amorozov/userhub/tests/integration"
)

const (
	RegisterURL = "/api/users/register"
	LoginURL    = "/api/users/login"
	AvatarURL   = "/api/users/avatar"
)

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return buf, mw.FormDataContentType()
}

func Test_UserProfile(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("register over http", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s integration.Services) {
			body, contentType := multipartBody(t,
				map[string]string{
					"username":  "Ana",
					"email":     "Ana@Example.com",
					"full_name": "Ana Morozova",
					"password":  "StrongEnoughPassword",
				},
				map[string][]byte{"avatar": []byte("avatar bytes")},
			)

			resp, err := http.Post(srvURL+RegisterURL, contentType, body)
			require.NoError(t, err)
			respBody, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() // nolint:errcheck

			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", string(respBody))
			assert.Contains(t, string(respBody), `"username":"ana"`, "username should be stored lowercase")
			assert.Contains(t, string(respBody), `"avatar_url":"https://store.local/avatar.png"`)

			// The record actually hit the database
			var count int
			err = tx.QueryRow(t.Context(), "SELECT count(*) FROM users WHERE username = 'ana'").Scan(&count)
			require.NoError(t, err)
			require.Equal(t, 1, count)
		})
	})

	t.Run("register duplicate", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s integration.Services) {
			integration.RegisterTestUser(t, s, "ana")

			body, contentType := multipartBody(t,
				map[string]string{
					"username":  "ana",
					"email":     "other@example.com",
					"full_name": "Ana",
					"password":  "StrongEnoughPassword",
				},
				map[string][]byte{"avatar": []byte("avatar bytes")},
			)

			resp, err := http.Post(srvURL+RegisterURL, contentType, body)
			require.NoError(t, err)
			respBody, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() // nolint:errcheck

			require.Equalf(t, http.StatusConflict, resp.StatusCode, "not expected code. Body: %s", string(respBody))
		})
	})

	t.Run("replace avatar deletes previous remote object", func(t *testing.T) {
		integration.ServeWithTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s integration.Services) {
			integration.RegisterTestUser(t, s, "ana")

			// Login to get an access token
			data := `{"login": "ana", "password": "StrongEnoughPassword"}`
			resp, err := http.Post(srvURL+LoginURL, "application/json", strings.NewReader(data))
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			access := resp.Header.Get("Authorization")
			require.Contains(t, access, "Bearer")

			body, contentType := multipartBody(t, nil, map[string][]byte{"avatar": []byte("new avatar bytes")})
			req, err := http.NewRequest(http.MethodPut, srvURL+AvatarURL, body)
			require.NoError(t, err)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", access)

			resp, err = http.DefaultClient.Do(req)
			require.NoError(t, err)
			respBody, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() // nolint:errcheck

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", string(respBody))
			require.Equal(t, []string{"avatar-1"}, s.RemoteStore.Deletes, "previous remote object should be deleted exactly once")
		})
	})
}
