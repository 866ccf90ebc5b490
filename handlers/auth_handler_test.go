package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/agent-gateway/services/auth"
	"golang.org/x/crypto/bcrypt"
)

func expectIdentityByUsername(t *testing.T, mock sqlmock.Sqlmock, username, password string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery(`(?s)FROM identities.*WHERE username`).
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role_id", "active", "created_at"}).
			AddRow(1, username, "admin@example.com", string(hash), 1, true, time.Now()))
}

func TestLoginHandler(t *testing.T) {
	t.Run("issues a token", func(t *testing.T) {
		deps, mock := newTestDeps(t)
		expectIdentityByUsername(t, mock, "admin", "s3cret")

		body := `{"username": "admin", "password": "s3cret"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		LoginHandler(deps)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var pair auth.TokenPair
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&pair))
		assert.NotEmpty(t, pair.Token)
		assert.True(t, pair.ExpiresAt.After(time.Now()))
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		deps, mock := newTestDeps(t)
		expectIdentityByUsername(t, mock, "admin", "s3cret")

		body := `{"username": "admin", "password": "wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		LoginHandler(deps)(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown username is unauthorized", func(t *testing.T) {
		deps, mock := newTestDeps(t)

		mock.ExpectQuery(`(?s)FROM identities.*WHERE username`).
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role_id", "active", "created_at"}))

		body := `{"username": "nobody", "password": "s3cret"}`
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		LoginHandler(deps)(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		deps, _ := newTestDeps(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username": "admin"}`))
		rec := httptest.NewRecorder()
		LoginHandler(deps)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body is rejected", func(t *testing.T) {
		deps, _ := newTestDeps(t)

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		LoginHandler(deps)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
