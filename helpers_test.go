package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// ---- test wiring ----

// setupEnv points the package-level wiring at an empty in-memory store and
// returns the router. Tests in this package do not run in parallel.
func setupEnv(t *testing.T) *chi.Mux {
	t.Helper()
	cfg = Config{
		JWTSecret:  "test-secret",
		CookieName: "tci_session",
		CORSOrigin: "http://localhost:5173",
	}
	store = newMemStore(false)
	return newRouter(nil)
}

func seedUser(t *testing.T, username, role string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2secret"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, store.CreateUser(u))
	return u
}

func sessionCookie(t *testing.T, u *User) *http.Cookie {
	t.Helper()
	tok, err := signToken(cfg.JWTSecret, u.ID, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: cfg.CookieName, Value: tok}
}

// doJSON runs one request through the router and returns the recorder.
func doJSON(t *testing.T, h http.Handler, method, path string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
