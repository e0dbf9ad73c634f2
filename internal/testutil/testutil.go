// Package testutil carries shared fixtures for handler and integration
// tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"atclicenses.app/server/handlers"
	"atclicenses.app/server/internal/config"
	"atclicenses.app/server/models"
	"atclicenses.app/server/storage"
)

const TestSecret = "test-secret"

// TestConfig returns a config good enough for handler tests.
func TestConfig() *config.Config {
	return &config.Config{
		Port:      "0",
		JWTSecret: TestSecret,
		TokenTTL:  time.Hour,
	}
}

// NewTestServer wires a server around the given storage with a no-op
// logger.
func NewTestServer(store storage.Storage) *handlers.Server {
	return handlers.NewServer(TestConfig(), store, zap.NewNop().Sugar())
}

// Str returns a pointer for patch literals.
func Str(s string) *string {
	return &s
}

// Cell returns a pointer for patch literals.
func Cell(c models.CellValue) *models.CellValue {
	return &c
}

// SeedController inserts a record and returns its id.
func SeedController(t *testing.T, store storage.Storage, patch *models.ControllerPatch) int64 {
	t.Helper()
	id, err := store.InsertController(context.Background(), patch)
	if err != nil {
		t.Fatalf("Failed to seed controller: %v", err)
	}
	return id
}

// SeedUser creates an account with a bcrypt-hashed password.
func SeedUser(t *testing.T, store storage.Storage, username, password string, admin bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	err = store.CreateUser(context.Background(), &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Admin:        admin,
	})
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
}

// AuthToken signs a bearer token accepted by servers built with
// TestConfig.
func AuthToken(t *testing.T, username string, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": username,
		"adm": admin,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(TestSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// DoJSON sends a JSON request through the router and records the
// response. An empty token leaves the request unauthenticated.
func DoJSON(t *testing.T, server *handlers.Server, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

// DecodeJSON decodes a recorded response body.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// AssertStatus fails the test when the response code differs.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("Expected status %d, got %d (body: %s)", want, w.Code, w.Body.String())
	}
}

// AssertErrorResponse checks status code and error message.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantError string) {
	t.Helper()
	AssertStatus(t, w, wantStatus)
	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if response["error"] != wantError {
		t.Errorf("Expected error '%s', got '%s'", wantError, response["error"])
	}
}
