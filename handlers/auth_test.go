package handlers_test

import (
	"net/http"
	"testing"

	"atclicenses.app/server/internal/testutil"
	"atclicenses.app/server/storage"
)

func TestLogin(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	testutil.SeedUser(t, store, "hana", "s3cret", false)

	body := map[string]string{"username": "hana", "password": "s3cret"}
	w := testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login", body, "")
	testutil.AssertStatus(t, w, http.StatusOK)

	var response struct {
		Token string `json:"token"`
	}
	testutil.DecodeJSON(t, w, &response)
	if response.Token == "" {
		t.Fatal("Expected a token")
	}

	// The issued token must be accepted by protected routes.
	w = testutil.DoJSON(t, server, http.MethodGet, "/api/controllers", nil, response.Token)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	testutil.SeedUser(t, store, "hana", "s3cret", false)

	// Wrong password and unknown username answer identically.
	w := testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "hana", "password": "wrong"}, "")
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid credentials")

	w = testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "nobody", "password": "s3cret"}, "")
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid credentials")
}

func TestLoginValidation(t *testing.T) {
	server := testutil.NewTestServer(storage.NewMemoryStorage())

	w := testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "hana"}, "")
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "username and password are required")
}

func TestLoginRateLimited(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	testutil.SeedUser(t, store, "hana", "s3cret", false)

	body := map[string]string{"username": "hana", "password": "wrong"}
	for i := 0; i < 10; i++ {
		w := testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login", body, "")
		testutil.AssertStatus(t, w, http.StatusUnauthorized)
	}

	w := testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login", body, "")
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
}

func TestRequireAuthRejectsBadTokens(t *testing.T) {
	server := testutil.NewTestServer(storage.NewMemoryStorage())

	w := testutil.DoJSON(t, server, http.MethodGet, "/api/stats", nil, "")
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "missing bearer token")

	w = testutil.DoJSON(t, server, http.MethodGet, "/api/stats", nil, "not-a-jwt")
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid or expired token")
}

func TestChangePassword(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	testutil.SeedUser(t, store, "hana", "s3cret", false)
	token := testutil.AuthToken(t, "hana", false)

	w := testutil.DoJSON(t, server, http.MethodPost, "/api/auth/password",
		map[string]string{"current_password": "wrong", "new_password": "fresh"}, token)
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, "current password is incorrect")

	w = testutil.DoJSON(t, server, http.MethodPost, "/api/auth/password",
		map[string]string{"current_password": "s3cret", "new_password": "fresh"}, token)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = testutil.DoJSON(t, server, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "hana", "password": "fresh"}, "")
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)

	body := map[string]any{"username": "omar", "password": "pass"}

	w := testutil.DoJSON(t, server, http.MethodPost, "/api/users", body, testutil.AuthToken(t, "hana", false))
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, "admin privileges required")

	w = testutil.DoJSON(t, server, http.MethodPost, "/api/users", body, testutil.AuthToken(t, "admin", true))
	testutil.AssertStatus(t, w, http.StatusCreated)

	// The password hash must never leave the server.
	var created map[string]any
	testutil.DecodeJSON(t, w, &created)
	if _, exposed := created["password_hash"]; exposed {
		t.Error("Response exposes the password hash")
	}

	w = testutil.DoJSON(t, server, http.MethodPost, "/api/users", body, testutil.AuthToken(t, "admin", true))
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "username already taken")
}

func TestDeleteUser(t *testing.T) {
	store := storage.NewMemoryStorage()
	server := testutil.NewTestServer(store)
	testutil.SeedUser(t, store, "omar", "pass", false)
	admin := testutil.AuthToken(t, "admin", true)

	w := testutil.DoJSON(t, server, http.MethodDelete, "/api/users/admin", nil, admin)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "cannot delete your own account")

	w = testutil.DoJSON(t, server, http.MethodDelete, "/api/users/omar", nil, admin)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = testutil.DoJSON(t, server, http.MethodDelete, "/api/users/omar", nil, admin)
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, "user not found")
}
