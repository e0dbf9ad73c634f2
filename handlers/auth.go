package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"atclicenses.app/server/models"
	"atclicenses.app/server/storage"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	Username  string
	Workplace string
	Admin     bool
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimiter.Allow(remoteHost(r)) {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.Storage.FindUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Same message as a wrong password so usernames cannot be probed.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.Logger.Errorw("find user", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	expiresAt := s.Now().Add(s.Config.TokenTTL)
	token, err := s.signToken(user, expiresAt)
	if err != nil {
		s.Logger.Errorw("sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Server) signToken(user *models.User, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": user.Username,
		"wpl": user.Workplace,
		"adm": user.Admin,
		"iat": s.Now().Unix(),
		"exp": expiresAt.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Config.JWTSecret))
}

// RequireAuth verifies the bearer token and stores the caller identity
// on the request context.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (any, error) {
			return []byte(s.Config.JWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		identity := Identity{}
		identity.Username, _ = claims["sub"].(string)
		identity.Workplace, _ = claims["wpl"].(string)
		identity.Admin, _ = claims["adm"].(bool)
		if identity.Username == "" {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerIdentity(r *http.Request) Identity {
	identity, _ := r.Context().Value(identityContextKey).(Identity)
	return identity
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "current and new password are required")
		return
	}

	identity := callerIdentity(r)
	user, err := s.Storage.FindUserByUsername(r.Context(), identity.Username)
	if err != nil {
		s.Logger.Errorw("find user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	if _, err := s.Storage.UpdateUserPassword(r.Context(), identity.Username, string(hash)); err != nil {
		s.Logger.Errorw("update password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to change password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

type createUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Workplace string `json:"workplace"`
	Admin     bool   `json:"admin"`
}

func (s *Server) CreateUser(w http.ResponseWriter, r *http.Request) {
	if !callerIdentity(r).Admin {
		writeError(w, http.StatusForbidden, "admin privileges required")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	user := &models.User{
		Username:     req.Username,
		PasswordHash: string(hash),
		Workplace:    req.Workplace,
		Admin:        req.Admin,
	}
	if err := s.Storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "username already taken")
			return
		}
		s.Logger.Errorw("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)
	if !identity.Admin {
		writeError(w, http.StatusForbidden, "admin privileges required")
		return
	}
	username := chi.URLParam(r, "username")
	if username == identity.Username {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	matched, err := s.Storage.DeleteUser(r.Context(), username)
	if err != nil {
		s.Logger.Errorw("delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
