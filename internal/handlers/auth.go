package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akilli-icerik/apiserver/internal/services"
	"github.com/akilli-icerik/apiserver/internal/store"
)

// TokenHeader is the header clients present their bearer token in.
const TokenHeader = "X-API-TOKEN"

// AuthHandler provides registration, login and identity endpoints backed by
// opaque bearer tokens.
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService) {
	handler := NewAuthHandler(userService)

	r.Post("/register", handler.Register)
	r.Post("/token", handler.Token)
	r.With(handler.RequireAuth).Get("/users/me", handler.Me)
}

// RequireAuth resolves the X-API-TOKEN header to its owning user and
// injects the user into the request context. Unresolved tokens get a
// uniform 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(TokenHeader))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing or invalid X-API-TOKEN")
			return
		}

		user, err := h.userService.ResolveToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "missing or invalid X-API-TOKEN")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		ctx := context.WithValue(r.Context(), contextUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Register creates a new user account and returns its first token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.UserIDStr = strings.TrimSpace(req.UserIDStr)
	req.Email = strings.TrimSpace(req.Email)
	if req.UserIDStr == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "user_id_str, email and password are required")
		return
	}

	_, token, err := h.userService.Register(r.Context(), req.UserIDStr, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusBadRequest, "user id or email already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Token verifies form credentials and mints a fresh token. Failures are
// reported uniformly, never revealing whether the handle exists.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.userService.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{
		ID:        user.ID,
		UserIDStr: user.UserIDStr,
		Email:     user.Email,
	})
}

type RegisterRequest struct {
	UserIDStr string `json:"user_id_str"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type MeResponse struct {
	ID        int    `json:"id"`
	UserIDStr string `json:"user_id_str"`
	Email     string `json:"email"`
}
