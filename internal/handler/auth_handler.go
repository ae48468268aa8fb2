package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go-todo-api/internal/middleware"
	"go-todo-api/internal/model"
	"go-todo-api/internal/service"
	"go-todo-api/pkg/apierror"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// CookieOptions carries the configured attributes for the auth cookies.
type CookieOptions struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

type AuthHandler struct {
	service *service.AuthService
	csrf    *middleware.CSRF
	cookies CookieOptions
}

func NewAuthHandler(service *service.AuthService, csrf *middleware.CSRF, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{service: service, csrf: csrf, cookies: cookies}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.service.SignUp(r.Context(), payload)
	if err != nil {
		// The email failure path reports a downstream error even though
		// the user row is already committed.
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	pair, user, err := h.service.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookie(w, accessTokenCookie, pair.AccessToken, h.service.AccessTTL())
	h.setAuthCookie(w, refreshTokenCookie, pair.RefreshToken, h.service.RefreshTTL())

	response := model.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         user.Public(),
	}

	if h.csrf.Enabled() {
		tokenValue, signed, err := h.csrf.IssuePair()
		if err != nil {
			writeError(w, err)
			return
		}
		h.csrf.SetCookie(w, signed)
		response.CSRFToken = tokenValue
	}

	writeSuccess(w, http.StatusOK, response)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	refreshToken := refreshTokenFromRequest(r)
	if refreshToken == "" {
		writeError(w, apierror.New("BAD_REQUEST", "refresh_token is required", "refresh_token", http.StatusBadRequest))
		return
	}

	access, _, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setAuthCookie(w, accessTokenCookie, access, h.service.AccessTTL())

	writeSuccess(w, http.StatusOK, model.RefreshResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.service.AccessTTL().Seconds()),
	})
}

// Logout clears the auth cookies. There is no server-side session to
// destroy, so it always succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookie(w, accessTokenCookie)
	h.clearAuthCookie(w, refreshTokenCookie)
	if h.csrf.Enabled() {
		h.csrf.ClearCookie(w)
	}

	writeSuccess(w, http.StatusNoContent, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	user, err := h.service.GetUserByUsername(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

// refreshTokenFromRequest prefers the cookie and falls back to the JSON
// body for non-browser clients. Cookie values may carry a Bearer prefix.
func refreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		if value := middleware.StripBearerPrefix(cookie.Value); value != "" {
			return value
		}
	}

	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
		return strings.TrimSpace(payload.RefreshToken)
	}

	return ""
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, name string, tokenValue string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    tokenValue,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: h.cookies.HTTPOnly,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}

func (h *AuthHandler) clearAuthCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: h.cookies.HTTPOnly,
		Secure:   h.cookies.Secure,
		SameSite: h.cookies.SameSite,
	})
}
