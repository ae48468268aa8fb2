package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"go-todo-api/internal/model"
	"go-todo-api/internal/token"
)

type tokenVerifier interface {
	VerifyToken(tokenString string) (token.Claims, error)
}

type adminChecker interface {
	IsAdmin(ctx context.Context, username string) (bool, error)
}

type contextKey string

const authClaimsContextKey contextKey = "auth_claims"

const accessTokenCookie = "access_token"

type AuthMiddleware struct {
	verifier tokenVerifier
	accounts adminChecker
}

func NewAuthMiddleware(verifier tokenVerifier, accounts adminChecker) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, accounts: accounts}
}

// Authenticate resolves the current user for every request. Any failure
// (missing, malformed, expired, tampered token) leaves the request
// anonymous; the reason is kept in the logs while the client only ever
// sees a uniform 401 from RequireAuth.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.verifier.VerifyToken(raw)
		if err != nil {
			slog.Debug("access token rejected", "reason", err, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests with 401. It assumes Authenticate
// already ran.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ClaimsFromContext(r.Context()); !ok {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects authenticated non-admin users with 403.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}

		isAdmin, err := m.accounts.IsAdmin(r.Context(), claims.Subject)
		if err != nil {
			slog.Error("admin check failed", "error", err, "username", claims.Subject)
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}
		if !isAdmin {
			writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(authClaimsContextKey).(token.Claims)
	return claims, ok
}

// extractBearerToken reads the access token from the Authorization header
// or, failing that, the access_token cookie. Cookie values may carry the
// "Bearer " prefix for compatibility with clients of the cookie flow.
func extractBearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header != "" {
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}

	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return StripBearerPrefix(cookie.Value)
}

// StripBearerPrefix accepts both "Bearer <token>" and bare token values.
func StripBearerPrefix(value string) string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return value
}

func writeAuthError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    code,
			Message: message,
		},
	})
}
