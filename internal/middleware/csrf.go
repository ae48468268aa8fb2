package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"go-todo-api/internal/model"
)

// CSRF implements double-submit protection: a random token is handed to
// the client at login while its HMAC-signed counterpart lives in a cookie.
// Unsafe requests must present the token in the configured header; the
// middleware recomputes the signature and compares both halves.
type CSRF struct {
	secret     []byte
	cookieName string
	headerName string
	enabled    bool
	httpOnly   bool
	secure     bool
	sameSite   http.SameSite
}

type CSRFOptions struct {
	Secret     string
	CookieName string
	HeaderName string
	Enabled    bool
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
}

func NewCSRF(opts CSRFOptions) *CSRF {
	return &CSRF{
		secret:     []byte(opts.Secret),
		cookieName: opts.CookieName,
		headerName: opts.HeaderName,
		enabled:    opts.Enabled,
		httpOnly:   opts.HTTPOnly,
		secure:     opts.Secure,
		sameSite:   opts.SameSite,
	}
}

func (c *CSRF) Enabled() bool { return c.enabled }

// IssuePair mints a fresh token and its signed cookie value. The token
// goes to the client in the login response; the cookie half is set via
// SetCookie.
func (c *CSRF) IssuePair() (string, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate csrf token: %w", err)
	}

	tokenValue := hex.EncodeToString(buf)
	return tokenValue, tokenValue + "." + c.sign(tokenValue), nil
}

func (c *CSRF) SetCookie(w http.ResponseWriter, signedValue string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    signedValue,
		Path:     "/",
		HttpOnly: c.httpOnly,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

func (c *CSRF) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: c.httpOnly,
		Secure:   c.secure,
		SameSite: c.sameSite,
	})
}

// Protect validates the double-submit pair on state-changing methods.
// Safe methods pass through untouched.
func (c *CSRF) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.enabled || isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(c.cookieName)
		if err != nil {
			c.reject(w, "csrf cookie missing")
			return
		}

		tokenValue, signature, found := strings.Cut(cookie.Value, ".")
		if !found || !hmac.Equal([]byte(signature), []byte(c.sign(tokenValue))) {
			c.reject(w, "csrf cookie invalid")
			return
		}

		header := strings.TrimSpace(r.Header.Get(c.headerName))
		if header == "" || !hmac.Equal([]byte(header), []byte(tokenValue)) {
			c.reject(w, "csrf token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CSRF) sign(tokenValue string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(tokenValue))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *CSRF) reject(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    "CSRF_FAILED",
			Message: message,
		},
	})
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
