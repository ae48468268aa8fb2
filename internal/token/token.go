// Package token issues and verifies the signed credentials used by the
// session layer. Tokens are stateless HMAC-signed JWTs carrying the
// username as subject and the user id as issuer; the only server-side
// state involved is the signing secret held by the Manager.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenMalformed       = errors.New("token malformed")
	ErrBadSignature         = errors.New("token signature invalid")
	ErrMissingClaims        = errors.New("token missing required claims")
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// Claims is the verified content of a token. Both fields are guaranteed
// non-empty when Verify returns a nil error.
type Claims struct {
	Subject   string
	IssuerID  string
	ExpiresAt time.Time
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
}

type Manager struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, algorithm string, accessTTL time.Duration, refreshTTL time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	return &Manager{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue signs a token with claims {sub, iss, exp} expiring ttl from now.
func (m *Manager) Issue(subject string, issuerID string, ttl time.Duration) (string, error) {
	now := m.now().UTC()
	claims := jwt.MapClaims{
		"sub": subject,
		"iss": issuerID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) IssueAccess(subject string, issuerID string) (string, error) {
	return m.Issue(subject, issuerID, m.accessTTL)
}

func (m *Manager) IssueRefresh(subject string, issuerID string) (string, error) {
	return m.Issue(subject, issuerID, m.refreshTTL)
}

func (m *Manager) IssuePair(subject string, issuerID string) (Pair, error) {
	access, err := m.IssueAccess(subject, issuerID)
	if err != nil {
		return Pair{}, err
	}

	refresh, err := m.IssueRefresh(subject, issuerID)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.accessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// Verify checks the signature and expiry of tokenString and extracts its
// claims. Failure reasons stay distinguishable through the returned
// sentinel errors so callers can log the cause while presenting a uniform
// unauthenticated response.
func (m *Manager) Verify(tokenString string) (Claims, error) {
	parsed, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != m.method.Alg() {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, t.Method.Alg())
			}
			return m.secret, nil
		},
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrBadSignature
		case errors.Is(err, ErrUnsupportedAlgorithm):
			return Claims{}, ErrBadSignature
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	if !parsed.Valid {
		return Claims{}, ErrTokenMalformed
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrTokenMalformed
	}

	subject, _ := claimsMap["sub"].(string)
	issuerID, _ := claimsMap["iss"].(string)
	if subject == "" || issuerID == "" {
		return Claims{}, ErrMissingClaims
	}

	claims := Claims{Subject: subject, IssuerID: issuerID}
	if exp, err := claimsMap.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}
