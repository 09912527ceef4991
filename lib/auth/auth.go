// Package auth implements the authentication and authorization of API consumers: bcrypt password hashes, JWT access
// tokens and API keys, single use refresh and reset tokens and the role based access rules of the routes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tarancss/eosapi/lib/store"
)

// Token lifetimes.
const (
	RefreshExpiration = 30 * 24 * time.Hour
	ResetExpiration   = 24 * time.Hour
)

// Token kinds, carried in the claims.
const (
	KindAccess = "access"
	KindAPIKey = "apikey"
)

// TokenType is the scheme of the Authorization header.
const TokenType = "Bearer"

// Errors returned
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNoSecret     = errors.New("no jwt secret configured")
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("cannot hash password: %w", err)
	}

	return string(h), nil
}

// CheckPassword returns ErrUnauthorized unless password matches hash.
func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
	}

	return nil
}

// Claims are the claims of access tokens and API keys. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role,omitempty"`
	Kind  string `json:"kind"`
	Ident string `json:"ident,omitempty"` // API key owner application
}

// Tokens issues and verifies HS256 signed tokens.
type Tokens struct {
	secret     []byte
	expiration time.Duration
	apiKey     time.Duration
	now        func() time.Time
}

// NewTokens returns an issuer. Access tokens last expiration and API keys apiKey.
func NewTokens(secret string, expiration, apiKey time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	return &Tokens{secret: []byte(secret), expiration: expiration, apiKey: apiKey, now: time.Now}, nil
}

// Access returns an access token for u and its expiration time.
func (t *Tokens) Access(u *store.User) (string, time.Time, error) {
	return t.sign(u, KindAccess, "", t.expiration)
}

// APIKey returns a long lived token for the application ident of u.
func (t *Tokens) APIKey(u *store.User, ident string) (string, time.Time, error) {
	return t.sign(u, KindAPIKey, ident, t.apiKey)
}

func (t *Tokens) sign(u *store.User, kind, ident string, ttl time.Duration) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		Role:  u.Role,
		Kind:  kind,
		Ident: ident,
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("cannot sign token: %w", err)
	}

	return s, exp, nil
}

// Verify parses token and returns its claims. Any invalid token returns ErrUnauthorized.
func (t *Tokens) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tk.Header["alg"])
		}

		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	return claims, nil
}

// NewRefreshToken returns a refresh token for u valid for RefreshExpiration.
func NewRefreshToken(u *store.User, now time.Time) store.RefreshToken {
	return store.RefreshToken{
		Token:     opaque(u),
		UserID:    u.ID,
		UserEmail: u.Email,
		Expires:   now.Add(RefreshExpiration),
	}
}

// NewResetToken returns a password reset token for u valid for ResetExpiration.
func NewResetToken(u *store.User, url string, now time.Time) store.ResetToken {
	return store.ResetToken{
		Token:     opaque(u),
		UserID:    u.ID,
		UserEmail: u.Email,
		ResetURL:  url,
		Expires:   now.Add(ResetExpiration),
	}
}

// opaque tokens are <userId>.<random>.
func opaque(u *store.User) string {
	return u.ID + "." + uuid.NewString()
}
