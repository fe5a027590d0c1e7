// Package auth holds the credential primitives: bcrypt password hashing and
// issuing/verifying HS256 JWT access tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is used by Issue when the caller passes no ttl.
const DefaultTokenTTL = 15 * time.Minute

// ErrMissingSecretKey is returned by NewTokenCodec for an empty secret.
var ErrMissingSecretKey = errors.New("jwt secret key is empty")

// Claims carries the registered claims only; sub is the username.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies signed, time-limited identity tokens.
// It is immutable after construction and safe for concurrent use.
type TokenCodec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithDefaultTTL overrides DefaultTokenTTL.
func WithDefaultTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now, for issuing and for expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewTokenCodec(secretKey []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secretKey) == 0 {
		return nil, ErrMissingSecretKey
	}

	c := &TokenCodec{
		secret:     append([]byte(nil), secretKey...),
		defaultTTL: DefaultTokenTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for subject valid for ttl (the codec default when
// ttl <= 0).
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	return GenerateToken(subject, c.secret, ttl, c.now())
}

// Verify returns the subject of a valid token. Expired tokens yield
// common.ErrTokenExpired, anything else common.ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string) (string, error) {
	return GetSubjectFromToken(tokenString, c.secret, c.now)
}

// GenerateToken builds and signs an HS256 token for subject issued at now.
func GenerateToken(subject string, secretKey []byte, validityDuration time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
			ID:        uuid.NewString(),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSubjectFromToken parses tokenString, checking signature, algorithm and
// expiry against now.
func GetSubjectFromToken(tokenString string, secretKey []byte, now func() time.Time) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
