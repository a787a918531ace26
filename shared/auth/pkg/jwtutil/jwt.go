package jwtutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pulsetrack/shared/auth/rbac"
	xerrors "pulsetrack/shared/utils/errors"
)

// MinSecretLen is the smallest HMAC key accepted for HS256.
const MinSecretLen = 32

const DefaultLifetime = 10 * time.Hour

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts about its bearer.
type Identity struct {
	Subject string
	Role    rbac.Role
}

// Authority issues and verifies HS256 identity tokens. It holds no mutable
// state and is safe for concurrent use.
type Authority struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

type Option func(*Authority)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Authority) { a.now = now }
}

func NewAuthority(secret string, lifetime time.Duration, opts ...Option) (*Authority, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", xerrors.ErrWeakSecret, MinSecretLen, len(secret))
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	a := &Authority{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Authority) Lifetime() time.Duration { return a.lifetime }

func (a *Authority) Issue(subject string, role rbac.Role) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", xerrors.ErrEmptySubject
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", xerrors.ErrInvalidRole, role)
	}
	now := a.now()
	claims := Claims{
		Role: role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.lifetime)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
