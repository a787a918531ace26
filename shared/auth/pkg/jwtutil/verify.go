package jwtutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"pulsetrack/shared/auth/rbac"
	xerrors "pulsetrack/shared/utils/errors"
)

// Verify checks signature first, then expiry, subject and role, in that
// order. Only HS256 is accepted and a token without exp is invalid.
func (a *Authority) Verify(tokenStr string) (Identity, error) {
	claims := new(Claims)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, xerrors.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", xerrors.ErrInvalidSignature, err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, xerrors.ErrEmptySubject
	}
	role := rbac.Role(claims.Role)
	if !role.Valid() {
		return Identity{}, fmt.Errorf("%w: %q", xerrors.ErrInvalidRole, claims.Role)
	}
	return Identity{Subject: claims.Subject, Role: role}, nil
}
