package middleware

import (
	"errors"
	"net/http"
	"strings"

	"pulsetrack/shared/auth/pkg/jwtutil"
	"pulsetrack/shared/auth/rbac"
	xerrors "pulsetrack/shared/utils/errors"

	"go.uber.org/zap"
)

// TokenVerifier is the part of jwtutil.Authority the gate needs.
type TokenVerifier interface {
	Verify(token string) (jwtutil.Identity, error)
}

// PathRule requires Permission for every path under Prefix. Methods
// narrows the rule; empty matches every method.
type PathRule struct {
	Prefix     string
	Methods    []string
	Permission rbac.Permission
}

func (pr PathRule) matches(r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, pr.Prefix) {
		return false
	}
	if len(pr.Methods) == 0 {
		return true
	}
	for _, m := range pr.Methods {
		if m == r.Method {
			return true
		}
	}
	return false
}

// Gate authenticates every request that is not on the public allow-list.
// Any failure ends in 403 with an empty body; the cause is only logged.
type Gate struct {
	verifier   TokenVerifier
	authorizer rbac.Authorizer
	public     []string
	rules      []PathRule
	logger     *zap.Logger
}

func NewGate(verifier TokenVerifier, cfg GateConfig, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	authz := cfg.Authorizer
	if authz == nil {
		authz = rbac.RoleAuthorizer{}
	}
	rules := make([]PathRule, 0, len(cfg.AdminPrefixes)+len(cfg.Rules))
	for _, p := range cfg.AdminPrefixes {
		rules = append(rules, PathRule{Prefix: p, Permission: rbac.PermAdmin})
	}
	rules = append(rules, cfg.Rules...)

	return &Gate{
		verifier:   verifier,
		authorizer: authz,
		public:     append([]string(nil), cfg.PublicPrefixes...),
		rules:      rules,
		logger:     logger,
	}
}

func (g *Gate) isPublic(path string) bool {
	for _, p := range g.public {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (g *Gate) required(r *http.Request) []rbac.Permission {
	var perms []rbac.Permission
	for _, rule := range g.rules {
		if rule.matches(r) {
			perms = append(perms, rule.Permission)
		}
	}
	return perms
}

func forbid(w http.ResponseWriter) {
	w.WriteHeader(http.StatusForbidden)
}

func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if g.isPublic(path) {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := extractBearer(r)
		if !ok {
			g.logger.Debug("rejected: missing bearer token", zap.String("path", path))
			forbid(w)
			return
		}

		identity, err := g.verifier.Verify(token)
		if err != nil {
			g.logger.Info("rejected: token verification failed",
				zap.String("path", path),
				zap.String("reason", verifyReason(err)),
				zap.Error(err),
			)
			forbid(w)
			return
		}

		principal := rbac.Principal{Subject: identity.Subject, Role: identity.Role}
		for _, perm := range g.required(r) {
			if !g.authorizer.Authorize(principal, perm) {
				g.logger.Info("rejected: insufficient permission",
					zap.String("path", path),
					zap.String("subject", principal.Subject),
					zap.String("role", principal.Role.String()),
					zap.String("permission", string(perm)),
				)
				forbid(w)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, xerrors.ErrTokenExpired):
		return "expired"
	case errors.Is(err, xerrors.ErrEmptySubject):
		return "empty_subject"
	case errors.Is(err, xerrors.ErrInvalidRole):
		return "invalid_role"
	default:
		return "invalid_signature"
	}
}
