package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"pulsetrack/services/auth-service/internal/domain"
	"pulsetrack/shared/auth/rbac"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

var authAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Signup and login attempts by outcome",
	},
	[]string{"op", "result"},
)

type UserStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type TokenIssuer interface {
	Issue(subject string, role rbac.Role) (string, error)
	Lifetime() time.Duration
}

type AuthUsecase struct {
	users  UserStore
	tokens TokenIssuer
	cost   int
	now    func() time.Time
	logger *zap.Logger
}

func NewAuthUsecase(users UserStore, tokens TokenIssuer, bcryptCost int, logger *zap.Logger) *AuthUsecase {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthUsecase{
		users:  users,
		tokens: tokens,
		cost:   bcryptCost,
		now:    time.Now,
		logger: logger,
	}
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Signup registers a new account. The email is the natural key.
func (uc *AuthUsecase) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) {
		authAttempts.WithLabelValues("signup", "invalid").Inc()
		return nil, fmt.Errorf("%w: email should be valid", xerrors.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Username) == "" {
		authAttempts.WithLabelValues("signup", "invalid").Inc()
		return nil, fmt.Errorf("%w: username should not be blank", xerrors.ErrInvalidInput)
	}
	if len(req.Password) < minPasswordLen {
		authAttempts.WithLabelValues("signup", "invalid").Inc()
		return nil, fmt.Errorf("%w: password must be at least %d characters long", xerrors.ErrInvalidInput, minPasswordLen)
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		authAttempts.WithLabelValues("signup", "invalid").Inc()
		return nil, fmt.Errorf("%w: role must be USER or ADMIN", xerrors.ErrInvalidInput)
	}

	exists, err := uc.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		authAttempts.WithLabelValues("signup", "exists").Inc()
		return nil, xerrors.ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), uc.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{
		Email:        email,
		UserName:     strings.TrimSpace(req.Username),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := uc.users.Create(ctx, u); err != nil {
		if errors.Is(err, xerrors.ErrUserAlreadyExists) {
			authAttempts.WithLabelValues("signup", "exists").Inc()
		}
		return nil, err
	}

	authAttempts.WithLabelValues("signup", "ok").Inc()
	uc.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("role", role.String()))
	return u, nil
}

// Login checks credentials and issues a token carrying the stored role.
// Unknown email and wrong password are indistinguishable to the caller.
func (uc *AuthUsecase) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		authAttempts.WithLabelValues("login", "invalid").Inc()
		return nil, fmt.Errorf("%w: email and password are required", xerrors.ErrInvalidInput)
	}

	u, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			authAttempts.WithLabelValues("login", "denied").Inc()
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		authAttempts.WithLabelValues("login", "denied").Inc()
		return nil, xerrors.ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	authAttempts.WithLabelValues("login", "ok").Inc()
	return &domain.LoginResponse{
		Status:    "Authenticated",
		Token:     token,
		ExpiresAt: uc.now().Add(uc.tokens.Lifetime()),
	}, nil
}
