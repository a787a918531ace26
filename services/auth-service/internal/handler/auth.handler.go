package handler

import (
	"context"
	"errors"
	"net/http"

	"pulsetrack/services/auth-service/internal/domain"
	"pulsetrack/shared/response"
	xerrors "pulsetrack/shared/utils/errors"

	"go.uber.org/zap"
)

type AuthService interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
}

type AuthHandler struct {
	uc     AuthService
	logger *zap.Logger
}

func NewAuthHandler(uc AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{uc: uc, logger: logger}
}

func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"service": "auth-service", "status": "UP"})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.uc.Signup(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.uc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrUserAlreadyExists):
		response.Error(w, http.StatusConflict, "User Already Exists")
	case errors.Is(err, xerrors.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "invalid email or password")
	default:
		h.logger.Error("auth request failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
