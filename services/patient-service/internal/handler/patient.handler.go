package handler

import (
	"context"
	"errors"
	"net/http"

	"pulsetrack/services/patient-service/internal/domain"
	"pulsetrack/shared/auth/middleware"
	"pulsetrack/shared/response"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const HeaderBillingStatus = "X-Billing-Status"

type PatientService interface {
	Create(ctx context.Context, req domain.PatientRequest) (*domain.CreateResult, error)
	Get(ctx context.Context, id string) (*domain.Patient, error)
	List(ctx context.Context) ([]*domain.Patient, error)
	Update(ctx context.Context, id string, req domain.PatientRequest) (*domain.Patient, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type PatientHandler struct {
	uc     PatientService
	logger *zap.Logger
}

func NewPatientHandler(uc PatientService, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{uc: uc, logger: logger}
}

type billingView struct {
	Status    string `json:"status"`
	AccountID string `json:"accountId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type createResponse struct {
	Patient domain.PatientDTO `json:"patient"`
	Billing billingView       `json:"billing"`
}

func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PatientRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.uc.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	p := res.Patient
	body := createResponse{
		Patient: domain.ToDTO(p),
		Billing: billingView{Status: string(p.BillingStatus), AccountID: p.BillingAccountID},
	}
	if res.BillingErr != nil {
		body.Billing.Error = res.BillingErr.Error()
	}

	if principal, ok := middleware.PrincipalFrom(r.Context()); ok {
		h.logger.Info("patient created",
			zap.String("patient_id", p.ID),
			zap.String("by", principal.Subject),
			zap.String("billing_status", string(p.BillingStatus)),
		)
	}

	w.Header().Set(HeaderBillingStatus, string(p.BillingStatus))
	response.JSON(w, http.StatusCreated, body)
}

func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.uc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]domain.PatientDTO, 0, len(patients))
	for _, p := range patients {
		out = append(out, domain.ToDTO(p))
	}
	response.JSON(w, http.StatusOK, out)
}

func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, domain.ToDTO(p))
}

func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.PatientRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.uc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, domain.ToDTO(p))
}

func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.uc.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !deleted {
		response.Error(w, http.StatusBadRequest, "patient not deleted: no patient with id "+id)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Success: Deleted Patient of ID: " + id})
}

func (h *PatientHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, xerrors.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, xerrors.ErrDuplicateEmail):
		response.Error(w, http.StatusConflict, "A patient with this email already exists")
	case errors.Is(err, xerrors.ErrPersistenceConflict):
		response.Error(w, http.StatusConflict, "patient conflicts with an existing record")
	case errors.Is(err, xerrors.ErrPatientNotFound):
		response.Error(w, http.StatusNotFound, "patient not found")
	default:
		h.logger.Error("patient request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
}
