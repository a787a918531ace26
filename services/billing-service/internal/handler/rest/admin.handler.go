package rest

import (
	"context"
	"errors"
	"net/http"

	"pulsetrack/services/billing-service/internal/domain"
	"pulsetrack/shared/response"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/go-chi/chi/v5"
)

type AccountReader interface {
	Get(ctx context.Context, patientID string) (domain.Account, error)
}

// AdminHandler exposes read-only account lookups under /billing/admin.
// The gateway restricts that prefix to ADMIN principals.
type AdminHandler struct {
	uc AccountReader
}

func NewAdminHandler(uc AccountReader) *AdminHandler {
	return &AdminHandler{uc: uc}
}

func (h *AdminHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.uc.Get(r.Context(), chi.URLParam(r, "patientId"))
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "billing account not found")
			return
		}
		response.Error(w, http.StatusInternalServerError, "failed to load billing account")
		return
	}
	response.JSON(w, http.StatusOK, acc)
}
