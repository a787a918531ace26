package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"pulsetrack/services/billing-service/internal/repository"
	"pulsetrack/services/billing-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetAccount(t *testing.T) {
	uc := usecase.NewBillingUsecase(repository.NewMemoryStore(), zap.NewNop())
	acc, err := uc.Provision(context.Background(), "p-1", "P1", "p1@x.com")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/billing/admin/accounts/{patientId}", NewAdminHandler(uc).GetAccount)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/admin/accounts/p-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), acc.ID)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/admin/accounts/p-9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
