package handler

import (
	"context"
	"net/http"
	"strconv"

	"pulsetrack/services/analytics-service/internal/domain"
	"pulsetrack/shared/response"

	"go.uber.org/zap"
)

type EventLister interface {
	Recent(ctx context.Context, limit int) ([]*domain.AnalyticsEvent, error)
}

type AnalyticsHandler struct {
	uc     EventLister
	logger *zap.Logger
}

func NewAnalyticsHandler(uc EventLister, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc, logger: logger}
}

// ListEvents handles GET /analytics/events?limit=N.
func (h *AnalyticsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.uc.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("list analytics events", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "could not load analytics events")
		return
	}
	out := make([]domain.AnalyticsEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, domain.ToDTO(e))
	}
	response.JSON(w, http.StatusOK, out)
}
