package usecase

import (
	"context"
	"fmt"
	"time"

	"pulsetrack/services/analytics-service/internal/domain"
	"pulsetrack/shared/genproto/patienteventpb"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

var eventsRecorded = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analytics_events_recorded_total",
		Help: "Patient events stored by event type",
	},
	[]string{"type"},
)

type EventStore interface {
	Insert(ctx context.Context, e *domain.AnalyticsEvent) error
	ListRecent(ctx context.Context, limit int) ([]*domain.AnalyticsEvent, error)
}

type AnalyticsUsecase struct {
	store  EventStore
	logger *zap.Logger
}

func NewAnalyticsUsecase(store EventStore, logger *zap.Logger) *AnalyticsUsecase {
	return &AnalyticsUsecase{store: store, logger: logger}
}

// Record stores evt as a new analytics row. Events without a patient id or
// an event type cannot be attributed and are rejected with ErrInvalidInput.
func (uc *AnalyticsUsecase) Record(ctx context.Context, evt *patienteventpb.PatientEvent) (*domain.AnalyticsEvent, error) {
	if evt == nil || evt.PatientId == "" {
		return nil, fmt.Errorf("%w: event has no patient id", xerrors.ErrInvalidInput)
	}
	if evt.EventType == "" {
		return nil, fmt.Errorf("%w: event has no type", xerrors.ErrInvalidInput)
	}

	rec := &domain.AnalyticsEvent{
		ID:           uuid.NewString(),
		PatientID:    evt.PatientId,
		PatientName:  evt.Name,
		PatientEmail: evt.Email,
		EventType:    evt.EventType,
		EventID:      evt.EventId,
	}
	if evt.OccurredAt > 0 {
		at := time.UnixMilli(evt.OccurredAt).UTC()
		rec.OccurredAt = &at
	}

	if err := uc.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	eventsRecorded.WithLabelValues(rec.EventType).Inc()
	uc.logger.Info("recorded patient event",
		zap.String("patient_id", rec.PatientID),
		zap.String("event_type", rec.EventType),
		zap.String("event_id", rec.EventID),
	)
	return rec, nil
}

// Recent lists the newest records. Non-positive limits fall back to the
// default; larger ones are capped.
func (uc *AnalyticsUsecase) Recent(ctx context.Context, limit int) ([]*domain.AnalyticsEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return uc.store.ListRecent(ctx, limit)
}
