package repository

import (
	"context"
	"fmt"

	"pulsetrack/services/analytics-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Insert(ctx context.Context, e *domain.AnalyticsEvent) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO analytics_events
			(id, event_patient_id, patient_name, patient_mail, event_type, event_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING received_at
	`, e.ID, e.PatientID, e.PatientName, e.PatientEmail, e.EventType, e.EventID, e.OccurredAt,
	).Scan(&e.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// ListRecent returns up to limit events, newest first.
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]*domain.AnalyticsEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_patient_id, patient_name, patient_mail, event_type, event_id, occurred_at, received_at
		FROM analytics_events
		ORDER BY received_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analytics events: %w", err)
	}
	defer rows.Close()

	var out []*domain.AnalyticsEvent
	for rows.Next() {
		e := new(domain.AnalyticsEvent)
		if err := rows.Scan(&e.ID, &e.PatientID, &e.PatientName, &e.PatientEmail,
			&e.EventType, &e.EventID, &e.OccurredAt, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan analytics event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
