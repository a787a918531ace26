package domain

import "time"

// AnalyticsEvent is one stored copy of a patient event. Redelivered events
// produce additional rows; EventID lets readers collapse them.
type AnalyticsEvent struct {
	ID           string
	PatientID    string
	PatientName  string
	PatientEmail string
	EventType    string
	EventID      string
	OccurredAt   *time.Time
	ReceivedAt   time.Time
}

type AnalyticsEventDTO struct {
	ID           string     `json:"id"`
	PatientID    string     `json:"patientId"`
	PatientName  string     `json:"patientName"`
	PatientEmail string     `json:"patientEmail"`
	EventType    string     `json:"eventType"`
	EventID      string     `json:"eventId,omitempty"`
	OccurredAt   *time.Time `json:"occurredAt,omitempty"`
	ReceivedAt   time.Time  `json:"receivedAt"`
}

func ToDTO(e *AnalyticsEvent) AnalyticsEventDTO {
	return AnalyticsEventDTO{
		ID:           e.ID,
		PatientID:    e.PatientID,
		PatientName:  e.PatientName,
		PatientEmail: e.PatientEmail,
		EventType:    e.EventType,
		EventID:      e.EventID,
		OccurredAt:   e.OccurredAt,
		ReceivedAt:   e.ReceivedAt,
	}
}
