package domain

import "time"

const (
	AccountIDPrefix = "BA"
	StatusActive    = "ACTIVE"
)

// Account is the billing account owned by this service, one per patient.
type Account struct {
	ID        string    `json:"account_id"`
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
