package usecase

import (
	"context"

	"pulsetrack/services/patient-service/internal/domain"
	"pulsetrack/shared/billing"
	"pulsetrack/shared/genproto/patienteventpb"
)

type PatientRepository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, p *domain.Patient) error
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	List(ctx context.Context) ([]*domain.Patient, error)
	Update(ctx context.Context, p *domain.Patient) error
	Delete(ctx context.Context, id string) (bool, error)
	BillingStatusWriter
}

type BillingStatusWriter interface {
	UpdateBilling(ctx context.Context, id string, status domain.BillingStatus, accountID string) error
}

// BillingProvisioner is satisfied by *billing.Client.
type BillingProvisioner interface {
	CreateAccount(ctx context.Context, patientID, name, email string) (billing.Account, error)
}

// EventPublisher hands events to the bus without blocking the caller.
// Delivery failures are handled and reported by the publisher itself.
type EventPublisher interface {
	Publish(evt *patienteventpb.PatientEvent)
}

// ProvisionQueue accepts patients whose billing account still needs to be
// created. Enqueue reports false when the job was not accepted.
type ProvisionQueue interface {
	Enqueue(job ProvisionJob) bool
}

type ProvisionJob struct {
	PatientID string
	Name      string
	Email     string
}
