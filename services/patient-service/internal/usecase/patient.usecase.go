package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pulsetrack/services/patient-service/internal/domain"
	"pulsetrack/shared/genproto/patienteventpb"
	xerrors "pulsetrack/shared/utils/errors"
	"pulsetrack/shared/utils/id"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	patientsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patient_create_total",
			Help: "Patient creations by billing outcome",
		},
		[]string{"billing"},
	)
	billingCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patient_billing_call_duration_seconds",
			Help:    "Latency of the synchronous billing provisioning call",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// PatientUsecase owns the patient write path. Creation runs validate,
// persist, provision, publish in that order on the caller's goroutine; only
// the publish leaves it.
type PatientUsecase struct {
	repo      PatientRepository
	billing   BillingProvisioner
	publisher EventPublisher
	retries   ProvisionQueue
	ids       *id.Generator
	now       func() time.Time
	logger    *zap.Logger
}

func NewPatientUsecase(
	repo PatientRepository,
	billing BillingProvisioner,
	publisher EventPublisher,
	retries ProvisionQueue,
	logger *zap.Logger,
) *PatientUsecase {
	return &PatientUsecase{
		repo:      repo,
		billing:   billing,
		publisher: publisher,
		retries:   retries,
		ids:       id.NewGenerator(),
		now:       time.Now,
		logger:    logger,
	}
}

func parseID(raw string) (string, error) {
	u, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: patient id must be a UUID", xerrors.ErrInvalidInput)
	}
	return u.String(), nil
}

func (uc *PatientUsecase) Create(ctx context.Context, req domain.PatientRequest) (*domain.CreateResult, error) {
	in, err := req.Validate(true)
	if err != nil {
		return nil, err
	}

	exists, err := uc.repo.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", xerrors.ErrDuplicateEmail, in.Email)
	}

	p := &domain.Patient{
		Name:           in.Name,
		Email:          in.Email,
		Address:        in.Address,
		DateOfBirth:    in.DateOfBirth,
		RegisteredDate: *in.RegisteredDate,
		BillingStatus:  domain.BillingPending,
	}
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.logger.Info("patient persisted", zap.String("patient_id", p.ID))

	result := &domain.CreateResult{Patient: p}
	result.BillingErr = uc.provision(ctx, p)

	uc.publisher.Publish(&patienteventpb.PatientEvent{
		PatientId:  p.ID,
		Name:       p.Name,
		Email:      p.Email,
		EventType:  patienteventpb.EventTypeCreated,
		EventId:    uc.ids.New().String(),
		OccurredAt: uc.now().UnixMilli(),
	})

	patientsCreated.WithLabelValues(string(p.BillingStatus)).Inc()
	return result, nil
}

// provision makes the synchronous billing call. On failure the patient
// stays PENDING and is handed to the background retrier.
func (uc *PatientUsecase) provision(ctx context.Context, p *domain.Patient) error {
	start := time.Now()
	acc, err := uc.billing.CreateAccount(ctx, p.ID, p.Name, p.Email)
	billingCallDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		uerr := uc.repo.UpdateBilling(ctx, p.ID, domain.BillingActive, acc.ID)
		if uerr == nil {
			p.BillingStatus = domain.BillingActive
			p.BillingAccountID = acc.ID
			return nil
		}
		// The account exists remotely; the retrier's call is idempotent
		// and will record it.
		uc.logger.Error("failed to record billing account",
			zap.String("patient_id", p.ID),
			zap.String("account_id", acc.ID),
			zap.Error(uerr),
		)
		err = uerr
	} else {
		uc.logger.Warn("billing provisioning deferred",
			zap.String("patient_id", p.ID),
			zap.Error(err),
		)
	}

	job := ProvisionJob{PatientID: p.ID, Name: p.Name, Email: p.Email}
	if !uc.retries.Enqueue(job) {
		uc.logger.Error("provisioning retry queue full, patient left PENDING",
			zap.String("patient_id", p.ID),
		)
	}
	return err
}

func (uc *PatientUsecase) Get(ctx context.Context, rawID string) (*domain.Patient, error) {
	pid, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, pid)
}

func (uc *PatientUsecase) List(ctx context.Context) ([]*domain.Patient, error) {
	return uc.repo.List(ctx)
}

// Update overwrites name, email, address and date of birth. The
// registration date only changes when one is supplied.
func (uc *PatientUsecase) Update(ctx context.Context, rawID string, req domain.PatientRequest) (*domain.Patient, error) {
	pid, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	in, err := req.Validate(false)
	if err != nil {
		return nil, err
	}

	p, err := uc.repo.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(p.Email, in.Email) {
		exists, err := uc.repo.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", xerrors.ErrDuplicateEmail, in.Email)
		}
	}

	p.Name = in.Name
	p.Email = in.Email
	p.Address = in.Address
	p.DateOfBirth = in.DateOfBirth
	if in.RegisteredDate != nil {
		p.RegisteredDate = *in.RegisteredDate
	}

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	uc.logger.Info("patient updated", zap.String("patient_id", p.ID))
	return p, nil
}

// Delete reports whether a patient was removed.
func (uc *PatientUsecase) Delete(ctx context.Context, rawID string) (bool, error) {
	pid, err := parseID(rawID)
	if err != nil {
		return false, err
	}
	if _, err := uc.repo.GetByID(ctx, pid); err != nil {
		if errors.Is(err, xerrors.ErrPatientNotFound) {
			return false, nil
		}
		return false, err
	}
	deleted, err := uc.repo.Delete(ctx, pid)
	if err != nil {
		return false, err
	}
	if deleted {
		uc.logger.Info("patient deleted", zap.String("patient_id", pid))
	}
	return deleted, nil
}
