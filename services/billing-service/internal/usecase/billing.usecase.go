package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pulsetrack/services/billing-service/internal/domain"
	"pulsetrack/services/billing-service/internal/repository"
	xerrors "pulsetrack/shared/utils/errors"
	"pulsetrack/shared/utils/id"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	accountsProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_accounts_provisioned_total",
			Help: "CreateBillingAccount calls by outcome",
		},
		[]string{"result"},
	)
	provisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billing_provision_duration_seconds",
			Help:    "Time spent provisioning a billing account",
			Buckets: prometheus.DefBuckets,
		},
	)
)

type BillingUsecase struct {
	store  repository.AccountStore
	ids    *id.Generator
	now    func() time.Time
	logger *zap.Logger
}

func NewBillingUsecase(store repository.AccountStore, logger *zap.Logger) *BillingUsecase {
	return &BillingUsecase{
		store:  store,
		ids:    id.NewGenerator(),
		now:    time.Now,
		logger: logger,
	}
}

// Provision returns the patient's billing account, creating it on first
// call. Repeated calls for one patient id return the same account.
func (uc *BillingUsecase) Provision(ctx context.Context, patientID, name, email string) (domain.Account, error) {
	start := time.Now()
	defer func() { provisionDuration.Observe(time.Since(start).Seconds()) }()

	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		accountsProvisioned.WithLabelValues("invalid").Inc()
		return domain.Account{}, fmt.Errorf("%w: patient_id is required", xerrors.ErrInvalidInput)
	}

	acc, created, err := uc.store.GetOrCreate(ctx, domain.Account{
		ID:        uc.ids.NewPrefixed(domain.AccountIDPrefix),
		PatientID: patientID,
		Name:      name,
		Email:     email,
		Status:    domain.StatusActive,
		CreatedAt: uc.now().UTC(),
	})
	if err != nil {
		accountsProvisioned.WithLabelValues("error").Inc()
		return domain.Account{}, err
	}

	if created {
		accountsProvisioned.WithLabelValues("created").Inc()
		uc.logger.Info("billing account created",
			zap.String("patient_id", patientID),
			zap.String("account_id", acc.ID),
		)
	} else {
		accountsProvisioned.WithLabelValues("existing").Inc()
		uc.logger.Info("billing account already exists",
			zap.String("patient_id", patientID),
			zap.String("account_id", acc.ID),
		)
	}
	return acc, nil
}

func (uc *BillingUsecase) Get(ctx context.Context, patientID string) (domain.Account, error) {
	return uc.store.Get(ctx, patientID)
}
