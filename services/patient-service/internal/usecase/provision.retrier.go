package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"pulsetrack/services/patient-service/internal/domain"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	provisionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patient_billing_retry_total",
			Help: "Background billing provisioning jobs by outcome",
		},
		[]string{"result"},
	)
	provisionQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "patient_billing_retry_queue_depth",
			Help: "Jobs waiting in the provisioning retry queue",
		},
	)
)

type RetrierConfig struct {
	Workers         int
	QueueSize       int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsed      time.Duration
}

func (c *RetrierConfig) defaults() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = 2 * time.Minute
	}
}

// ProvisioningRetrier re-provisions billing accounts for patients left
// PENDING. Each job retries with bounded exponential backoff and ends
// ACTIVE on success or FAILED once the budget is spent.
type ProvisioningRetrier struct {
	billing BillingProvisioner
	repo    BillingStatusWriter
	cfg     RetrierConfig
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan ProvisionJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProvisioningRetrier(billing BillingProvisioner, repo BillingStatusWriter, cfg RetrierConfig, logger *zap.Logger) *ProvisioningRetrier {
	cfg.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &ProvisioningRetrier{
		billing: billing,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		queue:   make(chan ProvisionJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (r *ProvisioningRetrier) Start() {
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.logger.Info("provisioning retrier started",
		zap.Int("workers", r.cfg.Workers),
		zap.Int("queue_size", r.cfg.QueueSize),
		zap.Duration("max_elapsed", r.cfg.MaxElapsed),
	)
}

// Enqueue never blocks. It returns false when the queue is full or the
// retrier is stopping.
func (r *ProvisioningRetrier) Enqueue(job ProvisionJob) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- job:
		provisionQueueDepth.Inc()
		return true
	default:
		provisionRetries.WithLabelValues("dropped").Inc()
		return false
	}
}

// Stop refuses new jobs and lets workers drain the queue for up to grace.
// Jobs still running after that are abandoned and stay PENDING.
func (r *ProvisioningRetrier) Stop(grace time.Duration) {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		r.logger.Warn("provisioning retrier drain timed out, abandoning in-flight jobs")
		r.cancel()
		<-done
	}
	r.cancel()
}

func (r *ProvisioningRetrier) worker() {
	defer r.wg.Done()
	for job := range r.queue {
		provisionQueueDepth.Dec()
		r.process(job)
	}
}

func (r *ProvisioningRetrier) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.InitialInterval
	eb.MaxInterval = r.cfg.MaxInterval
	eb.MaxElapsedTime = r.cfg.MaxElapsed
	return backoff.WithContext(eb, r.ctx)
}

func (r *ProvisioningRetrier) process(job ProvisionJob) {
	log := r.logger.With(zap.String("patient_id", job.PatientID))
	attempts := 0

	op := func() error {
		attempts++
		acc, err := r.billing.CreateAccount(r.ctx, job.PatientID, job.Name, job.Email)
		if err != nil {
			return err
		}
		if err := r.repo.UpdateBilling(r.ctx, job.PatientID, domain.BillingActive, acc.ID); err != nil {
			if errors.Is(err, xerrors.ErrPatientNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		log.Info("billing account provisioned on retry",
			zap.String("account_id", acc.ID),
			zap.Int("attempts", attempts),
		)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Debug("billing retry scheduled", zap.Int("attempt", attempts), zap.Duration("wait", wait), zap.Error(err))
	}

	err := backoff.RetryNotify(op, r.newBackOff(), notify)
	switch {
	case err == nil:
		provisionRetries.WithLabelValues("active").Inc()
	case errors.Is(err, xerrors.ErrPatientNotFound):
		provisionRetries.WithLabelValues("gone").Inc()
		log.Info("patient deleted before billing was provisioned")
	case r.ctx.Err() != nil:
		provisionRetries.WithLabelValues("abandoned").Inc()
		log.Warn("billing retry abandoned on shutdown, patient left PENDING", zap.Error(err))
	default:
		provisionRetries.WithLabelValues("failed").Inc()
		log.Error("billing provisioning exhausted", zap.Int("attempts", attempts), zap.Error(err))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if uerr := r.repo.UpdateBilling(ctx, job.PatientID, domain.BillingFailed, ""); uerr != nil {
			log.Error("failed to mark billing FAILED", zap.Error(uerr))
		}
	}
}
