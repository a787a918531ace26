package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pulsetrack/shared/genproto/patienteventpb"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	TopicPatient   = "patient"
	headerEventTyp = "event_type"
)

var publishTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "patient_events_published_total",
		Help: "Patient events handed to Kafka by outcome",
	},
	[]string{"result"},
)

// messageWriter is the subset of *kafkago.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type ProducerConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	// MaxElapsed bounds the retries for one event.
	MaxElapsed time.Duration
}

// PatientEventProducer publishes patient events off the caller's goroutine.
// Each event is retried with exponential backoff; a final failure is logged
// as ErrPublishFailure and counted, never returned.
type PatientEventProducer struct {
	writer       messageWriter
	writeTimeout time.Duration
	maxElapsed   time.Duration
	logger       *zap.Logger

	// ctx outlives every publish; Close cancels it to abandon retries.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewPatientEventProducer(cfg ProducerConfig, logger *zap.Logger) *PatientEventProducer {
	if cfg.Topic == "" {
		cfg.Topic = TopicPatient
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		MaxAttempts:            1,
		BatchSize:              1,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	logger.Info("Kafka writer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return newProducer(w, cfg, logger)
}

func newProducer(w messageWriter, cfg ProducerConfig, logger *zap.Logger) *PatientEventProducer {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PatientEventProducer{
		writer:       w,
		writeTimeout: cfg.WriteTimeout,
		maxElapsed:   cfg.MaxElapsed,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Publish returns immediately. Events published after Close are dropped
// and logged.
func (p *PatientEventProducer) Publish(evt *patienteventpb.PatientEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		publishTotal.WithLabelValues("dropped").Inc()
		p.logger.Error("publish after close",
			zap.String("patient_id", evt.PatientId),
			zap.Error(xerrors.ErrPublishFailure),
		)
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.publish(evt)
	}()
}

func (p *PatientEventProducer) publish(evt *patienteventpb.PatientEvent) {
	msg := kafkago.Message{
		Key:   []byte(evt.PatientId),
		Value: patienteventpb.Marshal(evt),
		Headers: []kafkago.Header{
			{Key: headerEventTyp, Value: []byte(evt.EventType)},
		},
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxElapsedTime = p.maxElapsed

	attempts := 0
	op := func() error {
		attempts++
		ctx, cancel := context.WithTimeout(p.ctx, p.writeTimeout)
		defer cancel()
		return p.writer.WriteMessages(ctx, msg)
	}

	if err := backoff.Retry(op, backoff.WithContext(eb, p.ctx)); err != nil {
		publishTotal.WithLabelValues("failed").Inc()
		p.logger.Error("patient event not published",
			zap.String("patient_id", evt.PatientId),
			zap.String("event_id", evt.EventId),
			zap.Int("attempts", attempts),
			zap.Error(fmt.Errorf("%w: %v", xerrors.ErrPublishFailure, err)),
		)
		return
	}
	publishTotal.WithLabelValues("ok").Inc()
	p.logger.Info("patient event published",
		zap.String("patient_id", evt.PatientId),
		zap.String("event_id", evt.EventId),
		zap.String("event_type", evt.EventType),
	)
}

// Close waits for in-flight publishes until ctx is done. Publishes still
// retrying at that point are cancelled and drained before the writer is
// closed.
func (p *PatientEventProducer) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var drainErr error
	select {
	case <-done:
	case <-ctx.Done():
		drainErr = fmt.Errorf("drain in-flight publishes: %w", ctx.Err())
		p.cancel()
		<-done
	}
	p.cancel()
	return errors.Join(drainErr, p.writer.Close())
}
