package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pulsetrack/services/analytics-service/internal/domain"
	"pulsetrack/shared/genproto/patienteventpb"
	xerrors "pulsetrack/shared/utils/errors"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	TopicPatient = "patient"
	GroupID      = "analytics-service"
)

var consumed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analytics_messages_consumed_total",
		Help: "Kafka messages handled by the analytics consumer, by outcome",
	},
	[]string{"outcome"},
)

// EventRecorder persists a decoded patient event.
type EventRecorder interface {
	Record(ctx context.Context, evt *patienteventpb.PatientEvent) (*domain.AnalyticsEvent, error)
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// PersistMaxElapsed bounds the retries for storing one message.
	PersistMaxElapsed time.Duration
}

// PatientEventConsumer reads the patient topic through a sarama consumer
// group. Messages of a partition are handled one at a time, in order, and
// every message is marked once handled so a bad record never stalls its
// partition.
type PatientEventConsumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler *claimHandler
	logger  *zap.Logger
}

func NewPatientEventConsumer(cfg ConsumerConfig, recorder EventRecorder, logger *zap.Logger) (*PatientEventConsumer, error) {
	if cfg.Topic == "" {
		cfg.Topic = TopicPatient
	}
	if cfg.GroupID == "" {
		cfg.GroupID = GroupID
	}

	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Session.Timeout = 20 * time.Second
	config.Consumer.Group.Heartbeat.Interval = 6 * time.Second
	config.Consumer.MaxProcessingTime = 30 * time.Second
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	logger.Info("Kafka consumer group initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
	)

	return &PatientEventConsumer{
		group:   group,
		topic:   cfg.Topic,
		handler: newClaimHandler(recorder, cfg.PersistMaxElapsed, logger),
		logger:  logger,
	}, nil
}

// Start consumes until ctx is cancelled. Consume returns on every rebalance,
// so it is called in a loop.
func (c *PatientEventConsumer) Start(ctx context.Context) error {
	go c.logErrors(ctx)

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("consumer group session failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("context cancelled, shutting down consumer")
			return nil
		}
	}
}

func (c *PatientEventConsumer) logErrors(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-c.group.Errors():
			if !ok {
				return
			}
			c.logger.Warn("consumer group error", zap.Error(err))
		}
	}
}

func (c *PatientEventConsumer) Close() error {
	return c.group.Close()
}

// claimHandler implements sarama.ConsumerGroupHandler.
type claimHandler struct {
	recorder   EventRecorder
	maxElapsed time.Duration
	logger     *zap.Logger
}

func newClaimHandler(recorder EventRecorder, maxElapsed time.Duration, logger *zap.Logger) *claimHandler {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &claimHandler{recorder: recorder, maxElapsed: maxElapsed, logger: logger}
}

func (h *claimHandler) Setup(s sarama.ConsumerGroupSession) error {
	h.logger.Info("consumer group session started",
		zap.String("member", s.MemberID()),
		zap.Int32("generation", s.GenerationID()),
	)
	return nil
}

func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("consumer group session ended")
	return nil
}

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if h.handle(ctx, msg) {
				session.MarkMessage(msg, "")
			}
		}
	}
}

// handle reports whether msg should be marked. Only an interrupted session
// leaves a message unmarked; it is then redelivered to the next owner.
func (h *claimHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	}

	var evt patienteventpb.PatientEvent
	if err := patienteventpb.Unmarshal(msg.Value, &evt); err != nil {
		consumed.WithLabelValues("malformed").Inc()
		h.logger.Warn("dropping malformed patient event", append(fields, zap.Error(err))...)
		return true
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxElapsedTime = h.maxElapsed

	op := func() error {
		_, err := h.recorder.Record(ctx, &evt)
		if errors.Is(err, xerrors.ErrInvalidInput) || xerrors.IsDataException(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(eb, ctx))
	switch {
	case err == nil:
		consumed.WithLabelValues("stored").Inc()
		return true
	case ctx.Err() != nil:
		consumed.WithLabelValues("interrupted").Inc()
		h.logger.Info("session ended while storing event", fields...)
		return false
	default:
		consumed.WithLabelValues("skipped").Inc()
		h.logger.Error("skipping patient event after persist failure",
			append(fields,
				zap.String("patient_id", evt.PatientId),
				zap.String("event_id", evt.EventId),
				zap.Error(err),
			)...,
		)
		return true
	}
}
