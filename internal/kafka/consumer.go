// Package kafka implements a Kafka event source built on a sarama consumer
// group. Messages are grouped into micro-batches per partition and handed to
// the output; offsets are marked once the output has taken the batch.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/event"
	"github.com/jittakal/kafeventfirehose/pkg/source"
)

// Ensure implementation satisfies interfaces at compile time.
var (
	_ source.Source               = (*SaramaConsumer)(nil)
	_ sarama.ConsumerGroupHandler = (*consumerGroupHandler)(nil)
)

// Defaults applied by NewSaramaConsumer.
const (
	DefaultMaxBatchEvents = 500
	DefaultFlushInterval  = time.Second
)

// ConsumerConfig contains Kafka consumer configuration.
type ConsumerConfig struct {
	BootstrapServers      []string
	GroupID               string
	Topics                []string
	SecurityProtocol      string
	SASLMechanism         string
	SASLUsername          string
	SASLPassword          string
	AWSRegion             string
	TLSInsecureSkipVerify bool
	AutoOffsetReset       string
	MaxPollIntervalMS     int
	SessionTimeoutMS      int
	HeartbeatIntervalMS   int

	// MaxBatchEvents and FlushInterval bound each micro-batch.
	MaxBatchEvents int
	FlushInterval  time.Duration
}

// Validate checks the settings needed to join a consumer group.
func (c ConsumerConfig) Validate() error {
	if len(c.BootstrapServers) == 0 {
		return &apperrors.ConfigError{Field: "input.kafka.bootstrap_servers", Reason: "required field is missing"}
	}
	if c.GroupID == "" {
		return &apperrors.ConfigError{Field: "input.kafka.group_id", Reason: "required field is missing"}
	}
	if len(c.Topics) == 0 {
		return &apperrors.ConfigError{Field: "input.kafka.topics", Reason: "required field is missing"}
	}
	return nil
}

// MetricsCollector defines metrics operations for the Kafka source.
type MetricsCollector interface {
	IncMessagesConsumed(topic string, partition int32)
	IncRebalances(groupID string)
	IncOffsetCommits(topic string, partition int32, status string)
	ObserveRebalanceDuration(groupID string, duration float64)
	SetPartitionsAssigned(topic string, count float64)
}

// SaramaConsumer reads events from Kafka topics through a consumer group.
type SaramaConsumer struct {
	group   sarama.ConsumerGroup
	config  ConsumerConfig
	logger  *zap.Logger
	metrics MetricsCollector
	mu      sync.RWMutex
	closed  bool
}

// NewSaramaConsumer creates a consumer group client. metrics may be nil.
func NewSaramaConsumer(config ConsumerConfig, logger *zap.Logger, metrics MetricsCollector) (*SaramaConsumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	saramaConfig, err := newSaramaConfig(config)
	if err != nil {
		return nil, err
	}

	group, err := sarama.NewConsumerGroup(config.BootstrapServers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	logger.Info("kafka consumer created",
		zap.String("group_id", config.GroupID),
		zap.Strings("bootstrap_servers", config.BootstrapServers),
		zap.Strings("topics", config.Topics),
		zap.String("security_protocol", config.SecurityProtocol),
	)

	return NewSaramaConsumerWithGroup(group, config, logger, metrics), nil
}

// NewSaramaConsumerWithGroup wraps an existing consumer group.
func NewSaramaConsumerWithGroup(group sarama.ConsumerGroup, config ConsumerConfig, logger *zap.Logger, metrics MetricsCollector) *SaramaConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxBatchEvents <= 0 {
		config.MaxBatchEvents = DefaultMaxBatchEvents
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	return &SaramaConsumer{
		group:   group,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// newSaramaConfig builds the sarama configuration for a consumer group.
func newSaramaConfig(config ConsumerConfig) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V2_8_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRoundRobin(),
	}
	saramaConfig.Consumer.Offsets.Initial = offsetInitial(config.AutoOffsetReset)
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Return.Errors = true

	if config.SessionTimeoutMS > 0 {
		saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMS) * time.Millisecond
	}
	if config.HeartbeatIntervalMS > 0 {
		saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatIntervalMS) * time.Millisecond
	}
	if config.MaxPollIntervalMS > 0 {
		saramaConfig.Consumer.MaxProcessingTime = time.Duration(config.MaxPollIntervalMS) * time.Millisecond
	} else {
		saramaConfig.Consumer.MaxProcessingTime = 5 * time.Minute
	}

	if err := configureSecurity(saramaConfig, config); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}
	return saramaConfig, nil
}

// Run joins the consumer group and feeds sink until ctx is cancelled or the
// sink fails fatally.
func (c *SaramaConsumer) Run(ctx context.Context, sink source.Sink) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return apperrors.ErrConsumerClosed
	}
	c.mu.RUnlock()

	handler := &consumerGroupHandler{
		consumer: c,
		sink:     sink,
	}

	go c.logGroupErrors(ctx)

	for {
		if err := c.group.Consume(ctx, c.config.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			if fatal := handler.fatal(); fatal != nil {
				return fatal
			}
			return fmt.Errorf("consumer group error: %w", err)
		}

		if fatal := handler.fatal(); fatal != nil {
			return fatal
		}
		if ctx.Err() != nil {
			c.logger.Info("consumer context cancelled")
			return nil
		}
	}
}

func (c *SaramaConsumer) logGroupErrors(ctx context.Context) {
	for {
		select {
		case err, ok := <-c.group.Errors():
			if !ok {
				return
			}
			c.logger.Error("consumer group error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}

// Close leaves the consumer group.
func (c *SaramaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.logger.Info("closing kafka consumer")
	if err := c.group.Close(); err != nil {
		c.logger.Error("error closing consumer group", zap.Error(err))
		return err
	}
	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler.
type consumerGroupHandler struct {
	consumer       *SaramaConsumer
	sink           source.Sink
	rebalanceStart time.Time

	mu       sync.Mutex
	fatalErr error
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (h *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.rebalanceStart = time.Now()

	h.consumer.logger.Info("consumer group session setup",
		zap.String("member_id", session.MemberID()),
		zap.Int32("generation_id", session.GenerationID()),
		zap.Any("claims", session.Claims()),
	)

	if h.consumer.metrics != nil {
		h.consumer.metrics.IncRebalances(h.consumer.config.GroupID)
		for topic, partitions := range session.Claims() {
			h.consumer.metrics.SetPartitionsAssigned(topic, float64(len(partitions)))
		}
	}
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (h *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	if h.consumer.metrics != nil && !h.rebalanceStart.IsZero() {
		h.consumer.metrics.ObserveRebalanceDuration(
			h.consumer.config.GroupID,
			time.Since(h.rebalanceStart).Seconds(),
		)
	}

	h.consumer.logger.Info("consumer group session cleanup",
		zap.String("member_id", session.MemberID()),
	)
	return nil
}

// ConsumeClaim batches messages from one partition and hands them to the sink.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	cfg := h.consumer.config
	logger := h.consumer.logger.With(
		zap.String("topic", claim.Topic()),
		zap.Int32("partition", claim.Partition()),
	)
	logger.Info("started consuming partition", zap.Int64("initial_offset", claim.InitialOffset()))

	ticker := time.NewTicker(cfg.FlushInterval)
	defer ticker.Stop()

	events := make([]*event.Event, 0, cfg.MaxBatchEvents)
	var last *sarama.ConsumerMessage

	flush := func() error {
		if len(events) == 0 {
			return nil
		}
		err := h.sink.ReceiveMany(session.Context(), events)
		if apperrors.IsFatal(err) {
			h.setFatal(err)
			logger.Error("output failed fatally, stopping partition consumption", zap.Error(err))
			return err
		}
		if err != nil {
			logger.Error("output rejected batch", zap.Error(err), zap.Int("events", len(events)))
		}

		session.MarkMessage(last, "")
		if h.consumer.metrics != nil {
			h.consumer.metrics.IncOffsetCommits(last.Topic, last.Partition, "marked")
		}
		events = events[:0]
		return nil
	}

	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return flush()
			}

			logger.Debug("received kafka message",
				zap.Int64("offset", message.Offset),
				zap.Int("value_size", len(message.Value)),
			)

			events = append(events, toEvent(message))
			last = message
			if h.consumer.metrics != nil {
				h.consumer.metrics.IncMessagesConsumed(message.Topic, message.Partition)
			}

			if len(events) >= cfg.MaxBatchEvents {
				if err := flush(); err != nil {
					return err
				}
			}

		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}

		case <-session.Context().Done():
			logger.Info("session context done, stopping partition consumption")
			return nil
		}
	}
}

func (h *consumerGroupHandler) setFatal(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fatalErr == nil {
		h.fatalErr = err
	}
}

func (h *consumerGroupHandler) fatal() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fatalErr
}

// toEvent converts a Kafka message into a pipeline event.
func toEvent(message *sarama.ConsumerMessage) *event.Event {
	e := event.FromJSON(message.Value)
	if !message.Timestamp.IsZero() {
		if _, ok := e.Fields[event.FieldTimestamp]; !ok {
			e.Timestamp = message.Timestamp.UTC()
		}
	}
	e.Metadata = event.Metadata{
		Source:    "kafka",
		Topic:     message.Topic,
		Partition: message.Partition,
		Offset:    message.Offset,
		Key:       message.Key,
	}
	return e
}

// offsetInitial converts the AutoOffsetReset config to Sarama's offset constant.
func offsetInitial(autoOffsetReset string) int64 {
	switch autoOffsetReset {
	case "earliest":
		return sarama.OffsetOldest
	default:
		return sarama.OffsetNewest
	}
}
