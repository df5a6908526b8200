// Package output implements the Firehose output adapter: it encodes events,
// buffers the records and hands them to the dispatcher for delivery.
package output

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jittakal/kafeventfirehose/internal/buffer"
	"github.com/jittakal/kafeventfirehose/internal/dispatcher"
	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/internal/firehose"
	"github.com/jittakal/kafeventfirehose/internal/observability"
	"github.com/jittakal/kafeventfirehose/internal/validator"
	"github.com/jittakal/kafeventfirehose/pkg/codec"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Config holds output settings.
type Config struct {
	StreamName string
}

// MetricsCollector defines metrics operations for the output.
type MetricsCollector interface {
	dispatcher.MetricsCollector
	IncRecordsReceived()
	IncEncodeErrors(codec string)
}

// Output is a registered Firehose output instance.
//
// Receive and ReceiveMany may be called concurrently. Once a call fails with
// a fatal error every later call returns that error.
type Output struct {
	stream     string
	codec      codec.Codec
	buffer     *buffer.EventBuffer
	dispatcher *dispatcher.Dispatcher
	validator  *validator.EventValidator
	logger     *zap.Logger
	metrics    MetricsCollector

	mu     sync.RWMutex
	closed bool

	fatalMu  sync.Mutex
	fatalErr error
}

// New registers an output for cfg.StreamName. The stream name is validated
// before anything else; an invalid name returns a fatal *errors.ConfigError.
// metrics may be nil.
func New(cfg Config, client firehose.Client, c codec.Codec, logger *zap.Logger, metrics MetricsCollector) (*Output, error) {
	if err := validator.ValidateStreamName(cfg.StreamName); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	buf := buffer.New()

	var dm dispatcher.MetricsCollector
	if metrics != nil {
		dm = metrics
	}

	o := &Output{
		stream:     cfg.StreamName,
		codec:      c,
		buffer:     buf,
		dispatcher: dispatcher.New(buf, client, cfg.StreamName, logger, dm),
		validator:  validator.NewEventValidator(),
		logger:     logger,
		metrics:    metrics,
	}

	logger.Info("firehose output registered",
		zap.String("stream", cfg.StreamName),
		zap.String("codec", c.Name()),
	)
	return o, nil
}

// Stream returns the delivery stream name.
func (o *Output) Stream() string {
	return o.stream
}

// Receive encodes e and submits it with a single-record call.
func (o *Output) Receive(ctx context.Context, e *event.Event) error {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if err := o.check(); err != nil {
		return err
	}

	if !o.encodeAndPush(e) {
		return nil
	}
	return o.record(o.dispatcher.HandleEvent(ctx))
}

// ReceiveMany encodes events and submits everything buffered in as few
// batch calls as the stream limits allow. An empty slice submits nothing.
func (o *Output) ReceiveMany(ctx context.Context, events []*event.Event) error {
	if len(events) == 0 {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if err := o.check(); err != nil {
		return err
	}

	pushed := 0
	for _, e := range events {
		if o.encodeAndPush(e) {
			pushed++
		}
	}
	if pushed == 0 {
		return nil
	}
	return o.record(o.dispatcher.HandleEvents(ctx))
}

// Close stops the output. Records still buffered are submitted unless the
// output already failed fatally. Later calls return errors.ErrOutputClosed.
func (o *Output) Close(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	if o.fatal() != nil || o.buffer.Len() == 0 {
		o.logger.Info("firehose output closed", zap.String("stream", o.stream))
		return nil
	}

	o.logger.Info("flushing buffered records before close",
		zap.String("stream", o.stream),
		zap.Int("records", o.buffer.Len()),
	)
	return o.record(o.dispatcher.HandleEvents(ctx))
}

// encodeAndPush buffers the encoded form of e. Events that fail validation
// or encoding are dropped and reported.
func (o *Output) encodeAndPush(e *event.Event) bool {
	if err := o.validator.Validate(e); err != nil {
		o.dropEncode(err)
		return false
	}

	record, err := o.codec.Encode(e)
	if err != nil {
		o.dropEncode(err)
		return false
	}

	o.buffer.Push(record)
	if o.metrics != nil {
		o.metrics.IncRecordsReceived()
	}
	return true
}

func (o *Output) dropEncode(err error) {
	o.logger.Warn("failed to encode event, dropping it",
		zap.String("codec", o.codec.Name()),
		zap.Error(err),
	)
	if o.metrics != nil {
		o.metrics.IncEncodeErrors(o.codec.Name())
		o.metrics.IncRecordsDropped(observability.DropReasonEncode, 1)
	}
}

func (o *Output) check() error {
	if o.closed {
		return apperrors.ErrOutputClosed
	}
	return o.fatal()
}

func (o *Output) fatal() error {
	o.fatalMu.Lock()
	defer o.fatalMu.Unlock()
	return o.fatalErr
}

// record latches fatal errors and passes err through.
func (o *Output) record(err error) error {
	if !apperrors.IsFatal(err) {
		return err
	}
	o.fatalMu.Lock()
	if o.fatalErr == nil {
		o.fatalErr = err
	}
	o.fatalMu.Unlock()
	return err
}
