// Package dispatcher drains the record buffer and submits the records to the
// delivery stream while enforcing its size and count limits.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/internal/firehose"
	"github.com/jittakal/kafeventfirehose/internal/observability"
	"github.com/jittakal/kafeventfirehose/pkg/buffer"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// MetricsCollector defines metrics operations for the dispatcher.
type MetricsCollector interface {
	IncRecordsDropped(reason string, n int)
	ObserveSubmit(operation string, records int, sizeBytes int, duration float64, err error)
	SetBufferLength(n int)
	SetBufferSizeBytes(n int64)
}

// Dispatcher moves records from a buffer to a delivery stream.
//
// Failures are never retried. A missing delivery stream is returned to the
// caller as a fatal error; any other failure drops the affected records and
// is only logged.
type Dispatcher struct {
	buffer  buffer.Buffer
	client  firehose.Client
	stream  string
	logger  *zap.Logger
	metrics MetricsCollector
}

// New creates a dispatcher for stream. metrics may be nil.
func New(buf buffer.Buffer, client firehose.Client, stream string, logger *zap.Logger, metrics MetricsCollector) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		buffer:  buf,
		client:  client,
		stream:  stream,
		logger:  logger.With(zap.String("stream", stream)),
		metrics: metrics,
	}
}

// HandleEvent drains one record and submits it with a single-record call.
// An empty buffer is a no-op.
func (d *Dispatcher) HandleEvent(ctx context.Context) error {
	record, ok := d.buffer.DrainOne()
	if !ok {
		return nil
	}
	defer d.updateBufferStats()

	if record.Len() > firehose.MaxRecordBytes {
		d.dropTooLarge(record)
		return nil
	}

	start := time.Now()
	err := d.client.SubmitOne(ctx, d.stream, record)
	if d.metrics != nil {
		d.metrics.ObserveSubmit(observability.OperationSubmitOne, 1, record.Len(), time.Since(start).Seconds(), err)
	}
	if err == nil {
		return nil
	}

	if apperrors.IsFatal(err) {
		d.logger.Error("delivery stream unavailable, halting output", zap.Error(err))
		return err
	}

	d.logger.Error("failed to submit record, dropping it",
		zap.Error(err),
		zap.Int("size", record.Len()),
		zap.ByteString("record", record),
	)
	if d.metrics != nil {
		d.metrics.IncRecordsDropped(observability.DropReasonDelivery, 1)
	}
	return nil
}

// HandleEvents drains the buffer in rounds of up to MaxBatchRecords and
// submits each round as one or more size-bounded batches. The number of
// rounds is fixed from the buffer length at the start of the call.
func (d *Dispatcher) HandleEvents(ctx context.Context) error {
	defer d.updateBufferStats()

	pending := d.buffer.Len()
	rounds := (pending + firehose.MaxBatchRecords - 1) / firehose.MaxBatchRecords

	for round := 0; round < rounds; round++ {
		records := d.buffer.DrainUpTo(firehose.MaxBatchRecords)
		if len(records) == 0 {
			// Another caller emptied the buffer.
			break
		}

		records = d.filterOversized(records)
		if len(records) == 0 {
			continue
		}

		for _, batch := range Partition(records) {
			if err := d.submitBatch(ctx, batch); err != nil {
				return err
			}
		}
	}

	return nil
}

// submitBatch sends one batch. Only fatal errors are returned.
func (d *Dispatcher) submitBatch(ctx context.Context, batch *Batch) error {
	start := time.Now()
	err := d.client.SubmitMany(ctx, d.stream, batch.Records())
	if d.metrics != nil {
		d.metrics.ObserveSubmit(observability.OperationSubmitMany, batch.Len(), batch.Size(), time.Since(start).Seconds(), err)
	}
	if err == nil {
		d.logger.Debug("submitted batch",
			zap.Int("records", batch.Len()),
			zap.Int("bytes", batch.Size()),
		)
		return nil
	}

	if apperrors.IsFatal(err) {
		d.logger.Error("delivery stream unavailable, halting output", zap.Error(err))
		return err
	}

	d.logger.Error("failed to submit batch, dropping it",
		zap.Error(err),
		zap.Int("records", batch.Len()),
		zap.Int("bytes", batch.Size()),
	)
	if ce := d.logger.Check(zap.DebugLevel, "dropped batch contents"); ce != nil {
		contents := make([]string, batch.Len())
		for i, r := range batch.Records() {
			contents[i] = string(r)
		}
		ce.Write(zap.Strings("records", contents))
	}
	if d.metrics != nil {
		d.metrics.IncRecordsDropped(observability.DropReasonDelivery, batch.Len())
	}
	return nil
}

// filterOversized removes records above MaxRecordBytes, reporting each one.
func (d *Dispatcher) filterOversized(records []event.Record) []event.Record {
	kept := records[:0]
	for _, r := range records {
		if r.Len() > firehose.MaxRecordBytes {
			d.dropTooLarge(r)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func (d *Dispatcher) dropTooLarge(record event.Record) {
	err := &apperrors.RecordTooLargeError{Size: record.Len(), Limit: firehose.MaxRecordBytes}
	d.logger.Warn("record too large, dropping it",
		zap.Error(err),
		zap.Int("size", err.Size),
		zap.Int("limit", err.Limit),
	)
	if d.metrics != nil {
		d.metrics.IncRecordsDropped(observability.DropReasonTooLarge, 1)
	}
}

func (d *Dispatcher) updateBufferStats() {
	if d.metrics == nil {
		return
	}
	stats := d.buffer.Stats()
	d.metrics.SetBufferLength(stats.RecordCount)
	d.metrics.SetBufferSizeBytes(stats.SizeBytes)
}
