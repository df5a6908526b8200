package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for dropped records.
const (
	DropReasonTooLarge      = "too_large"
	DropReasonDelivery      = "delivery_failed"
	DropReasonEncode        = "encode_failed"
	StatusSuccess           = "success"
	StatusFailure           = "failure"
	OperationSubmitOne      = "put_record"
	OperationSubmitMany     = "put_record_batch"
	batchSizeLimitBytes     = 4_000_000
	batchLengthLimitRecords = 500
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Output metrics
	RecordsReceived  prometheus.Counter
	RecordsDropped   *prometheus.CounterVec
	RecordsSubmitted prometheus.Counter
	BatchesSubmitted *prometheus.CounterVec
	SubmitDuration   *prometheus.HistogramVec
	BatchSize        prometheus.Histogram
	BatchLength      prometheus.Histogram
	BufferLength     prometheus.Gauge
	BufferSizeBytes  prometheus.Gauge
	EncodeErrors     *prometheus.CounterVec

	// Kafka source metrics
	MessagesConsumed   *prometheus.CounterVec
	OffsetCommits      *prometheus.CounterVec
	Rebalances         *prometheus.CounterVec
	RebalanceDuration  *prometheus.HistogramVec
	PartitionsAssigned *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		// Output metrics
		RecordsReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "firehose_records_received_total",
				Help: "Total number of encoded records pushed into the output buffer",
			},
		),
		RecordsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firehose_records_dropped_total",
				Help: "Total number of records dropped without delivery",
			},
			[]string{"reason"},
		),
		RecordsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "firehose_records_submitted_total",
				Help: "Total number of records accepted by the delivery stream",
			},
		),
		BatchesSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firehose_batches_submitted_total",
				Help: "Total number of submission calls to the delivery stream",
			},
			[]string{"operation", "status"},
		),
		SubmitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "firehose_submit_duration_seconds",
				Help: "Duration of submission calls to the delivery stream",
				// 5ms -> ~80s
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 15),
			},
			[]string{"operation"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "firehose_batch_size_bytes",
				Help:    "Combined size of submitted batches in bytes",
				Buckets: prometheus.LinearBuckets(0, batchSizeLimitBytes/10, 11),
			},
		),
		BatchLength: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "firehose_batch_length",
				Help:    "Number of records per submitted batch",
				Buckets: prometheus.LinearBuckets(0, batchLengthLimitRecords/10, 11),
			},
		),
		BufferLength: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "firehose_buffer_length",
				Help: "Current number of records waiting in the output buffer",
			},
		),
		BufferSizeBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "firehose_buffer_size_bytes",
				Help: "Current combined size of the records waiting in the output buffer",
			},
		),
		EncodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "firehose_encode_errors_total",
				Help: "Total number of events that could not be encoded",
			},
			[]string{"codec"},
		),

		// Kafka source metrics
		MessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_messages_consumed_total",
				Help: "Total number of messages consumed from Kafka",
			},
			[]string{"topic", "partition"},
		),
		OffsetCommits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_offset_commit_total",
				Help: "Total number of offset commits",
			},
			[]string{"topic", "partition", "status"},
		),
		Rebalances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kafka_rebalance_total",
				Help: "Total number of consumer group rebalances",
			},
			[]string{"group"},
		),
		RebalanceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kafka_rebalance_duration_seconds",
				Help:    "Duration of consumer group rebalances",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"group"},
		),
		PartitionsAssigned: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kafka_partitions_assigned",
				Help: "Number of partitions currently assigned to this consumer",
			},
			[]string{"topic"},
		),
	}
}

// IncRecordsReceived increments the received records counter.
func (m *Metrics) IncRecordsReceived() {
	m.RecordsReceived.Inc()
}

// IncRecordsDropped adds n dropped records for reason.
func (m *Metrics) IncRecordsDropped(reason string, n int) {
	m.RecordsDropped.WithLabelValues(reason).Add(float64(n))
}

// IncEncodeErrors increments the encode error counter.
func (m *Metrics) IncEncodeErrors(codec string) {
	m.EncodeErrors.WithLabelValues(codec).Inc()
}

// ObserveSubmit records the outcome of one submission call.
func (m *Metrics) ObserveSubmit(operation string, records int, sizeBytes int, duration float64, err error) {
	m.SubmitDuration.WithLabelValues(operation).Observe(duration)
	if err != nil {
		m.BatchesSubmitted.WithLabelValues(operation, StatusFailure).Inc()
		return
	}
	m.BatchesSubmitted.WithLabelValues(operation, StatusSuccess).Inc()
	m.RecordsSubmitted.Add(float64(records))
	m.BatchSize.Observe(float64(sizeBytes))
	m.BatchLength.Observe(float64(records))
}

// SetBufferLength sets the buffer length gauge.
func (m *Metrics) SetBufferLength(n int) {
	m.BufferLength.Set(float64(n))
}

// SetBufferSizeBytes sets the buffered bytes gauge.
func (m *Metrics) SetBufferSizeBytes(n int64) {
	m.BufferSizeBytes.Set(float64(n))
}

// IncMessagesConsumed increments messages consumed counter.
func (m *Metrics) IncMessagesConsumed(topic string, partition int32) {
	m.MessagesConsumed.WithLabelValues(topic, fmt.Sprintf("%d", partition)).Inc()
}

// IncRebalances increments rebalances counter.
func (m *Metrics) IncRebalances(groupID string) {
	m.Rebalances.WithLabelValues(groupID).Inc()
}

// IncOffsetCommits increments offset commits counter.
func (m *Metrics) IncOffsetCommits(topic string, partition int32, status string) {
	m.OffsetCommits.WithLabelValues(topic, fmt.Sprintf("%d", partition), status).Inc()
}

// ObserveRebalanceDuration observes rebalance duration.
func (m *Metrics) ObserveRebalanceDuration(groupID string, duration float64) {
	m.RebalanceDuration.WithLabelValues(groupID).Observe(duration)
}

// SetPartitionsAssigned sets partitions assigned gauge.
func (m *Metrics) SetPartitionsAssigned(topic string, count float64) {
	m.PartitionsAssigned.WithLabelValues(topic).Set(count)
}
