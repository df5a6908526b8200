package firehose

// Delivery stream hard limits, see
// https://docs.aws.amazon.com/firehose/latest/APIReference/API_PutRecordBatch.html
const (
	MaxBatchRecords = 500
	MaxBatchBytes   = 4_000_000

	MaxRecordBytes = 1_000_000
)
