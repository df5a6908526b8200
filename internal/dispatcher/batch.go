package dispatcher

import (
	"errors"

	"github.com/jittakal/kafeventfirehose/internal/firehose"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

var (
	ErrBatchSizeOverflow   = errors.New("batch size overflow")
	ErrBatchLengthOverflow = errors.New("batch length overflow")
)

// Batch is a group of records that can be sent in one PutRecordBatch call.
// Add refuses any record that would take the batch past the delivery stream
// limits.
type Batch struct {
	size    int
	records []event.Record
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{records: make([]event.Record, 0, firehose.MaxBatchRecords)}
}

// Add appends r, or returns ErrBatchSizeOverflow / ErrBatchLengthOverflow
// if the batch cannot take it.
func (b *Batch) Add(r event.Record) error {
	if b.size+r.Len() > firehose.MaxBatchBytes {
		return ErrBatchSizeOverflow
	}
	if len(b.records)+1 > firehose.MaxBatchRecords {
		return ErrBatchLengthOverflow
	}

	b.append(r)
	return nil
}

func (b *Batch) fits(r event.Record) bool {
	return b.size+r.Len() <= firehose.MaxBatchBytes && len(b.records) < firehose.MaxBatchRecords
}

func (b *Batch) append(r event.Record) {
	b.records = append(b.records, r)
	b.size += r.Len()
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int {
	return len(b.records)
}

// Size returns the combined size of the batch in bytes.
func (b *Batch) Size() int {
	return b.size
}

// Records returns the batch contents.
func (b *Batch) Records() []event.Record {
	return b.records
}

// Partition splits records into batches that each satisfy the count and
// combined-size limits. Records are kept in order and the last batch is
// always returned, however small. Records above MaxRecordBytes are left out;
// callers that need to report them filter first.
func Partition(records []event.Record) []*Batch {
	if len(records) == 0 {
		return nil
	}

	var batches []*Batch
	current := NewBatch()

	for _, r := range records {
		if r.Len() > firehose.MaxRecordBytes {
			continue
		}
		if !current.fits(r) {
			batches = append(batches, current)
			current = NewBatch()
		}
		current.append(r)
	}

	if current.Len() > 0 {
		batches = append(batches, current)
	}
	return batches
}
