// Package buffer defines interfaces for buffering encoded records between
// encoding and delivery.
package buffer

import (
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Stats is a point-in-time view of a buffer.
type Stats struct {
	RecordCount int
	SizeBytes   int64
}

// Buffer holds encoded records until the dispatcher drains them.
// All implementations must be thread-safe.
type Buffer interface {
	// Push appends a record to the tail of the buffer.
	Push(record event.Record)

	// DrainOne removes and returns the record at the head of the buffer.
	// It returns false when the buffer is empty.
	DrainOne() (event.Record, bool)

	// DrainUpTo removes and returns up to n records from the head of the
	// buffer, preserving their order. It returns an empty slice when the
	// buffer is empty.
	DrainUpTo(n int) []event.Record

	// Len returns the number of buffered records at the time of the call.
	Len() int

	// Stats returns the record count and combined payload size.
	Stats() Stats
}
