// Package buffer implements the in-memory record buffer shared by the
// Firehose output and its dispatcher.
package buffer

import (
	"sync"

	"github.com/jittakal/kafeventfirehose/pkg/buffer"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Ensure implementation satisfies interface at compile time.
var _ buffer.Buffer = (*EventBuffer)(nil)

// EventBuffer is an unbounded FIFO queue of encoded records.
// Every mutation happens under a single mutex, so concurrent drains never
// hand out the same record twice.
type EventBuffer struct {
	records     []event.Record
	currentSize int64
	mu          sync.Mutex
}

// New creates an empty event buffer.
func New() *EventBuffer {
	return &EventBuffer{}
}

// Push appends a record to the tail of the buffer.
func (b *EventBuffer) Push(record event.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records = append(b.records, record)
	b.currentSize += int64(record.Len())
}

// DrainOne removes and returns the record at the head of the buffer.
func (b *EventBuffer) DrainOne() (event.Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil, false
	}

	record := b.records[0]
	b.removeHead(1)
	return record, true
}

// DrainUpTo removes and returns up to n records from the head of the buffer.
// The returned slice is owned by the caller.
func (b *EventBuffer) DrainUpTo(n int) []event.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || len(b.records) == 0 {
		return []event.Record{}
	}
	if n > len(b.records) {
		n = len(b.records)
	}

	out := make([]event.Record, n)
	copy(out, b.records[:n])
	b.removeHead(n)
	return out
}

// Len returns the number of buffered records.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Stats returns the record count and buffered bytes under one lock.
func (b *EventBuffer) Stats() buffer.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return buffer.Stats{
		RecordCount: len(b.records),
		SizeBytes:   b.currentSize,
	}
}

// removeHead drops the first n records. Callers hold b.mu.
func (b *EventBuffer) removeHead(n int) {
	for _, r := range b.records[:n] {
		b.currentSize -= int64(r.Len())
	}
	clear(b.records[:n])
	b.records = b.records[n:]

	if len(b.records) == 0 {
		b.records = nil
		b.currentSize = 0
	}
}
