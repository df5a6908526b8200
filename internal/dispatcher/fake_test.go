package dispatcher

import (
	"context"
	"sync"

	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// fakeClient records every submission. The optional hooks decide the error
// returned for a call.
type fakeClient struct {
	mu      sync.Mutex
	ones    []event.Record
	batches [][]event.Record

	oneErr  func(event.Record) error
	manyErr func([]event.Record) error
}

func (f *fakeClient) SubmitOne(_ context.Context, _ string, record event.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ones = append(f.ones, record)
	if f.oneErr != nil {
		return f.oneErr(record)
	}
	return nil
}

func (f *fakeClient) SubmitMany(_ context.Context, _ string, records []event.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]event.Record, len(records))
	copy(cp, records)
	f.batches = append(f.batches, cp)
	if f.manyErr != nil {
		return f.manyErr(records)
	}
	return nil
}

func (f *fakeClient) submittedBatches() [][]event.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

type fakeMetrics struct {
	mu      sync.Mutex
	dropped map[string]int
	submits int
	buffer  int
	bytes   int64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{dropped: make(map[string]int)}
}

func (m *fakeMetrics) IncRecordsDropped(reason string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason] += n
}

func (m *fakeMetrics) ObserveSubmit(string, int, int, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits++
}

func (m *fakeMetrics) SetBufferLength(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buffer = n
}

func (m *fakeMetrics) SetBufferSizeBytes(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes = n
}
