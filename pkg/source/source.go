// Package source defines interfaces for event sources feeding the output.
//
// A source reads events from somewhere (Kafka, a file, a generator) and
// hands them to a Sink, either one at a time or in micro-batches.
package source

import (
	"context"

	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Sink receives events from a source. *output.Output implements it.
type Sink interface {
	// Receive handles a single event.
	Receive(ctx context.Context, e *event.Event) error

	// ReceiveMany handles a micro-batch of events.
	ReceiveMany(ctx context.Context, events []*event.Event) error
}

// Source produces events until its input ends or ctx is cancelled.
type Source interface {
	// Run feeds sink until the input is exhausted, ctx is cancelled or sink
	// returns a fatal error. A cancelled context is not an error.
	Run(ctx context.Context, sink Sink) error

	// Close releases resources held by the source.
	Close() error
}
