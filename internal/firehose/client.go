// Package firehose implements the delivery stream client used by the output.
package firehose

import (
	"context"

	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Client submits encoded records to a delivery stream.
//
// Implementations classify failures with the internal errors package: a
// stream that does not exist is reported as a fatal *errors.ConfigError, and
// every other failure as a recoverable *errors.DeliveryError.
type Client interface {
	// SubmitOne sends a single record.
	SubmitOne(ctx context.Context, stream string, record event.Record) error

	// SubmitMany sends a batch of records in one call. Callers are
	// responsible for keeping the batch within the stream limits.
	SubmitMany(ctx context.Context, stream string, records []event.Record) error
}
