// Package codec defines the interface for turning pipeline events into
// delivery stream records.
package codec

import "github.com/jittakal/kafeventfirehose/pkg/event"

// Codec encodes one event into one record.
type Codec interface {
	// Encode returns the encoded bytes of e.
	Encode(e *event.Event) (event.Record, error)

	// Name returns the codec name used in configuration.
	Name() string
}
