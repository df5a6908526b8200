// Package errors defines application-specific error types and sentinel errors.
//
// Every error the output produces falls into one of two kinds: fatal
// configuration errors that halt the output instance, and recoverable
// delivery errors where the affected records are dropped and logged.
package errors

import (
	"errors"
	"fmt"

	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Sentinel errors for common conditions.
var (
	ErrStreamNotFound  = errors.New("delivery stream not found")
	ErrPartialFailure  = errors.New("delivery stream rejected part of the batch")
	ErrRecordTooLarge  = errors.New("record too large")
	ErrOutputClosed    = errors.New("output is closed")
	ErrConsumerClosed  = errors.New("consumer is closed")
	ErrSourceClosed    = errors.New("source is closed")
	ErrUnknownCodec    = errors.New("unknown codec")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrEmptyStreamName = errors.New("stream name is empty")
)

// Kind tags an error as fatal or recoverable.
type Kind int

const (
	// KindRecoverable errors drop the affected records; processing continues.
	KindRecoverable Kind = iota
	// KindFatal errors halt the output instance.
	KindFatal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindRecoverable:
		return "recoverable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Classified is implemented by errors that carry their own kind.
type Classified interface {
	error
	Kind() Kind
}

// KindOf returns the kind of err. Unclassified errors are recoverable.
func KindOf(err error) Kind {
	if err == nil {
		return KindRecoverable
	}

	var classified Classified
	if errors.As(err, &classified) {
		return classified.Kind()
	}

	if errors.Is(err, ErrStreamNotFound) || errors.Is(err, ErrEmptyStreamName) {
		return KindFatal
	}

	return KindRecoverable
}

// IsFatal reports whether err halts the output.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == KindFatal
}

// ConfigError is a fatal configuration failure: an invalid stream name,
// a stream that does not exist remotely, or an unusable setting.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: field=%s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: field=%s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Kind implements Classified.
func (e *ConfigError) Kind() Kind {
	return KindFatal
}

// DeliveryError represents a failed submission to the delivery stream.
type DeliveryError struct {
	Op      string
	Stream  string
	Records int
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error: op=%s stream=%s records=%d: %v",
		e.Op, e.Stream, e.Records, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Kind implements Classified. A delivery error wrapping a missing stream is
// fatal; everything else is recoverable.
func (e *DeliveryError) Kind() Kind {
	if errors.Is(e.Err, ErrStreamNotFound) {
		return KindFatal
	}
	var cfgErr *ConfigError
	if errors.As(e.Err, &cfgErr) {
		return KindFatal
	}
	return KindRecoverable
}

// RecordTooLargeError describes a record dropped before submission.
type RecordTooLargeError struct {
	Size  int
	Limit int
}

func (e *RecordTooLargeError) Error() string {
	return fmt.Sprintf("record too large: size=%d limit=%d", e.Size, e.Limit)
}

func (e *RecordTooLargeError) Unwrap() error {
	return ErrRecordTooLarge
}

// Kind implements Classified.
func (e *RecordTooLargeError) Kind() Kind {
	return KindRecoverable
}

// EncodeError represents an event that could not be encoded.
type EncodeError struct {
	Codec string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode error: codec=%s: %v", e.Codec, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// SourceError represents a failure reading from an event source.
type SourceError struct {
	PartitionID event.PartitionID
	Offset      int64
	Err         error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error: partition=%s offset=%d: %v",
		e.PartitionID, e.Offset, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
