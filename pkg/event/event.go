// Package event defines the pipeline event model and the encoded record type
// handed to the Firehose output.
package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known field names.
const (
	FieldMessage   = "message"
	FieldTimestamp = "@timestamp"
)

// Event is one structured event flowing through the pipeline.
type Event struct {
	Timestamp time.Time
	Fields    map[string]any
	Metadata  Metadata
}

// Metadata describes where an event came from.
type Metadata struct {
	Source    string
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
}

// PartitionID uniquely identifies a Kafka partition.
type PartitionID struct {
	Topic     string
	Partition int32
}

// String returns a string representation of the partition ID in the format "topic-partition".
func (p PartitionID) String() string {
	return fmt.Sprintf("%s-%d", p.Topic, p.Partition)
}

// New creates an event stamped with the current time.
func New(fields map[string]any) *Event {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Event{
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	}
}

// NewMessage creates an event carrying a single message field.
func NewMessage(msg string) *Event {
	return New(map[string]any{FieldMessage: msg})
}

// FromJSON builds an event from a raw payload. Payloads that are not a JSON
// object are kept verbatim in the message field.
func FromJSON(raw []byte) *Event {
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return NewMessage(string(raw))
	}

	e := New(fields)
	if ts, ok := fields[FieldTimestamp].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed.UTC()
		}
	}
	return e
}

// Get returns a field value.
func (e *Event) Get(field string) (any, bool) {
	if field == FieldTimestamp {
		return e.Timestamp.Format(time.RFC3339Nano), true
	}
	v, ok := e.Fields[field]
	return v, ok
}

// Message returns the message field as a string, or "" if it is absent.
func (e *Event) Message() string {
	v, ok := e.Fields[FieldMessage]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Record is the encoded, immutable byte form of one event.
type Record []byte

// Len returns the record size in bytes.
func (r Record) Len() int {
	return len(r)
}
