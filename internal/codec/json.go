package codec

import (
	"encoding/json"
	"time"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/codec"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Ensure implementation satisfies interface at compile time.
var _ codec.Codec = (*JSONCodec)(nil)

// JSONCodec encodes events as JSON objects, optionally newline terminated.
type JSONCodec struct {
	lines bool
}

// NewJSONCodec creates a JSON codec. With lines set every record ends in '\n'.
func NewJSONCodec(lines bool) *JSONCodec {
	return &JSONCodec{lines: lines}
}

// Encode implements codec.Codec.
func (c *JSONCodec) Encode(e *event.Event) (event.Record, error) {
	data, err := json.Marshal(document(e))
	if err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}
	if c.lines {
		data = append(data, '\n')
	}
	return event.Record(data), nil
}

// Name implements codec.Codec.
func (c *JSONCodec) Name() string {
	if c.lines {
		return NameJSONLines
	}
	return NameJSON
}

// document returns the event fields with @timestamp taken from the event.
func document(e *event.Event) map[string]any {
	doc := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		doc[k] = v
	}
	doc[event.FieldTimestamp] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return doc
}
