package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/linkedin/goavro/v2"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/codec"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Ensure implementation satisfies interface at compile time.
var _ codec.Codec = (*AvroCodec)(nil)

// AvroCodec encodes events with Avro single-object encoding, so every record
// carries the fingerprint of the schema it was written with.
type AvroCodec struct {
	codec *goavro.Codec
}

// NewAvroCodec creates a new Avro codec.
func NewAvroCodec() (*AvroCodec, error) {
	c, err := goavro.NewCodec(avroSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create avro codec: %w", err)
	}
	return &AvroCodec{codec: c}, nil
}

// avroSchema returns the Avro schema for log events.
func avroSchema() string {
	return `{
		"type": "record",
		"name": "LogEvent",
		"namespace": "com.kafeventfirehose",
		"fields": [
			{"name": "timestamp", "type": "string"},
			{"name": "message", "type": "string"},
			{"name": "fields", "type": "string"},
			{"name": "source", "type": ["null", "string"], "default": null},
			{"name": "kafka_topic", "type": ["null", "string"], "default": null},
			{"name": "kafka_partition", "type": ["null", "int"], "default": null},
			{"name": "kafka_offset", "type": ["null", "long"], "default": null}
		]
	}`
}

// Encode implements codec.Codec.
func (c *AvroCodec) Encode(e *event.Event) (event.Record, error) {
	native, err := c.convertToAvroMap(e)
	if err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}

	data, err := c.codec.SingleFromNative(nil, native)
	if err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}
	return event.Record(data), nil
}

// Name implements codec.Codec.
func (c *AvroCodec) Name() string {
	return NameAvro
}

// Decode converts a record produced by Encode back to its native map form.
func (c *AvroCodec) Decode(record event.Record) (map[string]any, error) {
	native, _, err := c.codec.NativeFromSingle(record)
	if err != nil {
		return nil, fmt.Errorf("failed to decode avro record: %w", err)
	}
	m, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected avro value %T", native)
	}
	return m, nil
}

// convertToAvroMap converts an event to its Avro map representation.
func (c *AvroCodec) convertToAvroMap(e *event.Event) (map[string]any, error) {
	fieldsJSON, err := json.Marshal(e.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}

	avroMap := map[string]any{
		"timestamp":       e.Timestamp.UTC().Format(time.RFC3339Nano),
		"message":         e.Message(),
		"fields":          string(fieldsJSON),
		"source":          nil,
		"kafka_topic":     nil,
		"kafka_partition": nil,
		"kafka_offset":    nil,
	}

	if e.Metadata.Source != "" {
		avroMap["source"] = goavro.Union("string", e.Metadata.Source)
	}
	if e.Metadata.Topic != "" {
		avroMap["kafka_topic"] = goavro.Union("string", e.Metadata.Topic)
		avroMap["kafka_partition"] = goavro.Union("int", e.Metadata.Partition)
		avroMap["kafka_offset"] = goavro.Union("long", e.Metadata.Offset)
	}

	return avroMap, nil
}
