package codec

import (
	"encoding/json"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/codec"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// CloudEvents attributes set on every envelope.
const (
	CloudEventType     = "com.kafeventfirehose.log"
	DefaultEventSource = "kafeventfirehose"
)

// Ensure implementation satisfies interface at compile time.
var _ codec.Codec = (*CloudEventsCodec)(nil)

// CloudEventsCodec wraps each event in a CloudEvents 1.0 JSON envelope with
// the event fields as data.
type CloudEventsCodec struct {
	source string
}

// NewCloudEventsCodec creates a CloudEvents codec. source is used when the
// event carries no source of its own.
func NewCloudEventsCodec(source string) *CloudEventsCodec {
	if source == "" {
		source = DefaultEventSource
	}
	return &CloudEventsCodec{source: source}
}

// Encode implements codec.Codec.
func (c *CloudEventsCodec) Encode(e *event.Event) (event.Record, error) {
	ce := cloudevents.NewEvent()
	ce.SetSpecVersion(cloudevents.VersionV1)
	ce.SetID(uuid.New().String())
	ce.SetType(CloudEventType)
	ce.SetTime(e.Timestamp)

	source := c.source
	if e.Metadata.Source != "" {
		source = e.Metadata.Source
	}
	ce.SetSource(source)
	if e.Metadata.Topic != "" {
		ce.SetSubject(e.Metadata.Topic)
	}

	if err := ce.SetData(cloudevents.ApplicationJSON, e.Fields); err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}
	if err := ce.Validate(); err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}

	data, err := json.Marshal(ce)
	if err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}
	return event.Record(append(data, '\n')), nil
}

// Name implements codec.Codec.
func (c *CloudEventsCodec) Name() string {
	return NameCloudEvents
}
