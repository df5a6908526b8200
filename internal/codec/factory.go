package codec

import (
	"fmt"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/codec"
)

// Codec names accepted by the factory.
const (
	NameJSON        = "json"
	NameJSONLines   = "json_lines"
	NameLine        = "line"
	NameCloudEvents = "cloudevents"
	NameAvro        = "avro"
	NameCBOR        = "cbor"
)

// DefaultName is used when no codec is configured.
const DefaultName = NameJSONLines

// Factory creates codecs based on name and configuration.
type Factory struct {
	name   string
	format string
	source string
}

// NewFactory creates a new codec factory. format is only used by the line
// codec and source only by the cloudevents codec; both may be empty.
func NewFactory(name, format, source string) *Factory {
	if name == "" {
		name = DefaultName
	}
	return &Factory{
		name:   name,
		format: format,
		source: source,
	}
}

// CreateCodec creates a codec for the configured name.
func (f *Factory) CreateCodec() (codec.Codec, error) {
	switch f.name {
	case NameJSON:
		return NewJSONCodec(false), nil
	case NameJSONLines:
		return NewJSONCodec(true), nil
	case NameLine:
		return NewLineCodec(f.format), nil
	case NameCloudEvents:
		return NewCloudEventsCodec(f.source), nil
	case NameAvro:
		return NewAvroCodec()
	case NameCBOR:
		return NewCBORCodec()
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownCodec, f.name)
	}
}

// SupportedCodecs returns the list of codec names.
func SupportedCodecs() []string {
	return []string{
		NameJSON,
		NameJSONLines,
		NameLine,
		NameCloudEvents,
		NameAvro,
		NameCBOR,
	}
}
