package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	apperrors "github.com/jittakal/kafeventfirehose/internal/errors"
	"github.com/jittakal/kafeventfirehose/pkg/codec"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// Ensure implementation satisfies interface at compile time.
var _ codec.Codec = (*CBORCodec)(nil)

// CBORCodec encodes events with Core Deterministic Encoding (RFC 8949 §4.2),
// so the same event always produces the same bytes.
type CBORCodec struct {
	mode cbor.EncMode
}

// NewCBORCodec creates a new CBOR codec.
func NewCBORCodec() (*CBORCodec, error) {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create cbor encoder: %w", err)
	}
	return &CBORCodec{mode: mode}, nil
}

// Encode implements codec.Codec.
func (c *CBORCodec) Encode(e *event.Event) (event.Record, error) {
	data, err := c.mode.Marshal(document(e))
	if err != nil {
		return nil, &apperrors.EncodeError{Codec: c.Name(), Err: err}
	}
	return event.Record(data), nil
}

// Name implements codec.Codec.
func (c *CBORCodec) Name() string {
	return NameCBOR
}
