package codec

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jittakal/kafeventfirehose/pkg/codec"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

// DefaultLineFormat is the line codec format when none is configured.
const DefaultLineFormat = "%{@timestamp} %{message}"

var fieldRef = regexp.MustCompile(`%\{([^}]+)\}`)

// Ensure implementation satisfies interface at compile time.
var _ codec.Codec = (*LineCodec)(nil)

// LineCodec renders events through a format string. A %{name} reference is
// replaced by the field value; references to missing fields are left as is.
type LineCodec struct {
	format string
}

// NewLineCodec creates a line codec. An empty format uses DefaultLineFormat.
func NewLineCodec(format string) *LineCodec {
	if format == "" {
		format = DefaultLineFormat
	}
	return &LineCodec{format: format}
}

// Encode implements codec.Codec.
func (c *LineCodec) Encode(e *event.Event) (event.Record, error) {
	out := fieldRef.ReplaceAllStringFunc(c.format, func(ref string) string {
		name := ref[2 : len(ref)-1]
		v, ok := e.Get(name)
		if !ok || v == nil {
			return ref
		}
		return formatValue(v)
	})
	return event.Record(out + "\n"), nil
}

// Name implements codec.Codec.
func (c *LineCodec) Name() string {
	return NameLine
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		if data, err := json.Marshal(val); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}
