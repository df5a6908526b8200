// Package codec provides encoders that turn pipeline events into delivery
// stream records.
//
// # Supported Codecs
//
//   - json: compact JSON object of the event fields plus @timestamp
//   - json_lines: json followed by a newline (default)
//   - line: a format string with %{field} references, newline terminated
//   - cloudevents: a CloudEvents 1.0 JSON envelope, newline terminated
//   - avro: Avro single-object encoding of a fixed log event schema
//   - cbor: deterministic CBOR of the event fields plus @timestamp
//
// # Codec Factory
//
//	factory := codec.NewFactory("line", "%{@timestamp} %{message}", "")
//	c, err := factory.CreateCodec()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	record, err := c.Encode(event.NewMessage("hello"))
//
// Firehose concatenates records without a separator when it writes them to
// S3, so the text codecs terminate every record with a newline.
//
// Encoding failures are returned as *errors.EncodeError. All codecs are safe
// for concurrent use.
package codec
