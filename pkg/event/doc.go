// Package event defines the pipeline event model.
//
// # Events
//
// Event is a structured pipeline event: a timestamp plus arbitrary fields.
// Sources build events either from raw payloads or from plain messages:
//
//	evt := event.FromJSON([]byte(`{"message":"hello","level":"info"}`))
//	line := event.NewMessage("GET /health 200")
//
// Non-object payloads are preserved under the "message" field, so no input
// is ever rejected at this layer.
//
// # Records
//
// Record is the encoded byte form of an event produced by a codec. The
// output treats it as opaque and only looks at its length when enforcing the
// delivery stream limits.
package event
