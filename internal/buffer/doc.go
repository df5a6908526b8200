// Package buffer provides the thread-safe record buffer used by the Firehose
// output.
//
// Encoded records are pushed by the output as events arrive and drained by
// the dispatcher, either one at a time or in rounds of up to the batch record
// limit:
//
//	buf := buffer.New()
//	buf.Push(event.Record(`{"message":"hello"}`))
//
//	if rec, ok := buf.DrainOne(); ok {
//	    submit(rec)
//	}
//
//	for _, rec := range buf.DrainUpTo(500) {
//	    batch = append(batch, rec)
//	}
//
// # Ordering
//
// The buffer is FIFO for both drain operations. DrainUpTo preserves the
// relative order of the records it returns.
//
// # Thread Safety
//
// Push, DrainOne and DrainUpTo are mutually exclusive under one mutex. A
// length read with Len is only a snapshot: a later drain may return fewer
// records (or none) if another caller drained in between, and callers must
// treat an empty drain as "nothing to do" rather than an error.
package buffer
