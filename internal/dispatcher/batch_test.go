package dispatcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jittakal/kafeventfirehose/internal/firehose"
	"github.com/jittakal/kafeventfirehose/pkg/event"
)

func repeat(n, size int) []event.Record {
	out := make([]event.Record, n)
	for i := range out {
		out[i] = event.Record(bytes.Repeat([]byte{'x'}, size))
	}
	return out
}

func TestBatch_Add(t *testing.T) {
	b := NewBatch()

	require.NoError(t, b.Add(event.Record("abcd")))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 4, b.Size())

	full := NewBatch()
	for _, r := range repeat(4, firehose.MaxRecordBytes) {
		require.NoError(t, full.Add(r))
	}
	assert.ErrorIs(t, full.Add(event.Record("x")), ErrBatchSizeOverflow)

	long := NewBatch()
	for _, r := range repeat(firehose.MaxBatchRecords, 1) {
		require.NoError(t, long.Add(r))
	}
	assert.ErrorIs(t, long.Add(event.Record("x")), ErrBatchLengthOverflow)
}

func TestPartition(t *testing.T) {
	eighth := firehose.MaxBatchBytes / 8

	tests := []struct {
		name        string
		desc        string
		records     []event.Record
		wantLengths []int
	}{
		{
			name:        "empty input",
			records:     nil,
			wantLengths: nil,
		},
		{
			name:        "small batch",
			desc:        "Everything fits in one batch.",
			records:     repeat(3, 10),
			wantLengths: []int{3},
		},
		{
			name:        "exactly at size limit",
			desc:        "Eight records of one eighth of the limit fill a batch exactly.",
			records:     repeat(8, eighth),
			wantLengths: []int{8},
		},
		{
			name:        "oversized batch (size)",
			desc:        "One byte past the limit spills into a second batch.",
			records:     append(repeat(8, eighth), event.Record{0}),
			wantLengths: []int{8, 1},
		},
		{
			name:        "oversized batch (length)",
			desc:        "More records than the count limit.",
			records:     repeat(firehose.MaxBatchRecords+1, 1),
			wantLengths: []int{firehose.MaxBatchRecords, 1},
		},
		{
			name:        "max size records",
			desc:        "Five records at the per-record limit need two calls.",
			records:     repeat(5, firehose.MaxRecordBytes),
			wantLengths: []int{4, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Partition(tt.records)

			var lengths []int
			total := 0
			for _, b := range batches {
				lengths = append(lengths, b.Len())
				total += b.Len()
				assert.LessOrEqual(t, b.Size(), firehose.MaxBatchBytes, "batch size")
				assert.LessOrEqual(t, b.Len(), firehose.MaxBatchRecords, "batch length")
			}
			assert.Equal(t, tt.wantLengths, lengths, tt.desc)
			assert.Equal(t, len(tt.records), total, "every record is placed exactly once")
		})
	}
}

func TestPartition_PreservesOrder(t *testing.T) {
	records := []event.Record{
		event.Record(bytes.Repeat([]byte{'a'}, firehose.MaxRecordBytes)),
		event.Record(bytes.Repeat([]byte{'b'}, firehose.MaxRecordBytes)),
		event.Record(bytes.Repeat([]byte{'c'}, firehose.MaxRecordBytes)),
		event.Record(bytes.Repeat([]byte{'d'}, firehose.MaxRecordBytes)),
		event.Record("e"),
	}

	batches := Partition(records)
	require.Len(t, batches, 2)

	var flat []event.Record
	for _, b := range batches {
		flat = append(flat, b.Records()...)
	}
	assert.Equal(t, records, flat)
}

func TestPartition_SkipsOversizedRecords(t *testing.T) {
	records := []event.Record{
		event.Record(bytes.Repeat([]byte{'x'}, firehose.MaxBatchBytes+1)),
		event.Record("a"),
		event.Record(bytes.Repeat([]byte{'y'}, firehose.MaxRecordBytes+1)),
		event.Record("b"),
	}

	batches := Partition(records)
	require.Len(t, batches, 1)
	assert.Equal(t, []event.Record{event.Record("a"), event.Record("b")}, batches[0].Records())
	assert.Equal(t, 2, batches[0].Size())
}

func TestPartition_OnlyOversized(t *testing.T) {
	batches := Partition([]event.Record{
		event.Record(bytes.Repeat([]byte{'x'}, firehose.MaxRecordBytes+1)),
	})
	assert.Empty(t, batches)
}
