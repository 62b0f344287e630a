// Package recording implements the chunked transfer protocol for gameplay
// recordings: fragmenting stored recordings into payload-sized broadcast
// frames and reassembling inbound chunk streams into complete recordings.
package recording

import (
	"fmt"
	"strconv"

	"github.com/gridlinehq/gridline/internal/wire"
)

// ChunkRecords partitions records into consecutive chunks of at most
// chunkSize elements. The chunk count is (len/chunkSize)+1, so a record
// count that divides evenly produces a trailing empty chunk and an empty
// record list produces exactly one empty chunk. Clients depend on this
// arithmetic, so it is preserved as-is.
func ChunkRecords(records []wire.Record, chunkSize int) [][]wire.Record {
	if chunkSize < 1 {
		chunkSize = 1
	}

	numChunks := (len(records) / chunkSize) + 1
	chunks := make([][]wire.Record, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

// BroadcastFrames builds the full outbound frame sequence advertising the
// stored recordings: a start-of-recordings marker, then for each recording
// its chunked SendRecording frames followed by an end-of-record marker with
// the recording's timestamp and username, and finally an end-of-recordings
// marker.
func BroadcastFrames(recordings []wire.Recording, chunkSize int) []wire.Message {
	frames := []wire.Message{{Signifier: wire.QueueStartOfRecordings}}

	for _, rec := range recordings {
		for _, chunk := range ChunkRecords(rec.Records, chunkSize) {
			fields := make([]string, 0, len(chunk)+1)
			fields = append(fields, strconv.Itoa(len(chunk)))
			for _, r := range chunk {
				fields = append(fields, wire.MarshalRecord(r))
			}
			frames = append(frames, wire.Message{Signifier: wire.SendRecording, Fields: fields})
		}
		frames = append(frames, wire.Message{
			Signifier: wire.QueueEndOfRecord,
			Fields:    []string{rec.Timestamp, rec.Username},
		})
	}

	return append(frames, wire.Message{Signifier: wire.QueueEndOfRecordings})
}

// Assembler accumulates the record chunks of one inbound transfer. Chunks
// are appended in arrival order and drained into a single Recording when the
// sender signals completion, so an Assembler must not be shared between
// concurrent transfers.
type Assembler struct {
	records []wire.Record
}

// Append parses one SendRecord chunk: the declared element count followed by
// that many serialized record blobs.
func (a *Assembler) Append(count int, blobs []string) error {
	if count < 0 || count > len(blobs) {
		return fmt.Errorf("%w: chunk declares %d records but carries %d fields",
			wire.ErrMalformedMessage, count, len(blobs))
	}

	for i := 0; i < count; i++ {
		record, err := wire.UnmarshalRecord(blobs[i])
		if err != nil {
			return fmt.Errorf("parsing record %d of chunk: %w", i, err)
		}
		a.records = append(a.records, record)
	}
	return nil
}

// Len returns the number of records accumulated so far.
func (a *Assembler) Len() int { return len(a.records) }

// Finalize drains the accumulated records into a complete Recording and
// resets the assembler for the next transfer.
func (a *Assembler) Finalize(timestamp, username string) wire.Recording {
	rec := wire.Recording{
		Username:  username,
		Timestamp: timestamp,
		Records:   a.records,
	}
	a.records = nil
	return rec
}
