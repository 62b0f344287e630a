package wire

import (
	"strconv"
	"strings"
)

// Record is one snapshot unit within a Recording: the board at a point in
// time, the status text shown above it, and the chat lines visible then.
type Record struct {
	Cells          [9]string
	ServerResponse string
	TimeRecorded   float64
	Messages       []string
}

// Recording is a stored, named sequence of Records representing one completed
// play-through. The timestamp is kept as the client-supplied string since it
// is only ever echoed back.
type Recording struct {
	Username  string
	Timestamp string
	Records   []Record
}

// MarshalRecord serializes a Record into its wire blob: nine |-terminated
// board cells followed by the response text and time, then a + and the
// |-terminated chat lines. The blob fits inside a single comma-delimited
// field, so it must never contain a comma of its own.
func MarshalRecord(r Record) string {
	var b strings.Builder

	for _, cell := range r.Cells {
		b.WriteString(cell)
		b.WriteByte('|')
	}
	b.WriteString(r.ServerResponse)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(r.TimeRecorded, 'f', 2, 64))
	b.WriteString("|+")

	for _, m := range r.Messages {
		// Empty chat lines are dropped on the way out; they carry nothing and
		// would be indistinguishable from delimiter artifacts on the way in.
		if m == "" {
			continue
		}
		b.WriteString(m)
		b.WriteByte('|')
	}

	return b.String()
}

// UnmarshalRecord parses a blob produced by MarshalRecord back into a Record.
func UnmarshalRecord(blob string) (Record, error) {
	var r Record

	sections := strings.Split(blob, "+")
	if len(sections) < 2 {
		return r, ErrMalformedMessage
	}

	boardData := strings.Split(sections[0], "|")
	if len(boardData) < 11 {
		return r, ErrMalformedMessage
	}
	copy(r.Cells[:], boardData[:9])

	r.ServerResponse = boardData[9]

	timeRecorded, err := strconv.ParseFloat(boardData[10], 64)
	if err != nil {
		return r, ErrMalformedMessage
	}
	r.TimeRecorded = timeRecorded

	for _, m := range strings.Split(sections[1], "|") {
		if m != "" {
			r.Messages = append(r.Messages, m)
		}
	}

	return r, nil
}
