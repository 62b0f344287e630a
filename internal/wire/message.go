// Package wire implements the line-oriented message format spoken between the
// server and its game clients. A message is an integer signifier followed by
// comma-delimited fields; some fields carry |-delimited lists and serialized
// records additionally use + to split their sections.
package wire

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedMessage is returned by Decode for input that cannot be mapped
// onto a signifier and field list.
var ErrMalformedMessage = errors.New("malformed wire message")

// Message is the decoded form of one line received from or sent to a client.
type Message struct {
	Signifier int
	Fields    []string
}

// Field returns the field at index i, or the empty string if the message
// doesn't have that many fields. Handlers index fields positionally and a
// short message must read as empty values rather than panic.
func (m *Message) Field(i int) string {
	if i < 0 || i >= len(m.Fields) {
		return ""
	}
	return m.Fields[i]
}

// NumericField parses the field at index i as an integer.
func (m *Message) NumericField(i int) (int, error) {
	n, err := strconv.Atoi(m.Field(i))
	if err != nil {
		return 0, ErrMalformedMessage
	}
	return n, nil
}

// BoolField parses the field at index i as a boolean. The Unity client sends
// "True"/"False", so parsing is case-insensitive.
func (m *Message) BoolField(i int) (bool, error) {
	b, err := strconv.ParseBool(strings.ToLower(m.Field(i)))
	if err != nil {
		return false, ErrMalformedMessage
	}
	return b, nil
}

// Decode splits a raw line into its signifier and fields. Decoding is purely
// syntactic: any comma-delimited line with a leading integer is accepted, and
// validation of field counts is left to the handler for that signifier.
func Decode(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, ErrMalformedMessage
	}

	parts := strings.Split(line, ",")
	signifier, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, ErrMalformedMessage
	}

	return &Message{Signifier: signifier, Fields: parts[1:]}, nil
}

// Encode produces the delimited form of a message. Every message is terminated
// with a trailing comma so that receivers splitting on fixed indices are not
// tripped up by empty trailing elements.
func Encode(signifier int, fields ...string) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(signifier))

	for _, f := range fields {
		b.WriteByte(',')
		b.WriteString(f)
	}
	b.WriteByte(',')

	return b.String()
}
