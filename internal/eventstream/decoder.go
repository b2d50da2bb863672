// Package eventstream decodes the analysis progress stream.
//
// The stream is text/event-stream shaped: newline-delimited lines, of which
// only "data:" lines carry a JSON workflow update. Frames may be split across
// arbitrary read chunks, so the Decoder keeps the unterminated tail of the
// input between Feed calls. The package does no I/O of its own.
package eventstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/abelbrown/waterlens/internal/workflow"
)

// DataPrefix marks a line that carries a frame payload.
const DataPrefix = "data:"

// ParseError describes a data line whose payload could not be decoded.
// It is never fatal to the stream.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", truncate(e.Line, 80), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Stats counts what a Decoder has seen so far.
type Stats struct {
	Lines     int // complete lines consumed
	Frames    int // updates decoded
	Malformed int // data lines that failed to decode
}

// Decoder turns a byte stream into workflow updates. Not goroutine-safe;
// a stream has exactly one reader.
type Decoder struct {
	pending []byte
	stats   Stats
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the pending buffer and decodes every complete line.
// Updates are returned in stream order. Malformed data lines are reported as
// *ParseError values and otherwise skipped.
func (d *Decoder) Feed(chunk []byte) ([]workflow.Update, []error) {
	d.pending = append(d.pending, chunk...)

	var (
		updates []workflow.Update
		errs    []error
	)
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := d.pending[:i]
		d.pending = d.pending[i+1:]
		d.stats.Lines++

		u, ok, err := d.decodeLine(line)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			updates = append(updates, u)
		}
	}

	return updates, errs
}

// Flush decodes a trailing line that was never newline-terminated. Call it
// once the underlying stream reports EOF.
func (d *Decoder) Flush() ([]workflow.Update, []error) {
	if len(d.pending) == 0 {
		return nil, nil
	}
	return d.Feed([]byte{'\n'})
}

// Buffered returns the number of bytes held waiting for a newline.
func (d *Decoder) Buffered() int {
	return len(d.pending)
}

// Stats returns the running counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

func (d *Decoder) decodeLine(line []byte) (workflow.Update, bool, error) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	payload, ok := Payload(line)
	if !ok {
		return workflow.Update{}, false, nil
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		// A bare "data:" keep-alive carries nothing.
		return workflow.Update{}, false, nil
	}

	var u workflow.Update
	if err := json.Unmarshal(payload, &u); err != nil {
		d.stats.Malformed++
		return workflow.Update{}, false, &ParseError{Line: string(line), Err: err}
	}
	d.stats.Frames++
	return u, true, nil
}

// Payload strips the data prefix (and the single optional space after it)
// from line. ok is false for comments, event names and other field lines.
func Payload(line []byte) (payload []byte, ok bool) {
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return nil, false
	}
	payload = line[len(DataPrefix):]
	if len(payload) > 0 && payload[0] == ' ' {
		payload = payload[1:]
	}
	return payload, true
}

// WriteFrame encodes v as JSON and writes it as a single data frame followed
// by the blank separator line.
func WriteFrame(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s %s\n\n", DataPrefix, data)
	return err
}

// WriteRaw writes a data line without encoding. Used to emit deliberately
// malformed frames.
func WriteRaw(w io.Writer, payload string) error {
	_, err := fmt.Fprintf(w, "%s %s\n\n", DataPrefix, payload)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
