// Package stream decodes the chunked event stream produced by the deep
// explanation endpoint. Records are newline-delimited blocks of "event:" and
// "data:" lines separated by a blank line; record boundaries may fall
// anywhere inside a network chunk.
package stream

import (
	"encoding/json"
	"strings"

	"github.com/lingualens/lingualens/internal/explain"
)

// EventType tags a decoded stream event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one decoded record. Progress events carry a snapshot of the
// payload accumulated so far; complete events carry the final payload.
type Event struct {
	Type    EventType
	Partial *explain.DeepPayload
	Final   *explain.DeepPayload
	Reason  string
}

// Decoder incrementally reconstructs a DeepPayload from stream chunks. It is
// owned by the routine decoding one request and must not be shared.
type Decoder struct {
	pending   string
	partial   explain.DeepPayload
	completed bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed consumes one chunk and returns the events completed by it. Unconsumed
// bytes stay buffered for the next call. A decoded error record is returned
// as an error, aborting the stream.
func (d *Decoder) Feed(chunk string) ([]Event, error) {
	d.pending += chunk

	events := make([]Event, 0)
	for {
		idx := strings.Index(d.pending, "\n\n")
		if idx < 0 {
			return events, nil
		}
		record := d.pending[:idx]
		d.pending = d.pending[idx+2:]

		event, err := d.decodeRecord(record)
		if err != nil {
			return events, err
		}
		if event != nil {
			events = append(events, *event)
		}
	}
}

// Close marks end of stream. A stream that ended without a complete event is
// a StreamIncomplete failure; trailing buffered bytes are flushed first so a
// final record without its blank-line terminator still counts.
func (d *Decoder) Close() ([]Event, error) {
	events := make([]Event, 0)
	if trailing := strings.TrimSpace(d.pending); trailing != "" && !d.completed {
		d.pending = ""
		event, err := d.decodeRecord(trailing)
		if err != nil {
			return events, err
		}
		if event != nil {
			events = append(events, *event)
		}
	}
	if !d.completed {
		return events, explain.NewError(explain.FailStreamIncomplete, "stream ended before a complete event")
	}
	return events, nil
}

func (d *Decoder) decodeRecord(record string) (*Event, error) {
	name, data := splitRecord(record)
	if data == "" {
		return nil, nil
	}

	switch name {
	case "complete":
		var payload explain.DeepPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return nil, explain.WrapError(explain.FailParse, "malformed complete event", err)
		}
		d.completed = true
		return &Event{Type: EventComplete, Final: &payload}, nil

	case "error":
		var body struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(data), &body); err != nil || body.Reason == "" {
			body.Reason = "stream reported an error"
		}
		return nil, explain.NewError(explain.FailNetwork, body.Reason)

	default:
		// progress and its named refinements (background, crossCulture,
		// sources) all merge into the accumulated payload
		var patch explain.DeepPatch
		if err := json.Unmarshal([]byte(data), &patch); err != nil {
			return nil, explain.WrapError(explain.FailParse, "malformed progress event", err)
		}
		patch.ApplyTo(&d.partial)
		snapshot := d.partial
		return &Event{Type: EventProgress, Partial: &snapshot}, nil
	}
}

// splitRecord separates the event name from the joined data lines.
func splitRecord(record string) (string, string) {
	name := "progress"
	dataLines := make([]string, 0, 2)
	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return name, strings.Join(dataLines, "\n")
}
