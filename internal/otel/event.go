// Package otel provides structured diagnostics for waterlens.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and a background drain
// goroutine. An optional RingBuffer keeps the most recent events in memory so
// the TUI can show stream health (for example the malformed-frame count)
// without reading the log back.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Upload events
	KindUploadStart    EventKind = "upload.start"
	KindUploadComplete EventKind = "upload.complete"
	KindUploadError    EventKind = "upload.error"

	// Stream events
	KindStreamOpen      EventKind = "stream.open"
	KindStreamFrame     EventKind = "stream.frame"
	KindStreamMalformed EventKind = "stream.malformed"
	KindStreamClose     EventKind = "stream.close"
	KindStreamError     EventKind = "stream.error"

	// Result events
	KindResultFetch    EventKind = "result.fetch"
	KindResultError    EventKind = "result.error"
	KindDownload       EventKind = "result.download"
	KindDownloadError  EventKind = "result.download_error"
	KindPreviewFetch   EventKind = "result.preview"
	KindValidationFail EventKind = "intake.rejected"

	// UI events
	KindStateChange EventKind = "ui.state"
	KindMsgReceived EventKind = "trace.msg_received"
	KindStreamRead  EventKind = "trace.stream_read"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
)

// Event is the universal diagnostic record. Every field except Kind and Time
// is optional. Serialized as a single JSONL line.
type Event struct {
	Time       time.Time      `json:"t"`
	Level      Level          `json:"level,omitempty"`
	Kind       EventKind      `json:"kind"`
	Comp       string         `json:"comp,omitempty"`       // component: "api", "ui", "cli", "mock"
	SessionID  string         `json:"session_id,omitempty"` // random hex, same for the whole process
	AnalysisID string         `json:"analysis_id,omitempty"`
	Step       string         `json:"step,omitempty"`
	Status     string         `json:"status,omitempty"`
	Progress   float64        `json:"progress,omitempty"`
	Dur        time.Duration  `json:"-"`
	DurMs      float64        `json:"dur_ms,omitempty"` // computed from Dur at marshal time
	Count      int            `json:"count,omitempty"`
	Bytes      int64          `json:"bytes,omitempty"`
	Err        string         `json:"err,omitempty"`
	Msg        string         `json:"msg,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
