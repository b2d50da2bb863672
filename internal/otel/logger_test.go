package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEmitWritesValidJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStreamFrame, Level: LevelInfo, Comp: "api", AnalysisID: "analysis_1", Step: "parsing", Progress: 40})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["kind"] != "stream.frame" {
		t.Errorf("expected kind=stream.frame, got %v", decoded["kind"])
	}
	if decoded["analysis_id"] != "analysis_1" {
		t.Errorf("expected analysis_id=analysis_1, got %v", decoded["analysis_id"])
	}
	if decoded["progress"] != float64(40) {
		t.Errorf("expected progress=40, got %v", decoded["progress"])
	}
}

func TestEmitSetsTimeAndSessionID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()
	after := time.Now()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) || ev.Time.After(after) {
		t.Errorf("time %v not in [%v, %v]", ev.Time, before, after)
	}
	if len(ev.SessionID) != 16 || ev.SessionID != l.SessionID() {
		t.Errorf("unexpected session id %q", ev.SessionID)
	}
}

func TestDurToMs(t *testing.T) {
	data, err := json.Marshal(Event{Kind: KindResultFetch, Dur: 1500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["dur_ms"] != float64(1500) {
		t.Errorf("expected dur_ms=1500, got %v", decoded["dur_ms"])
	}
}

func TestOmitempty(t *testing.T) {
	data, _ := json.Marshal(Event{Kind: KindStartup})
	s := string(data)
	for _, field := range []string{"analysis_id", "step", "err", "extra", "dur_ms"} {
		if strings.Contains(s, field) {
			t.Errorf("empty field %q should be omitted: %s", field, s)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindStreamFrame, Comp: "test"})
		}()
	}
	wg.Wait()
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 100 {
		t.Errorf("expected 100 lines, got %d", len(lines))
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "hello")
	l.Error(KindStreamError, "api", errors.New("boom"))
	l.SetRingBuffer(NewRingBuffer(4))
	if l.Dropped() != 0 || l.SessionID() != "" {
		t.Error("nil logger should report zero values")
	}
	l.Close()
}

func TestCloseIsIdempotentAndDropsLateEvents(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindStartup})
	l.Emit(Event{Kind: KindShutdown})
	l.Close()
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines after Close, got %d", len(lines))
	}

	l.Emit(Event{Kind: KindStreamFrame})
	if l.Dropped() != 1 {
		t.Errorf("emit after close should count as dropped, got %d", l.Dropped())
	}
}

func TestDropCounter(t *testing.T) {
	bw := &blockingWriter{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	l := NewLogger(bw)

	l.Emit(Event{Kind: KindStreamFrame})
	<-bw.started

	for i := 0; i < writerChanSize+10; i++ {
		l.Emit(Event{Kind: KindStreamFrame})
	}
	if l.Dropped() == 0 {
		t.Error("expected drops when channel is full, got 0")
	}

	close(bw.block)
	l.Close()
}

type blockingWriter struct {
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	w.once.Do(func() {
		close(w.started)
		<-w.block
	})
	return len(p), nil
}

func TestConvenienceHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Info(KindStartup, "main", "starting")
	l.Warn(KindStreamMalformed, "api", "bad frame")
	l.Error(KindStreamError, "api", errors.New("connection reset"))
	l.Close()

	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("invalid JSON %q: %v", line, err)
		}
		events = append(events, ev)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Level != LevelInfo || events[1].Level != LevelWarn || events[2].Level != LevelError {
		t.Errorf("unexpected levels: %s %s %s", events[0].Level, events[1].Level, events[2].Level)
	}
	if events[2].Err != "connection reset" {
		t.Errorf("error text = %q", events[2].Err)
	}
}

func TestRingBufferWithLogger(t *testing.T) {
	l := NewNullLogger()
	rb := NewRingBuffer(8)
	l.SetRingBuffer(rb)

	l.Warn(KindStreamMalformed, "api", "bad")
	l.Warn(KindStreamMalformed, "api", "bad")
	l.Info(KindStreamClose, "api", "eof")
	l.Close()

	if rb.Len() != 3 {
		t.Fatalf("expected 3 buffered events, got %d", rb.Len())
	}
	if rb.Total(KindStreamMalformed) != 2 {
		t.Errorf("expected 2 malformed, got %d", rb.Total(KindStreamMalformed))
	}
}

func TestTraceEnabled(t *testing.T) {
	defer SetTrace("")

	tests := []struct {
		list    string
		ui, api bool
	}{
		{"", false, false},
		{"ui", true, false},
		{" UI , api ", true, true},
		{"all", true, true},
		{"1", true, true},
		{",,", false, false},
	}
	for _, tt := range tests {
		SetTrace(tt.list)
		if got := TraceEnabled("ui"); got != tt.ui {
			t.Errorf("SetTrace(%q): ui = %v, want %v", tt.list, got, tt.ui)
		}
		if got := TraceEnabled("api"); got != tt.api {
			t.Errorf("SetTrace(%q): api = %v, want %v", tt.list, got, tt.api)
		}
	}
}
