package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/waterlens/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	if got := debugOverlay(nil, 80, 24); got != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", got)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	now := time.Now()
	ring.Push(otel.Event{Kind: otel.KindStreamOpen, Time: now})
	ring.Push(otel.Event{Kind: otel.KindStreamFrame, Time: now})
	ring.Push(otel.Event{Kind: otel.KindStreamFrame, Time: now})
	ring.Push(otel.Event{Kind: otel.KindStreamMalformed, Time: now})
	ring.Push(otel.Event{Kind: otel.KindStreamClose, Time: now})

	result := debugOverlay(ring, 80, 40)

	if !strings.Contains(result, "Stream Stats") {
		t.Error("overlay should contain 'Stream Stats' header")
	}
	if !strings.Contains(result, "2 decoded, 1 malformed") {
		t.Errorf("overlay should show frame stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 opened, 1 closed, 0 errors") {
		t.Errorf("overlay should show stream stats, got:\n%s", result)
	}
	if !strings.Contains(result, "5 / 64 events") {
		t.Errorf("overlay should show buffer stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindUploadStart, Time: time.Now(), Msg: "water.pdf"})
	ring.Push(otel.Event{Kind: otel.KindStreamError, Time: time.Now(), Err: "connection reset"})
	ring.Push(otel.Event{Kind: otel.KindStreamFrame, Time: time.Now(), Step: "analysis", AnalysisID: "analysis_0123456789ab"})

	result := debugOverlay(ring, 80, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "water.pdf") {
		t.Errorf("overlay should show event message, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:connection reset") {
		t.Errorf("overlay should show error, got:\n%s", result)
	}
	if !strings.Contains(result, "id:01234567") {
		t.Errorf("overlay should show short analysis id, got:\n%s", result)
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindStreamFrame, Time: time.Now()})
	}

	result := debugOverlay(ring, 80, 10)
	if result == "" {
		t.Fatal("overlay should still render with small height")
	}
	if lines := strings.Count(result, "\n"); lines > 20 {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestDebugToggle(t *testing.T) {
	app := NewApp(AppConfig{Ring: otel.NewRingBuffer(16)})
	app = resized(app)
	app.input.Blur()

	if app.showDebug {
		t.Fatal("diagnostics should be hidden initially")
	}

	model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'D'}})
	updated := model.(App)
	if !updated.showDebug {
		t.Fatal("D should show the diagnostics overlay")
	}
	if view := updated.View(); !strings.Contains(view, "[DIAGNOSTICS]") {
		t.Errorf("overlay view should contain '[DIAGNOSTICS]', got:\n%s", view)
	}

	model, _ = updated.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'D'}})
	if model.(App).showDebug {
		t.Error("second D should hide the overlay")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated text", 6, "trunc…"},
		{"ünïcödé", 4, "ünï…"},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{1500 * time.Millisecond, "1.5s"},
		{30 * time.Second, "30.0s"},
		{5 * time.Minute, "5m"},
		{-5 * time.Second, "0ms"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.dur); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}
