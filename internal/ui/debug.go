package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/waterlens/internal/otel"
)

// debugPanelChrome is the number of lines taken by DebugPanel's border and
// vertical padding. Keep in sync with the style.
const debugPanelChrome = 4

// debugOverlay renders stream diagnostics and recent events.
// Returns empty string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Stream Stats"))
	lines = append(lines, fmt.Sprintf("  Uploads:    %d complete, %d errors",
		ring.Total(otel.KindUploadComplete), ring.Total(otel.KindUploadError)))
	lines = append(lines, fmt.Sprintf("  Streams:    %d opened, %d closed, %d errors",
		ring.Total(otel.KindStreamOpen), ring.Total(otel.KindStreamClose), ring.Total(otel.KindStreamError)))
	lines = append(lines, fmt.Sprintf("  Frames:     %d decoded, %d malformed",
		ring.Total(otel.KindStreamFrame), ring.Total(otel.KindStreamMalformed)))
	lines = append(lines, fmt.Sprintf("  Results:    %d fetched, %d errors",
		ring.Total(otel.KindResultFetch), ring.Total(otel.KindResultError)))
	lines = append(lines, fmt.Sprintf("  Downloads:  %d saved, %d errors",
		ring.Total(otel.KindDownload), ring.Total(otel.KindDownloadError)))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-22s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Step != "" {
			line += "  " + e.Step
		}
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.AnalysisID != "" {
			line += "  id:" + shortID(e.AnalysisID)
		}
		lines = append(lines, line)
	}

	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	panelWidth := max(min(76, width-4), 20)
	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// shortID drops the "analysis_" prefix and keeps eight characters.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "analysis_")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// truncateRunes shortens s to at most n runes, ending in "…" when cut.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// formatAge formats a duration as a compact human string.
// Negative durations from clock skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("D") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DIAGNOSTICS]  " + keys)
}
