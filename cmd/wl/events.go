package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abelbrown/waterlens/internal/config"
	"github.com/abelbrown/waterlens/internal/otel"
)

// eventFilter selects events from the JSONL log.
type eventFilter struct {
	kind     string // prefix, e.g. "stream"
	minLevel int
	comp     string
	id       string // analysis id, prefix match
}

func levelRank(level otel.Level) int {
	switch level {
	case otel.LevelInfo:
		return 1
	case otel.LevelWarn:
		return 2
	case otel.LevelError:
		return 3
	}
	return 0
}

func (f eventFilter) match(ev otel.Event) bool {
	if f.kind != "" && !strings.HasPrefix(string(ev.Kind), f.kind) {
		return false
	}
	if levelRank(ev.Level) < f.minLevel {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.id != "" && !strings.HasPrefix(ev.AnalysisID, f.id) {
		return false
	}
	return true
}

func formatEvent(ev otel.Event) string {
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}
	parts := []string{fmt.Sprintf("%s %-5s [%-4s] %-20s", ev.Time.Local().Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)}

	if ev.AnalysisID != "" {
		parts = append(parts, "id="+strings.TrimPrefix(ev.AnalysisID, "analysis_"))
	}
	if ev.Step != "" {
		parts = append(parts, fmt.Sprintf("step=%s/%s", ev.Step, ev.Status))
	} else if ev.Status != "" {
		parts = append(parts, "status="+ev.Status)
	}
	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Bytes > 0 {
		parts = append(parts, fmt.Sprintf("bytes=%d", ev.Bytes))
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	}
	return 2
}

type eventLine struct {
	ev  otel.Event
	raw []byte
}

// tailEvents returns the last n events in r that match f. Lines that are
// not valid events are skipped.
func tailEvents(r io.Reader, n int, f eventFilter) ([]eventLine, error) {
	if n <= 0 {
		return nil, nil
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 256<<10)

	out := make([]eventLine, 0, n)
	for sc.Scan() {
		raw := sc.Bytes()
		var ev otel.Event
		if len(raw) == 0 || json.Unmarshal(raw, &ev) != nil || !f.match(ev) {
			continue
		}
		line := eventLine{ev: ev, raw: append([]byte(nil), raw...)}
		if len(out) == n {
			copy(out, out[1:])
			out[n-1] = line
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func runEvents() error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	tail := fs.Int("tail", 50, "Number of recent events to show")
	follow := fs.Bool("f", false, "Keep printing new events")
	kind := fs.String("kind", "", "Event kind prefix (e.g. 'stream')")
	level := fs.String("level", "", "Minimum level: debug, info, warn, error")
	comp := fs.String("comp", "", "Component: api, ui, mock")
	id := fs.String("id", "", "Analysis id prefix")
	rawJSON := fs.Bool("json", false, "Print raw JSON lines")
	path := fs.String("file", "", "Event log path (default <data dir>/events.jsonl)")
	parseArgs(fs, os.Args[1:])

	logPath := *path
	if logPath == "" {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		logPath = cfg.EventLogPath()
	}

	fh, err := os.Open(logPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no event log at %s; run waterlens first", logPath)
		}
		return err
	}
	defer fh.Close()

	filter := eventFilter{kind: *kind, minLevel: levelRank(otel.Level(*level)), comp: *comp, id: strings.TrimPrefix(*id, "analysis_")}
	if filter.id != "" {
		filter.id = "analysis_" + filter.id
	}
	emit := func(l eventLine) {
		if *rawJSON {
			fmt.Println(string(l.raw))
			return
		}
		fmt.Println(formatEvent(l.ev))
	}

	lines, err := tailEvents(fh, *tail, filter)
	if err != nil {
		return err
	}
	for _, l := range lines {
		emit(l)
	}
	if !*follow {
		return nil
	}

	ctx, stop := signalContext()
	defer stop()
	return followEvents(ctx, fh, filter, emit)
}

// followEvents polls r for appended lines until ctx is done.
func followEvents(ctx context.Context, r io.Reader, f eventFilter, emit func(eventLine)) error {
	br := bufio.NewReader(r)
	var partial []byte
	for {
		chunk, err := br.ReadBytes('\n')
		partial = append(partial, chunk...)
		if errors.Is(err, io.EOF) {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if err != nil {
			return err
		}

		raw := []byte(strings.TrimRight(string(partial), "\r\n"))
		partial = partial[:0]
		var ev otel.Event
		if len(raw) == 0 || json.Unmarshal(raw, &ev) != nil || !f.match(ev) {
			continue
		}
		emit(eventLine{ev: ev, raw: raw})
	}
}
