package otel

import (
	"strings"
	"sync/atomic"
)

// traceSet is the set of components emitting trace events. all matches
// every component.
type traceSet struct {
	all   bool
	comps map[string]bool
}

var tracing atomic.Pointer[traceSet]

// SetTrace configures tracing from a comma-separated component list such as
// "ui,api". "1", "true" and "all" enable every component; "" disables
// tracing.
func SetTrace(list string) {
	set := &traceSet{comps: make(map[string]bool)}
	for _, c := range strings.Split(list, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		switch c {
		case "":
		case "1", "true", "all":
			set.all = true
		default:
			set.comps[c] = true
		}
	}
	if !set.all && len(set.comps) == 0 {
		set = nil
	}
	tracing.Store(set)
}

// TraceEnabled reports whether comp emits trace events. The UI checks it for
// every Bubble Tea message, the stream reader for every body read.
func TraceEnabled(comp string) bool {
	set := tracing.Load()
	if set == nil {
		return false
	}
	return set.all || set.comps[comp]
}
