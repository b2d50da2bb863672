package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/abelbrown/waterlens/internal/eventstream"
	"github.com/abelbrown/waterlens/internal/logging"
	"github.com/abelbrown/waterlens/internal/otel"
	"github.com/abelbrown/waterlens/internal/workflow"
)

const streamReadSize = 4096

// StreamWorkflow opens the progress stream for id and calls onUpdate for
// every decoded frame, in order, on the calling goroutine. It returns when
// the server closes the stream (nil error), the transport fails
// (*TransportError) or ctx is cancelled (ctx.Err()).
//
// Malformed frames are logged and skipped; their count is in the returned
// stats.
func (c *Client) StreamWorkflow(ctx context.Context, id string, onUpdate func(workflow.Update)) (StreamStats, error) {
	var stats StreamStats

	req, err := c.newRequest(ctx, http.MethodGet, "/api/stream/"+url.PathEscape(id), nil)
	if err != nil {
		return stats, &TransportError{Op: "stream", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		c.events.Error(otel.KindStreamError, "api", err)
		return stats, &TransportError{Op: "stream", Err: err}
	}
	if err := checkStatus("stream", resp); err != nil {
		c.events.Error(otel.KindStreamError, "api", err)
		return stats, err
	}
	defer resp.Body.Close()

	logging.Debug("stream opened", "analysis", id)
	c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStreamOpen, Comp: "api", AnalysisID: id})

	dec := eventstream.NewDecoder()
	deliver := func(updates []workflow.Update, errs []error) {
		for _, perr := range errs {
			c.reportMalformed(id, perr)
		}
		for _, u := range updates {
			u := u
			stats.Frames++
			stats.Last = &u
			c.events.Emit(otel.Event{
				Level:      otel.LevelDebug,
				Kind:       otel.KindStreamFrame,
				Comp:       "api",
				AnalysisID: id,
				Step:       string(u.Step),
				Status:     string(u.Status),
				Progress:   u.Progress,
			})
			onUpdate(u)
		}
		stats.Malformed = dec.Stats().Malformed
	}

	buf := make([]byte, streamReadSize)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			stats.Bytes += int64(n)
			if otel.TraceEnabled("api") {
				c.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindStreamRead, Comp: "api", AnalysisID: id, Bytes: int64(n)})
			}
			deliver(dec.Feed(buf[:n]))
		}
		if rerr == nil {
			continue
		}

		if errors.Is(rerr, io.EOF) {
			deliver(dec.Flush())
			logging.Debug("stream closed", "analysis", id, "frames", stats.Frames, "malformed", stats.Malformed)
			c.events.Emit(otel.Event{
				Level:      otel.LevelInfo,
				Kind:       otel.KindStreamClose,
				Comp:       "api",
				AnalysisID: id,
				Count:      stats.Frames,
				Bytes:      stats.Bytes,
				Dur:        time.Since(start),
			})
			return stats, nil
		}
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		c.events.Error(otel.KindStreamError, "api", rerr)
		return stats, &TransportError{Op: "stream", Err: rerr}
	}
}

// Subscribe runs StreamWorkflow on its own goroutine and delivers each update
// on the returned channel. The last value has Done set; the channel is then
// closed. Cancelling ctx stops the stream and releases the goroutine even if
// nobody is reading.
func (c *Client) Subscribe(ctx context.Context, id string) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		stats, err := c.StreamWorkflow(ctx, id, func(u workflow.Update) {
			select {
			case ch <- StreamEvent{Update: u}:
			case <-ctx.Done():
			}
		})
		select {
		case ch <- StreamEvent{Done: true, Err: err, Stats: stats}:
		case <-ctx.Done():
		}
	}()
	return ch
}

func (c *Client) reportMalformed(id string, err error) {
	c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStreamMalformed, Comp: "api", AnalysisID: id, Err: err.Error()})
	if c.malformedLog.Allow() {
		logging.Warn("skipping malformed stream frame", "analysis", id, "err", err)
	}
}
