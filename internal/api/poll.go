package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPollInterval is used when PollStatus is given a non-positive interval.
const DefaultPollInterval = time.Second

// PollStatus fetches the status of id at most once per interval and calls
// onStatus with each response until the analysis is terminal. It returns the
// last status seen. Transport errors stop the loop.
func (c *Client) PollStatus(ctx context.Context, id string, interval time.Duration, onStatus func(AnalysisStatus)) (AnalysisStatus, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var last AnalysisStatus
	for {
		if err := limiter.Wait(ctx); err != nil {
			// Wait fails early when the next slot is past the deadline.
			<-ctx.Done()
			return last, ctx.Err()
		}
		st, err := c.Status(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, err
		}
		last = st
		if onStatus != nil {
			onStatus(st)
		}
		if st.Terminal() {
			return last, nil
		}
	}
}
