// internal/loadtest/user.go
package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// virtualUser simulates one independent client. It loops issuing requests
// until the run's end time passes or the run is cancelled, recording every
// outcome into the shared accumulator. Per-request failures never escape
// the loop; cancellation aborts are absorbed without being counted.
type virtualUser struct {
	cfg     *LoadTestConfig
	client  *http.Client
	limiter *rate.Limiter // nil when the run has no rate cap
	acc     *accumulator
}

func (u *virtualUser) run(ctx context.Context, rampDelay time.Duration, endTime time.Time) {
	if rampDelay > 0 && !sleepContext(ctx, rampDelay) {
		return
	}

	thinkTime := time.Duration(u.cfg.ThinkTimeMillis) * time.Millisecond

	for time.Now().Before(endTime) && ctx.Err() == nil {
		if u.limiter != nil {
			if err := u.limiter.Wait(ctx); err != nil {
				return
			}
		}

		u.issueRequest(ctx)

		if thinkTime > 0 && time.Now().Before(endTime) {
			if !sleepContext(ctx, thinkTime) {
				return
			}
		}
	}
}

// issueRequest performs one request and classifies the outcome. 2xx and 3xx
// responses count as successes; everything else, including transport errors,
// counts as a failure with an ErrorRecord. An abort caused by run
// cancellation is not recorded at all.
func (u *virtualUser) issueRequest(ctx context.Context) {
	req, err := u.buildRequest(ctx)
	if err != nil {
		u.acc.record(0, 0, &ErrorRecord{Timestamp: time.Now(), Message: err.Error()})
		return
	}

	start := time.Now()
	resp, err := u.client.Do(req)
	elapsedMs := float64(time.Since(start)) / float64(time.Millisecond)

	if err != nil {
		if ctx.Err() != nil {
			// Deliberate stop, not a target failure.
			return
		}
		u.acc.record(elapsedMs, 0, &ErrorRecord{Timestamp: time.Now(), Message: err.Error()})
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var received int64
	if resp.ContentLength > 0 {
		received = resp.ContentLength
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		u.acc.record(elapsedMs, received, nil)
		return
	}
	u.acc.record(elapsedMs, received, &ErrorRecord{
		Timestamp:  time.Now(),
		Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		StatusCode: resp.StatusCode,
	})
}

func (u *virtualUser) buildRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	payload, err := u.cfg.Body.Bytes()
	if err != nil {
		return nil, err
	}
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, u.cfg.Method, u.cfg.TargetURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range u.cfg.Headers {
		req.Header.Set(k, v)
	}
	if ct := u.cfg.Body.ContentType(); ct != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", ct)
	}
	return req, nil
}

// rampDelay staggers user start times linearly across the pool:
// user i of total starts at (i/total) * rampUp.
func rampDelay(i, total int, rampUp time.Duration) time.Duration {
	if rampUp <= 0 || total <= 0 {
		return 0
	}
	return rampUp * time.Duration(i) / time.Duration(total)
}

// sleepContext sleeps for d or until ctx is cancelled; reports whether the
// full duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
