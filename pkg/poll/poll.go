package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/fleetdeploy/pkg/metrics"
	"github.com/cuemby/fleetdeploy/pkg/types"
	"github.com/rs/zerolog"
)

// Spec describes one wait
type Spec struct {
	// Name identifies the wait in logs, metrics and errors
	Name    string
	Policy  Policy
	Timeout time.Duration
	Clock   Clock
	Logger  zerolog.Logger
}

// Until calls probe until done reports true, probe fails, or the timeout
// elapses. A probe error is returned immediately and never retried. On
// timeout the returned error is a *types.TimeoutError carrying the last
// status probe returned.
//
// Elapsed time is checked before every probe, and the final sleep is cut
// short at the deadline, so a timed-out poll consumes exactly Timeout.
func Until[S any](ctx context.Context, spec Spec, probe func(context.Context) (S, error), done func(S) bool) (S, error) {
	clock := spec.Clock
	if clock == nil {
		clock = RealClock{}
	}

	var last S
	start := clock.Now()
	attempt := 0

	for {
		elapsed := clock.Now().Sub(start)
		if elapsed >= spec.Timeout {
			metrics.PollTimeoutsTotal.WithLabelValues(spec.Name).Inc()
			var lastSeen any
			if attempt > 0 {
				lastSeen = last
			}
			return last, &types.TimeoutError{Wait: spec.Name, Elapsed: elapsed, Last: lastSeen}
		}

		attempt++
		metrics.PollAttemptsTotal.WithLabelValues(spec.Name).Inc()

		status, err := probe(ctx)
		if err != nil {
			return last, fmt.Errorf("%s: %w", spec.Name, err)
		}
		last = status

		if done(status) {
			spec.Logger.Debug().
				Str("wait", spec.Name).
				Int("attempt", attempt).
				Interface("status", status).
				Msg("wait complete")
			return status, nil
		}

		wait := spec.Policy.Interval(attempt)
		if remaining := spec.Timeout - clock.Now().Sub(start); wait > remaining {
			wait = max(remaining, 0)
		}

		spec.Logger.Info().
			Str("wait", spec.Name).
			Int("attempt", attempt).
			Interface("status", status).
			Dur("next", wait).
			Msg("still waiting")

		if err := clock.Sleep(ctx, wait); err != nil {
			return last, err
		}
	}
}
