package session

import (
	"context"

	"github.com/banshee-data/jointangle/internal/jointangle"
	"github.com/banshee-data/jointangle/internal/source"
	"github.com/banshee-data/jointangle/internal/timeutil"
)

// Stream calibrates once and then publishes an angle for every pair until
// ctx is done or the source loses its link. Nothing is recorded. It returns
// the number of samples published and either the context error or
// source.ErrDisconnected, after which the caller reconnects.
func (r *Runner) Stream(ctx context.Context) (int, error) {
	cal, err := r.Calibrate(ctx)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if source.Disconnected(r.Source) {
		return 0, source.ErrDisconnected
	}
	if err != nil {
		logf("live: calibration incomplete, continuing: %v", err)
	}

	var est *jointangle.Session
	if cal.Model.HasAxis() {
		est = jointangle.NewSession(cal.Model, r.config().FilterParams())
	}

	clock := r.clock()
	rate := r.config().GetSamplingRate()
	n := 0
	for {
		if pair, ok := r.Source.Read(ctx); ok {
			angle, mode := estimate(est, pair)
			r.publish(source.Sample{T: float64(n) / rate, Angle: angle, Mode: mode})
			n++
		} else if ctx.Err() == nil && source.Disconnected(r.Source) {
			logf("live: %s disconnected after %d samples", r.Source, n)
			return n, source.ErrDisconnected
		}
		if err := timeutil.Sleep(ctx, clock, measureIdle); err != nil {
			logf("live: stopped after %d samples", n)
			return n, err
		}
	}
}
