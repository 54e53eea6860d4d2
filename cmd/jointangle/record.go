package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/jointangle/internal/session"
	"github.com/banshee-data/jointangle/internal/timeutil"
)

// runRecord runs a single session against the configured source and writes
// the result as JSON to out. Partial results are still written when the run
// is interrupted.
func runRecord(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	factory, err := sourceFactory(specFromFlags(), cfg)
	if err != nil {
		return err
	}
	src, err := factory()
	if err != nil {
		return err
	}
	if err := src.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", src, err)
	}
	defer src.Close()

	if err := os.MkdirAll(*recordingsDir, 0o755); err != nil {
		return fmt.Errorf("create recordings directory: %w", err)
	}

	pub, err := newPublisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	now := time.Now()
	prefix := fmt.Sprintf("recording_%s_%d", now.Format("2006-01-02"), now.Unix())
	runner := &session.Runner{Source: src, Clock: timeutil.RealClock{}, Config: cfg, Publisher: pub}
	res, runErr := runner.Run(ctx, *recordingsDir, prefix)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	return runErr
}
