// Package source connects to the sensor firmware and yields reading pairs.
package source

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"

	"github.com/banshee-data/jointangle/internal/jointangle"
	"github.com/banshee-data/jointangle/internal/monitoring"
)

var (
	ErrNotConnected = errors.New("source not connected")
	ErrDisconnected = errors.New("source disconnected")
)

var logf = monitoring.Subsystem("source")

// Source yields one reading pair per Read call. Read reports false when no
// usable pair arrived within the read timeout, when a frame was malformed or
// when the connection closed; callers retry at their own cadence.
type Source interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (jointangle.ReadingPair, bool)
	Close() error
	String() string
}

// Stats counts the frames a source has seen.
type Stats struct {
	Connected bool   `json:"connected"`
	Frames    uint64 `json:"frames"`
	Pairs     uint64 `json:"pairs"`
	Malformed uint64 `json:"malformed"`
}

// StatsReporter is implemented by sources that keep Stats.
type StatsReporter interface {
	Stats() Stats
}

// Disconnected reports whether src keeps Stats and has lost its link.
// Sources without Stats are never considered disconnected.
func Disconnected(src Source) bool {
	sr, ok := src.(StatsReporter)
	return ok && !sr.Stats().Connected
}

type counters struct {
	connected atomic.Bool
	frames    atomic.Uint64
	pairs     atomic.Uint64
	malformed atomic.Uint64
}

func (c *counters) Stats() Stats {
	return Stats{
		Connected: c.connected.Load(),
		Frames:    c.frames.Load(),
		Pairs:     c.pairs.Load(),
		Malformed: c.malformed.Load(),
	}
}

// decode parses one frame. The firmware interleaves status text with JSON,
// so anything that is not a complete pair is counted and skipped.
func (c *counters) decode(name string, frame []byte) (jointangle.ReadingPair, bool) {
	c.frames.Add(1)
	pair, err := jointangle.ParseReadingPair(bytes.TrimSpace(frame))
	if err != nil {
		c.malformed.Add(1)
		logf("%s: skipping frame: %v", name, err)
		return jointangle.ReadingPair{}, false
	}
	c.pairs.Add(1)
	return pair, true
}
