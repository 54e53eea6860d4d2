package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/jointangle/internal/jointangle"
	"github.com/banshee-data/jointangle/internal/timeutil"
)

// ReplaySource plays back a capture of raw frames, one JSON object per line.
// Once the capture is exhausted every Read reports false.
type ReplaySource struct {
	name     string
	open     func() (io.ReadCloser, error)
	interval time.Duration
	clock    timeutil.Clock

	mu      sync.Mutex
	rc      io.ReadCloser
	scanner *bufio.Scanner
	eof     bool

	counters
}

// NewReplayFile replays the capture at path, waiting interval between frames.
func NewReplayFile(path string, interval time.Duration) *ReplaySource {
	return &ReplaySource{
		name:     path,
		open:     func() (io.ReadCloser, error) { return os.Open(path) },
		interval: interval,
		clock:    timeutil.RealClock{},
	}
}

// NewReplayReader replays frames from r.
func NewReplayReader(name string, r io.Reader, interval time.Duration) *ReplaySource {
	return &ReplaySource{
		name:     name,
		open:     func() (io.ReadCloser, error) { return io.NopCloser(r), nil },
		interval: interval,
		clock:    timeutil.RealClock{},
	}
}

// WithClock sets the clock used to pace frames.
func (s *ReplaySource) WithClock(c timeutil.Clock) *ReplaySource {
	s.clock = c
	return s
}

func (s *ReplaySource) String() string { return "replay " + s.name }

// Connect opens the capture from the start.
func (s *ReplaySource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rc, err := s.open()
	if err != nil {
		return fmt.Errorf("open replay %s: %w", s.name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rc != nil {
		s.rc.Close()
	}
	s.rc = rc
	s.scanner = bufio.NewScanner(rc)
	s.eof = false
	s.connected.Store(true)
	return nil
}

// Read returns the next decodable frame. Blank lines are skipped without
// counting as frames.
func (s *ReplaySource) Read(ctx context.Context) (jointangle.ReadingPair, bool) {
	if s.interval > 0 {
		if err := timeutil.Sleep(ctx, s.clock, s.interval); err != nil {
			return jointangle.ReadingPair{}, false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanner == nil || s.eof {
		return jointangle.ReadingPair{}, false
	}
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		return s.decode(s.name, []byte(line))
	}
	if err := s.scanner.Err(); err != nil {
		logf("%s: %v", s.name, err)
	}
	s.eof = true
	s.connected.Store(false)
	return jointangle.ReadingPair{}, false
}

// Done reports whether the capture has been fully read.
func (s *ReplaySource) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eof
}

func (s *ReplaySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	s.scanner = nil
	s.connected.Store(false)
	return err
}
