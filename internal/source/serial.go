package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/jointangle/internal/jointangle"
)

// Port is the part of a serial port the source needs.
type Port interface {
	io.ReadWriteCloser
}

// PortOpener opens a serial port. Tests replace it with an in-memory pipe.
type PortOpener func(path string, mode *serial.Mode) (Port, error)

func openSerial(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// SerialSource reads newline-delimited JSON frames from a USB serial link.
type SerialSource struct {
	path    string
	opts    PortOptions
	timeout time.Duration
	open    PortOpener

	mu    sync.Mutex
	port  Port
	lines chan []byte
	done  chan struct{}

	counters
}

// NewSerialSource returns a source for the device at path.
func NewSerialSource(path string, opts PortOptions, timeout time.Duration) *SerialSource {
	return &SerialSource{path: path, opts: opts, timeout: timeout, open: openSerial}
}

// WithOpener swaps the function used to open the port.
func (s *SerialSource) WithOpener(open PortOpener) *SerialSource {
	s.open = open
	return s
}

func (s *SerialSource) String() string { return "serial " + s.path }

// Connect opens the port and starts the line scanner.
func (s *SerialSource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mode, err := s.opts.SerialMode()
	if err != nil {
		return err
	}
	port, err := s.open(s.path, mode)
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", s.path, err)
	}

	s.mu.Lock()
	if s.port != nil {
		s.closeLocked()
	}
	s.port = port
	s.lines = make(chan []byte, 64)
	s.done = make(chan struct{})
	lines, done := s.lines, s.done
	s.mu.Unlock()

	s.connected.Store(true)
	go s.scan(port, lines, done)
	logf("opened %s at %d baud", s.path, mode.BaudRate)
	return nil
}

func (s *SerialSource) scan(port Port, lines chan<- []byte, done <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case lines <- line:
		case <-done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logf("%s scan error: %v", s.path, err)
	}
	s.connected.Store(false)
}

// Read waits up to the read timeout for the next line.
func (s *SerialSource) Read(ctx context.Context) (jointangle.ReadingPair, bool) {
	s.mu.Lock()
	lines := s.lines
	s.mu.Unlock()
	if lines == nil {
		return jointangle.ReadingPair{}, false
	}

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case line, ok := <-lines:
		if !ok {
			return jointangle.ReadingPair{}, false
		}
		return s.decode(s.path, line)
	case <-timeout:
		return jointangle.ReadingPair{}, false
	case <-ctx.Done():
		return jointangle.ReadingPair{}, false
	}
}

// Close stops the scanner and closes the port.
func (s *SerialSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	return s.closeLocked()
}

func (s *SerialSource) closeLocked() error {
	close(s.done)
	err := s.port.Close()
	s.port = nil
	s.lines = nil
	s.connected.Store(false)
	return err
}
