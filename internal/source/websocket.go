package source

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/jointangle/internal/jointangle"
)

const (
	frameBuffer = 64
	// staleReads is how many read timeouts of silence mark a link dead.
	staleReads = 10
)

// ESPURL returns the websocket address served by the sensor firmware.
func ESPURL(host string, port int) string {
	return "ws://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// WebSocketSource reads JSON frames from the ESP32 websocket server.
type WebSocketSource struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer

	mu     sync.Mutex
	link   *wsLink
	redial bool

	counters
}

// wsLink is one dialled connection and the pump draining it.
type wsLink struct {
	conn   *websocket.Conn
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

func (l *wsLink) close() {
	l.once.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}

// NewWebSocketSource returns a source for url. timeout bounds the handshake
// and each read.
func NewWebSocketSource(url string, timeout time.Duration) *WebSocketSource {
	return &WebSocketSource{
		url:     url,
		timeout: timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
	}
}

func (s *WebSocketSource) String() string { return "websocket " + s.url }

// Connect dials the firmware. Calling it again replaces the current link.
// After a successful Connect, a Read that finds the link gone redials until
// Close is called.
func (s *WebSocketSource) Connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("websocket connect %s: %w", s.url, err)
	}
	l := &wsLink{conn: conn, frames: make(chan []byte, frameBuffer), done: make(chan struct{})}

	s.mu.Lock()
	if s.link != nil {
		s.link.close()
	}
	s.link = l
	s.redial = true
	s.mu.Unlock()

	s.connected.Store(true)
	go s.pump(l)
	logf("connected to %s", s.url)
	return nil
}

// pump moves frames from the connection onto l.frames. A gorilla connection
// cannot be read again once a deadline fires, so the deadline here only
// catches a dead link; Read applies the per-call timeout on the channel.
func (s *WebSocketSource) pump(l *wsLink) {
	defer close(l.frames)
	for {
		if s.timeout > 0 {
			l.conn.SetReadDeadline(time.Now().Add(staleReads * s.timeout))
		}
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logf("%s closed by remote", s.url)
				} else {
					logf("%s read error: %v", s.url, err)
				}
			}
			s.mu.Lock()
			if s.link == l {
				s.connected.Store(false)
			}
			s.mu.Unlock()
			return
		}
		select {
		case l.frames <- data:
		case <-l.done:
			return
		}
	}
}

// Read waits up to the read timeout for the next frame. A timeout keeps the
// link; frames queued before a disconnect are still delivered, and the first
// Read after the link is gone redials once.
func (s *WebSocketSource) Read(ctx context.Context) (jointangle.ReadingPair, bool) {
	s.mu.Lock()
	l, redial := s.link, s.redial
	s.mu.Unlock()
	if l == nil {
		if !redial {
			return jointangle.ReadingPair{}, false
		}
		if err := s.Connect(ctx); err != nil {
			logf("redial: %v", err)
			return jointangle.ReadingPair{}, false
		}
		s.mu.Lock()
		l = s.link
		s.mu.Unlock()
		if l == nil {
			return jointangle.ReadingPair{}, false
		}
	}

	var timeout <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case data, ok := <-l.frames:
		if !ok {
			s.drop(l)
			return jointangle.ReadingPair{}, false
		}
		return s.decode(s.url, data)
	case <-timeout:
		return jointangle.ReadingPair{}, false
	case <-ctx.Done():
		return jointangle.ReadingPair{}, false
	}
}

func (s *WebSocketSource) drop(l *wsLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == l {
		l.close()
		s.link = nil
		s.connected.Store(false)
	}
}

// Close sends a close frame, releases the link and stops redialling.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redial = false
	if s.link == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.link.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	s.link.close()
	s.link = nil
	s.connected.Store(false)
	logf("closed %s", s.url)
	return nil
}
