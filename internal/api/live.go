package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/jointangle/internal/httputil"
)

const (
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
)

// handleLive upgrades GET /api/live to a websocket and streams every angle
// sample published on the hub as JSON. Client messages are discarded.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.opts.Hub == nil {
		httputil.NotFound(w, "Live feed disabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Live: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	id, samples := s.opts.Hub.Subscribe()
	defer s.opts.Hub.Unsubscribe(id)
	log.Printf("Live: client %s connected from %s", id, r.RemoteAddr)

	// The read loop only notices the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("Live: read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case sample, ok := <-samples:
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed")
				if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
					log.Printf("Live: close error: %v", err)
				}
				return
			}
			if err := conn.WriteJSON(sample); err != nil {
				log.Printf("Live: write error: %v", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			log.Printf("Live: client %s disconnected", id)
			return
		}
	}
}
