// Package api serves the patient, recording and analysis endpoints used by
// the clinic frontend, plus the live angle feed.
package api

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banshee-data/jointangle/internal/config"
	"github.com/banshee-data/jointangle/internal/db"
	"github.com/banshee-data/jointangle/internal/httputil"
	"github.com/banshee-data/jointangle/internal/session"
	"github.com/banshee-data/jointangle/internal/source"
	"github.com/banshee-data/jointangle/internal/timeutil"
	"github.com/banshee-data/jointangle/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// SourceFactory returns a fresh, unconnected source for one analysis.
type SourceFactory func() (source.Source, error)

// Options configures a Server. Only RecordingsDir is required; Sources may
// be nil when only mock analyses are expected.
type Options struct {
	RecordingsDir string
	Sources       SourceFactory
	Config        *config.Config
	Hub           *source.Hub
	Publisher     session.Publisher
	Clock         timeutil.Clock
}

type Server struct {
	db   *db.DB
	opts Options

	// analyzing guards POST /analyze so that one session owns the sensors.
	analyzing sync.Mutex

	upgrader websocket.Upgrader
}

func NewServer(database *db.DB, opts Options) *Server {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Config == nil {
		opts.Config = config.Empty()
	}
	return &Server{
		db:   database,
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack hands the connection to the websocket upgrader.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// CORSMiddleware allows any origin. Preflight requests are answered here.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/patients", s.handlePatients)
	mux.HandleFunc("/patients/", s.handlePatientByID)
	mux.HandleFunc("/recordings/", s.handleRecordingByID)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/live", s.handleLive)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/charts/recordings/", s.handleRecordingChart)
	mux.HandleFunc("/plots/recordings/", s.handleRecordingPlot)
	return mux
}

// Handler wraps mux with CORS and request logging.
func Handler(mux http.Handler) http.Handler {
	return LoggingMiddleware(CORSMiddleware(mux))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Get())
}

// pathID returns the first path segment after prefix and whatever follows.
func pathID(path, prefix string) (id, rest string) {
	id, rest, _ = strings.Cut(strings.TrimPrefix(path, prefix), "/")
	return id, rest
}
