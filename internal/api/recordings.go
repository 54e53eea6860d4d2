package api

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/banshee-data/jointangle/internal/db"
	"github.com/banshee-data/jointangle/internal/httputil"
	"github.com/banshee-data/jointangle/internal/report"
	"github.com/banshee-data/jointangle/internal/security"
	"github.com/banshee-data/jointangle/internal/session"
)

// AngleSeries is the body of GET /recordings/:id/angles. A null angle means
// no estimate was available for that sample.
type AngleSeries struct {
	RecordingID string     `json:"recording_id"`
	Times       []float64  `json:"times"`
	Angles      []*float64 `json:"angles"`
}

// handleRecordingByID handles GET /recordings/:id and GET /recordings/:id/angles
func (s *Server) handleRecordingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id, rest := pathID(r.URL.Path, "/recordings/")
	if id == "" {
		httputil.NotFound(w, "Recording not found")
		return
	}

	switch rest {
	case "":
		rec, ok := s.lookupRecording(w, id)
		if ok {
			httputil.WriteJSONOK(w, rec)
		}
	case "angles":
		_, series, ok := s.loadAngles(w, id)
		if ok {
			httputil.WriteJSONOK(w, series)
		}
	default:
		httputil.NotFound(w, "Not found")
	}
}

// handleRecordingChart handles GET /charts/recordings/:id
func (s *Server) handleRecordingChart(w http.ResponseWriter, r *http.Request) {
	s.renderRecording(w, r, "/charts/recordings/", "", "text/html; charset=utf-8", report.AngleChartHTML)
}

// handleRecordingPlot handles GET /plots/recordings/:id.png
func (s *Server) handleRecordingPlot(w http.ResponseWriter, r *http.Request) {
	s.renderRecording(w, r, "/plots/recordings/", ".png", "image/png", report.AnglePlotPNG)
}

func (s *Server) renderRecording(w http.ResponseWriter, r *http.Request, prefix, ext, contentType string, render report.Renderer) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	id, rest := pathID(r.URL.Path, prefix)
	if rest != "" || !strings.HasSuffix(id, ext) {
		httputil.NotFound(w, "Not found")
		return
	}
	id = strings.TrimSuffix(id, ext)

	rec, series, ok := s.loadAngles(w, id)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, rec.Label, series.Times, series.Angles); err != nil {
		log.Printf("Error rendering recording %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to render recording")
		return
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing recording %s: %v", id, err)
	}
}

func (s *Server) lookupRecording(w http.ResponseWriter, id string) (*db.Recording, bool) {
	rec, err := s.db.GetRecording(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "Recording not found")
		return nil, false
	}
	if err != nil {
		log.Printf("Error fetching recording %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch recording")
		return nil, false
	}
	return rec, true
}

func (s *Server) loadAngles(w http.ResponseWriter, id string) (*db.Recording, *AngleSeries, bool) {
	rec, ok := s.lookupRecording(w, id)
	if !ok {
		return nil, nil, false
	}
	if rec.AnglesFile == nil || *rec.AnglesFile == "" {
		httputil.NotFound(w, "Recording has no angles file")
		return nil, nil, false
	}

	path, err := security.ResolveWithin(s.opts.RecordingsDir, *rec.AnglesFile)
	if err != nil {
		log.Printf("Rejected angles file for %s: %v", id, err)
		httputil.NotFound(w, "Angles file missing")
		return nil, nil, false
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		httputil.NotFound(w, "Angles file missing")
		return nil, nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to open angles file: %v", err))
		return nil, nil, false
	}
	defer f.Close()

	times, angles, err := session.ReadAngles(f)
	if err != nil {
		log.Printf("Error parsing angles for %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to parse angles file")
		return nil, nil, false
	}
	series := &AngleSeries{RecordingID: id, Times: times, Angles: angles}
	if series.Times == nil {
		series.Times, series.Angles = []float64{}, []*float64{}
	}
	return rec, series, true
}
