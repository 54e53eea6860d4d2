package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/jointangle/internal/db"
	"github.com/banshee-data/jointangle/internal/httputil"
	"github.com/banshee-data/jointangle/internal/session"
)

// analyzeTimeout bounds a real analysis, calibration and measurement included.
const analyzeTimeout = 3 * time.Minute

const (
	mockAngles  = "time_s,angle_deg\n0.0,10\n0.1,11\n"
	mockMetrics = `{"mock":true}`
)

// AnalyzeRequest is the body of POST /analyze. Both id spellings are
// accepted.
type AnalyzeRequest struct {
	PatientID      string `json:"patientId"`
	PatientIDSnake string `json:"patient_id"`
	Label          string `json:"label"`
	Mock           bool   `json:"mock"`
}

func (req AnalyzeRequest) patientID() string {
	if req.PatientID != "" {
		return req.PatientID
	}
	return req.PatientIDSnake
}

// AnalyzeResponse is returned once a recording has been stored.
type AnalyzeResponse struct {
	Status    string        `json:"status"`
	Recording *db.Recording `json:"recording"`
}

// handleAnalyze handles POST /analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req AnalyzeRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	pid := req.patientID()
	if pid == "" {
		httputil.BadRequest(w, "Missing patientId in request body")
		return
	}

	patient, err := s.db.GetPatient(pid)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "Patient not found")
		return
	}
	if err != nil {
		log.Printf("Error fetching patient %s: %v", pid, err)
		httputil.InternalServerError(w, "Failed to fetch patient")
		return
	}

	if !s.analyzing.TryLock() {
		httputil.Conflict(w, "An analysis is already running")
		return
	}
	defer s.analyzing.Unlock()

	if err := os.MkdirAll(s.opts.RecordingsDir, 0o755); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to create recordings directory: %v", err))
		return
	}

	now := s.opts.Clock.Now()
	ts := now.Unix()
	date := now.Format("2006-01-02")
	prefix := fmt.Sprintf("%s_%s_%d", db.Slugify(patient.Name), date, ts)
	log.Printf("Starting analysis for patient %s (name=%s, mock=%v)", pid, patient.Name, req.Mock)

	var files session.Files
	var metrics json.RawMessage
	if req.Mock {
		files, err = s.writeMockFiles(prefix, ts)
		metrics = json.RawMessage(mockMetrics)
	} else {
		files, metrics, err = s.runAnalysis(r.Context(), prefix)
	}
	if err != nil {
		log.Printf("Analysis for %s failed: %v", pid, err)
		httputil.InternalServerError(w, fmt.Sprintf("Analysis failed: %v", err))
		return
	}

	label := req.Label
	if label == "" {
		label = fmt.Sprintf("%s %s", patient.Name, date)
	}
	rec := &db.Recording{
		ID:         db.NewRecordingID(ts),
		PatientID:  pid,
		Date:       date,
		Timestamp:  ts,
		Label:      label,
		RawFile:    optional(files.Raw),
		AnglesFile: optional(files.Angles),
		Metrics:    metrics,
	}
	if err := s.db.CreateRecording(rec); err != nil {
		log.Printf("Error storing recording for %s: %v", pid, err)
		httputil.InternalServerError(w, "Failed to store recording")
		return
	}
	httputil.WriteJSONOK(w, AnalyzeResponse{Status: "completed", Recording: rec})
}

func (s *Server) writeMockFiles(prefix string, ts int64) (session.Files, error) {
	files := session.FileNames(prefix)
	raw, err := json.Marshal(map[string]any{"fake": true, "ts": ts})
	if err != nil {
		return files, err
	}
	if err := os.WriteFile(filepath.Join(s.opts.RecordingsDir, files.Raw), append(raw, '\n'), 0o644); err != nil {
		return files, fmt.Errorf("write mock raw file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.opts.RecordingsDir, files.Angles), []byte(mockAngles), 0o644); err != nil {
		return files, fmt.Errorf("write mock angles file: %w", err)
	}
	return files, nil
}

// runAnalysis drives one calibrate, measure and save session against a
// fresh source and returns the saved files and gait metrics.
func (s *Server) runAnalysis(ctx context.Context, prefix string) (session.Files, json.RawMessage, error) {
	if s.opts.Sources == nil {
		return session.Files{}, nil, errors.New("no reading source configured")
	}
	src, err := s.opts.Sources()
	if err != nil {
		return session.Files{}, nil, fmt.Errorf("create source: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	if err := src.Connect(ctx); err != nil {
		return session.Files{}, nil, fmt.Errorf("connect %s: %w", src, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("Error closing %s: %v", src, err)
		}
	}()

	runner := &session.Runner{
		Source:    src,
		Clock:     s.opts.Clock,
		Config:    s.opts.Config,
		Hub:       s.opts.Hub,
		Publisher: s.opts.Publisher,
	}
	res, err := runner.Run(ctx, s.opts.RecordingsDir, prefix)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return res.Files, nil, errors.New("analysis timeout")
		}
		return res.Files, nil, err
	}

	metrics := json.RawMessage("{}")
	if !res.Metrics.IsEmpty() {
		if metrics, err = json.Marshal(res.Metrics); err != nil {
			return res.Files, nil, fmt.Errorf("encode metrics: %w", err)
		}
	}
	log.Printf("Analysis complete: %d samples, calibrated=%v", res.Samples, res.Calibrated)
	return res.Files, metrics, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
