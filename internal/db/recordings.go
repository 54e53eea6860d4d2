package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Recording is one saved measurement session. File names are relative to
// the recordings directory; Metrics is the gait summary as stored.
type Recording struct {
	ID         string          `json:"id"`
	PatientID  string          `json:"patient_id"`
	Date       string          `json:"date"`
	Timestamp  int64           `json:"timestamp"`
	Label      string          `json:"label"`
	RawFile    *string         `json:"raw_file"`
	AnglesFile *string         `json:"angles_file"`
	Metrics    json.RawMessage `json:"metrics"`
}

// CreateRecording inserts r. The patient must exist.
func (db *DB) CreateRecording(r *Recording) error {
	if r.ID == "" {
		return fmt.Errorf("recording id is required")
	}
	if len(r.Metrics) == 0 {
		r.Metrics = json.RawMessage("{}")
	}
	if !json.Valid(r.Metrics) {
		return fmt.Errorf("recording metrics are not valid JSON")
	}
	if _, err := db.GetPatient(r.PatientID); err != nil {
		return err
	}

	_, err := db.Exec(`
		INSERT INTO recordings (id, patient_id, date, timestamp, label, raw_file, angles_file, metrics_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PatientID, r.Date, r.Timestamp, r.Label, r.RawFile, r.AnglesFile, string(r.Metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	return nil
}

const recordingColumns = `id, patient_id, date, timestamp, label, raw_file, angles_file, metrics_json`

func scanRecording(row rowScanner) (*Recording, error) {
	var r Recording
	var raw, angles sql.NullString
	var metrics string
	if err := row.Scan(&r.ID, &r.PatientID, &r.Date, &r.Timestamp, &r.Label, &raw, &angles, &metrics); err != nil {
		return nil, err
	}
	if raw.Valid {
		r.RawFile = &raw.String
	}
	if angles.Valid {
		r.AnglesFile = &angles.String
	}
	r.Metrics = json.RawMessage(metrics)
	return &r, nil
}

// GetRecording returns the recording with id.
func (db *DB) GetRecording(id string) (*Recording, error) {
	r, err := scanRecording(db.QueryRow(`SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	return r, nil
}

// ListRecordings returns a patient's recordings, oldest first.
func (db *DB) ListRecordings(patientID string) ([]Recording, error) {
	rows, err := db.Query(`SELECT `+recordingColumns+` FROM recordings WHERE patient_id = ? ORDER BY timestamp, id`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer rows.Close()

	recs := []Recording{}
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recording: %w", err)
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}
