package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPatientStatus is assigned when a patient is created without one.
const DefaultPatientStatus = "in-treatment"

// Patient is a person whose knee is being measured.
type Patient struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Age        *int        `json:"age,omitempty"`
	Status     string      `json:"status"`
	Notes      string      `json:"notes"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Recordings []Recording `json:"recordings,omitempty"`
}

// PatientUpdate carries the fields to change; nil fields are kept.
type PatientUpdate struct {
	Name   *string `json:"name"`
	Age    *int    `json:"age"`
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// CreatePatient inserts p, assigning a uuid when p.ID is empty.
func (db *DB) CreatePatient(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("patient name is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = DefaultPatientStatus
	}
	now := time.Now().Unix()

	_, err := db.Exec(`
		INSERT INTO patients (id, name, age, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Age, p.Status, p.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	p.CreatedAt = time.Unix(now, 0)
	p.UpdatedAt = p.CreatedAt
	return nil
}

const patientColumns = `id, name, age, status, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*Patient, error) {
	var p Patient
	var age sql.NullInt64
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &age, &p.Status, &p.Notes, &created, &updated); err != nil {
		return nil, err
	}
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

// GetPatient returns the patient with id, without recordings.
func (db *DB) GetPatient(id string) (*Patient, error) {
	p, err := scanPatient(db.QueryRow(`SELECT `+patientColumns+` FROM patients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// ListPatients returns every patient ordered by creation time.
func (db *DB) ListPatients() ([]Patient, error) {
	rows, err := db.Query(`SELECT ` + patientColumns + ` FROM patients ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	patients := []Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *p)
	}
	return patients, rows.Err()
}

// UpdatePatient applies u and returns the stored patient.
func (db *DB) UpdatePatient(id string, u PatientUpdate) (*Patient, error) {
	p, err := db.GetPatient(id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("patient name is required")
		}
		p.Name = name
	}
	if u.Age != nil {
		p.Age = u.Age
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	now := time.Now().Unix()

	_, err = db.Exec(`
		UPDATE patients SET name = ?, age = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Age, p.Status, p.Notes, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	p.UpdatedAt = time.Unix(now, 0)
	return p, nil
}

// DeletePatient removes the patient and their recordings. Deleting an
// unknown id succeeds.
func (db *DB) DeletePatient(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM recordings WHERE patient_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete recordings: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM patients WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return tx.Commit()
}
