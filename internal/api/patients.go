package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/banshee-data/jointangle/internal/db"
	"github.com/banshee-data/jointangle/internal/httputil"
)

// PatientRequest is the body of POST /patients.
type PatientRequest struct {
	Name   string `json:"name"`
	Age    *int   `json:"age"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// patientDetail always carries the recordings array, even when empty.
type patientDetail struct {
	*db.Patient
	Recordings []db.Recording `json:"recordings"`
}

// handlePatients handles GET and POST to /patients
func (s *Server) handlePatients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPatients(w, r)
	case http.MethodPost:
		s.createPatient(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) listPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := s.db.ListPatients()
	if err != nil {
		log.Printf("Error listing patients: %v", err)
		httputil.InternalServerError(w, "Failed to list patients")
		return
	}
	httputil.WriteJSONOK(w, patients)
}

func (s *Server) createPatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	p := &db.Patient{Name: req.Name, Age: req.Age, Status: req.Status, Notes: req.Notes}
	if p.Age != nil && *p.Age < 0 {
		httputil.BadRequest(w, "age must be non-negative")
		return
	}
	if err := s.db.CreatePatient(p); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

// handlePatientByID handles GET/PUT/DELETE /patients/:id
func (s *Server) handlePatientByID(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/patients/")
	if id == "" || rest != "" {
		httputil.NotFound(w, "Patient not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getPatient(w, id)
	case http.MethodPut:
		s.updatePatient(w, r, id)
	case http.MethodDelete:
		s.deletePatient(w, id)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) getPatient(w http.ResponseWriter, id string) {
	p, err := s.db.GetPatient(id)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "Patient not found")
		return
	}
	if err != nil {
		log.Printf("Error fetching patient %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch patient")
		return
	}

	recs, err := s.db.ListRecordings(id)
	if err != nil {
		log.Printf("Error listing recordings for %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch recordings")
		return
	}
	httputil.WriteJSONOK(w, patientDetail{Patient: p, Recordings: recs})
}

func (s *Server) updatePatient(w http.ResponseWriter, r *http.Request, id string) {
	var u db.PatientUpdate
	if err := httputil.DecodeJSON(r, &u, false); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if u.Age != nil && *u.Age < 0 {
		httputil.BadRequest(w, "age must be non-negative")
		return
	}

	p, err := s.db.UpdatePatient(id, u)
	switch {
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, "Patient not found")
	case err != nil:
		httputil.BadRequest(w, err.Error())
	default:
		httputil.WriteJSONOK(w, p)
	}
}

func (s *Server) deletePatient(w http.ResponseWriter, id string) {
	if err := s.db.DeletePatient(id); err != nil {
		log.Printf("Error deleting patient %s: %v", id, err)
		httputil.InternalServerError(w, "Failed to delete patient")
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"ok": true})
}
