// Package stubserver is an in-memory stand-in for the asset backend, used
// by the test suite and by `al stub` for offline development. It speaks the
// backend's exact wire surface: integer status encodings, the
// {success,data,message,errors} envelope, and bare-array list responses.
package stubserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Wire-level records, enums kept as raw integers on purpose.

type Device struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	DeviceType       int    `json:"device_type"`
	OperationalState int    `json:"operational_state"`
	DepartmentID     int64  `json:"department_id"`
	DepartmentName   string `json:"department_name,omitempty"`
	SectionID        *int64 `json:"section_id,omitempty"`
	AcquisitionDate  string `json:"acquisition_date,omitempty"`
}

type Inspection struct {
	RequestID    int64   `json:"request_id"`
	DeviceID     int64   `json:"device_id"`
	RequesterID  int64   `json:"requester_id"`
	TechnicianID int64   `json:"technician_id"`
	RequestDate  string  `json:"request_date"`
	Status       int     `json:"status"` // 0 pending, 1 approved, 2 rejected
	RejectReason *string `json:"reject_reason,omitempty"`
}

type Decommission struct {
	ID                 int64   `json:"id"`
	DeviceID           int64   `json:"device_id"`
	TechnicianID       int64   `json:"technician_id"`
	RequestDate        string  `json:"request_date"`
	Status             int     `json:"status"` // 0 accepted, 1 rejected, 2 pending
	Reason             int     `json:"reason"`
	Description        string  `json:"description,omitempty"`
	ReviewedDate       *string `json:"reviewed_date,omitempty"`
	ReviewedByUserID   *int64  `json:"reviewed_by_user_id,omitempty"`
	ReceiverUserID     *int64  `json:"receiver_user_id,omitempty"`
	FinalDestinationID *int64  `json:"final_destination_id,omitempty"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Section struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"department_id"`
}

type Server struct {
	mu            sync.Mutex
	devices       map[int64]*Device
	inspections   map[int64]*Inspection
	decommissions map[int64]*Decommission
	departments   map[int64]Department
	sections      map[int64]Section
	nextID        int64
	Now           func() time.Time
}

func New() *Server {
	return &Server{
		devices:       map[int64]*Device{},
		inspections:   map[int64]*Inspection{},
		decommissions: map[int64]*Decommission{},
		departments:   map[int64]Department{},
		sections:      map[int64]Section{},
		nextID:        1000,
		Now:           time.Now,
	}
}

// Handler builds the chi router for the stub API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", s.listDevices)
		r.Get("/devices/{id}", s.getDevice)
		r.Get("/inspections/pending", s.listPendingInspections)
		r.Get("/inspections/device/{id}/open", s.openInspection)
		r.Put("/inspections/{id}/decision", s.decideInspection)
		r.Get("/decommissions/pending", s.listPendingDecommissions)
		r.Get("/decommissions/device/{id}", s.decommissionHistory)
		r.Post("/decommissions", s.createDecommission)
		r.Put("/decommissions/{id}/review", s.reviewDecommission)
		r.Get("/departments/{id}", s.getDepartment)
		r.Get("/sections/{id}", s.getSection)
	})
	return r
}

// --- seeding (tests and `al stub --seed`) ---

func (s *Server) AddDevice(d Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.ID] = &d
}

func (s *Server) AddInspection(i Inspection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspections[i.RequestID] = &i
}

func (s *Server) AddDecommission(d Decommission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decommissions[d.ID] = &d
}

func (s *Server) AddDepartment(d Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[d.ID] = d
}

func (s *Server) AddSection(sec Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[sec.ID] = sec
}

// Seed loads a small demo inventory for offline use.
func (s *Server) Seed() {
	s.AddDepartment(Department{ID: 1, Name: "Radiology"})
	s.AddDepartment(Department{ID: 2, Name: "Facilities"})
	s.AddSection(Section{ID: 10, Name: "Imaging Lab", DepartmentID: 1})
	s.AddDevice(Device{ID: 42, Name: "CT Scanner A", DeviceType: 5, OperationalState: 0, DepartmentID: 1})
	s.AddDevice(Device{ID: 7, Name: "Switch Rack 3", DeviceType: 3, OperationalState: 2, DepartmentID: 2})
	s.AddInspection(Inspection{RequestID: 1, DeviceID: 42, RequesterID: 9, TechnicianID: 5, RequestDate: s.Now().UTC().Format(time.RFC3339), Status: 0})
	s.AddDecommission(Decommission{ID: 1, DeviceID: 7, TechnicianID: 5, RequestDate: s.Now().UTC().Format(time.RFC3339), Status: 2, Reason: 0})
}

// --- handlers ---

func (s *Server) listDevices(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Device, 0, len(s.devices))
	for _, d := range s.devices {
		list = append(list, d)
	}
	// Bare array, not enveloped: part of the surface the client must cope with.
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		writeError(w, http.StatusNotFound, "device not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, d)
}

func (s *Server) listPendingInspections(w http.ResponseWriter, r *http.Request) {
	technician, _ := strconv.ParseInt(r.URL.Query().Get("technician"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []*Inspection{}
	for _, i := range s.inspections {
		if i.Status == 0 && (technician == 0 || i.TechnicianID == technician) {
			list = append(list, i)
		}
	}
	writeEnvelope(w, http.StatusOK, list)
}

func (s *Server) openInspection(w http.ResponseWriter, r *http.Request) {
	deviceID := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range s.inspections {
		if i.DeviceID == deviceID && i.Status == 0 {
			writeEnvelope(w, http.StatusOK, i)
			return
		}
	}
	writeEnvelope(w, http.StatusOK, nil)
}

func (s *Server) decideInspection(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var body struct {
		Status       int    `json:"status"`
		TechnicianID int64  `json:"technician_id"`
		RejectReason string `json:"reject_reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.inspections[id]
	if !ok {
		writeError(w, http.StatusNotFound, "inspection request not found", nil)
		return
	}
	if req.Status != 0 {
		writeError(w, http.StatusConflict, "request already resolved", nil)
		return
	}
	switch body.Status {
	case 1:
		req.Status = 1
		req.RejectReason = nil
		if d, ok := s.devices[req.DeviceID]; ok && d.OperationalState == 0 {
			d.OperationalState = 1
		}
	case 2:
		if body.RejectReason == "" {
			writeError(w, http.StatusUnprocessableEntity, "reject_reason required", []string{"reject_reason"})
			return
		}
		req.Status = 2
		reason := body.RejectReason
		req.RejectReason = &reason
	default:
		writeError(w, http.StatusUnprocessableEntity, "status must be 1 or 2", []string{"status"})
		return
	}
	writeEnvelope(w, http.StatusOK, req)
}

func (s *Server) listPendingDecommissions(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []*Decommission{}
	for _, d := range s.decommissions {
		if d.Status == 2 {
			list = append(list, d)
		}
	}
	writeEnvelope(w, http.StatusOK, list)
}

func (s *Server) decommissionHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []*Decommission{}
	for _, d := range s.decommissions {
		if d.DeviceID == deviceID {
			list = append(list, d)
		}
	}
	writeEnvelope(w, http.StatusOK, list)
}

func (s *Server) createDecommission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID     int64  `json:"device_id"`
		TechnicianID int64  `json:"technician_id"`
		Reason       int    `json:"reason"`
		Description  string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[body.DeviceID]; !ok {
		writeError(w, http.StatusNotFound, "device not found", nil)
		return
	}
	for _, d := range s.decommissions {
		if d.DeviceID == body.DeviceID && d.Status == 2 {
			writeError(w, http.StatusConflict, "device already has a pending decommissioning request", nil)
			return
		}
	}
	s.nextID++
	req := &Decommission{
		ID:           s.nextID,
		DeviceID:     body.DeviceID,
		TechnicianID: body.TechnicianID,
		RequestDate:  s.Now().UTC().Format(time.RFC3339),
		Status:       2,
		Reason:       body.Reason,
		Description:  body.Description,
	}
	s.decommissions[req.ID] = req
	writeEnvelope(w, http.StatusOK, req)
}

func (s *Server) reviewDecommission(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var body struct {
		Status             int    `json:"status"`
		ReviewerID         int64  `json:"reviewer_id"`
		ReceiverUserID     *int64 `json:"receiver_user_id"`
		FinalDestinationID *int64 `json:"final_destination_id"`
		Description        string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", nil)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.decommissions[id]
	if !ok {
		writeError(w, http.StatusNotFound, "decommissioning request not found", nil)
		return
	}
	if req.Status != 2 {
		writeError(w, http.StatusConflict, "request already reviewed", nil)
		return
	}
	switch body.Status {
	case 0:
		if body.ReceiverUserID == nil || body.FinalDestinationID == nil {
			writeError(w, http.StatusUnprocessableEntity, "receiver and final destination required", []string{"receiver_user_id", "final_destination_id"})
			return
		}
		req.Status = 0
		req.ReceiverUserID = body.ReceiverUserID
		req.FinalDestinationID = body.FinalDestinationID
		if d, ok := s.devices[req.DeviceID]; ok {
			d.OperationalState = 4
		}
	case 1:
		req.Status = 1
		req.ReceiverUserID = nil
		req.FinalDestinationID = nil
	default:
		writeError(w, http.StatusUnprocessableEntity, "status must be 0 or 1", []string{"status"})
		return
	}
	now := s.Now().UTC().Format(time.RFC3339)
	req.ReviewedDate = &now
	reviewer := body.ReviewerID
	req.ReviewedByUserID = &reviewer
	if body.Description != "" {
		req.Description = body.Description
	}
	writeEnvelope(w, http.StatusOK, req)
}

func (s *Server) getDepartment(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.departments[id]
	if !ok {
		writeError(w, http.StatusNotFound, "department not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, d)
}

func (s *Server) getSection(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok {
		writeError(w, http.StatusNotFound, "section not found", nil)
		return
	}
	writeEnvelope(w, http.StatusOK, sec)
}

// --- response helpers ---

type envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, message string, errs []string) {
	writeJSON(w, code, envelope{Success: false, Message: message, Errors: errs})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}
