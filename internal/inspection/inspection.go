// Package inspection drives the two inspection flows, initial receiving
// inspection and periodic re-inspection, that gate a device's way out of
// under-revision. At most one request is open per device at a time.
package inspection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"assetline/internal/codec"
	"assetline/internal/domain"
	"assetline/internal/fault"
	"assetline/internal/journal"
	"assetline/internal/session"
	"assetline/internal/transport"
)

type Workflow struct {
	HTTP    *transport.Client
	Session *session.Store
	Journal *journal.Writer
	Logger  *log.Logger
}

func New(http *transport.Client, sess *session.Store) *Workflow {
	return &Workflow{HTTP: http, Session: sess}
}

type requestDTO struct {
	RequestID    int64   `json:"request_id"`
	DeviceID     int64   `json:"device_id"`
	DeviceName   string  `json:"device_name"`
	RequesterID  int64   `json:"requester_id"`
	TechnicianID int64   `json:"technician_id"`
	RequestDate  string  `json:"request_date"`
	Status       int     `json:"status"`
	RejectReason *string `json:"reject_reason"`
}

func (d requestDTO) decode(logger *log.Logger) domain.InspectionRequest {
	r := domain.InspectionRequest{
		RequestID:    d.RequestID,
		DeviceID:     d.DeviceID,
		DeviceName:   d.DeviceName,
		RequesterID:  d.RequesterID,
		TechnicianID: d.TechnicianID,
		RequestDate:  d.RequestDate,
		Status:       codec.InspectionStatusOrDefault(d.Status, logger),
	}
	if d.RejectReason != nil {
		r.RejectReason = *d.RejectReason
	}
	return r
}

// ListPending returns the open requests assigned to a technician.
func (w *Workflow) ListPending(ctx context.Context, technicianID int64) ([]domain.InspectionRequest, error) {
	if _, err := w.Session.Current(); err != nil {
		return nil, err
	}
	var dtos []requestDTO
	if err := w.HTTP.Get(ctx, fmt.Sprintf("api/inspections/pending?technician=%d", technicianID), &dtos); err != nil {
		return nil, err
	}
	requests := make([]domain.InspectionRequest, 0, len(dtos))
	for _, dto := range dtos {
		requests = append(requests, dto.decode(w.Logger))
	}
	return requests, nil
}

// OpenForDevice returns the device's open request, or nil when none exists.
func (w *Workflow) OpenForDevice(ctx context.Context, deviceID int64) (*domain.InspectionRequest, error) {
	var dto *requestDTO
	err := w.HTTP.Get(ctx, fmt.Sprintf("api/inspections/device/%d/open", deviceID), &dto)
	if err != nil {
		if fault.KindOf(err) == fault.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	if dto == nil {
		return nil, nil
	}
	r := dto.decode(w.Logger)
	return &r, nil
}

type DecideOptions struct {
	RequestID int64
	Approved  bool
	Reason    string
}

// Decide records a technician's verdict on an open request. A rejection
// requires a reason; on approval any supplied reason is dropped rather than
// forwarded. Deciding an already-resolved request fails with
// AlreadyResolvedError, never silently succeeds, and is never retried.
func (w *Workflow) Decide(ctx context.Context, opts DecideOptions) (domain.InspectionRequest, error) {
	user, err := w.Session.Current()
	if err != nil {
		return domain.InspectionRequest{}, err
	}
	if opts.RequestID == 0 {
		return domain.InspectionRequest{}, &fault.ValidationError{Field: "request_id", Reason: "is required"}
	}
	reason := strings.TrimSpace(opts.Reason)
	if !opts.Approved && reason == "" {
		return domain.InspectionRequest{}, &fault.ValidationError{Field: "reason", Reason: "is required when rejecting"}
	}
	if opts.Approved {
		reason = ""
	}
	status := domain.InspectionRejected
	if opts.Approved {
		status = domain.InspectionApproved
	}
	rawStatus, err := codec.EncodeInspectionStatus(status)
	if err != nil {
		return domain.InspectionRequest{}, err
	}
	body := map[string]any{
		"status":        rawStatus,
		"technician_id": user.ID,
	}
	if reason != "" {
		body["reject_reason"] = reason
	}
	var dto requestDTO
	err = w.HTTP.Put(ctx, fmt.Sprintf("api/inspections/%d/decision", opts.RequestID), body, &dto)
	if err != nil {
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) && apiErr.Kind() == fault.KindAlreadyResolved {
			return domain.InspectionRequest{}, &fault.AlreadyResolvedError{RequestID: opts.RequestID, Status: apiErr.Message}
		}
		return domain.InspectionRequest{}, err
	}
	decided := dto.decode(w.Logger)
	w.record(ctx, decided, user.ID, opts.Approved, reason)
	return decided, nil
}

func (w *Workflow) record(ctx context.Context, r domain.InspectionRequest, actorID int64, approved bool, reason string) {
	if w.Journal == nil {
		return
	}
	payload := journal.Payload{"approved": approved, "status": string(r.Status)}
	if reason != "" {
		payload["reason"] = reason
	}
	if err := w.Journal.Append(ctx, "inspection.decided", r.DeviceID, r.RequestID, actorID, payload); err != nil {
		w.logf("journal: inspection.decided: %v", err)
	}
}

func (w *Workflow) logf(format string, args ...any) {
	logger := w.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
