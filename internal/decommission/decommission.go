// Package decommission drives the request / review / accept-or-reject cycle
// that retires a device. A device keeps its full request history but never
// more than one pending request; a review is terminal.
package decommission

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
	ID                 int64   `json:"id"`
	DeviceID           int64   `json:"device_id"`
	DeviceName         string  `json:"device_name"`
	TechnicianID       int64   `json:"technician_id"`
	RequestDate        string  `json:"request_date"`
	Status             int     `json:"status"`
	Reason             int     `json:"reason"`
	Description        string  `json:"description"`
	ReviewedDate       *string `json:"reviewed_date"`
	ReviewedByUserID   *int64  `json:"reviewed_by_user_id"`
	ReceiverUserID     *int64  `json:"receiver_user_id"`
	FinalDestinationID *int64  `json:"final_destination_id"`
}

func (d requestDTO) decode(logger *log.Logger) domain.DecommissioningRequest {
	return domain.DecommissioningRequest{
		ID:                 d.ID,
		DeviceID:           d.DeviceID,
		DeviceName:         d.DeviceName,
		TechnicianID:       d.TechnicianID,
		RequestDate:        d.RequestDate,
		Status:             codec.DecommissioningStatusOrDefault(d.Status, logger),
		Reason:             codec.DecommissionReasonOrDefault(d.Reason, logger),
		Description:        d.Description,
		ReviewedDate:       d.ReviewedDate,
		ReviewedByUserID:   d.ReviewedByUserID,
		ReceiverUserID:     d.ReceiverUserID,
		FinalDestinationID: d.FinalDestinationID,
	}
}

// ListPending returns every unreviewed request.
func (w *Workflow) ListPending(ctx context.Context) ([]domain.DecommissioningRequest, error) {
	if _, err := w.Session.Current(); err != nil {
		return nil, err
	}
	var dtos []requestDTO
	if err := w.HTTP.Get(ctx, "api/decommissions/pending", &dtos); err != nil {
		return nil, err
	}
	return w.decodeAll(dtos), nil
}

// History returns every request ever filed for a device, newest first.
func (w *Workflow) History(ctx context.Context, deviceID int64) ([]domain.DecommissioningRequest, error) {
	var dtos []requestDTO
	if err := w.HTTP.Get(ctx, fmt.Sprintf("api/decommissions/device/%d", deviceID), &dtos); err != nil {
		return nil, err
	}
	return w.decodeAll(dtos), nil
}

// OpenForDevice returns the device's pending request, or nil when none.
func (w *Workflow) OpenForDevice(ctx context.Context, deviceID int64) (*domain.DecommissioningRequest, error) {
	history, err := w.History(ctx, deviceID)
	if err != nil {
		if fault.KindOf(err) == fault.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	for i := range history {
		if history[i].Status == domain.DecommissioningPending {
			return &history[i], nil
		}
	}
	return nil, nil
}

type CreateOptions struct {
	DeviceID    int64
	Reason      domain.DecommissionReason
	Description string
}

// Create files a retirement proposal for a device on behalf of the
// logged-in technician.
func (w *Workflow) Create(ctx context.Context, opts CreateOptions) (domain.DecommissioningRequest, error) {
	user, err := w.Session.Current()
	if err != nil {
		return domain.DecommissioningRequest{}, err
	}
	if opts.DeviceID == 0 {
		return domain.DecommissioningRequest{}, &fault.ValidationError{Field: "device_id", Reason: "is required"}
	}
	if opts.Reason == "" {
		return domain.DecommissioningRequest{}, &fault.ValidationError{Field: "reason", Reason: "is required"}
	}
	rawReason, err := codec.EncodeDecommissionReason(opts.Reason)
	if err != nil {
		return domain.DecommissioningRequest{}, &fault.ValidationError{Field: "reason", Reason: fmt.Sprintf("%q is not a known reason", opts.Reason)}
	}
	body := map[string]any{
		"device_id":     opts.DeviceID,
		"technician_id": user.ID,
		"reason":        rawReason,
		"description":   strings.TrimSpace(opts.Description),
	}
	var dto requestDTO
	if err := w.HTTP.Post(ctx, "api/decommissions", body, &dto); err != nil {
		return domain.DecommissioningRequest{}, err
	}
	created := dto.decode(w.Logger)
	w.record(ctx, "decommission.created", created, user.ID, journal.Payload{"reason": string(created.Reason)})
	return created, nil
}

type ReviewOptions struct {
	RequestID          int64
	Approved           bool
	ReceiverUserID     *int64
	FinalDestinationID *int64
	Description        string
}

// Review closes a pending request. Approval must name who receives the
// device and where it finally goes; on rejection both fields are scrubbed
// before the call so they can never be persisted by accident. A second
// review of the same request fails with AlreadyResolvedError.
func (w *Workflow) Review(ctx context.Context, opts ReviewOptions) (domain.DecommissioningRequest, error) {
	user, err := w.Session.Current()
	if err != nil {
		return domain.DecommissioningRequest{}, err
	}
	if opts.RequestID == 0 {
		return domain.DecommissioningRequest{}, &fault.ValidationError{Field: "request_id", Reason: "is required"}
	}
	if opts.Approved {
		if opts.ReceiverUserID == nil {
			return domain.DecommissioningRequest{}, &fault.ValidationError{Field: "receiver_user_id", Reason: "is required when approving"}
		}
		if opts.FinalDestinationID == nil {
			return domain.DecommissioningRequest{}, &fault.ValidationError{Field: "final_destination_id", Reason: "is required when approving"}
		}
	} else {
		opts.ReceiverUserID = nil
		opts.FinalDestinationID = nil
	}
	status := domain.DecommissioningRejected
	if opts.Approved {
		status = domain.DecommissioningAccepted
	}
	rawStatus, err := codec.EncodeDecommissioningStatus(status)
	if err != nil {
		return domain.DecommissioningRequest{}, err
	}
	body := map[string]any{
		"status":      rawStatus,
		"reviewer_id": user.ID,
		"description": strings.TrimSpace(opts.Description),
	}
	if opts.ReceiverUserID != nil {
		body["receiver_user_id"] = *opts.ReceiverUserID
	}
	if opts.FinalDestinationID != nil {
		body["final_destination_id"] = *opts.FinalDestinationID
	}
	var dto requestDTO
	err = w.HTTP.Put(ctx, fmt.Sprintf("api/decommissions/%d/review", opts.RequestID), body, &dto)
	if err != nil {
		var apiErr *transport.APIError
		if errors.As(err, &apiErr) && apiErr.Kind() == fault.KindAlreadyResolved {
			return domain.DecommissioningRequest{}, &fault.AlreadyResolvedError{RequestID: opts.RequestID, Status: apiErr.Message}
		}
		return domain.DecommissioningRequest{}, err
	}
	reviewed := dto.decode(w.Logger)
	w.record(ctx, "decommission.reviewed", reviewed, user.ID, journal.Payload{
		"approved": opts.Approved,
		"status":   string(reviewed.Status),
	})
	return reviewed, nil
}

func (w *Workflow) decodeAll(dtos []requestDTO) []domain.DecommissioningRequest {
	requests := make([]domain.DecommissioningRequest, 0, len(dtos))
	for _, dto := range dtos {
		requests = append(requests, dto.decode(w.Logger))
	}
	return requests
}

func (w *Workflow) record(ctx context.Context, action string, r domain.DecommissioningRequest, actorID int64, payload journal.Payload) {
	if w.Journal == nil {
		return
	}
	if err := w.Journal.Append(ctx, action, r.DeviceID, r.ID, actorID, payload); err != nil {
		w.logf("journal: %s: %v", action, err)
	}
}

func (w *Workflow) logf(format string, args ...any) {
	logger := w.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
