// Package lifecycle holds the device state machine. The client never moves a
// device itself; it validates that states reported by the backend are
// consistent with the open requests fetched alongside them, and names the
// exact edge when they are not.
package lifecycle

import (
	"fmt"

	"assetline/internal/domain"
	"assetline/internal/fault"
)

// IllegalTransitionError names the rejected edge and, when a pending request
// is what blocks it, the request id.
type IllegalTransitionError struct {
	From              domain.OperationalState
	To                domain.OperationalState
	BlockingRequestID int64
}

func (e *IllegalTransitionError) Error() string {
	if e.BlockingRequestID != 0 {
		return fmt.Sprintf("illegal transition %s -> %s (blocked by request %d)", e.From, e.To, e.BlockingRequestID)
	}
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

func (e *IllegalTransitionError) Kind() fault.Kind { return fault.KindIllegalTransition }

// OrphanedRevisionError flags a device reported under revision with no open
// inspection request to resolve it.
type OrphanedRevisionError struct {
	DeviceID int64
}

func (e *OrphanedRevisionError) Error() string {
	return fmt.Sprintf("device %d is under revision with no open inspection request", e.DeviceID)
}

func (e *OrphanedRevisionError) Kind() fault.Kind { return fault.KindOrphanedRevision }

// InconsistentStateError flags a backend-reported state that contradicts an
// open request fetched for the same device. Never auto-corrected; the
// caller surfaces it and asks the user to refresh.
type InconsistentStateError struct {
	DeviceID  int64
	State     domain.OperationalState
	RequestID int64
	Detail    string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("device %d state %s inconsistent with request %d: %s", e.DeviceID, e.State, e.RequestID, e.Detail)
}

func (e *InconsistentStateError) Kind() fault.Kind { return fault.KindIllegalTransition }

var transitions = map[domain.OperationalState][]domain.OperationalState{
	domain.StateUnderRevision: {
		domain.StateRevised,
		domain.StateUnderRevision, // rejection records a reason, device stays pending
		domain.StateDecommissioned,
	},
	domain.StateRevised: {
		domain.StateOperational,
		domain.StateDecommissioned,
	},
	domain.StateOperational: {
		domain.StateUnderMaintenance,
		domain.StateBeingTransferred,
		domain.StateDecommissioned,
	},
	domain.StateUnderMaintenance: {
		domain.StateOperational,
		domain.StateBeingTransferred,
		domain.StateDecommissioned,
	},
	domain.StateBeingTransferred: {
		domain.StateOperational,
		domain.StateUnderMaintenance,
		domain.StateDecommissioned,
	},
	domain.StateDecommissioned: nil, // terminal
}

// CanTransition reports whether the edge from -> to exists in the table.
func CanTransition(from, to domain.OperationalState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EnsureTransition validates the edge from -> to. Entering the terminal
// state additionally requires that no inspection is still pending: a device
// must not be scrapped mid-inspection.
func EnsureTransition(from, to domain.OperationalState, openInspection *domain.InspectionRequest) error {
	if !CanTransition(from, to) {
		return &IllegalTransitionError{From: from, To: to}
	}
	if to == domain.StateDecommissioned && openInspection != nil && openInspection.Status == domain.InspectionPending {
		return &IllegalTransitionError{From: from, To: to, BlockingRequestID: openInspection.RequestID}
	}
	return nil
}

// Snapshot is a device state plus the independently fetched open requests
// that may govern it. The two sides are eventually consistent, never one
// atomic read.
type Snapshot struct {
	Device          domain.Device
	Inspection      *domain.InspectionRequest      // open request or nil
	Decommissioning *domain.DecommissioningRequest // open request or nil
}

// Validate cross-checks a snapshot and returns every detected
// inconsistency. An empty result means state and requests agree.
//
// A pending decommissioning request on a live device is legal; only the
// terminal-state conflicts and an orphaned revision state are flagged.
func Validate(s Snapshot) []error {
	var found []error
	state := s.Device.State
	if state == domain.StateUnderRevision && s.Inspection == nil {
		found = append(found, &OrphanedRevisionError{DeviceID: s.Device.ID})
	}
	if state.Terminal() {
		if s.Inspection != nil && s.Inspection.Status == domain.InspectionPending {
			found = append(found, &InconsistentStateError{
				DeviceID:  s.Device.ID,
				State:     state,
				RequestID: s.Inspection.RequestID,
				Detail:    "decommissioned device has a pending inspection request",
			})
		}
		if s.Decommissioning != nil && s.Decommissioning.Status == domain.DecommissioningPending {
			found = append(found, &InconsistentStateError{
				DeviceID:  s.Device.ID,
				State:     state,
				RequestID: s.Decommissioning.ID,
				Detail:    "decommissioned device has a pending decommissioning request",
			})
		}
	}
	if s.Inspection != nil && s.Inspection.Status == domain.InspectionPending {
		switch state {
		case domain.StateUnderRevision, domain.StateRevised:
			// inspection flows gate exactly these states
		case domain.StateDecommissioned:
			// already flagged above
		default:
			found = append(found, &InconsistentStateError{
				DeviceID:  s.Device.ID,
				State:     state,
				RequestID: s.Inspection.RequestID,
				Detail:    fmt.Sprintf("pending inspection request on a %s device", state),
			})
		}
	}
	return found
}

// ActiveWorkflowFor picks the zero-or-one workflow currently driving the
// snapshot. A pending inspection wins over a pending decommissioning
// because decommissioning cannot complete until the inspection resolves.
func ActiveWorkflowFor(s Snapshot) domain.ActiveWorkflow {
	if s.Inspection != nil && s.Inspection.Status == domain.InspectionPending {
		return domain.WorkflowInspection
	}
	if s.Decommissioning != nil && s.Decommissioning.Status == domain.DecommissioningPending {
		return domain.WorkflowDecommissioning
	}
	return domain.WorkflowNone
}
