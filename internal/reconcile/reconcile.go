// Package reconcile merges a device record with the independently fetched
// open requests that reference it into one consistent, display-ready view.
// Device state and request state are eventually-consistent facts from
// separate endpoints; detected conflicts become warnings on the view, not
// failures, so callers can always render something.
package reconcile

import (
	"context"
	"errors"
	"log"

	"assetline/internal/decommission"
	"assetline/internal/domain"
	"assetline/internal/inspection"
	"assetline/internal/inventory"
	"assetline/internal/lifecycle"
	"assetline/internal/org"
)

type Service struct {
	Inventory       *inventory.Client
	Inspections     *inspection.Workflow
	Decommissioning *decommission.Workflow
	Org             *org.Client
	Logger          *log.Logger
}

func New(inv *inventory.Client, insp *inspection.Workflow, dec *decommission.Workflow, orgc *org.Client) *Service {
	return &Service{Inventory: inv, Inspections: insp, Decommissioning: dec, Org: orgc}
}

// BuildDeviceView assembles the reconciled view of one device. Every call
// re-fetches fresh data; nothing is cached between calls because both sides
// are backend-authoritative and can change between reads.
func (s *Service) BuildDeviceView(ctx context.Context, deviceID int64) (domain.DeviceView, error) {
	device, err := s.Inventory.DeviceByID(ctx, deviceID)
	if err != nil {
		return domain.DeviceView{}, err
	}

	openInspection, err := s.Inspections.OpenForDevice(ctx, deviceID)
	if err != nil {
		return domain.DeviceView{}, err
	}
	openDecommissioning, err := s.Decommissioning.OpenForDevice(ctx, deviceID)
	if err != nil {
		return domain.DeviceView{}, err
	}

	s.decorate(ctx, &device)

	snapshot := lifecycle.Snapshot{
		Device:          device,
		Inspection:      openInspection,
		Decommissioning: openDecommissioning,
	}
	view := domain.DeviceView{
		Device:          device,
		State:           device.State,
		ActiveWorkflow:  lifecycle.ActiveWorkflowFor(snapshot),
		Inspection:      openInspection,
		Decommissioning: openDecommissioning,
	}
	if conflicts := lifecycle.Validate(snapshot); len(conflicts) > 0 {
		view.Warning = warningFor(conflicts)
		s.logf("reconcile: device %d: %v", deviceID, errors.Join(conflicts...))
	}
	return view, nil
}

// warningFor downgrades detected conflicts to a single non-fatal warning.
// The raw state stays on the view untouched; the client never corrects the
// backend.
func warningFor(conflicts []error) *domain.Warning {
	kind := domain.WarnInconsistent
	var orphan *lifecycle.OrphanedRevisionError
	if len(conflicts) == 1 && errors.As(conflicts[0], &orphan) {
		kind = domain.WarnOrphanedRevision
	}
	return &domain.Warning{
		Kind:   kind,
		Detail: errors.Join(conflicts...).Error(),
	}
}

// decorate fills display names. Failures here cost a label, never the view.
func (s *Service) decorate(ctx context.Context, device *domain.Device) {
	if s.Org == nil {
		return
	}
	if device.DepartmentName == "" && device.DepartmentID != 0 {
		if dept, err := s.Org.DepartmentByID(ctx, device.DepartmentID); err == nil {
			device.DepartmentName = dept.Name
		} else {
			s.logf("reconcile: department %d name: %v", device.DepartmentID, err)
		}
	}
	if device.SectionName == "" && device.SectionID != nil {
		if sect, err := s.Org.SectionByID(ctx, *device.SectionID); err == nil {
			device.SectionName = sect.Name
		} else {
			s.logf("reconcile: section %d name: %v", *device.SectionID, err)
		}
	}
}

func (s *Service) logf(format string, args ...any) {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
