package reconcile_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"assetline/internal/decommission"
	"assetline/internal/domain"
	"assetline/internal/fault"
	"assetline/internal/inspection"
	"assetline/internal/inventory"
	"assetline/internal/org"
	"assetline/internal/reconcile"
	"assetline/internal/session"
	"assetline/internal/stubserver"
	"assetline/internal/transport"
)

func newService(t *testing.T) (*reconcile.Service, *stubserver.Server) {
	t.Helper()
	stub := stubserver.New()
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	sess := session.NewStore()
	client := transport.New(srv.URL, sess)
	svc := reconcile.New(
		inventory.New(client),
		inspection.New(client, sess),
		decommission.New(client, sess),
		org.New(client),
	)
	return svc, stub
}

func TestViewRevisionWithOpenInspection(t *testing.T) {
	svc, stub := newService(t)
	stub.AddDevice(stubserver.Device{ID: 42, Name: "CT Scanner A", OperationalState: 0, DepartmentID: 1})
	stub.AddInspection(stubserver.Inspection{RequestID: 1, DeviceID: 42, TechnicianID: 5, RequestDate: "2026-03-01T09:00:00Z", Status: 0})

	view, err := svc.BuildDeviceView(context.Background(), 42)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.State != domain.StateUnderRevision {
		t.Fatalf("unexpected state %s", view.State)
	}
	if view.ActiveWorkflow != domain.WorkflowInspection {
		t.Fatalf("unexpected workflow %s", view.ActiveWorkflow)
	}
	if view.Inspection == nil || view.Inspection.RequestID != 1 {
		t.Fatalf("open inspection missing: %+v", view.Inspection)
	}
	if view.Warning != nil {
		t.Fatalf("consistent snapshot should carry no warning, got %+v", view.Warning)
	}
}

func TestViewOperationalWithPendingDecommissioning(t *testing.T) {
	svc, stub := newService(t)
	stub.AddDevice(stubserver.Device{ID: 7, Name: "Switch Rack 3", OperationalState: 2, DepartmentID: 2})
	stub.AddDecommission(stubserver.Decommission{ID: 50, DeviceID: 7, TechnicianID: 5, RequestDate: "2026-03-01T09:00:00Z", Status: 2, Reason: 0})

	view, err := svc.BuildDeviceView(context.Background(), 7)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.ActiveWorkflow != domain.WorkflowDecommissioning {
		t.Fatalf("unexpected workflow %s", view.ActiveWorkflow)
	}
	if view.Decommissioning == nil || view.Decommissioning.ID != 50 {
		t.Fatalf("open request missing: %+v", view.Decommissioning)
	}
	// An operational device with an unreviewed proposal is a legal state.
	if view.Warning != nil {
		t.Fatalf("unexpected warning %+v", view.Warning)
	}
}

func TestViewFlagsInspectionOnRetiredDevice(t *testing.T) {
	svc, stub := newService(t)
	stub.AddDevice(stubserver.Device{ID: 9, Name: "Old Pump", OperationalState: 4, DepartmentID: 2})
	stub.AddInspection(stubserver.Inspection{RequestID: 2, DeviceID: 9, TechnicianID: 5, RequestDate: "2026-03-01T09:00:00Z", Status: 0})

	view, err := svc.BuildDeviceView(context.Background(), 9)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.State != domain.StateDecommissioned {
		t.Fatalf("raw state must stay as reported, got %s", view.State)
	}
	if view.Warning == nil {
		t.Fatal("expected a warning")
	}
	if view.Warning.Kind != domain.WarnInconsistent {
		t.Fatalf("unexpected warning kind %s", view.Warning.Kind)
	}
}

func TestViewFlagsOrphanedRevision(t *testing.T) {
	svc, stub := newService(t)
	stub.AddDevice(stubserver.Device{ID: 11, Name: "Lone Sensor", OperationalState: 0, DepartmentID: 1})

	view, err := svc.BuildDeviceView(context.Background(), 11)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.ActiveWorkflow != domain.WorkflowNone {
		t.Fatalf("unexpected workflow %s", view.ActiveWorkflow)
	}
	if view.Warning == nil || view.Warning.Kind != domain.WarnOrphanedRevision {
		t.Fatalf("expected orphaned revision warning, got %+v", view.Warning)
	}
}

func TestViewDecoratesDepartmentAndSection(t *testing.T) {
	svc, stub := newService(t)
	sectionID := int64(10)
	stub.AddDepartment(stubserver.Department{ID: 1, Name: "Radiology"})
	stub.AddSection(stubserver.Section{ID: 10, Name: "Imaging Lab", DepartmentID: 1})
	stub.AddDevice(stubserver.Device{ID: 42, Name: "CT Scanner A", OperationalState: 2, DepartmentID: 1, SectionID: &sectionID})

	view, err := svc.BuildDeviceView(context.Background(), 42)
	if err != nil {
		t.Fatalf("build view: %v", err)
	}
	if view.Device.DepartmentName != "Radiology" {
		t.Fatalf("department name not filled: %q", view.Device.DepartmentName)
	}
	if view.Device.SectionName != "Imaging Lab" {
		t.Fatalf("section name not filled: %q", view.Device.SectionName)
	}
}

func TestViewSurvivesMissingDepartment(t *testing.T) {
	svc, stub := newService(t)
	stub.AddDevice(stubserver.Device{ID: 42, Name: "CT Scanner A", OperationalState: 2, DepartmentID: 99})

	view, err := svc.BuildDeviceView(context.Background(), 42)
	if err != nil {
		t.Fatalf("lookup failure must not break the view: %v", err)
	}
	if view.Device.DepartmentName != "" {
		t.Fatalf("unexpected department name %q", view.Device.DepartmentName)
	}
}

func TestViewUnknownDevice(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.BuildDeviceView(context.Background(), 404)
	if fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}
