package inspection_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"assetline/internal/domain"
	"assetline/internal/fault"
	"assetline/internal/inspection"
	"assetline/internal/session"
	"assetline/internal/stubserver"
	"assetline/internal/transport"
)

type testEnv struct {
	Stub     *stubserver.Server
	Workflow *inspection.Workflow
	Session  *session.Store
	Ctx      context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	stub := stubserver.New()
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)

	sess := session.NewStore()
	claims := jwt.MapClaims{
		"sub":           "5",
		"role":          "technician",
		"department_id": int64(1),
		"exp":           time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := sess.SetToken(token); err != nil {
		t.Fatalf("set token: %v", err)
	}

	client := transport.New(srv.URL, sess)
	return testEnv{
		Stub:     stub,
		Workflow: inspection.New(client, sess),
		Session:  sess,
		Ctx:      context.Background(),
	}
}

func seedPending(env testEnv, requestID, deviceID, technicianID int64) {
	env.Stub.AddDevice(stubserver.Device{ID: deviceID, Name: "device", OperationalState: 0, DepartmentID: 1})
	env.Stub.AddInspection(stubserver.Inspection{
		RequestID:    requestID,
		DeviceID:     deviceID,
		RequesterID:  9,
		TechnicianID: technicianID,
		RequestDate:  "2026-01-10T09:00:00Z",
		Status:       0,
	})
}

func TestListPendingFiltersByTechnician(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)
	seedPending(env, 2, 43, 6)

	requests, err := env.Workflow.ListPending(env.Ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(requests) != 1 || requests[0].RequestID != 1 {
		t.Fatalf("unexpected requests %+v", requests)
	}
	if requests[0].Status != domain.InspectionPending {
		t.Fatalf("unexpected status %s", requests[0].Status)
	}
}

func TestListPendingRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	env.Session.Logout()
	_, err := env.Workflow.ListPending(env.Ctx, 5)
	if fault.KindOf(err) != fault.KindAuthRequired {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestOpenForDevice(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)

	open, err := env.Workflow.OpenForDevice(env.Ctx, 42)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if open == nil || open.RequestID != 1 {
		t.Fatalf("expected request 1, got %+v", open)
	}

	none, err := env.Workflow.OpenForDevice(env.Ctx, 99)
	if err != nil {
		t.Fatalf("open none: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for device with no open request, got %+v", none)
	}
}

func TestDecideRejectRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)

	_, err := env.Workflow.Decide(env.Ctx, inspection.DecideOptions{RequestID: 1, Approved: false})
	var valErr *fault.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// The request must still be open: validation failed before the call.
	open, _ := env.Workflow.OpenForDevice(env.Ctx, 42)
	if open == nil {
		t.Fatal("request should still be pending")
	}
}

func TestDecideRejectWithReason(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)

	decided, err := env.Workflow.Decide(env.Ctx, inspection.DecideOptions{
		RequestID: 1,
		Approved:  false,
		Reason:    "serial number mismatch",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != domain.InspectionRejected {
		t.Fatalf("unexpected status %s", decided.Status)
	}
	if decided.RejectReason != "serial number mismatch" {
		t.Fatalf("unexpected reason %q", decided.RejectReason)
	}
}

func TestDecideApproveDropsReason(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)

	decided, err := env.Workflow.Decide(env.Ctx, inspection.DecideOptions{
		RequestID: 1,
		Approved:  true,
		Reason:    "should be ignored",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != domain.InspectionApproved {
		t.Fatalf("unexpected status %s", decided.Status)
	}
	if decided.RejectReason != "" {
		t.Fatalf("reason must not be forwarded on approval, got %q", decided.RejectReason)
	}
}

func TestDecideTwiceFailsAlreadyResolved(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)

	if _, err := env.Workflow.Decide(env.Ctx, inspection.DecideOptions{RequestID: 1, Approved: true}); err != nil {
		t.Fatalf("first decide: %v", err)
	}
	_, err := env.Workflow.Decide(env.Ctx, inspection.DecideOptions{RequestID: 1, Approved: true})
	var resolved *fault.AlreadyResolvedError
	if !errors.As(err, &resolved) {
		t.Fatalf("expected AlreadyResolvedError, got %v", err)
	}
	if resolved.RequestID != 1 {
		t.Fatalf("unexpected request id %d", resolved.RequestID)
	}
}

func TestDecideRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	seedPending(env, 1, 42, 5)
	env.Session.Logout()

	_, err := env.Workflow.Decide(env.Ctx, inspection.DecideOptions{RequestID: 1, Approved: true})
	if fault.KindOf(err) != fault.KindAuthRequired {
		t.Fatalf("expected auth error, got %v", err)
	}
}
