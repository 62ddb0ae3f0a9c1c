package codec_test

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"assetline/internal/codec"
	"assetline/internal/domain"
	"assetline/internal/fault"
)

func TestOperationalStateRoundTrip(t *testing.T) {
	for raw := 0; raw <= 5; raw++ {
		state, err := codec.DecodeOperationalState(raw)
		if err != nil {
			t.Fatalf("decode %d: %v", raw, err)
		}
		back, err := codec.EncodeOperationalState(state)
		if err != nil {
			t.Fatalf("encode %s: %v", state, err)
		}
		if back != raw {
			t.Fatalf("round trip %d -> %s -> %d", raw, state, back)
		}
	}
}

func TestInspectionStatusRoundTrip(t *testing.T) {
	for raw := 0; raw <= 2; raw++ {
		status, err := codec.DecodeInspectionStatus(raw)
		if err != nil {
			t.Fatalf("decode %d: %v", raw, err)
		}
		back, err := codec.EncodeInspectionStatus(status)
		if err != nil || back != raw {
			t.Fatalf("round trip %d -> %s -> %d (%v)", raw, status, back, err)
		}
	}
}

func TestDecommissioningStatusAsymmetricEncoding(t *testing.T) {
	// The review endpoints put accepted first on the wire, unlike every
	// other status family.
	cases := map[int]domain.DecommissioningStatus{
		0: domain.DecommissioningAccepted,
		1: domain.DecommissioningRejected,
		2: domain.DecommissioningPending,
	}
	for raw, want := range cases {
		got, err := codec.DecodeDecommissioningStatus(raw)
		if err != nil {
			t.Fatalf("decode %d: %v", raw, err)
		}
		if got != want {
			t.Fatalf("decode %d = %s, want %s", raw, got, want)
		}
		back, err := codec.EncodeDecommissioningStatus(got)
		if err != nil || back != raw {
			t.Fatalf("encode %s = %d (%v), want %d", got, back, err, raw)
		}
	}
}

func TestReasonAndTypeRoundTrip(t *testing.T) {
	for raw := 0; raw <= 4; raw++ {
		reason, err := codec.DecodeDecommissionReason(raw)
		if err != nil {
			t.Fatalf("decode reason %d: %v", raw, err)
		}
		back, _ := codec.EncodeDecommissionReason(reason)
		if back != raw {
			t.Fatalf("reason round trip %d -> %s -> %d", raw, reason, back)
		}
	}
	for raw := 0; raw <= 5; raw++ {
		dt, err := codec.DecodeDeviceType(raw)
		if err != nil {
			t.Fatalf("decode device type %d: %v", raw, err)
		}
		back, _ := codec.EncodeDeviceType(dt)
		if back != raw {
			t.Fatalf("device type round trip %d -> %s -> %d", raw, dt, back)
		}
	}
	for raw := 0; raw <= 1; raw++ {
		mt, err := codec.DecodeMaintenanceType(raw)
		if err != nil {
			t.Fatalf("decode maintenance type %d: %v", raw, err)
		}
		back, _ := codec.EncodeMaintenanceType(mt)
		if back != raw {
			t.Fatalf("maintenance type round trip %d -> %s -> %d", raw, mt, back)
		}
	}
}

func TestUnknownEncoding(t *testing.T) {
	_, err := codec.DecodeOperationalState(99)
	if err == nil {
		t.Fatal("expected error for unmapped value")
	}
	var unknown *codec.UnknownEncodingError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownEncodingError, got %T", err)
	}
	if unknown.Raw != 99 || unknown.Field != "operational_state" {
		t.Fatalf("unexpected error detail: %+v", unknown)
	}
	if fault.KindOf(err) != fault.KindUnknownEncoding {
		t.Fatalf("unexpected kind %s", fault.KindOf(err))
	}
}

func TestConservativeDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	if got := codec.OperationalStateOrDefault(-1, logger); got != domain.StateUnderRevision {
		t.Fatalf("state default = %s, want %s", got, domain.StateUnderRevision)
	}
	if got := codec.InspectionStatusOrDefault(7, logger); got != domain.InspectionPending {
		t.Fatalf("inspection default = %s, want %s", got, domain.InspectionPending)
	}
	if got := codec.DecommissioningStatusOrDefault(9, logger); got != domain.DecommissioningPending {
		t.Fatalf("decommissioning default = %s, want %s", got, domain.DecommissioningPending)
	}
	if !strings.Contains(buf.String(), "defaulting") {
		t.Fatalf("expected defaults to be logged, got %q", buf.String())
	}

	// Mapped values pass through untouched and unlogged.
	buf.Reset()
	if got := codec.OperationalStateOrDefault(2, logger); got != domain.StateOperational {
		t.Fatalf("mapped value = %s", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output: %q", buf.String())
	}
}
