package transport

import (
	"errors"
	"net/http"
	"testing"
)

func TestDecodeBodyArray(t *testing.T) {
	payload, shape, err := DecodeBody(http.StatusOK, []byte(`[{"id":1},{"id":2}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if shape != ShapeArray {
		t.Fatalf("expected array shape, got %d", shape)
	}
	if string(payload) != `[{"id":1},{"id":2}]` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestDecodeBodyEnvelope(t *testing.T) {
	payload, shape, err := DecodeBody(http.StatusOK, []byte(`{"success":true,"data":{"id":42},"message":"","errors":null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if shape != ShapeEnveloped {
		t.Fatalf("expected envelope shape, got %d", shape)
	}
	if string(payload) != `{"id":42}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestDecodeBodyEnvelopeFailure(t *testing.T) {
	_, _, err := DecodeBody(http.StatusOK, []byte(`{"success":false,"data":null,"message":"device not found","errors":["id"]}`))
	if err == nil {
		t.Fatal("expected error for success=false")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Message != "device not found" {
		t.Fatalf("unexpected message %q", apiErr.Message)
	}
}

func TestDecodeBodyBareObject(t *testing.T) {
	payload, shape, err := DecodeBody(http.StatusOK, []byte(`{"id":7,"name":"switch"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if shape != ShapeBareObject {
		t.Fatalf("expected bare object shape, got %d", shape)
	}
	if string(payload) == "" {
		t.Fatal("expected payload")
	}
}

func TestDecodeBodyMalformed(t *testing.T) {
	for _, body := range []string{`not json`, `"just a string"`, `{"success":`} {
		_, shape, err := DecodeBody(http.StatusOK, []byte(body))
		if err == nil {
			t.Errorf("%q: expected error", body)
			continue
		}
		if shape != ShapeMalformed {
			t.Errorf("%q: expected malformed shape, got %d", body, shape)
		}
		var malformed *MalformedResponseError
		if !errors.As(err, &malformed) {
			t.Errorf("%q: expected MalformedResponseError, got %T", body, err)
		}
	}
}

func TestDecodeBodyEmpty(t *testing.T) {
	payload, _, err := DecodeBody(http.StatusOK, nil)
	if err != nil || payload != nil {
		t.Fatalf("expected empty body to decode to nil payload, got %s %v", payload, err)
	}
}
