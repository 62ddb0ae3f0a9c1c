package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Envelope is the backend's standard response wrapper. Some endpoints skip
// it and return a bare JSON array, so both shapes are handled in one place
// instead of being sniffed at call sites.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

// PayloadShape tags what DecodeBody found.
type PayloadShape int

const (
	ShapeMalformed PayloadShape = iota
	ShapeArray
	ShapeEnveloped
	ShapeBareObject
)

// DecodeBody normalizes a response body to its payload. An envelope with
// success=false becomes an APIError carrying the backend's message and
// error list; statusCode is used when the envelope carries no detail.
func DecodeBody(statusCode int, body []byte) (json.RawMessage, PayloadShape, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ShapeEnveloped, nil
	}
	switch trimmed[0] {
	case '[':
		var probe []json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, ShapeMalformed, &MalformedResponseError{Detail: "invalid JSON array"}
		}
		return trimmed, ShapeArray, nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, ShapeMalformed, &MalformedResponseError{Detail: "invalid JSON object"}
		}
		if _, ok := probe["success"]; !ok {
			// Some endpoints hand back the record itself.
			return trimmed, ShapeBareObject, nil
		}
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, ShapeMalformed, &MalformedResponseError{Detail: "invalid response envelope"}
		}
		if !env.Success {
			code := statusCode
			if code < http.StatusBadRequest {
				code = http.StatusBadRequest
			}
			return nil, ShapeEnveloped, &APIError{StatusCode: code, Message: env.Message, Errors: env.Errors}
		}
		return env.Data, ShapeEnveloped, nil
	default:
		return nil, ShapeMalformed, &MalformedResponseError{Detail: "body is neither array nor object"}
	}
}
