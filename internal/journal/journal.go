// Package journal keeps a local append-only record of write actions made
// through this client (inspection decisions, decommissioning requests and
// reviews). It exists for support and audit on the operator's machine; no
// state decision ever reads from it, the backend stays authoritative.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

type Entry struct {
	ID          string `json:"id"`
	TS          string `json:"ts" format:"date-time"`
	Action      string `json:"action"`
	DeviceID    int64  `json:"device_id,omitempty"`
	RequestID   int64  `json:"request_id,omitempty"`
	ActorID     int64  `json:"actor_id"`
	PayloadJSON string `json:"payload_json"`
}

func (w Writer) Append(ctx context.Context, action string, deviceID, requestID, actorID int64, payload Payload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal journal payload: %w", err)
	}
	_, err = w.DB.ExecContext(ctx, `INSERT INTO journal(id,ts,action,device_id,request_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		uuid.New().String(), ts, action, nullableID(deviceID), nullableID(requestID), actorID, string(data))
	return err
}

// Tail returns the most recent entries, newest first.
func (w Writer) Tail(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := w.DB.QueryContext(ctx, `SELECT id,ts,action,COALESCE(device_id,0),COALESCE(request_id,0),actor_id,payload_json FROM journal ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TS, &e.Action, &e.DeviceID, &e.RequestID, &e.ActorID, &e.PayloadJSON); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableID(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
