package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ChangeEvent announces a mutation the finance service acknowledged.
type ChangeEvent struct {
	Kind      string          `json:"kind"`
	Op        string          `json:"op"`
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Record    json.RawMessage `json:"record,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewChangeEvent encodes record and stamps the event with the current time.
func NewChangeEvent(kind, op, id, userID string, record any) (*ChangeEvent, error) {
	ev := &ChangeEvent{
		Kind:      kind,
		Op:        op,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
	if record != nil {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode %s record: %w", kind, err)
		}
		ev.Record = raw
	}
	return ev, nil
}

// ToJSON converts the message to JSON bytes
func (m *ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeEventFromJSON parses a message and rejects events without a kind or op.
func ChangeEventFromJSON(data []byte) (*ChangeEvent, error) {
	var msg ChangeEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" || msg.Op == "" {
		return nil, errors.New("change event missing kind or op")
	}
	return &msg, nil
}

// DecodeRecord unmarshals the carried record into v.
func (m *ChangeEvent) DecodeRecord(v any) error {
	if len(m.Record) == 0 {
		return fmt.Errorf("%s %s event %s carries no record", m.Kind, m.Op, m.ID)
	}
	return json.Unmarshal(m.Record, v)
}
