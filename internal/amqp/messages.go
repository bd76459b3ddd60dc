package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"expenses/internal/notify"
)

// ChangeMessage announces a committed ledger change to other processes
// sharing the same store. It carries no data: receivers re-read the store.
type ChangeMessage struct {
	Origin        string      `json:"origin"`
	Kind          notify.Kind `json:"kind"`
	Category      string      `json:"category,omitempty"`
	TransactionID string      `json:"transaction_id,omitempty"`
	Timestamp     time.Time   `json:"timestamp"`
}

// NewChangeMessage builds a message for e sent by origin.
func NewChangeMessage(origin string, e notify.Event) *ChangeMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{
		Origin:        origin,
		Kind:          e.Kind,
		Category:      e.Category,
		TransactionID: e.TransactionID,
		Timestamp:     ts,
	}
}

// Event converts the message into a remote hub event.
func (m *ChangeMessage) Event() notify.Event {
	return notify.Event{
		Kind:          m.Kind,
		Category:      m.Category,
		TransactionID: m.TransactionID,
		Origin:        m.Origin,
		At:            m.Timestamp,
		Remote:        true,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON creates a message from JSON bytes
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Origin == "" || msg.Kind == "" {
		return nil, errors.New("change message requires origin and kind")
	}
	return &msg, nil
}
