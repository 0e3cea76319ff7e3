package amqp

import (
	"encoding/json"
	"time"
)

// EventType names the repository mutation an event describes
type EventType string

const (
	EventCreated  EventType = "expense.created"
	EventDeleted  EventType = "expense.deleted"
	EventRestored EventType = "expense.restored"
)

// ExpenseEvent is a change notification for local automations. It carries
// the record itself so consumers never need to read the store.
type ExpenseEvent struct {
	Type        EventType `json:"type"`
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Note        string    `json:"note"`
	Index       int       `json:"index"`
	Timestamp   int64     `json:"timestamp"`
	EmittedAt   time.Time `json:"emitted_at"`
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseEventFromJSON creates an event from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var ev ExpenseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
