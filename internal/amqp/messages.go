package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangeMessage announces that a fund event was written or removed.
// It carries the event id, the change kind and the budget month the change
// belongs to; consumers fetch the full event from the database if they need
// it.
type LedgerChangeMessage struct {
	EventID   string    `json:"event_id"`
	Change    string    `json:"change"`
	MonthKey  string    `json:"month_key"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ChangeUpserted = "UPSERTED"
	ChangeDeleted  = "DELETED"
)

func NewLedgerChangeMessage(eventID, change, monthKey string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		EventID:   eventID,
		Change:    change,
		MonthKey:  monthKey,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
