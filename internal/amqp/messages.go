package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger change operations.
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpImport = "import" // seed or legacy batch
)

// LedgerChangeMessage tells consumers that a year of the ledger changed. It
// carries no amounts; consumers re-read the store.
type LedgerChangeMessage struct {
	Year      string    `json:"year"`
	Operation string    `json:"operation"`
	EntryID   string    `json:"entry_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangeMessage(year, operation, entryID string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Year:      year,
		Operation: operation,
		EntryID:   entryID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes and validates a message body.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if len(msg.Year) != 4 {
		return nil, fmt.Errorf("invalid year %q", msg.Year)
	}
	switch msg.Operation {
	case OpCreate, OpDelete, OpImport:
	default:
		return nil, fmt.Errorf("unknown operation %q", msg.Operation)
	}
	return &msg, nil
}
