package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the ledger events queue.
const (
	KindArchiveCreated = "archive_created"
	KindBucketChanged  = "bucket_changed"
)

// LedgerEventMessage notifies observers that a month's data changed. It
// carries only the month key; the consumer reads current state itself, so
// stale or redelivered messages are harmless.
type LedgerEventMessage struct {
	Kind      string    `json:"kind"`
	Month     string    `json:"month"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewArchiveCreatedMessage announces a new archive for month. Reason
// records what produced it (rollover, manual rollover, import).
func NewArchiveCreatedMessage(month, reason string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      KindArchiveCreated,
		Month:     month,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// NewBucketChangedMessage announces a mutation of the active bucket.
func NewBucketChangedMessage(month string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Kind:      KindBucketChanged,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
