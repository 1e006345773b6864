package events

import (
	"encoding/json"
	"time"
)

// AnalysisCompletedMessage announces that a statement analysis finished and
// a new transaction store was installed. Consumers interested in the data
// itself fetch it from the dashboard; the message stays lightweight.
type AnalysisCompletedMessage struct {
	SessionID       string    `json:"session_id"`
	Files           int       `json:"files"`
	Transactions    int       `json:"transactions"`
	TotalSpentCents int64     `json:"total_spent_cents"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewAnalysisCompletedMessage creates a message stamped with the current time.
func NewAnalysisCompletedMessage(sessionID string, files, transactions int, totalSpentCents int64) *AnalysisCompletedMessage {
	return &AnalysisCompletedMessage{
		SessionID:       sessionID,
		Files:           files,
		Transactions:    transactions,
		TotalSpentCents: totalSpentCents,
		Timestamp:       time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AnalysisCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AnalysisCompletedMessageFromJSON creates a message from JSON bytes
func AnalysisCompletedMessageFromJSON(data []byte) (*AnalysisCompletedMessage, error) {
	var msg AnalysisCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
