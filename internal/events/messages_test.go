package events

import (
	"testing"
	"time"
)

func TestNewAnalysisCompletedMessage(t *testing.T) {
	before := time.Now()
	msg := NewAnalysisCompletedMessage("sess-1", 2, 42, 123456)
	after := time.Now()

	if msg.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want %q", msg.SessionID, "sess-1")
	}
	if msg.Files != 2 {
		t.Errorf("Files = %d, want 2", msg.Files)
	}
	if msg.Transactions != 42 {
		t.Errorf("Transactions = %d, want 42", msg.Transactions)
	}
	if msg.TotalSpentCents != 123456 {
		t.Errorf("TotalSpentCents = %d, want 123456", msg.TotalSpentCents)
	}
	if msg.Timestamp.Before(before) || msg.Timestamp.After(after) {
		t.Errorf("Timestamp %v outside [%v, %v]", msg.Timestamp, before, after)
	}
}

func TestAnalysisCompletedMessageRoundTrip(t *testing.T) {
	orig := NewAnalysisCompletedMessage("sess-2", 1, 7, -500)

	data, err := orig.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	got, err := AnalysisCompletedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("AnalysisCompletedMessageFromJSON() error = %v", err)
	}

	if got.SessionID != orig.SessionID {
		t.Errorf("SessionID = %q, want %q", got.SessionID, orig.SessionID)
	}
	if got.Transactions != orig.Transactions {
		t.Errorf("Transactions = %d, want %d", got.Transactions, orig.Transactions)
	}
	if got.TotalSpentCents != orig.TotalSpentCents {
		t.Errorf("TotalSpentCents = %d, want %d", got.TotalSpentCents, orig.TotalSpentCents)
	}
	if !got.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, orig.Timestamp)
	}
}

func TestAnalysisCompletedMessageFromJSONInvalid(t *testing.T) {
	if _, err := AnalysisCompletedMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
