package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	EventType   string    `json:"event_type"`
	EntryID     string    `json:"entry_id"`
	MessengerID string    `json:"messenger_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Details     any       `json:"details"`
}

// Logger writes one JSON line per money movement. Every credit, hold and
// state transition lands here so the ledger can be reconciled after the fact.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogCredit(entryID, messengerID string, amount int64) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "CREDIT",
		EntryID:     entryID,
		MessengerID: messengerID,
		Amount:      amount,
		Status:      "SUCCESS",
	})
}

func (a *Logger) LogDebit(entryID, messengerID string, amount int64) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "DEBIT",
		EntryID:     entryID,
		MessengerID: messengerID,
		Amount:      amount,
		Status:      "SUCCESS",
	})
}

func (a *Logger) LogHold(eventType, entryID, messengerID string, amount int64) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   eventType, // RESERVE, COMMIT or RELEASE
		EntryID:     entryID,
		MessengerID: messengerID,
		Amount:      amount,
		Status:      "SUCCESS",
	})
}

func (a *Logger) LogTransition(entryID, messengerID, fromStatus, toStatus string) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "TRANSITION",
		EntryID:     entryID,
		MessengerID: messengerID,
		Status:      toStatus,
		Details:     map[string]string{"from": fromStatus, "to": toStatus},
	})
}

func (a *Logger) LogError(entryID, messengerID string, err error) {
	a.log(Event{
		Timestamp:   time.Now(),
		EventType:   "ERROR",
		EntryID:     entryID,
		MessengerID: messengerID,
		Status:      "FAILED",
		Details:     map[string]string{"error": err.Error()},
	})
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
