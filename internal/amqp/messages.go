package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

var ErrInvalidMessage = errors.New("invalid expense event")

// ExpenseEventMessage announces a change to an expense. It carries ids only;
// consumers fetch the record from the store.
type ExpenseEventMessage struct {
	EventID   uuid.UUID `json:"event_id"`
	Action    string    `json:"action"`
	ExpenseID int64     `json:"expense_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent creates a new event with a fresh id
func NewExpenseEvent(action string, userID, expenseID int64) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		EventID:   uuid.New(),
		Action:    action,
		ExpenseID: expenseID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEventMessage) Validate() error {
	if m.Action != ActionCreated && m.Action != ActionDeleted {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidMessage, m.Action)
	}
	if m.ExpenseID <= 0 {
		return fmt.Errorf("%w: expense id %d", ErrInvalidMessage, m.ExpenseID)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and validates a message
func ExpenseEventFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
