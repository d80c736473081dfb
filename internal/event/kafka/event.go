package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event - разобранное событие транзакции из топиков created/status_changed
type Event struct {
	EventID       string
	EventType     string
	EventVersion  int
	OccurredAt    time.Time
	TransactionID string
	TryoutID      string
	UserID        string
	Amount        decimal.Decimal
	FromStatus    string
	ToStatus      string
}

// DecodeEvent разбирает JSON payload, записанный TransactionEventPublisher
func DecodeEvent(value []byte) (Event, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(value, &payload); err != nil {
		return Event{}, &ParseError{Field: "", Message: fmt.Sprintf("invalid json: %v", err)}
	}

	event := Event{}
	if v, ok := payload["event_id"].(string); ok {
		event.EventID = v
	}
	if v, ok := payload["event_version"].(float64); ok {
		event.EventVersion = int(v)
	}
	if v, ok := payload["occurred_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			event.OccurredAt = t
		}
	}
	if v, ok := payload["user_id"].(string); ok {
		event.UserID = v
	}

	eventType, ok := payload["event_type"].(string)
	if !ok {
		return event, &ParseError{Field: "event_type", Message: "event_type is required"}
	}
	event.EventType = eventType

	if v, ok := payload["transaction_id"].(string); ok && v != "" {
		event.TransactionID = v
	} else {
		return event, &ParseError{Field: "transaction_id", Message: "transaction_id is required"}
	}

	switch eventType {
	case EventTypeTransactionCreated:
		if v, ok := payload["tryout_id"].(string); ok {
			event.TryoutID = v
		}
		raw, ok := payload["amount"].(string)
		if !ok {
			return event, &ParseError{Field: "amount", Message: "amount is required"}
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return event, &ParseError{Field: "amount", Message: fmt.Sprintf("invalid amount %q", raw)}
		}
		event.Amount = amount
	case EventTypeStatusChanged:
		from, okFrom := payload["from_status"].(string)
		to, okTo := payload["to_status"].(string)
		if !okFrom || !okTo {
			return event, &ParseError{Field: "to_status", Message: "from_status and to_status are required"}
		}
		event.FromStatus = from
		event.ToStatus = to
	default:
		return event, &ParseError{Field: "event_type", Message: fmt.Sprintf("unknown event_type %q", eventType)}
	}

	return event, nil
}
