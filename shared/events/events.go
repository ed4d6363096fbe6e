package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	PaymentCompleted = "payment.completed"
)

// Stream names
const (
	PaymentEventsStream = "payment.events"
)

// Event is the envelope written to every stream entry.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Payment events
type PaymentCompletedEvent struct {
	ReceiptID   string          `json:"receiptId"`
	AccountID   string          `json:"accountId"`
	ServiceID   string          `json:"serviceId"`
	ServiceName string          `json:"serviceName"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaidAt      time.Time       `json:"paidAt"`
	NewBalance  decimal.Decimal `json:"newBalance"`
}
