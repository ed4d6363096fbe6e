package cqrs

import "github.com/shopspring/decimal"

// PayServiceCommand debits an account to pay a catalogued service.
type PayServiceCommand struct {
	AccountID string
	ServiceID string
	Amount    decimal.Decimal
}
