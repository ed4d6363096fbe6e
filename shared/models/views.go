package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceResult is returned by the balance inquiry. A lookup failure is
// reported through ErrorMessage, never as a Go error.
type BalanceResult struct {
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	ErrorMessage string          `json:"errorMessage"`
}

// PaymentResult carries the receipt of a payment, or the reason it was refused.
type PaymentResult struct {
	ReceiptID      string `json:"receiptId"`
	ReceiptDetails string `json:"receiptDetails"`
	ErrorMessage   string `json:"errorMessage"`
}

// BillResult is the bill inquiry payload. When no bill exists the bill fields
// stay at their zero values and ErrorMessage explains why.
type BillResult struct {
	BillID       string          `json:"billId"`
	CustomerID   string          `json:"customerId"`
	ServiceID    string          `json:"serviceId"`
	ServiceName  string          `json:"serviceName"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	DueDate      time.Time       `json:"dueDate"`
	Period       string          `json:"period"`
	Status       BillStatus      `json:"status"`
	ErrorMessage string          `json:"errorMessage"`
}

// ReceiptView is the read-optimised projection of a receipt, cached in Redis
// and served by the receipt lookup endpoint.
type ReceiptView struct {
	ReceiptID   string          `json:"receiptId"`
	AccountID   string          `json:"accountId"`
	ServiceID   string          `json:"serviceId"`
	ServiceName string          `json:"serviceName"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaidAt      time.Time       `json:"paidTimestamp"`
}

// BillToResult copies a stored bill into the inquiry payload.
func BillToResult(b Bill) BillResult {
	return BillResult{
		BillID:      b.ID,
		CustomerID:  b.CustomerID,
		ServiceID:   b.ServiceID,
		ServiceName: b.ServiceName,
		Amount:      b.Amount,
		Currency:    b.Currency,
		DueDate:     b.DueDate,
		Period:      b.Period,
		Status:      b.Status,
	}
}

// ReceiptToView converts a ledger receipt to its read view.
func ReceiptToView(r Receipt) *ReceiptView {
	return &ReceiptView{
		ReceiptID:   r.ID,
		AccountID:   r.AccountID,
		ServiceID:   r.ServiceID,
		ServiceName: r.ServiceName,
		Amount:      r.Amount,
		Currency:    r.Currency,
		PaidAt:      r.Timestamp,
	}
}
