package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Account struct {
	ID       string          `json:"id"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillOverdue BillStatus = "overdue"
	BillPaid    BillStatus = "paid"
)

type Bill struct {
	ID          string          `json:"billId"`
	CustomerID  string          `json:"customerId"`
	ServiceID   string          `json:"serviceId"`
	ServiceName string          `json:"serviceName"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	DueDate     time.Time       `json:"dueDate"`
	Period      string          `json:"period"`
	Status      BillStatus      `json:"status"`
}

// Receipt proves a single completed payment. Receipts are never mutated.
type Receipt struct {
	ID          string          `json:"receiptId"`
	AccountID   string          `json:"accountId"`
	ServiceID   string          `json:"serviceId"`
	ServiceName string          `json:"serviceName"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Timestamp   time.Time       `json:"timestamp"`
}
