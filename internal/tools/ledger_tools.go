package tools

import (
	"context"

	"github.com/eaglebank/servicepay/shared/cqrs"
	"github.com/eaglebank/servicepay/shared/models"
	"github.com/shopspring/decimal"
)

// Tool names as seen by callers.
const (
	ListFavoriteServicesTool = "ListFavoriteServices"
	GetBalanceTool           = "GetBalance"
	PayServiceTool           = "PayService"
	GetLatestBillTool        = "GetLatestBill"
)

// PaymentCommander defines the write-side operations the ledger tools use.
type PaymentCommander interface {
	PayService(ctx context.Context, cmd cqrs.PayServiceCommand) models.PaymentResult
}

// LedgerQuerier defines the read-side operations the ledger tools use.
type LedgerQuerier interface {
	ListFavoriteServices(cqrs.ListFavoriteServicesQuery) []models.Service
	GetBalance(cqrs.GetBalanceQuery) models.BalanceResult
	GetLatestBill(cqrs.GetLatestBillQuery) models.BillResult
}

type ListFavoriteServicesArgs struct {
	CustomerID string `json:"customerId" validate:"required,max=64,printascii"`
}

type GetBalanceArgs struct {
	AccountID string `json:"accountId" validate:"required,max=64,printascii"`
}

type PayServiceArgs struct {
	AccountID string           `json:"accountId" validate:"required,max=64,printascii"`
	ServiceID string           `json:"serviceId" validate:"required,max=64,printascii"`
	Amount    *decimal.Decimal `json:"amount" validate:"required"`
}

type GetLatestBillArgs struct {
	CustomerID string `json:"customerId" validate:"required,max=64,printascii"`
	ServiceID  string `json:"serviceId" validate:"required,max=64,printascii"`
}

// NewLedgerRegistry registers the four ledger tools.
func NewLedgerRegistry(commands PaymentCommander, queries LedgerQuerier) *Registry {
	r := NewRegistry()

	Register(r, ListFavoriteServicesTool,
		"List favorite services for a customer.",
		objectSchema(map[string]any{
			"customerId": property("string", "Customer identifier."),
		}, "customerId"),
		func(_ context.Context, args ListFavoriteServicesArgs) any {
			return queries.ListFavoriteServices(cqrs.ListFavoriteServicesQuery{CustomerID: args.CustomerID})
		})

	Register(r, GetBalanceTool,
		"Get the balance of an account.",
		objectSchema(map[string]any{
			"accountId": property("string", "Account identifier."),
		}, "accountId"),
		func(_ context.Context, args GetBalanceArgs) any {
			return queries.GetBalance(cqrs.GetBalanceQuery{AccountID: args.AccountID})
		})

	Register(r, PayServiceTool,
		"Execute a payment for a service.",
		objectSchema(map[string]any{
			"accountId": property("string", "Account identifier."),
			"serviceId": property("string", "Service identifier."),
			"amount":    property("number", "Amount to pay."),
		}, "accountId", "serviceId", "amount"),
		func(ctx context.Context, args PayServiceArgs) any {
			return commands.PayService(ctx, cqrs.PayServiceCommand{
				AccountID: args.AccountID,
				ServiceID: args.ServiceID,
				Amount:    *args.Amount,
			})
		})

	Register(r, GetLatestBillTool,
		"Get the latest bill for a customer and service.",
		objectSchema(map[string]any{
			"customerId": property("string", "Customer identifier."),
			"serviceId":  property("string", "Service identifier."),
		}, "customerId", "serviceId"),
		func(_ context.Context, args GetLatestBillArgs) any {
			return queries.GetLatestBill(cqrs.GetLatestBillQuery{CustomerID: args.CustomerID, ServiceID: args.ServiceID})
		})

	return r
}
