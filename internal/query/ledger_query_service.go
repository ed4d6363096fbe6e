package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/servicepay/internal/ledger"
	"github.com/eaglebank/servicepay/shared/cqrs"
	"github.com/eaglebank/servicepay/shared/models"
)

// ReceiptReader looks up receipts that are no longer held by this process,
// e.g. after a restart.
type ReceiptReader interface {
	GetByID(ctx context.Context, receiptID string) (*models.ReceiptView, error)
}

type LedgerQueryService struct {
	ledger   *ledger.Ledger
	receipts ReceiptReader
}

// NewLedgerQueryService builds the read side. receipts may be nil, in which
// case only receipts issued by this process are found.
func NewLedgerQueryService(l *ledger.Ledger, receipts ReceiptReader) *LedgerQueryService {
	return &LedgerQueryService{ledger: l, receipts: receipts}
}

func (s *LedgerQueryService) ListFavoriteServices(q cqrs.ListFavoriteServicesQuery) []models.Service {
	return s.ledger.ListFavoriteServices(q.CustomerID)
}

func (s *LedgerQueryService) GetBalance(q cqrs.GetBalanceQuery) models.BalanceResult {
	return s.ledger.GetBalance(q.AccountID)
}

func (s *LedgerQueryService) GetLatestBill(q cqrs.GetLatestBillQuery) models.BillResult {
	return s.ledger.GetLatestBill(q.CustomerID, q.ServiceID)
}

// GetReceipt prefers the live ledger and falls back to the receipt read model.
func (s *LedgerQueryService) GetReceipt(ctx context.Context, q cqrs.GetReceiptQuery) (*models.ReceiptView, error) {
	if receipt, ok := s.ledger.Receipt(q.ReceiptID); ok {
		return models.ReceiptToView(receipt), nil
	}
	if s.receipts == nil {
		return nil, fmt.Errorf("receipt not found")
	}
	return s.receipts.GetByID(ctx, q.ReceiptID)
}
