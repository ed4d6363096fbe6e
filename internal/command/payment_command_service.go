package command

import (
	"context"
	"fmt"
	"log"

	"github.com/eaglebank/servicepay/internal/ledger"
	"github.com/eaglebank/servicepay/shared/cqrs"
	"github.com/eaglebank/servicepay/shared/events"
	"github.com/eaglebank/servicepay/shared/metrics"
	"github.com/eaglebank/servicepay/shared/models"
	"github.com/shopspring/decimal"
)

// ReceiptCache keeps the receipt read model current.
type ReceiptCache interface {
	CacheReceiptView(ctx context.Context, view *models.ReceiptView)
}

// ReceiptStore durably records receipts. Save must be idempotent per receipt ID.
type ReceiptStore interface {
	Save(ctx context.Context, view *models.ReceiptView) error
}

type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// PaymentCommandService executes payments against the ledger and propagates
// successful ones to the read model and the payment event stream. Any of
// cache, store and publisher may be nil when that backend is disabled.
type PaymentCommandService struct {
	ledger    *ledger.Ledger
	cache     ReceiptCache
	store     ReceiptStore
	publisher EventPublisher
}

func NewPaymentCommandService(
	l *ledger.Ledger,
	cache ReceiptCache,
	store ReceiptStore,
	publisher EventPublisher,
) *PaymentCommandService {
	return &PaymentCommandService{
		ledger:    l,
		cache:     cache,
		store:     store,
		publisher: publisher,
	}
}

// PayService always returns a result; refusals are carried in ErrorMessage.
// Projection failures after a successful debit are logged and do not change
// the result.
func (s *PaymentCommandService) PayService(ctx context.Context, cmd cqrs.PayServiceCommand) models.PaymentResult {
	settlement := s.ledger.Settle(cmd.AccountID, cmd.ServiceID, cmd.Amount)
	metrics.Payments.WithLabelValues(metrics.ResultOutcome(settlement.Result.ErrorMessage)).Inc()

	if settlement.Result.ErrorMessage != "" {
		log.Printf("Payment refused: account=%s service=%s amount=%s reason=%q",
			cmd.AccountID, cmd.ServiceID, loggableAmount(cmd.Amount), settlement.Result.ErrorMessage)
		return settlement.Result
	}

	receipt := settlement.Receipt
	if s.cache != nil {
		s.cache.CacheReceiptView(ctx, models.ReceiptToView(receipt))
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.PaymentEventsStream, events.PaymentCompleted, events.PaymentCompletedEvent{
			ReceiptID:   receipt.ID,
			AccountID:   receipt.AccountID,
			ServiceID:   receipt.ServiceID,
			ServiceName: receipt.ServiceName,
			Amount:      receipt.Amount,
			Currency:    receipt.Currency,
			PaidAt:      receipt.Timestamp,
			NewBalance:  settlement.Balance,
		}); err != nil {
			log.Printf("Failed to publish payment.completed event: %v", err)
		}
	}

	log.Printf("Payment completed: receipt=%s account=%s service=%s amount=%s balance=%s",
		receipt.ID, receipt.AccountID, receipt.ServiceID, receipt.Amount.StringFixed(2), settlement.Balance.StringFixed(2))
	return settlement.Result
}

// HandlePaymentEvent journals payment.completed events into the receipt
// store. Redelivery of the same receipt is absorbed by the store.
func (s *PaymentCommandService) HandlePaymentEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.PaymentCompleted {
		return nil
	}
	if s.store == nil {
		return fmt.Errorf("no receipt store configured")
	}

	var data events.PaymentCompletedEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}
	if data.ReceiptID == "" {
		return fmt.Errorf("payment.completed event without receipt id")
	}

	view := &models.ReceiptView{
		ReceiptID:   data.ReceiptID,
		AccountID:   data.AccountID,
		ServiceID:   data.ServiceID,
		ServiceName: data.ServiceName,
		Amount:      data.Amount,
		Currency:    data.Currency,
		PaidAt:      data.PaidAt.UTC(),
	}
	if err := s.store.Save(ctx, view); err != nil {
		return fmt.Errorf("failed to journal receipt: %w", err)
	}
	return nil
}

// loggableAmount renders amounts the ledger rejects as coefficient and
// exponent, since String would expand an extreme exponent in full.
func loggableAmount(amount decimal.Decimal) string {
	if ledger.CheckAmount(amount) == "" {
		return amount.StringFixed(2)
	}
	coef := amount.Coefficient().String()
	if len(coef) > 32 {
		coef = coef[:32] + "..."
	}
	return fmt.Sprintf("%se%d", coef, amount.Exponent())
}
