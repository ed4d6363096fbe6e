// Package ledger is the in-memory store of accounts, services, bills and
// receipts behind the payment tools.
//
// Every business failure is reported inside the returned result
// (ErrorMessage), never as a Go error, so callers can treat each operation as
// always succeeding at the transport level.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/eaglebank/servicepay/shared/models"
	"github.com/eaglebank/servicepay/shared/utils"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrency = "S/."

	// maxReceiptIDAttempts bounds how often PayService redraws a receipt ID
	// that is already taken before refusing the payment.
	maxReceiptIDAttempts = 8

	receiptTimeLayout = "02/01/2006 15:04"

	// Amounts are whole cents up to what the receipts journal column holds.
	amountScale       = 2
	minAmountExponent = -18
	maxAmountExponent = 12
	maxAmountBits     = 128
)

var maxAmount = decimal.RequireFromString("999999999999.99")

const (
	msgInsufficientFunds = "Insufficient funds."
	msgInvalidAmount     = "Amount must be greater than zero."
	msgAmountScale       = "Amount must have at most 2 decimal places."
	msgAmountTooLarge    = "Amount exceeds the maximum of 999999999999.99."
	msgReceiptExhausted  = "Could not issue a receipt, please retry."
)

// IDGenerator mints receipt identifiers.
type IDGenerator func() string

// BillKey identifies the latest bill of one customer for one service.
type BillKey struct {
	CustomerID string
	ServiceID  string
}

type Ledger struct {
	mu sync.RWMutex

	services  map[string]models.Service
	favorites map[string][]string
	accounts  map[string]*models.Account
	bills     map[BillKey]models.Bill
	receipts  map[string]models.Receipt

	newID           IDGenerator
	now             func() time.Time
	defaultCurrency string
}

type Option func(*Ledger)

// WithIDGenerator replaces the random receipt ID generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(l *Ledger) { l.newID = gen }
}

// WithClock replaces time.Now for receipt timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithDefaultCurrency sets the currency reported for unknown accounts.
func WithDefaultCurrency(currency string) Option {
	return func(l *Ledger) { l.defaultCurrency = currency }
}

// New builds a ledger from seed. The seed is copied; later changes to it do
// not affect the ledger.
func New(seed Seed, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		services:        make(map[string]models.Service, len(seed.Services)),
		favorites:       make(map[string][]string, len(seed.Favorites)),
		accounts:        make(map[string]*models.Account, len(seed.Accounts)),
		bills:           make(map[BillKey]models.Bill, len(seed.Bills)),
		receipts:        make(map[string]models.Receipt),
		newID:           utils.GenerateReceiptID,
		now:             time.Now,
		defaultCurrency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, svc := range seed.Services {
		if _, dup := l.services[svc.ID]; dup {
			return nil, fmt.Errorf("duplicate service %s", svc.ID)
		}
		l.services[svc.ID] = svc
	}
	for _, acct := range seed.Accounts {
		if _, dup := l.accounts[acct.ID]; dup {
			return nil, fmt.Errorf("duplicate account %s", acct.ID)
		}
		if acct.Balance.IsNegative() {
			return nil, fmt.Errorf("account %s has a negative balance", acct.ID)
		}
		a := acct
		l.accounts[acct.ID] = &a
	}
	for customerID, ids := range seed.Favorites {
		l.favorites[customerID] = append([]string(nil), ids...)
	}
	for _, bill := range seed.Bills {
		key := BillKey{CustomerID: bill.CustomerID, ServiceID: bill.ServiceID}
		if _, dup := l.bills[key]; dup {
			return nil, fmt.Errorf("duplicate bill for customer %s and service %s", key.CustomerID, key.ServiceID)
		}
		l.bills[key] = bill
	}

	return l, nil
}

// ListFavoriteServices returns the customer's favorite services in the order
// they were marked. Unknown customers and services missing from the catalog
// yield no entries.
func (l *Ledger) ListFavoriteServices(customerID string) []models.Service {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.favorites[customerID]
	out := make([]models.Service, 0, len(ids))
	for _, id := range ids {
		if svc, ok := l.services[id]; ok {
			out = append(out, svc)
		}
	}
	return out
}

func (l *Ledger) GetBalance(accountID string) models.BalanceResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		return models.BalanceResult{
			Balance:      decimal.Zero,
			Currency:     l.defaultCurrency,
			ErrorMessage: accountNotFound(accountID),
		}
	}
	return models.BalanceResult{Balance: acct.Balance, Currency: acct.Currency}
}

// Settlement is the full outcome of a payment. Receipt and Balance are only
// set when Result carries no error.
type Settlement struct {
	Result  models.PaymentResult
	Receipt models.Receipt
	Balance decimal.Decimal
}

// PayService debits amount from the account and issues a receipt.
func (l *Ledger) PayService(accountID, serviceID string, amount decimal.Decimal) models.PaymentResult {
	return l.Settle(accountID, serviceID, amount).Result
}

// Settle is PayService returning the issued receipt and the balance left
// right after the debit. The balance check, the debit and the receipt insert
// happen under one write lock, so concurrent payments cannot overdraw an
// account and a refused payment leaves no trace.
func (l *Ledger) Settle(accountID, serviceID string, amount decimal.Decimal) Settlement {
	if msg := CheckAmount(amount); msg != "" {
		return refused(msg)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		return refused(accountNotFound(accountID))
	}
	if acct.Balance.LessThan(amount) {
		return refused(msgInsufficientFunds)
	}
	svc, ok := l.services[serviceID]
	if !ok {
		return refused(fmt.Sprintf("Service %s not found.", serviceID))
	}

	receiptID, ok := l.unusedReceiptID()
	if !ok {
		return refused(msgReceiptExhausted)
	}

	receipt := models.Receipt{
		ID:          receiptID,
		AccountID:   accountID,
		ServiceID:   serviceID,
		ServiceName: svc.Name,
		Amount:      amount,
		Currency:    acct.Currency,
		Timestamp:   l.now().UTC(),
	}
	acct.Balance = acct.Balance.Sub(amount)
	l.receipts[receiptID] = receipt

	return Settlement{
		Result: models.PaymentResult{
			ReceiptID:      receiptID,
			ReceiptDetails: receiptDetails(receipt),
		},
		Receipt: receipt,
		Balance: acct.Balance,
	}
}

// CheckAmount returns the refusal message for an amount PayService would not
// accept, or "" if it is payable. Only the sign, exponent and coefficient size
// are inspected before any comparison, since comparing decimals rescales them
// to a common exponent.
func CheckAmount(amount decimal.Decimal) string {
	if !amount.IsPositive() {
		return msgInvalidAmount
	}
	exp := amount.Exponent()
	if exp < minAmountExponent {
		return msgAmountScale
	}
	if exp > maxAmountExponent || amount.Coefficient().BitLen() > maxAmountBits {
		return msgAmountTooLarge
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return msgAmountScale
	}
	if amount.GreaterThan(maxAmount) {
		return msgAmountTooLarge
	}
	return ""
}

// GetLatestBill looks up the bill for (customerID, serviceID). When there is
// none, the result says whether the service itself is unknown.
func (l *Ledger) GetLatestBill(customerID, serviceID string) models.BillResult {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if bill, ok := l.bills[BillKey{CustomerID: customerID, ServiceID: serviceID}]; ok {
		return models.BillToResult(bill)
	}

	svc, ok := l.services[serviceID]
	if !ok {
		return models.BillResult{ErrorMessage: fmt.Sprintf("Servicio %s no encontrado.", serviceID)}
	}
	return models.BillResult{
		ServiceID:    serviceID,
		ServiceName:  svc.Name,
		ErrorMessage: fmt.Sprintf("No se encontró factura pendiente para %s.", svc.Name),
	}
}

// Receipt returns an issued receipt.
func (l *Ledger) Receipt(receiptID string) (models.Receipt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.receipts[receiptID]
	return r, ok
}

// unusedReceiptID must be called with l.mu held for writing.
func (l *Ledger) unusedReceiptID() (string, bool) {
	for i := 0; i < maxReceiptIDAttempts; i++ {
		id := l.newID()
		if id == "" {
			continue
		}
		if _, taken := l.receipts[id]; !taken {
			return id, true
		}
	}
	return "", false
}

func refused(message string) Settlement {
	return Settlement{Result: models.PaymentResult{ErrorMessage: message}}
}

func accountNotFound(accountID string) string {
	return fmt.Sprintf("Account %s not found.", accountID)
}

func receiptDetails(r models.Receipt) string {
	return fmt.Sprintf("Pago de %s %s a %s realizado exitosamente. Fecha: %s",
		r.Amount.StringFixed(2), r.Currency, r.ServiceName, r.Timestamp.Format(receiptTimeLayout))
}
