package ledger

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eaglebank/servicepay/shared/models"
	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2025, 11, 19, 15, 4, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	l, err := New(DefaultSeed(fixedNow), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

// sequentialIDs returns a generator yielding RCP-00000001, RCP-00000002, ...
func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("RCP-%08d", n)
	}
}

func TestGetBalance(t *testing.T) {
	l := newTestLedger(t)

	tests := []struct {
		name         string
		accountID    string
		wantBalance  string
		wantCurrency string
		wantError    string
	}{
		{name: "known account", accountID: "acct-123", wantBalance: "1000.50", wantCurrency: "S/."},
		{name: "second account", accountID: "acct-124", wantBalance: "250.00", wantCurrency: "S/."},
		{name: "unknown account", accountID: "acct-999", wantBalance: "0", wantCurrency: "S/.", wantError: "Account acct-999 not found."},
		{name: "empty id", accountID: "", wantBalance: "0", wantCurrency: "S/.", wantError: "Account  not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.GetBalance(tt.accountID)
			if !got.Balance.Equal(dec(tt.wantBalance)) {
				t.Errorf("balance = %s, want %s", got.Balance, tt.wantBalance)
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("currency = %q, want %q", got.Currency, tt.wantCurrency)
			}
			if got.ErrorMessage != tt.wantError {
				t.Errorf("errorMessage = %q, want %q", got.ErrorMessage, tt.wantError)
			}
		})
	}
}

func TestGetBalance_DefaultCurrencyOption(t *testing.T) {
	l := newTestLedger(t, WithDefaultCurrency("PEN"))
	if got := l.GetBalance("nope"); got.Currency != "PEN" {
		t.Errorf("currency = %q, want PEN", got.Currency)
	}
}

func TestPayService_Success(t *testing.T) {
	l := newTestLedger(t, WithIDGenerator(sequentialIDs()))

	res := l.PayService("acct-123", "SVC001", dec("85.50"))
	if res.ErrorMessage != "" {
		t.Fatalf("unexpected error: %s", res.ErrorMessage)
	}
	if res.ReceiptID != "RCP-00000001" {
		t.Errorf("receiptId = %q, want RCP-00000001", res.ReceiptID)
	}
	for _, want := range []string{"85.50", "S/.", "Luz del Sur", "19/11/2025 15:04"} {
		if !strings.Contains(res.ReceiptDetails, want) {
			t.Errorf("receiptDetails %q missing %q", res.ReceiptDetails, want)
		}
	}

	if bal := l.GetBalance("acct-123"); !bal.Balance.Equal(dec("915.00")) {
		t.Errorf("balance after payment = %s, want 915.00", bal.Balance)
	}

	receipt, ok := l.Receipt(res.ReceiptID)
	if !ok {
		t.Fatal("receipt was not recorded")
	}
	want := models.Receipt{
		ID: "RCP-00000001", AccountID: "acct-123", ServiceID: "SVC001", ServiceName: "Luz del Sur",
		Amount: dec("85.50"), Currency: "S/.", Timestamp: fixedNow,
	}
	if receipt.ID != want.ID || receipt.AccountID != want.AccountID || receipt.ServiceID != want.ServiceID ||
		receipt.ServiceName != want.ServiceName || !receipt.Amount.Equal(want.Amount) ||
		receipt.Currency != want.Currency || !receipt.Timestamp.Equal(want.Timestamp) {
		t.Errorf("receipt = %+v, want %+v", receipt, want)
	}
	if receipt.Timestamp.Location() != time.UTC {
		t.Errorf("receipt timestamp not UTC: %v", receipt.Timestamp.Location())
	}
}

func TestPayService_Refusals(t *testing.T) {
	tests := []struct {
		name      string
		accountID string
		serviceID string
		amount    string
		wantError string
	}{
		{name: "insufficient funds", accountID: "acct-124", serviceID: "SVC001", amount: "9999.00", wantError: "Insufficient funds."},
		{name: "unknown account", accountID: "acct-999", serviceID: "SVC001", amount: "10", wantError: "Account acct-999 not found."},
		{name: "unknown service", accountID: "acct-124", serviceID: "SVC999", amount: "10", wantError: "Service SVC999 not found."},
		{name: "account checked before service", accountID: "acct-999", serviceID: "SVC999", amount: "10", wantError: "Account acct-999 not found."},
		{name: "funds checked before service", accountID: "acct-124", serviceID: "SVC999", amount: "250.01", wantError: "Insufficient funds."},
		{name: "zero amount", accountID: "acct-124", serviceID: "SVC001", amount: "0", wantError: "Amount must be greater than zero."},
		{name: "negative amount", accountID: "acct-124", serviceID: "SVC001", amount: "-5", wantError: "Amount must be greater than zero."},
		{name: "sub-cent amount", accountID: "acct-124", serviceID: "SVC001", amount: "0.004", wantError: "Amount must have at most 2 decimal places."},
		{name: "fractional cent", accountID: "acct-124", serviceID: "SVC001", amount: "10.125", wantError: "Amount must have at most 2 decimal places."},
		{name: "huge negative exponent", accountID: "acct-124", serviceID: "SVC001", amount: "1e-10000000", wantError: "Amount must have at most 2 decimal places."},
		{name: "huge positive exponent", accountID: "acct-124", serviceID: "SVC001", amount: "1e10000000", wantError: "Amount exceeds the maximum of 999999999999.99."},
		{name: "above journal maximum", accountID: "acct-124", serviceID: "SVC001", amount: "1000000000000", wantError: "Amount exceeds the maximum of 999999999999.99."},
		{name: "long coefficient", accountID: "acct-124", serviceID: "SVC001", amount: strings.Repeat("9", 60) + "e-2", wantError: "Amount exceeds the maximum of 999999999999.99."},
		{name: "amount checked before account", accountID: "acct-999", serviceID: "SVC001", amount: "0.001", wantError: "Amount must have at most 2 decimal places."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			before := l.GetBalance("acct-124").Balance

			res := l.PayService(tt.accountID, tt.serviceID, dec(tt.amount))
			if res.ErrorMessage != tt.wantError {
				t.Errorf("errorMessage = %q, want %q", res.ErrorMessage, tt.wantError)
			}
			if res.ReceiptID != "" || res.ReceiptDetails != "" {
				t.Errorf("refused payment returned receipt fields: %+v", res)
			}
			if after := l.GetBalance("acct-124").Balance; !after.Equal(before) {
				t.Errorf("balance changed from %s to %s", before, after)
			}
			if len(l.receipts) != 0 {
				t.Errorf("refused payment stored %d receipts", len(l.receipts))
			}
		})
	}
}

func TestPayService_ExtremeExponentsAreCheap(t *testing.T) {
	l := newTestLedger(t)
	start := time.Now()
	for _, amount := range []string{"1e10000000", "1e-10000000", "-1e10000000"} {
		if res := l.PayService("acct-123", "SVC001", dec(amount)); res.ErrorMessage == "" {
			t.Errorf("amount %s was accepted", amount)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("refusing extreme amounts took %s", elapsed)
	}
}

func TestCheckAmount_AcceptsCents(t *testing.T) {
	for _, amount := range []string{"0.01", "85.5", "85.500", "1e2", "999999999999.99"} {
		if msg := CheckAmount(dec(amount)); msg != "" {
			t.Errorf("CheckAmount(%s) = %q, want accepted", amount, msg)
		}
	}
}

func TestPayService_ExactBalance(t *testing.T) {
	l := newTestLedger(t)
	res := l.PayService("acct-124", "SVC002", dec("250.00"))
	if res.ErrorMessage != "" {
		t.Fatalf("paying the whole balance should succeed: %s", res.ErrorMessage)
	}
	if bal := l.GetBalance("acct-124").Balance; !bal.IsZero() {
		t.Errorf("balance = %s, want 0", bal)
	}
	if res := l.PayService("acct-124", "SVC002", dec("0.01")); res.ErrorMessage != "Insufficient funds." {
		t.Errorf("errorMessage = %q, want Insufficient funds.", res.ErrorMessage)
	}
}

func TestPayService_IdenticalPaymentsAreDistinct(t *testing.T) {
	l := newTestLedger(t)

	first := l.PayService("acct-123", "SVC004", dec("44.90"))
	second := l.PayService("acct-123", "SVC004", dec("44.90"))
	if first.ErrorMessage != "" || second.ErrorMessage != "" {
		t.Fatalf("unexpected errors: %q / %q", first.ErrorMessage, second.ErrorMessage)
	}
	if first.ReceiptID == second.ReceiptID {
		t.Fatalf("identical payments shared receipt id %s", first.ReceiptID)
	}
	if bal := l.GetBalance("acct-123").Balance; !bal.Equal(dec("910.70")) {
		t.Errorf("balance = %s, want 910.70", bal)
	}
}

func TestPayService_RedrawsTakenReceiptID(t *testing.T) {
	ids := []string{"RCP-AAAAAAAA", "RCP-AAAAAAAA", "", "RCP-BBBBBBBB"}
	i := 0
	gen := func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
	l := newTestLedger(t, WithIDGenerator(gen))

	first := l.PayService("acct-123", "SVC001", dec("1"))
	second := l.PayService("acct-123", "SVC001", dec("1"))
	if first.ReceiptID != "RCP-AAAAAAAA" || second.ReceiptID != "RCP-BBBBBBBB" {
		t.Fatalf("receipt ids = %q, %q", first.ReceiptID, second.ReceiptID)
	}
}

func TestPayService_ReceiptIDsExhausted(t *testing.T) {
	l := newTestLedger(t, WithIDGenerator(func() string { return "RCP-SAMESAME" }))

	if res := l.PayService("acct-123", "SVC001", dec("1")); res.ErrorMessage != "" {
		t.Fatalf("first payment failed: %s", res.ErrorMessage)
	}
	res := l.PayService("acct-123", "SVC001", dec("1"))
	if res.ErrorMessage != "Could not issue a receipt, please retry." {
		t.Fatalf("errorMessage = %q", res.ErrorMessage)
	}
	if bal := l.GetBalance("acct-123").Balance; !bal.Equal(dec("999.50")) {
		t.Errorf("balance = %s, want 999.50 (second payment must not debit)", bal)
	}
}

func TestSettle_ReportsBalanceAfterDebit(t *testing.T) {
	l := newTestLedger(t)
	s := l.Settle("acct-123", "SVC005", dec("120.00"))
	if s.Result.ErrorMessage != "" {
		t.Fatalf("unexpected error: %s", s.Result.ErrorMessage)
	}
	if !s.Balance.Equal(dec("880.50")) {
		t.Errorf("balance = %s, want 880.50", s.Balance)
	}
	if s.Receipt.ID != s.Result.ReceiptID || s.Receipt.ServiceName != "Movistar Hogar" {
		t.Errorf("receipt = %+v", s.Receipt)
	}
}

func TestPayService_ConcurrentNeverOverdraws(t *testing.T) {
	l := newTestLedger(t)

	const workers = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		receipts = make(map[string]bool)
		paid     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := l.PayService("acct-124", "SVC002", dec("10.00"))
			if res.ErrorMessage != "" {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if receipts[res.ReceiptID] {
				t.Errorf("receipt id %s issued twice", res.ReceiptID)
			}
			receipts[res.ReceiptID] = true
			paid++
		}()
	}
	wg.Wait()

	if paid != 25 {
		t.Errorf("successful payments = %d, want 25", paid)
	}
	if bal := l.GetBalance("acct-124").Balance; !bal.IsZero() {
		t.Errorf("balance = %s, want 0", bal)
	}
}

func TestListFavoriteServices(t *testing.T) {
	l := newTestLedger(t)

	tests := []struct {
		customerID string
		want       []string
	}{
		{customerID: "cust-1", want: []string{"SVC001", "SVC002", "SVC004"}},
		{customerID: "cust-2", want: []string{"SVC003", "SVC005"}},
		{customerID: "cust-3", want: []string{"SVC001", "SVC003", "SVC004", "SVC005"}},
		{customerID: "cust-404", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.customerID, func(t *testing.T) {
			got := l.ListFavoriteServices(tt.customerID)
			if got == nil {
				t.Fatal("expected empty slice, got nil")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d services, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}

	if got := l.ListFavoriteServices("cust-2"); got[0].Name != "Claro Móvil" || got[1].Category != "Internet" {
		t.Errorf("unexpected service records: %+v", got)
	}
}

func TestListFavoriteServices_SkipsUnknownServices(t *testing.T) {
	seed := DefaultSeed(fixedNow)
	seed.Favorites = map[string][]string{
		"cust-x": {"SVC404", "SVC002", "SVC405"},
		"cust-y": {"SVC404"},
	}
	l, err := New(seed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := l.ListFavoriteServices("cust-x"); len(got) != 1 || got[0].ID != "SVC002" {
		t.Errorf("cust-x favorites = %+v, want only SVC002", got)
	}
	if got := l.ListFavoriteServices("cust-y"); len(got) != 0 {
		t.Errorf("cust-y favorites = %+v, want none", got)
	}
}

func TestGetLatestBill(t *testing.T) {
	l := newTestLedger(t)

	t.Run("existing bill", func(t *testing.T) {
		got := l.GetLatestBill("cust-1", "SVC001")
		if got.ErrorMessage != "" {
			t.Fatalf("unexpected error: %s", got.ErrorMessage)
		}
		if got.BillID != "BILL-001" || got.ServiceName != "Luz del Sur" || got.Period != "Noviembre 2025" ||
			got.Status != models.BillPending || got.Currency != "S/." || !got.Amount.Equal(dec("85.50")) {
			t.Errorf("unexpected bill: %+v", got)
		}
		if !got.DueDate.Equal(fixedNow.AddDate(0, 0, 15)) {
			t.Errorf("dueDate = %v", got.DueDate)
		}
	})

	t.Run("overdue bill", func(t *testing.T) {
		got := l.GetLatestBill("cust-3", "SVC001")
		if got.Status != models.BillOverdue || !got.DueDate.Before(fixedNow) {
			t.Errorf("unexpected bill: %+v", got)
		}
	})

	t.Run("known service without bill", func(t *testing.T) {
		got := l.GetLatestBill("cust-1", "SVC003")
		if got.ServiceID != "SVC003" || got.ServiceName != "Claro Móvil" {
			t.Errorf("service fields = %q / %q", got.ServiceID, got.ServiceName)
		}
		if got.ErrorMessage != "No se encontró factura pendiente para Claro Móvil." {
			t.Errorf("errorMessage = %q", got.ErrorMessage)
		}
		if got.BillID != "" || got.CustomerID != "" || !got.Amount.IsZero() || !got.DueDate.IsZero() ||
			got.Period != "" || got.Status != "" || got.Currency != "" {
			t.Errorf("bill fields should be empty: %+v", got)
		}
	})

	t.Run("unknown service", func(t *testing.T) {
		got := l.GetLatestBill("cust-1", "SVC999")
		want := models.BillResult{ErrorMessage: "Servicio SVC999 no encontrado."}
		if got.ErrorMessage != want.ErrorMessage || got.ServiceID != "" || got.ServiceName != "" {
			t.Errorf("got %+v, want only the error message", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := l.GetLatestBill("cust-2", "SVC005")
		b := l.GetLatestBill("cust-2", "SVC005")
		if a.BillID != b.BillID || !a.Amount.Equal(b.Amount) || !a.DueDate.Equal(b.DueDate) || a.ErrorMessage != b.ErrorMessage {
			t.Errorf("repeated calls differ: %+v vs %+v", a, b)
		}
	})

	t.Run("payment does not settle the bill", func(t *testing.T) {
		if res := l.PayService("acct-123", "SVC003", dec("59.90")); res.ErrorMessage != "" {
			t.Fatalf("payment failed: %s", res.ErrorMessage)
		}
		if got := l.GetLatestBill("cust-2", "SVC003"); got.Status != models.BillPending {
			t.Errorf("status = %q, want pending", got.Status)
		}
	})
}

func TestBillKey_NoDelimiterCollision(t *testing.T) {
	seed := Seed{
		Services: []models.Service{{ID: "b:c", Name: "Colon"}, {ID: "c", Name: "Plain"}},
		Bills: []models.Bill{
			{ID: "B1", CustomerID: "a", ServiceID: "b:c"},
			{ID: "B2", CustomerID: "a:b", ServiceID: "c"},
		},
	}
	l, err := New(seed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := l.GetLatestBill("a", "b:c"); got.BillID != "B1" {
		t.Errorf("got %q, want B1", got.BillID)
	}
	if got := l.GetLatestBill("a:b", "c"); got.BillID != "B2" {
		t.Errorf("got %q, want B2", got.BillID)
	}
}

func TestNew_RejectsInconsistentSeed(t *testing.T) {
	tests := []struct {
		name string
		seed Seed
	}{
		{name: "duplicate service", seed: Seed{Services: []models.Service{{ID: "S"}, {ID: "S"}}}},
		{name: "duplicate account", seed: Seed{Accounts: []models.Account{{ID: "A"}, {ID: "A"}}}},
		{name: "negative balance", seed: Seed{Accounts: []models.Account{{ID: "A", Balance: dec("-1")}}}},
		{name: "duplicate bill key", seed: Seed{Bills: []models.Bill{
			{ID: "B1", CustomerID: "c", ServiceID: "s"},
			{ID: "B2", CustomerID: "c", ServiceID: "s"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.seed); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_CopiesSeed(t *testing.T) {
	seed := DefaultSeed(fixedNow)
	l, err := New(seed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seed.Favorites["cust-2"][0] = "SVC001"
	seed.Accounts[0].Balance = dec("1")

	if got := l.ListFavoriteServices("cust-2"); got[0].ID != "SVC003" {
		t.Errorf("favorites aliased seed slice: %+v", got)
	}
	if got := l.GetBalance("acct-123"); !got.Balance.Equal(dec("1000.50")) {
		t.Errorf("balance aliased seed: %s", got.Balance)
	}
}
