package ledger

import (
	"fmt"
	"time"

	"github.com/eaglebank/servicepay/shared/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Seed is the fixed data a ledger starts from.
type Seed struct {
	Services  []models.Service
	Accounts  []models.Account
	Favorites map[string][]string
	Bills     []models.Bill
}

// DefaultSeed returns the demo catalog, accounts and bills. Bill due dates
// are relative to now.
func DefaultSeed(now time.Time) Seed {
	services := []models.Service{
		{ID: "SVC001", Name: "Luz del Sur", Category: "Electricidad"},
		{ID: "SVC002", Name: "Sedapal", Category: "Agua"},
		{ID: "SVC003", Name: "Claro Móvil", Category: "Telefonía"},
		{ID: "SVC004", Name: "Netflix", Category: "Streaming"},
		{ID: "SVC005", Name: "Movistar Hogar", Category: "Internet"},
	}
	names := make(map[string]string, len(services))
	for _, s := range services {
		names[s.ID] = s.Name
	}

	bill := func(id, customerID, serviceID, amount string, dueInDays int, period string, status models.BillStatus) models.Bill {
		return models.Bill{
			ID:          id,
			CustomerID:  customerID,
			ServiceID:   serviceID,
			ServiceName: names[serviceID],
			Amount:      decimal.RequireFromString(amount),
			Currency:    DefaultCurrency,
			DueDate:     now.AddDate(0, 0, dueInDays),
			Period:      period,
			Status:      status,
		}
	}

	return Seed{
		Services: services,
		Accounts: []models.Account{
			{ID: "acct-123", Balance: decimal.RequireFromString("1000.50"), Currency: DefaultCurrency},
			{ID: "acct-124", Balance: decimal.RequireFromString("250.00"), Currency: DefaultCurrency},
		},
		Favorites: map[string][]string{
			"cust-1": {"SVC001", "SVC002", "SVC004"},
			"cust-2": {"SVC003", "SVC005"},
			"cust-3": {"SVC001", "SVC003", "SVC004", "SVC005"},
		},
		Bills: []models.Bill{
			bill("BILL-001", "cust-1", "SVC001", "85.50", 15, "Noviembre 2025", models.BillPending),
			bill("BILL-002", "cust-1", "SVC002", "42.30", 10, "Noviembre 2025", models.BillPending),
			bill("BILL-003", "cust-1", "SVC004", "44.90", 5, "Diciembre 2025", models.BillPending),
			bill("BILL-004", "cust-2", "SVC003", "59.90", 8, "Diciembre 2025", models.BillPending),
			bill("BILL-005", "cust-2", "SVC005", "120.00", 20, "Diciembre 2025", models.BillPending),
			bill("BILL-006", "cust-3", "SVC001", "150.75", -2, "Noviembre 2025", models.BillOverdue),
			bill("BILL-007", "cust-3", "SVC003", "39.90", 12, "Diciembre 2025", models.BillPending),
		},
	}
}

// SeedFile is the YAML form of a Seed.
type SeedFile struct {
	Services  []models.Service    `yaml:"services"`
	Accounts  []SeedAccount       `yaml:"accounts"`
	Favorites map[string][]string `yaml:"favorites"`
	Bills     []SeedBill          `yaml:"bills"`
}

type SeedAccount struct {
	ID       string          `yaml:"id"`
	Balance  decimal.Decimal `yaml:"balance"`
	Currency string          `yaml:"currency"`
}

type SeedBill struct {
	ID         string            `yaml:"billId"`
	CustomerID string            `yaml:"customerId"`
	ServiceID  string            `yaml:"serviceId"`
	Amount     decimal.Decimal   `yaml:"amount"`
	Currency   string            `yaml:"currency"`
	DueInDays  int               `yaml:"dueInDays"`
	Period     string            `yaml:"period"`
	Status     models.BillStatus `yaml:"status"`
}

// ParseSeed decodes a YAML seed document.
func ParseSeed(data []byte) (SeedFile, error) {
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SeedFile{}, fmt.Errorf("failed to parse seed: %w", err)
	}
	return f, nil
}

// Seed resolves the file against now. Missing currencies default to
// DefaultCurrency, missing statuses to pending, and bill service names are
// taken from the catalog.
func (f SeedFile) Seed(now time.Time) (Seed, error) {
	names := make(map[string]string, len(f.Services))
	for _, s := range f.Services {
		if s.ID == "" {
			return Seed{}, fmt.Errorf("seed service without id")
		}
		names[s.ID] = s.Name
	}

	seed := Seed{
		Services:  f.Services,
		Favorites: f.Favorites,
	}
	for _, a := range f.Accounts {
		if a.ID == "" {
			return Seed{}, fmt.Errorf("seed account without id")
		}
		seed.Accounts = append(seed.Accounts, models.Account{
			ID:       a.ID,
			Balance:  a.Balance,
			Currency: orDefault(a.Currency, DefaultCurrency),
		})
	}
	for _, b := range f.Bills {
		name, ok := names[b.ServiceID]
		if !ok {
			return Seed{}, fmt.Errorf("bill %s references unknown service %s", b.ID, b.ServiceID)
		}
		status := b.Status
		if status == "" {
			status = models.BillPending
		}
		switch status {
		case models.BillPending, models.BillOverdue, models.BillPaid:
		default:
			return Seed{}, fmt.Errorf("bill %s has unknown status %q", b.ID, status)
		}
		seed.Bills = append(seed.Bills, models.Bill{
			ID:          b.ID,
			CustomerID:  b.CustomerID,
			ServiceID:   b.ServiceID,
			ServiceName: name,
			Amount:      b.Amount,
			Currency:    orDefault(b.Currency, DefaultCurrency),
			DueDate:     now.AddDate(0, 0, b.DueInDays),
			Period:      b.Period,
			Status:      status,
		})
	}
	return seed, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
