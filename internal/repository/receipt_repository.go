package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/servicepay/shared/models"
)

const receiptsSchema = `
	CREATE TABLE IF NOT EXISTS receipts (
		receipt_id   TEXT PRIMARY KEY,
		account_id   TEXT NOT NULL,
		service_id   TEXT NOT NULL,
		service_name TEXT NOT NULL,
		amount       NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
		currency     TEXT NOT NULL,
		paid_at      TIMESTAMPTZ NOT NULL
	)
`

const insertReceiptSQL = `
	INSERT INTO receipts (receipt_id, account_id, service_id, service_name, amount, currency, paid_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (receipt_id) DO NOTHING
`

// ReceiptWriteRepository persists issued receipts to PostgreSQL. The in-memory
// ledger stays the source of truth; this table is its durable journal.
type ReceiptWriteRepository struct {
	db *sql.DB
}

func NewReceiptWriteRepository(db *sql.DB) *ReceiptWriteRepository {
	return &ReceiptWriteRepository{db: db}
}

func (r *ReceiptWriteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, receiptsSchema); err != nil {
		return fmt.Errorf("failed to create receipts table: %w", err)
	}
	return nil
}

// Save inserts the receipt. Saving the same receipt ID again is a no-op, so
// redelivered payment events are harmless.
func (r *ReceiptWriteRepository) Save(ctx context.Context, view *models.ReceiptView) error {
	_, err := r.db.ExecContext(ctx, insertReceiptSQL,
		view.ReceiptID, view.AccountID, view.ServiceID, view.ServiceName,
		view.Amount, view.Currency, view.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", view.ReceiptID, err)
	}
	return nil
}
