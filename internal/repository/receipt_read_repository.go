package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eaglebank/servicepay/shared/models"
	sharedredis "github.com/eaglebank/servicepay/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

const receiptViewKeyPrefix = "receipt:view:"

// ReceiptReadRepository serves receipt views from Redis and falls back to
// PostgreSQL, warming the cache on every cold read. Either store may be nil.
type ReceiptReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.ReceiptView]
}

func NewReceiptReadRepository(db *sql.DB, redisClient *goredis.Client) *ReceiptReadRepository {
	r := &ReceiptReadRepository{db: db}
	if redisClient != nil {
		r.cache = sharedredis.NewViewCache[models.ReceiptView](redisClient, receiptViewKeyPrefix, 0)
	}
	return r
}

func (r *ReceiptReadRepository) GetByID(ctx context.Context, receiptID string) (*models.ReceiptView, error) {
	if r.cache != nil {
		if view, ok := r.cache.Get(ctx, receiptID); ok {
			return view, nil
		}
	}
	if r.db == nil {
		return nil, fmt.Errorf("receipt not found")
	}

	query := `
		SELECT receipt_id, account_id, service_id, service_name, amount, currency, paid_at
		FROM receipts
		WHERE receipt_id = $1
	`
	var view models.ReceiptView
	err := r.db.QueryRowContext(ctx, query, receiptID).Scan(
		&view.ReceiptID, &view.AccountID, &view.ServiceID, &view.ServiceName,
		&view.Amount, &view.Currency, &view.PaidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("receipt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	view.PaidAt = view.PaidAt.UTC()

	r.CacheReceiptView(ctx, &view)
	return &view, nil
}

// CacheReceiptView stores the read model for a receipt right after payment.
func (r *ReceiptReadRepository) CacheReceiptView(ctx context.Context, view *models.ReceiptView) {
	if r.cache == nil {
		return
	}
	r.cache.Set(ctx, view.ReceiptID, view)
}
