package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sales_orders (
			id BIGSERIAL PRIMARY KEY,
			increment_id VARCHAR(32) NOT NULL UNIQUE,
			quote_id BIGINT NOT NULL,
			grand_total DECIMAL(20,4) NOT NULL,
			currency_code VARCHAR(3) NOT NULL,
			customer_email VARCHAR(255) NOT NULL DEFAULT '',
			state VARCHAR(32) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_orders_quote_id ON sales_orders(quote_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *OrderRepository) GetByIncrementID(ctx context.Context, incrementID string) (*models.Order, error) {
	var order models.Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, increment_id, quote_id, grand_total, currency_code, customer_email, state, created_at
		FROM sales_orders WHERE increment_id = $1
	`, incrementID).Scan(&order.ID, &order.IncrementID, &order.QuoteID,
		&order.GrandTotal, &order.CurrencyCode, &order.CustomerEmail, &order.State, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
