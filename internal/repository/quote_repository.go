package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
)

var ErrQuoteNotFound = errors.New("quote not found")

type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

func (r *QuoteRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS quotes (
			id BIGSERIAL PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			reserved_order_id VARCHAR(32),
			grand_total DECIMAL(20,4) NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

func (r *QuoteRepository) GetByID(ctx context.Context, id int64) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.QueryRowContext(ctx, `
		SELECT id, is_active, reserved_order_id, grand_total, updated_at
		FROM quotes WHERE id = $1
	`, id).Scan(&quote.ID, &quote.IsActive, &quote.ReservedOrderID, &quote.GrandTotal, &quote.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *QuoteRepository) Save(ctx context.Context, quote *models.Quote) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE quotes
		SET is_active = $1, reserved_order_id = $2, grand_total = $3, updated_at = NOW()
		WHERE id = $4
	`, quote.IsActive, quote.ReservedOrderID, quote.GrandTotal, quote.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("save quote %d: %w", quote.ID, ErrQuoteNotFound)
	}
	return nil
}
