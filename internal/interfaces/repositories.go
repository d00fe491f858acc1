package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
)

// OrderRepository defines the contract for sales order lookups.
// Lookups return (nil, nil) when no order matches.
type OrderRepository interface {
	GetByIncrementID(ctx context.Context, incrementID string) (*models.Order, error)
}

// QuoteRepository defines the contract for quote data access.
// GetByID returns (nil, nil) when no quote matches.
type QuoteRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Quote, error)
	Save(ctx context.Context, quote *models.Quote) error
}
