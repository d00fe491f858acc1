package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
)

// CheckoutSession is the customer's checkout session.
type CheckoutSession interface {
	HasActiveQuote(ctx context.Context) (bool, error)
	// LastPlacedOrder returns nil when the session has not placed an order.
	LastPlacedOrder(ctx context.Context) (*models.Order, error)
	BindQuote(ctx context.Context, quote *models.Quote) error
}

// Notifier records flash messages for the customer. Delivery is best-effort.
type Notifier interface {
	NotifySuccess(ctx context.Context, message string)
	NotifyError(ctx context.Context, message string)
}

// ThreeDSRefStore keeps the reference of a direct sale held for 3-D Secure
// authentication between the challenge and the customer's return.
type ThreeDSRefStore interface {
	SaveThreeDSRef(ctx context.Context, ref string) error
	// TakeThreeDSRef returns the stored reference and forgets it. It returns
	// "" when none is stored.
	TakeThreeDSRef(ctx context.Context) (string, error)
}
