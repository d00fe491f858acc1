// Package restoration puts a customer's cart back after a failed payment.
//
// Placing an order deactivates its quote. When the payment then fails the
// quote is reactivated and bound to the session again so the customer can
// retry without rebuilding the cart.
package restoration

import (
	"context"
	"errors"
	"fmt"

	"github.com/akylbek/payment-system/checkout-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

var ErrRestorationFailed = errors.New("cart restoration failed")

type Result int

const (
	NothingToRestore Result = iota + 1
	Restored
)

func (r Result) String() string {
	switch r {
	case NothingToRestore:
		return "nothing_to_restore"
	case Restored:
		return "restored"
	default:
		return "unknown"
	}
}

// Record describes the quote that was (or was about to be) restored.
type Record struct {
	OrderIncrementID string
	QuoteID          int64
	// WasReserved is true when the quote was inactive or held a reserved
	// order id before restoration.
	WasReserved bool
}

type Outcome struct {
	Result Result
	Record *Record
}

type Service struct {
	orders interfaces.OrderRepository
	quotes interfaces.QuoteRepository
}

func NewService(orders interfaces.OrderRepository, quotes interfaces.QuoteRepository) *Service {
	return &Service{orders: orders, quotes: quotes}
}

// RestoreCartAfterFailure reactivates the quote of the order identified by
// lastOrderID and binds it to session. A missing order or quote is not an
// error. Any other failure wraps ErrRestorationFailed and leaves the outer
// flow to decide; the returned Outcome still carries what was found.
func (s *Service) RestoreCartAfterFailure(ctx context.Context, session interfaces.CheckoutSession, lastOrderID string) (Outcome, error) {
	outcome, err := s.restore(ctx, session, lastOrderID)
	if err != nil {
		telemetry.CartRestorations.WithLabelValues("failed").Inc()
		return outcome, err
	}
	telemetry.CartRestorations.WithLabelValues(outcome.Result.String()).Inc()
	return outcome, nil
}

func (s *Service) restore(ctx context.Context, session interfaces.CheckoutSession, lastOrderID string) (Outcome, error) {
	nothing := Outcome{Result: NothingToRestore}
	if lastOrderID == "" {
		return nothing, nil
	}

	order, err := s.orders.GetByIncrementID(ctx, lastOrderID)
	if err != nil {
		return nothing, fmt.Errorf("%w: load order %s: %v", ErrRestorationFailed, lastOrderID, err)
	}
	if order == nil {
		return nothing, nil
	}

	quote, err := s.quotes.GetByID(ctx, order.QuoteID)
	if err != nil {
		return nothing, fmt.Errorf("%w: load quote %d: %v", ErrRestorationFailed, order.QuoteID, err)
	}
	if quote == nil {
		return nothing, nil
	}

	record := &Record{
		OrderIncrementID: order.IncrementID,
		QuoteID:          quote.ID,
		WasReserved:      quote.Reserved(),
	}

	quote.Reactivate()
	if err := s.quotes.Save(ctx, quote); err != nil {
		return Outcome{Result: NothingToRestore, Record: record}, fmt.Errorf("%w: save quote %d: %v", ErrRestorationFailed, quote.ID, err)
	}
	if err := session.BindQuote(ctx, quote); err != nil {
		return Outcome{Result: NothingToRestore, Record: record}, fmt.Errorf("%w: bind quote %d: %v", ErrRestorationFailed, quote.ID, err)
	}

	return Outcome{Result: Restored, Record: record}, nil
}
