package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a placed sales order. Its quote is deactivated once the order is
// placed.
type Order struct {
	ID            int64           `json:"id"`
	IncrementID   string          `json:"increment_id"`
	QuoteID       int64           `json:"quote_id"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	CurrencyCode  string          `json:"currency_code"`
	CustomerEmail string          `json:"customer_email"`
	State         string          `json:"state"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Quote is the customer's in-progress cart.
type Quote struct {
	ID              int64           `json:"id"`
	IsActive        bool            `json:"is_active"`
	ReservedOrderID sql.NullString  `json:"reserved_order_id"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Reactivate makes the quote usable as a cart again.
func (q *Quote) Reactivate() {
	q.IsActive = true
	q.ReservedOrderID = sql.NullString{}
}

// Reserved reports whether the quote was taken out of use by order placement.
func (q *Quote) Reserved() bool {
	return !q.IsActive || q.ReservedOrderID.Valid
}
