// Package gateway adapts checkout requests to the payment gateway's four
// integration modes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
	"github.com/akylbek/payment-system/checkout-gateway/internal/transport"
)

var (
	ErrInvalidCardDetails = errors.New("invalid card details")
	ErrNoOrder            = errors.New("no placed order to pay for")
)

const (
	// FieldThreeDSRef identifies a sale held for 3-D Secure authentication.
	FieldThreeDSRef = "threeDSRef"

	threeDSResponsePrefix = "threeDSResponse["
)

// Sender submits a request to the gateway. *transport.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, endpoint string, fields transport.Encoder, userAgent string) (map[string]string, error)
}

type Config struct {
	Mode           IntegrationMode
	MerchantID     string
	MerchantSecret string
	DirectURL      string
	HostedURL      string
	CountryCode    string
	// ReturnURL is the absolute URL of the checkout process endpoint. The
	// gateway sends the customer back there.
	ReturnURL      string
	FormResponsive bool
}

type Gateway struct {
	cfg      Config
	sender   Sender
	validate *validator.Validate
}

func New(cfg Config, sender Sender) *Gateway {
	return &Gateway{
		cfg:      cfg,
		sender:   sender,
		validate: validator.New(),
	}
}

func (g *Gateway) Mode() IntegrationMode { return g.cfg.Mode }

// ShouldServeHostedForm reports whether a request is the one-time fetch of
// the hosted payment form that follows order placement.
func (g *Gateway) ShouldServeHostedForm(method string, hasActiveQuote bool, lastOrder *models.Order) bool {
	return method == http.MethodGet && !hasActiveQuote && lastOrder != nil && g.cfg.Mode.Hosted()
}

// Dispatch produces the candidate response fields for a checkout request.
// Direct mode exchanges the posted card form with the gateway; every other
// combination treats the inbound fields as the gateway's reply.
func (g *Gateway) Dispatch(ctx context.Context, inbound map[string]string, order *models.Order, userAgent string) (map[string]string, error) {
	if g.cfg.Mode == Direct {
		return g.Direct(ctx, inbound, order, userAgent)
	}
	if err := g.verify(inbound); err != nil {
		return nil, err
	}
	return inbound, nil
}

// CardDetails is the customer's card as posted by the direct payment form.
type CardDetails struct {
	Number      string `validate:"required,credit_card"`
	ExpiryMonth string `validate:"required,numeric,len=2"`
	ExpiryYear  string `validate:"required,numeric,len=2"`
	CVV         string `validate:"required,numeric,min=3,max=4"`
}

func cardFromFields(fields map[string]string) CardDetails {
	return CardDetails{
		Number:      strings.ReplaceAll(fields["cardNumber"], " ", ""),
		ExpiryMonth: fields["cardExpiryMonth"],
		ExpiryYear:  fields["cardExpiryYear"],
		CVV:         fields["cardCVV"],
	}
}

// Direct sends a server-to-server sale for order using the card posted by
// the customer and returns the gateway's raw reply. Inbound fields carrying
// a threeDSRef are the customer's return from 3-D Secure authentication and
// resume the held sale instead.
func (g *Gateway) Direct(ctx context.Context, inbound map[string]string, order *models.Order, userAgent string) (map[string]string, error) {
	if inbound[FieldThreeDSRef] != "" {
		return g.ResumeThreeDS(ctx, inbound, userAgent)
	}
	if order == nil {
		return nil, ErrNoOrder
	}

	card := cardFromFields(inbound)
	if err := g.validate.Struct(card); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCardDetails, err)
	}

	req := g.saleRequest(order)
	req.Set("cardNumber", card.Number).
		Set("cardExpiryMonth", card.ExpiryMonth).
		Set("cardExpiryYear", card.ExpiryYear).
		Set("cardCVV", card.CVV).
		Set("deviceChannel", "browser").
		Set("deviceIdentity", userAgent).
		Set("threeDSRedirectURL", g.cfg.ReturnURL)
	g.sign(req)

	resp, err := g.sender.Send(ctx, g.cfg.DirectURL, req, userAgent)
	if err != nil {
		return nil, err
	}
	if err := g.verify(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ResumeThreeDS sends the authentication result posted back by the access
// control server to the gateway. Fields already named threeDSResponse[...]
// are passed as they are; any other field is wrapped as one.
func (g *Gateway) ResumeThreeDS(ctx context.Context, inbound map[string]string, userAgent string) (map[string]string, error) {
	ref := inbound[FieldThreeDSRef]
	if ref == "" {
		return nil, fmt.Errorf("resume 3-D Secure: missing %s", FieldThreeDSRef)
	}

	names := make([]string, 0, len(inbound))
	for k := range inbound {
		if k != FieldThreeDSRef {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	req := NewRequest().
		Set("merchantID", g.cfg.MerchantID).
		Set("action", "SALE").
		Set(FieldThreeDSRef, ref)
	for _, k := range names {
		name := k
		if !strings.HasPrefix(k, threeDSResponsePrefix) {
			name = threeDSResponsePrefix + k + "]"
		}
		req.Set(name, inbound[k])
	}
	g.sign(req)

	resp, err := g.sender.Send(ctx, g.cfg.DirectURL, req, userAgent)
	if err != nil {
		return nil, err
	}
	if err := g.verify(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) saleRequest(order *models.Order) *Request {
	return NewRequest().
		Set("merchantID", g.cfg.MerchantID).
		Set("action", "SALE").
		Set("type", "1").
		Set("amount", MinorUnits(order.GrandTotal, order.CurrencyCode)).
		Set("currencyCode", order.CurrencyCode).
		Set("countryCode", g.cfg.CountryCode).
		Set("orderRef", order.IncrementID).
		Set("transactionUnique", uuid.New().String()).
		Set("customerEmail", order.CustomerEmail)
}

func (g *Gateway) sign(req *Request) {
	if g.cfg.MerchantSecret == "" {
		return
	}
	req.Set(FieldSignature, Sign(req.Fields(), g.cfg.MerchantSecret))
}

func (g *Gateway) verify(fields map[string]string) error {
	if g.cfg.MerchantSecret == "" {
		return nil
	}
	return Verify(fields, g.cfg.MerchantSecret)
}

var zeroDecimalCurrencies = map[string]bool{
	"JPY": true, "KRW": true, "VND": true, "ISK": true, "CLP": true,
	"392": true, "410": true, "704": true, "352": true, "152": true,
}

// MinorUnits converts an amount to the integer minor-unit string the
// gateway expects.
func MinorUnits(amount decimal.Decimal, currency string) string {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return amount.Round(0).String()
	}
	return amount.Shift(2).Round(0).String()
}
