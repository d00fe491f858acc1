package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
	"github.com/akylbek/payment-system/checkout-gateway/internal/transport"
)

const testSecret = "Circle4Take40Idea"

type fakeSender struct {
	endpoint  string
	userAgent string
	request   *Request
	resp      map[string]string
	err       error
}

func (f *fakeSender) Send(_ context.Context, endpoint string, fields transport.Encoder, userAgent string) (map[string]string, error) {
	f.endpoint = endpoint
	f.userAgent = userAgent
	f.request = fields.(*Request)
	return f.resp, f.err
}

func testOrder() *models.Order {
	return &models.Order{
		IncrementID:   "000000123",
		QuoteID:       42,
		GrandTotal:    decimal.RequireFromString("49.99"),
		CurrencyCode:  "GBP",
		CustomerEmail: "jo@example.com",
	}
}

func testConfig(mode IntegrationMode) Config {
	return Config{
		Mode:        mode,
		MerchantID:  "100856",
		DirectURL:   "https://gateway.test/direct/",
		HostedURL:   "https://gateway.test/hosted/",
		CountryCode: "826",
		ReturnURL:   "https://shop.test/paymentgateway/order/process",
	}
}

func validCard() map[string]string {
	return map[string]string{
		"cardNumber":      "4111 1111 1111 1111",
		"cardExpiryMonth": "12",
		"cardExpiryYear":  "30",
		"cardCVV":         "123",
	}
}

func TestParseIntegrationMode(t *testing.T) {
	for _, mode := range []IntegrationMode{HostedRedirect, HostedModal, HostedEmbedded, Direct} {
		parsed, err := ParseIntegrationMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, parsed)
	}

	_, err := ParseIntegrationMode("iframe")
	assert.Error(t, err)

	assert.True(t, HostedRedirect.Hosted())
	assert.True(t, HostedModal.Hosted())
	assert.True(t, HostedEmbedded.Hosted())
	assert.False(t, Direct.Hosted())
}

func TestRequestEncodeKeepsOrder(t *testing.T) {
	req := NewRequest().
		Set("merchantID", "100856").
		Set("action", "SALE").
		Set("orderRef", "Order #1").
		Set("action", "VERIFY")

	assert.Equal(t, "merchantID=100856&action=VERIFY&orderRef=Order+%231", req.Encode())
	assert.Equal(t, []string{"merchantID", "action", "orderRef"}, req.Keys())
}

func TestSignAndVerify(t *testing.T) {
	fields := map[string]string{"responseCode": "0", "responseMessage": "AUTHCODE:123", "xref": "24011012AB"}
	fields[FieldSignature] = Sign(fields, testSecret)

	assert.Len(t, fields[FieldSignature], 128)
	assert.NoError(t, Verify(fields, testSecret))

	tampered := map[string]string{}
	for k, v := range fields {
		tampered[k] = v
	}
	tampered["responseCode"] = "5"
	assert.ErrorIs(t, Verify(tampered, testSecret), ErrSignatureMismatch)

	delete(fields, FieldSignature)
	assert.ErrorIs(t, Verify(fields, testSecret), ErrSignatureMismatch)
}

func TestSignNormalisesLineEndings(t *testing.T) {
	crlf := Sign(map[string]string{"address": "1 High St\r\nLondon"}, testSecret)
	lf := Sign(map[string]string{"address": "1 High St\nLondon"}, testSecret)
	assert.Equal(t, lf, crlf)
}

func TestShouldServeHostedForm(t *testing.T) {
	order := testOrder()
	tests := []struct {
		name        string
		mode        IntegrationMode
		method      string
		activeQuote bool
		order       *models.Order
		want        bool
	}{
		{"hosted get after order", HostedRedirect, http.MethodGet, false, order, true},
		{"modal get after order", HostedModal, http.MethodGet, false, order, true},
		{"embedded get after order", HostedEmbedded, http.MethodGet, false, order, true},
		{"direct mode", Direct, http.MethodGet, false, order, false},
		{"post", HostedRedirect, http.MethodPost, false, order, false},
		{"active quote", HostedRedirect, http.MethodGet, true, order, false},
		{"no order", HostedRedirect, http.MethodGet, false, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(testConfig(tt.mode), nil)
			assert.Equal(t, tt.want, g.ShouldServeHostedForm(tt.method, tt.activeQuote, tt.order))
		})
	}
}

func TestHostedForm(t *testing.T) {
	cfg := testConfig(HostedRedirect)
	cfg.MerchantSecret = testSecret
	sender := &fakeSender{}
	g := New(cfg, sender)

	body, err := g.HostedForm(testOrder())
	require.NoError(t, err)

	assert.Contains(t, body, `action="https://gateway.test/hosted/"`)
	assert.Contains(t, body, `name="amount" value="4999"`)
	assert.Contains(t, body, `name="orderRef" value="000000123"`)
	assert.Contains(t, body, `name="redirectURL" value="https://shop.test/paymentgateway/order/process"`)
	assert.Contains(t, body, `name="signature"`)
	assert.NotContains(t, body, "<iframe")
	assert.NotContains(t, body, "target=")
	assert.Nil(t, sender.request, "hosted form must not call the gateway")
}

func TestHostedFormFramedModes(t *testing.T) {
	for _, mode := range []IntegrationMode{HostedModal, HostedEmbedded} {
		t.Run(mode.String(), func(t *testing.T) {
			body, err := New(testConfig(mode), nil).HostedForm(testOrder())
			require.NoError(t, err)
			assert.Contains(t, body, `<iframe name="paymentgateway-frame"`)
			assert.Contains(t, body, `target="paymentgateway-frame"`)
		})
	}
}

func TestHostedFormErrors(t *testing.T) {
	_, err := New(testConfig(HostedRedirect), nil).HostedForm(nil)
	assert.ErrorIs(t, err, ErrNoOrder)

	_, err = New(testConfig(Direct), nil).HostedForm(testOrder())
	assert.Error(t, err)
}

func TestDirect(t *testing.T) {
	cfg := testConfig(Direct)
	cfg.MerchantSecret = testSecret

	reply := map[string]string{"responseCode": "0", "responseMessage": "AUTHCODE:123"}
	reply[FieldSignature] = Sign(reply, testSecret)
	sender := &fakeSender{resp: reply}

	got, err := New(cfg, sender).Dispatch(context.Background(), validCard(), testOrder(), "Mozilla/5.0 (Test)")
	require.NoError(t, err)
	assert.Equal(t, reply, got)

	assert.Equal(t, "https://gateway.test/direct/", sender.endpoint)
	assert.Equal(t, "Mozilla/5.0 (Test)", sender.userAgent)

	req := sender.request
	assert.Equal(t, "100856", req.Get("merchantID"))
	assert.Equal(t, "SALE", req.Get("action"))
	assert.Equal(t, "4999", req.Get("amount"))
	assert.Equal(t, "4111111111111111", req.Get("cardNumber"))
	assert.Equal(t, "Mozilla/5.0 (Test)", req.Get("deviceIdentity"))
	assert.NotEmpty(t, req.Get("transactionUnique"))
	assert.NoError(t, Verify(req.Fields(), testSecret))
}

func TestDirectErrors(t *testing.T) {
	badCard := validCard()
	badCard["cardNumber"] = "4111111111111112"

	signed := testConfig(Direct)
	signed.MerchantSecret = testSecret

	tests := []struct {
		name    string
		cfg     Config
		inbound map[string]string
		order   *models.Order
		sender  *fakeSender
		wantErr error
		sent    bool
	}{
		{
			name:    "no order",
			cfg:     testConfig(Direct),
			inbound: validCard(),
			sender:  &fakeSender{},
			wantErr: ErrNoOrder,
		},
		{
			name:    "invalid card",
			cfg:     testConfig(Direct),
			inbound: badCard,
			order:   testOrder(),
			sender:  &fakeSender{},
			wantErr: ErrInvalidCardDetails,
		},
		{
			name:    "transport failure",
			cfg:     testConfig(Direct),
			inbound: validCard(),
			order:   testOrder(),
			sender:  &fakeSender{err: transport.ErrEmptyResponse},
			wantErr: transport.ErrEmptyResponse,
			sent:    true,
		},
		{
			name:    "unsigned reply",
			cfg:     signed,
			inbound: validCard(),
			order:   testOrder(),
			sender:  &fakeSender{resp: map[string]string{"responseCode": "0"}},
			wantErr: ErrSignatureMismatch,
			sent:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.sender).Direct(context.Background(), tt.inbound, tt.order, "agent")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.sent, tt.sender.request != nil)
		})
	}
}

func TestDirectResumesThreeDS(t *testing.T) {
	cfg := testConfig(Direct)
	cfg.MerchantSecret = testSecret

	reply := map[string]string{"responseCode": "0", "xref": "24011012AB"}
	reply[FieldSignature] = Sign(reply, testSecret)
	sender := &fakeSender{resp: reply}

	inbound := map[string]string{
		"threeDSRef":                         "UDNLRVk6",
		"cres":                               "eyJjcmVz",
		"threeDSResponse[threeDSMethodData]": "eyJtZXRob2Qi",
	}

	got, err := New(cfg, sender).Direct(context.Background(), inbound, nil, "agent")
	require.NoError(t, err)
	assert.Equal(t, reply, got)

	assert.Equal(t, "https://gateway.test/direct/", sender.endpoint)
	req := sender.request
	assert.Equal(t, "100856", req.Get("merchantID"))
	assert.Equal(t, "UDNLRVk6", req.Get("threeDSRef"))
	assert.Equal(t, "eyJjcmVz", req.Get("threeDSResponse[cres]"))
	assert.Equal(t, "eyJtZXRob2Qi", req.Get("threeDSResponse[threeDSMethodData]"))
	assert.Empty(t, req.Get("cardNumber"))
	assert.NoError(t, Verify(req.Fields(), testSecret))

	_, err = New(cfg, &fakeSender{}).ResumeThreeDS(context.Background(), map[string]string{"cres": "x"}, "agent")
	assert.Error(t, err)
}

func TestDispatchPassesCallbackThrough(t *testing.T) {
	inbound := map[string]string{"responseCode": "5", "responseMessage": "Card declined"}

	got, err := New(testConfig(HostedRedirect), nil).Dispatch(context.Background(), inbound, nil, "agent")
	require.NoError(t, err)
	assert.Equal(t, inbound, got)

	cfg := testConfig(HostedRedirect)
	cfg.MerchantSecret = testSecret
	_, err = New(cfg, nil).Dispatch(context.Background(), inbound, nil, "agent")
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	inbound[FieldSignature] = Sign(inbound, testSecret)
	got, err = New(cfg, nil).Dispatch(context.Background(), inbound, nil, "agent")
	require.NoError(t, err)
	assert.Equal(t, inbound, got)
}

func TestContinuation(t *testing.T) {
	fields := map[string]string{
		"responseCode":          "65802",
		"threeDSURL":            "https://acs.test/challenge",
		"threeDSRequest[creq]":  "eyJtZXNzYWdlVHlwZSI6IkNSZXEifQ",
		"threeDSRequest[other]": "x\"y",
		"threeDSRef":            "UDNLRVk6",
	}

	body, err := New(testConfig(Direct), nil).Continuation(fields)
	require.NoError(t, err)

	assert.Contains(t, body, `action="https://acs.test/challenge"`)
	assert.Contains(t, body, `name="creq" value="eyJtZXNzYWdlVHlwZSI6IkNSZXEifQ"`)
	assert.Contains(t, body, `name="other" value="x&#34;y"`)
	assert.NotContains(t, body, "threeDSRef")

	_, err = New(testConfig(Direct), nil).Continuation(map[string]string{"responseCode": "0"})
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, "4999", MinorUnits(decimal.RequireFromString("49.99"), "GBP"))
	assert.Equal(t, "1000", MinorUnits(decimal.RequireFromString("10"), "826"))
	assert.Equal(t, "1500", MinorUnits(decimal.RequireFromString("1500"), "JPY"))
}
