// Package transport posts form-encoded requests to the payment gateway.
//
// A Client holds an ordered list of strategies. The first one that reports
// itself available carries the request; its failure ends the attempt. There
// is no retry and no fallback on error.
package transport

import (
	"context"
	"errors"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

// Encoder produces a form-encoded request body.
type Encoder interface {
	Encode() string
}

type Strategy interface {
	Name() string
	Available() bool
	Post(ctx context.Context, endpoint, body, userAgent string) ([]byte, error)
}

type Client struct {
	strategies []Strategy
}

func NewClient(strategies ...Strategy) *Client {
	return &Client{strategies: strategies}
}

// DefaultStrategies returns the HTTP client strategy followed by the raw
// stream fallback. A zero timeout keeps the runtime default for the
// primary strategy.
func DefaultStrategies(timeout time.Duration, streamFallback bool) []Strategy {
	return []Strategy{
		NewHTTPStrategy(NewHTTPClient(timeout)),
		&StreamStrategy{Enabled: streamFallback},
	}
}

// Send posts fields to endpoint and decodes the form-encoded reply.
func (c *Client) Send(ctx context.Context, endpoint string, fields Encoder, userAgent string) (map[string]string, error) {
	for _, s := range c.strategies {
		if !s.Available() {
			continue
		}
		return c.send(ctx, s, endpoint, fields.Encode(), userAgent)
	}
	return nil, ErrNoTransportAvailable
}

func (c *Client) send(ctx context.Context, s Strategy, endpoint, body, userAgent string) (map[string]string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "transport.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("transport.strategy", s.Name()),
			attribute.String("net.peer.name", hostOf(endpoint)),
		),
	)
	defer span.End()

	start := time.Now()
	data, err := s.Post(ctx, endpoint, body, userAgent)
	telemetry.TransportDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())

	if err == nil && len(data) == 0 {
		err = ErrEmptyResponse
	}
	if err != nil {
		var terr *Error
		if !errors.Is(err, ErrEmptyResponse) && !errors.As(err, &terr) {
			err = &Error{Strategy: s.Name(), Detail: err.Error(), Err: err}
		}
		telemetry.TransportRequests.WithLabelValues(s.Name(), "error").Inc()
		telemetry.Logger.Error("Payment gateway request failed",
			zap.String("strategy", s.Name()),
			zap.String("endpoint", hostOf(endpoint)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	telemetry.TransportRequests.WithLabelValues(s.Name(), "ok").Inc()
	telemetry.Logger.Info("Payment gateway request completed",
		zap.String("strategy", s.Name()),
		zap.String("endpoint", hostOf(endpoint)),
		zap.Duration("duration", time.Since(start)),
	)
	return Decode(string(data)), nil
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Host
}
