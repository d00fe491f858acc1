// Package checkout is the payment return endpoint: it serves the hosted
// payment form, dispatches direct payments, interprets the gateway's verdict
// and sends the customer on to the right page.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/gateway"
	"github.com/akylbek/payment-system/checkout-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-gateway/internal/interpreter"
	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
	"github.com/akylbek/payment-system/checkout-gateway/internal/render"
	"github.com/akylbek/payment-system/checkout-gateway/internal/restoration"
	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

const (
	PathSuccess = "checkout/onepage/success"
	PathFailure = "checkout/onepage/failure"
	PathCart    = "checkout/cart"

	MessagePaymentComplete = "Payment complete"
	MessageGenericError    = "Something went wrong with the payment, we were not able to process it, please contact support."
)

var ErrUnhandled = errors.New("unhandled payment processing failure")

// Request is one call to the endpoint, stripped of the HTTP framework.
type Request struct {
	Method string
	// Fields are the posted form fields: the gateway's callback, or the
	// card form in direct mode.
	Fields map[string]string
	// LastOrderID is the increment id from the lastOrderID cookie.
	LastOrderID string
	UserAgent   string
	Caller      render.CallerKind
	Session     interfaces.CheckoutSession
	Messages    interfaces.Notifier
	// ThreeDS holds the 3-D Secure reference of a challenged direct sale.
	// Optional; without it the return post must carry threeDSRef itself.
	ThreeDS interfaces.ThreeDSRefStore
}

type Restorer interface {
	RestoreCartAfterFailure(ctx context.Context, session interfaces.CheckoutSession, lastOrderID string) (restoration.Outcome, error)
}

type Config struct {
	// RestoreToCart sends failed payments back to a restored cart instead
	// of the failure page.
	RestoreToCart bool
}

type Controller struct {
	cfg       Config
	gateway   *gateway.Gateway
	restorer  Restorer
	renderer  *render.Renderer
	hook      interfaces.FailedTransactionHook
	completed interfaces.CompletedPaymentPublisher
}

func NewController(
	cfg Config,
	gw *gateway.Gateway,
	restorer Restorer,
	renderer *render.Renderer,
	hook interfaces.FailedTransactionHook,
	completed interfaces.CompletedPaymentPublisher,
) *Controller {
	return &Controller{
		cfg:       cfg,
		gateway:   gw,
		restorer:  restorer,
		renderer:  renderer,
		hook:      hook,
		completed: completed,
	}
}

// CSRFExempt reports that this endpoint skips anti-forgery validation. The
// gateway posts the customer back here from its own domain and cannot carry
// a token issued by the store. Authenticity of the callback rests on the
// message signature instead.
func (c *Controller) CSRFExempt() bool { return true }

// Handle runs one payment step and returns the response for the caller.
// Every failure ends in a redirect to the cart with a generic notice.
func (c *Controller) Handle(ctx context.Context, req Request) (resp render.Response) {
	mode := c.gateway.Mode()
	ctx, span := telemetry.Tracer().Start(ctx, "checkout.process")
	span.SetAttributes(
		attribute.String("checkout.mode", mode.String()),
		attribute.String("http.method", req.Method),
		attribute.String("checkout.caller", req.Caller.String()),
	)
	defer span.End()

	var (
		fields map[string]string
		order  *models.Order
	)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: panic: %v", ErrUnhandled, r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			resp = c.unhandled(ctx, req, order, fields, err)
		}
	}()

	fail := func(err error) render.Response {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return c.unhandled(ctx, req, order, fields, err)
	}

	if req.Method == http.MethodGet && mode.Hosted() {
		hasQuote, err := req.Session.HasActiveQuote(ctx)
		if err != nil {
			return fail(fmt.Errorf("check active quote: %w", err))
		}
		if !hasQuote {
			if order, err = req.Session.LastPlacedOrder(ctx); err != nil {
				return fail(fmt.Errorf("load last order: %w", err))
			}
		}
		if c.gateway.ShouldServeHostedForm(req.Method, hasQuote, order) {
			body, err := c.gateway.HostedForm(order)
			if err != nil {
				return fail(fmt.Errorf("render hosted form: %w", err))
			}
			c.record(span, mode, "hosted_form")
			return render.HTML(body)
		}
	}

	inbound := req.Fields
	if mode == gateway.Direct {
		var err error
		if order, err = req.Session.LastPlacedOrder(ctx); err != nil {
			return fail(fmt.Errorf("load last order: %w", err))
		}
		if inbound, err = withStoredThreeDSRef(ctx, req); err != nil {
			return fail(fmt.Errorf("load 3-D Secure reference: %w", err))
		}
	}

	dispatched, err := c.gateway.Dispatch(ctx, inbound, order, req.UserAgent)
	if err != nil {
		return fail(fmt.Errorf("dispatch: %w", err))
	}
	fields = dispatched

	outcome, err := interpreter.Interpret(fields)
	if err != nil {
		return fail(err)
	}

	switch outcome.Kind {
	case interpreter.Unresolved:
		body, err := c.gateway.Continuation(fields)
		if err != nil {
			return fail(fmt.Errorf("render continuation: %w", err))
		}
		if ref := fields[gateway.FieldThreeDSRef]; mode == gateway.Direct && ref != "" && req.ThreeDS != nil {
			if err := req.ThreeDS.SaveThreeDSRef(ctx, ref); err != nil {
				return fail(fmt.Errorf("save 3-D Secure reference: %w", err))
			}
		}
		c.record(span, mode, outcome.Kind.String())
		return render.HTML(body)

	case interpreter.Success:
		c.record(span, mode, outcome.Kind.String())
		req.Messages.NotifySuccess(ctx, MessagePaymentComplete)
		if err := c.completed.PublishCompleted(ctx, fields); err != nil {
			telemetry.Logger.Error("Failed to publish completed payment",
				zap.String("order_ref", fields["orderRef"]),
				zap.Error(err),
			)
		}
		return c.renderer.Render(req.Caller, mode, PathSuccess, fields)

	default:
		c.record(span, mode, outcome.Kind.String())
		return c.failure(ctx, req, outcome, fields)
	}
}

// withStoredThreeDSRef consumes the session's pending 3-D Secure reference
// on any direct-mode post without a card, and adds it to the fields when the
// post does not name one. The access control server returns the customer
// with its own fields only.
func withStoredThreeDSRef(ctx context.Context, req Request) (map[string]string, error) {
	if req.ThreeDS == nil || req.Fields["cardNumber"] != "" {
		return req.Fields, nil
	}

	ref, err := req.ThreeDS.TakeThreeDSRef(ctx)
	if err != nil {
		return nil, err
	}
	if ref == "" || req.Fields[gateway.FieldThreeDSRef] != "" {
		return req.Fields, nil
	}

	inbound := make(map[string]string, len(req.Fields)+1)
	for k, v := range req.Fields {
		inbound[k] = v
	}
	inbound[gateway.FieldThreeDSRef] = ref
	return inbound, nil
}

func (c *Controller) failure(ctx context.Context, req Request, outcome interpreter.Outcome, fields map[string]string) render.Response {
	mode := c.gateway.Mode()
	message := fmt.Sprintf("Payment Failed - %s.", outcome.Message)

	telemetry.Logger.Info("Payment failed",
		zap.String("mode", mode.String()),
		zap.String("order_ref", fields["orderRef"]),
		zap.Int("response_code", outcome.Code),
		zap.String("response_message", outcome.Message),
	)

	if !c.cfg.RestoreToCart {
		req.Messages.NotifyError(ctx, message)
		c.notifyFailed(ctx, fields)
		return c.renderer.Render(req.Caller, mode, PathFailure, fields)
	}

	restored, err := c.restorer.RestoreCartAfterFailure(ctx, req.Session, req.LastOrderID)
	switch {
	case err != nil:
		logFields := []zap.Field{
			zap.String("last_order_id", req.LastOrderID),
			zap.Error(err),
		}
		if restored.Record != nil {
			logFields = append(logFields, zap.Int64("quote_id", restored.Record.QuoteID))
		}
		telemetry.Logger.Error("Failed to restore cart after failed payment", logFields...)
	case restored.Result == restoration.NothingToRestore:
		telemetry.Logger.Warn("No cart to restore after failed payment",
			zap.String("last_order_id", req.LastOrderID),
		)
	default:
		telemetry.Logger.Info("Cart restored after failed payment",
			zap.String("order_increment_id", restored.Record.OrderIncrementID),
			zap.Int64("quote_id", restored.Record.QuoteID),
			zap.Bool("was_reserved", restored.Record.WasReserved),
		)
	}

	req.Messages.NotifyError(ctx, message)
	return c.renderer.Render(req.Caller, mode, PathCart, fields)
}

func (c *Controller) unhandled(ctx context.Context, req Request, order *models.Order, fields map[string]string, err error) render.Response {
	mode := c.gateway.Mode()
	telemetry.PaymentOutcomes.WithLabelValues(mode.String(), "error").Inc()
	telemetry.Logger.Error("Payment processing failed",
		zap.String("mode", mode.String()),
		zap.String("method", req.Method),
		zap.String("caller", req.Caller.String()),
		zap.String("last_order_id", req.LastOrderID),
		zap.Strings("response_fields", fieldNames(fields)),
		zap.Error(err),
		zap.Stack("stack"),
	)

	req.Messages.NotifyError(ctx, MessageGenericError)

	hookFields := fields
	if hookFields == nil {
		hookFields = map[string]string{"error": err.Error()}
		if order != nil {
			hookFields["orderRef"] = order.IncrementID
		}
	}
	c.notifyFailed(ctx, hookFields)

	return c.renderer.Render(req.Caller, mode, PathCart, nil)
}

// notifyFailed calls the failed-transaction hook. It never fails the request.
func (c *Controller) notifyFailed(ctx context.Context, fields map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Logger.Error("Failed-transaction hook panicked", zap.Any("panic", r))
		}
	}()

	if err := c.hook.OnFailedTransaction(ctx, fields); err != nil {
		telemetry.Logger.Error("Failed-transaction hook failed",
			zap.String("order_ref", fields["orderRef"]),
			zap.Error(err),
		)
	}
}

func (c *Controller) record(span trace.Span, mode gateway.IntegrationMode, outcome string) {
	telemetry.PaymentOutcomes.WithLabelValues(mode.String(), outcome).Inc()
	span.SetAttributes(attribute.String("checkout.outcome", outcome))
}

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
