// Package events publishes payment outcomes to the rest of the platform.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

const (
	TopicPaymentFailed    = "checkout.payment.failed"
	TopicPaymentCompleted = "checkout.payment.completed"
	SubjectPaymentFailed  = "checkout.payment.failed"

	completedDedupeTTL = 24 * time.Hour
)

// MessageWriter is the subset of *kafka.Writer used here. The writer must
// not have a fixed Topic; each message names its own.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher is the subset of *nats.Conn used here.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type PaymentEvent struct {
	OrderRef          string            `json:"order_ref"`
	Xref              string            `json:"xref,omitempty"`
	TransactionUnique string            `json:"transaction_unique,omitempty"`
	ResponseCode      string            `json:"response_code,omitempty"`
	ResponseMessage   string            `json:"response_message,omitempty"`
	Fields            map[string]string `json:"fields"`
	OccurredAt        time.Time         `json:"occurred_at"`
}

// Notifier implements the failed-transaction hook and the completed payment
// publisher. NATS is optional.
type Notifier struct {
	writer MessageWriter
	nats   Publisher
	redis  *redis.Client
	now    func() time.Time
}

func NewNotifier(writer MessageWriter, nats Publisher, redisClient *redis.Client) *Notifier {
	return &Notifier{
		writer: writer,
		nats:   nats,
		redis:  redisClient,
		now:    time.Now,
	}
}

// OnFailedTransaction records the failed attempt on Kafka and announces it
// on NATS. Both sinks are attempted; their errors are joined.
func (n *Notifier) OnFailedTransaction(ctx context.Context, fields map[string]string) error {
	event := n.newEvent(fields)
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Topic: TopicPaymentFailed,
		Key:   []byte(event.OrderRef),
		Value: payload,
	}); err != nil {
		telemetry.HookErrors.WithLabelValues("kafka").Inc()
		errs = append(errs, fmt.Errorf("kafka: %w", err))
	}

	if n.nats != nil {
		if err := n.nats.Publish(SubjectPaymentFailed, payload); err != nil {
			telemetry.HookErrors.WithLabelValues("nats").Inc()
			errs = append(errs, fmt.Errorf("nats: %w", err))
		}
	}

	return errors.Join(errs...)
}

// PublishCompleted announces a successful payment once. A replayed gateway
// callback for the same transaction is dropped.
func (n *Notifier) PublishCompleted(ctx context.Context, fields map[string]string) error {
	event := n.newEvent(fields)

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var claimed string
	if key := dedupeKey(event); key != "" {
		claimed = "checkout:completed:" + key
		first, err := n.redis.SetNX(ctx, claimed, "1", completedDedupeTTL).Result()
		if err != nil {
			return fmt.Errorf("dedupe completed payment: %w", err)
		}
		if !first {
			telemetry.Logger.Info("Dropping duplicate completed payment",
				zap.String("order_ref", event.OrderRef),
				zap.String("dedupe_key", key),
			)
			return nil
		}
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Topic: TopicPaymentCompleted,
		Key:   []byte(event.OrderRef),
		Value: payload,
	})
	if err != nil && claimed != "" {
		// a replay must be able to deliver what this attempt could not
		if delErr := n.redis.Del(context.WithoutCancel(ctx), claimed).Err(); delErr != nil {
			telemetry.Logger.Error("Failed to release completed payment dedupe key",
				zap.String("order_ref", event.OrderRef),
				zap.String("dedupe_key", claimed),
				zap.Error(delErr),
			)
		}
	}
	return err
}

func (n *Notifier) newEvent(fields map[string]string) PaymentEvent {
	return PaymentEvent{
		OrderRef:          fields["orderRef"],
		Xref:              fields["xref"],
		TransactionUnique: fields["transactionUnique"],
		ResponseCode:      fields["responseCode"],
		ResponseMessage:   fields["responseMessage"],
		Fields:            redact(fields),
		OccurredAt:        n.now().UTC(),
	}
}

func dedupeKey(e PaymentEvent) string {
	switch {
	case e.Xref != "":
		return "xref:" + e.Xref
	case e.TransactionUnique != "":
		return "unique:" + e.TransactionUnique
	case e.OrderRef != "":
		return "order:" + e.OrderRef
	default:
		return ""
	}
}

// redact drops card data and the message signature.
func redact(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "card") || k == "signature" || strings.HasPrefix(k, "threeDSRequest[") {
			continue
		}
		out[k] = v
	}
	return out
}
