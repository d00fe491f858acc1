package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/checkout-gateway/internal/models"
	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

const (
	fieldQuoteID     = "quote_id"
	fieldLastOrderID = "last_order_id"
	fieldThreeDSRef  = "three_ds_ref"
)

// Store hands out checkout sessions kept in Redis. A session is a hash
// holding the active quote id and the last placed order's increment id,
// plus a list of pending flash messages.
type Store struct {
	client *redis.Client
	orders interfaces.OrderRepository
	ttl    time.Duration
}

func NewStore(client *redis.Client, orders interfaces.OrderRepository, ttl time.Duration) *Store {
	return &Store{client: client, orders: orders, ttl: ttl}
}

// Get returns the session with the given id. The session is created lazily
// on first write.
func (s *Store) Get(id string) *Session {
	return &Session{id: id, store: s}
}

type Session struct {
	id    string
	store *Store
}

func (s *Session) ID() string { return s.id }

func (s *Session) key() string {
	return fmt.Sprintf("checkout:session:%s", s.id)
}

func (s *Session) messagesKey() string {
	return fmt.Sprintf("checkout:session:%s:messages", s.id)
}

func (s *Session) HasActiveQuote(ctx context.Context) (bool, error) {
	quoteID, err := s.store.client.HGet(ctx, s.key(), fieldQuoteID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return quoteID != "", nil
}

func (s *Session) LastPlacedOrder(ctx context.Context) (*models.Order, error) {
	incrementID, err := s.store.client.HGet(ctx, s.key(), fieldLastOrderID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if incrementID == "" {
		return nil, nil
	}
	return s.store.orders.GetByIncrementID(ctx, incrementID)
}

func (s *Session) BindQuote(ctx context.Context, quote *models.Quote) error {
	pipe := s.store.client.TxPipeline()
	pipe.HSet(ctx, s.key(), fieldQuoteID, strconv.FormatInt(quote.ID, 10))
	pipe.Expire(ctx, s.key(), s.store.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Session) SaveThreeDSRef(ctx context.Context, ref string) error {
	pipe := s.store.client.TxPipeline()
	pipe.HSet(ctx, s.key(), fieldThreeDSRef, ref)
	pipe.Expire(ctx, s.key(), s.store.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Session) TakeThreeDSRef(ctx context.Context) (string, error) {
	ref, err := s.store.client.HGet(ctx, s.key(), fieldThreeDSRef).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := s.store.client.HDel(ctx, s.key(), fieldThreeDSRef).Err(); err != nil {
		return "", err
	}
	return ref, nil
}

func (s *Session) NotifySuccess(ctx context.Context, message string) {
	s.push(ctx, models.Message{Type: models.MessageSuccess, Text: message})
}

func (s *Session) NotifyError(ctx context.Context, message string) {
	s.push(ctx, models.Message{Type: models.MessageError, Text: message})
}

func (s *Session) push(ctx context.Context, msg models.Message) {
	payload, _ := json.Marshal(msg)

	pipe := s.store.client.TxPipeline()
	pipe.RPush(ctx, s.messagesKey(), payload)
	pipe.Expire(ctx, s.messagesKey(), s.store.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		telemetry.Logger.Warn("Failed to record session message",
			zap.String("session_id", s.id),
			zap.String("message_type", string(msg.Type)),
			zap.Error(err),
		)
	}
}

// PopMessages returns pending flash messages and clears them.
func (s *Session) PopMessages(ctx context.Context) ([]models.Message, error) {
	pipe := s.store.client.TxPipeline()
	values := pipe.LRange(ctx, s.messagesKey(), 0, -1)
	pipe.Del(ctx, s.messagesKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(values.Val()))
	for _, v := range values.Val() {
		var msg models.Message
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
