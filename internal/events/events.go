// Package events publishes cart changes for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Cart mutation kinds.
const (
	ActionAddItem      = "add_item"
	ActionUpdateItem   = "update_item"
	ActionRemoveItem   = "remove_item"
	ActionApplyCoupon  = "apply_coupon"
	ActionRemoveCoupon = "remove_coupon"
)

// CartMutated is emitted after a mutation has been saved to the session.
type CartMutated struct {
	CartID         string    `json:"cartId"`
	Action         string    `json:"action"`
	ItemKey        string    `json:"itemKey,omitempty"`
	Quantity       int       `json:"quantity,omitempty"`
	CouponCode     string    `json:"couponCode,omitempty"`
	LineCount      int       `json:"lineCount"`
	AppliedCoupons []string  `json:"appliedCoupons"`
	UserID         int64     `json:"userId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, e CartMutated) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by cart id, so one cart's events stay
// on one partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e CartMutated) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.CartID),
		Value: data,
		Time:  e.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, CartMutated) error { return nil }
func (Noop) Close() error                               { return nil }
