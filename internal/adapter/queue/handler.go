package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes a single delivery and must tolerate redelivery.
// nil acks; an error nacks, requeued unless it wraps ErrPoison.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}

type HandlerFunc func(ctx context.Context, d amqp.Delivery) error

func (f HandlerFunc) Handle(ctx context.Context, d amqp.Delivery) error { return f(ctx, d) }
