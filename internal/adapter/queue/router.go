package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            *amqp.Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	log           *slog.Logger
	registrations []registration
}

type registration struct {
	queueName   string
	handler     Handler
	consumerTag string
}

// --- Options ---

type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }
func WithLogger(l *slog.Logger) RouterOption   { return func(r *Router) { r.log = l } }

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=true.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:           ch,
		prefetch:     50,
		callTimeout:  10 * time.Second,
		requeueOnErr: true,
		log:          logging.New("rmq-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register associates a queue with a handler. Call multiple times for multiple queues.
func (r *Router) Register(queueName string, h Handler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		handler:     h,
		consumerTag: "c_" + queueName,
	})
}

// Start begins consuming; non-blocking (spawns one goroutine per queue).
// QoS (prefetch) is set per-channel and applies to all consumers on this channel.
// Consumers stop when ctx is cancelled or the channel closes.
func (r *Router) Start(ctx context.Context) error {
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	for _, reg := range r.registrations {
		deliveries, err := r.ch.ConsumeWithContext(
			ctx,
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return err
		}

		go r.consume(ctx, reg, deliveries)
	}

	return nil
}

func (r *Router) consume(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	l := r.log.With("queue", reg.queueName, "tag", reg.consumerTag)
	for d := range msgs {
		r.dispatch(ctx, l, reg.handler, d, d.Acknowledger)
	}
	l.Info("consumer stopped")
}

func (r *Router) dispatch(ctx context.Context, l *slog.Logger, h Handler, d amqp.Delivery, a amqp.Acknowledger) {
	callCtx, cancel := context.WithTimeout(logging.WithCtx(ctx, l), r.callTimeout)
	err := h.Handle(callCtx, d)
	cancel()

	if err == nil {
		_ = a.Ack(d.DeliveryTag, false)
		return
	}

	requeue := r.requeueOnErr && !errors.Is(err, ErrPoison)
	l.Error("handler error", "rk", d.RoutingKey, "error", err, "requeue", requeue)
	_ = a.Nack(d.DeliveryTag, false, requeue)
}
