package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.OrderStatusChangedMsg) error

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka-consumer"),
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "error", err)
		}
	}()

	handler := &cgHandler{handle: c.Handle, logger: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Run consumes in the background. The returned stop closes the group and
// blocks until the consume loop has returned.
func (c *Consumer) Run(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.Logger.Error("kafka consumer stopped", "error", err)
		}
	}()
	return func() {
		if err := c.Group.Close(); err != nil {
			c.Logger.Warn("kafka group close", "error", err)
		}
		<-done
	}
}

type cgHandler struct {
	handle HandlerFunc
	logger *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		l := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)

		var ev usecase.OrderStatusChangedMsg
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			l.Warn("kafka decode error", "error", err)
			// mark to avoid reprocessing poison
			sess.MarkMessage(msg, "decode-error")
			continue
		}

		ctx := logging.WithCtx(sess.Context(), l)
		if err := h.handle(ctx, ev); err != nil {
			if permanent(err) {
				// replaying an invalid or out-of-order transition cannot succeed
				l.Warn("event rejected", "order_id", ev.OrderID, "status", ev.Status, "error", err)
				sess.MarkMessage(msg, "rejected")
				continue
			}
			l.Error("handler error", "order_id", ev.OrderID, "error", err)
			// Do not mark message; let it retry on next poll or route with your DLQ pattern.
			continue
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}

func permanent(err error) bool {
	switch usecase.KindOf(err) {
	case usecase.KindInvalidInput, usecase.KindNotFound, usecase.KindConflict:
		return true
	}
	return false
}
