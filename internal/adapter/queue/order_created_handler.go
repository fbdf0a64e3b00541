package queue

import (
	"context"
	"fmt"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
)

// OrderCreatedHandler consumes order.created events and warms the status cache
// so status lookups after checkout do not hit MySQL.
type OrderCreatedHandler struct {
	cache usecase.OrderCache
}

func NewOrderCreatedHandler(cache usecase.OrderCache) *OrderCreatedHandler {
	return &OrderCreatedHandler{cache: cache}
}

// HandleCreated is intended to be used with the JSON adapter (queue.JSONHandler[usecase.CreatedMsg]).
func (h *OrderCreatedHandler) HandleCreated(ctx context.Context, msg usecase.CreatedMsg) error {
	if msg.OrderID == "" || msg.Status == "" {
		return fmt.Errorf("%w: order.created without id or status", ErrPoison)
	}

	// a later transition may already be cached; never overwrite it with pending
	current, err := h.cache.GetStatus(ctx, msg.OrderID)
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	if err := h.cache.SetStatus(ctx, msg.OrderID, msg.Status); err != nil {
		return err
	}
	logging.FromCtx(ctx).Debug("order status cached", "order_id", msg.OrderID, "status", msg.Status)
	return nil
}
