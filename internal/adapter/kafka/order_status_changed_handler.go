package kafka

import (
	"context"
	"strings"

	"github.com/aq2208/storefront-api/internal/usecase"
)

type statusChanger interface {
	Execute(ctx context.Context, ev usecase.OrderStatusChangedMsg) error
}

// OrderStatusChangedHandler normalises payment/fulfilment events before
// handing them to the guarded status transition.
type OrderStatusChangedHandler struct {
	uc statusChanger
}

func NewOrderStatusChangedHandler(uc statusChanger) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{uc: uc}
}

// Map external status -> internal
var externalStatus = map[string]string{
	"success":   "paid",
	"paid":      "paid",
	"failed":    "cancelled",
	"cancelled": "cancelled",
	"canceled":  "cancelled",
	"shipped":   "shipped",
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	if s, ok := externalStatus[strings.ToLower(strings.TrimSpace(ev.Status))]; ok {
		ev.Status = s
	}
	return h.uc.Execute(ctx, ev)
}
