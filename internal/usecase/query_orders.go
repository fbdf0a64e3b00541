package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ListOrders struct {
	reader OrderReader
	tracer trace.Tracer
}

func NewListOrders(reader OrderReader) *ListOrders {
	return &ListOrders{reader: reader, tracer: otel.Tracer("usecase.list_orders")}
}

// Execute returns the owner's orders, newest first, each with its lines.
func (uc *ListOrders) Execute(ctx context.Context, ownerID int64) ([]domain.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "ListOrders.Execute")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", ownerID))

	orders, err := uc.reader.ListByUser(ctx, ownerID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

type GetOrder struct {
	reader OrderReader
	tracer trace.Tracer
}

func NewGetOrder(reader OrderReader) *GetOrder {
	return &GetOrder{reader: reader, tracer: otel.Tracer("usecase.get_order")}
}

// Execute loads one order. Existence is checked before ownership so the two
// failures stay distinguishable.
func (uc *GetOrder) Execute(ctx context.Context, orderID string, requesterID int64) (*domain.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "GetOrder.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	o, err := uc.reader.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, orderID)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.UserID != requesterID {
		return nil, fmt.Errorf("%w: order %s belongs to another user", ErrForbidden, orderID)
	}
	return o, nil
}

// ChangeOrderStatus applies a status event from payment/fulfilment.
// It never touches totals or lines.
type ChangeOrderStatus struct {
	reader OrderReader
	writer OrderStatusWriter
	cache  OrderCache // optional
}

func NewChangeOrderStatus(reader OrderReader, writer OrderStatusWriter, cache OrderCache) *ChangeOrderStatus {
	return &ChangeOrderStatus{reader: reader, writer: writer, cache: cache}
}

func (uc *ChangeOrderStatus) Execute(ctx context.Context, ev OrderStatusChangedMsg) error {
	next := domain.Status(ev.Status)
	switch next {
	case domain.StatusPaid, domain.StatusCancelled, domain.StatusShipped:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, ev.Status)
	}

	o, err := uc.reader.GetByID(ctx, ev.OrderID)
	if err != nil {
		return err
	}
	if o.Status == next {
		// redelivery
		return nil
	}
	if !o.Status.CanTransition(next) {
		return fmt.Errorf("%w: order %s cannot move from %s to %s", ErrConflict, o.ID, o.Status, next)
	}

	ok, err := uc.writer.UpdateStatusIf(ctx, o.ID, o.Status, next)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order %s changed concurrently", ErrConflict, o.ID)
	}

	// Cache best-effort
	if uc.cache != nil {
		_ = uc.cache.SetStatus(ctx, o.ID, string(next))
	}
	logging.FromCtx(ctx).Info("order status changed",
		slog.String("order_id", o.ID),
		slog.String("from", string(o.Status)),
		slog.String("to", string(next)),
	)
	return nil
}
