package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type CreateOrderInput struct {
	UserID         int64
	IdempotencyKey string // optional
	Lines          []domain.LineRequest
}

type CreateOrder struct {
	store  OrderStore
	reader OrderReader
	cache  OrderCache       // optional
	idem   IdempotencyStore // optional
	now    func() time.Time
	tracer trace.Tracer
}

func NewCreateOrder(store OrderStore, reader OrderReader, cache OrderCache, idem IdempotencyStore) *CreateOrder {
	return &CreateOrder{
		store:  store,
		reader: reader,
		cache:  cache,
		idem:   idem,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
		tracer: otel.Tracer("usecase.create_order"),
	}
}

// WithClock overrides the creation timestamp source.
func (uc *CreateOrder) WithClock(now func() time.Time) *CreateOrder {
	uc.now = now
	return uc
}

func (uc *CreateOrder) Execute(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	ctx, span := uc.tracer.Start(ctx, "CreateOrder.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", in.UserID),
		attribute.Int("lines", len(in.Lines)),
	)

	if err := domain.ValidateLines(in.Lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	useIdem := uc.idem != nil && in.IdempotencyKey != ""
	scope := fmt.Sprintf("orders:%d", in.UserID)
	if useIdem {
		// Fast path: idempotency recall
		if id, ok, _ := uc.idem.Recall(ctx, scope, in.IdempotencyKey); ok {
			if o, err := uc.reader.GetByID(ctx, id); err == nil {
				return o, nil
			}
		}
		ok, err := uc.idem.TryLock(ctx, scope, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("%w: idempotency lock: %v", ErrOrderCreationFailed, err)
		}
		if !ok {
			return nil, ErrDuplicate
		}
	}

	order, err := uc.create(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ordersFailed.WithLabelValues(string(KindOf(err))).Inc()
		if useIdem {
			// let the client retry with the same key
			_ = uc.idem.Release(context.WithoutCancel(ctx), scope, in.IdempotencyKey)
		}
		return nil, err
	}
	ordersCreated.Inc()

	if useIdem {
		if err := uc.idem.Remember(ctx, scope, in.IdempotencyKey, order.ID); err != nil {
			// the lock key still blocks replays until it expires
			logging.FromCtx(ctx).Warn("idempotency remember failed",
				slog.String("order_id", order.ID),
				slog.String("idempotency_key", in.IdempotencyKey),
				slog.Any("error", err),
			)
			idempotencyRememberFailures.Inc()
		}
	}
	if uc.cache != nil {
		_ = uc.cache.SetStatus(ctx, order.ID, string(order.Status))
	}

	logging.FromCtx(ctx).Info("order created",
		slog.String("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.String("total_price", order.TotalPrice.StringFixed(2)),
		slog.Int("lines", len(order.Lines)),
	)
	return order, nil
}

func (uc *CreateOrder) create(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	tx, err := uc.store.BeginOrderTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrOrderCreationFailed, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.FromCtx(ctx).Warn("order rollback failed", slog.Any("error", rbErr))
		}
	}()

	ids := domain.DistinctProductIDs(in.Lines)
	prices, err := tx.ResolvePrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve prices: %v", ErrOrderCreationFailed, err)
	}
	if len(prices) < len(ids) {
		return nil, fmt.Errorf("%w: %v", ErrProductNotFound, missingIDs(ids, prices))
	}

	lines, total := domain.PriceLines(in.Lines, prices)
	order := &domain.Order{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		TotalPrice: total,
		Status:     domain.StatusPending,
		CreatedAt:  uc.now(),
	}

	if err := tx.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: insert order: %v", ErrOrderCreationFailed, err)
	}
	for i := range lines {
		lines[i].OrderID = order.ID
		if err := tx.InsertOrderLine(ctx, lines[i]); err != nil {
			return nil, fmt.Errorf("%w: insert line %d: %v", ErrOrderCreationFailed, i, err)
		}
	}
	order.Lines = lines

	payload, err := json.Marshal(createdMsg(order))
	if err != nil {
		return nil, fmt.Errorf("%w: marshal event: %v", ErrOrderCreationFailed, err)
	}
	if err := tx.InsertOutbox(ctx, ChannelOrderCreated, payload); err != nil {
		return nil, fmt.Errorf("%w: insert outbox: %v", ErrOrderCreationFailed, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrOrderCreationFailed, err)
	}
	committed = true
	return order, nil
}

func createdMsg(o *domain.Order) CreatedMsg {
	msg := CreatedMsg{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		Lines:      make([]CreatedLine, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		msg.Lines = append(msg.Lines, CreatedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
		})
	}
	return msg
}

func missingIDs[V any](ids []int64, found map[int64]V) error {
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return fmt.Errorf("unknown product ids %v", missing)
}
