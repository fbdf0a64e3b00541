package usecase

import (
	"context"
	"testing"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, s *memStore, at time.Time, userID int64, lines ...domain.LineRequest) *domain.Order {
	t.Helper()
	o, err := NewCreateOrder(s, s, nil, nil).WithClock(fixedClock(at)).
		Execute(context.Background(), CreateOrderInput{UserID: userID, Lines: lines})
	require.NoError(t, err)
	return o
}

func TestListOrders_NewestFirstWithLines(t *testing.T) {
	s := newMemStore(map[int64]string{1: "1.00", 2: "2.00"})
	older := placeOrder(t, s, testNow, 10, domain.LineRequest{ProductID: 1, Quantity: 1})
	newer := placeOrder(t, s, testNow.Add(time.Minute), 10,
		domain.LineRequest{ProductID: 1, Quantity: 1},
		domain.LineRequest{ProductID: 2, Quantity: 2},
	)
	placeOrder(t, s, testNow, 11, domain.LineRequest{ProductID: 2, Quantity: 1})

	orders, err := NewListOrders(s).Execute(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)
	assert.Len(t, orders[0].Lines, 2)
	assert.Equal(t, "5.00", orders[0].TotalPrice.StringFixed(2))
}

func TestListOrders_EmptyIsNotNil(t *testing.T) {
	orders, err := NewListOrders(newMemStore(nil)).Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestGetOrder(t *testing.T) {
	s := newMemStore(map[int64]string{1: "3.00"})
	o := placeOrder(t, s, testNow, 1, domain.LineRequest{ProductID: 1, Quantity: 1})
	uc := NewGetOrder(s)

	got, err := uc.Execute(context.Background(), o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Len(t, got.Lines, 1)

	_, err = uc.Execute(context.Background(), o.ID, 2)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = uc.Execute(context.Background(), "no-such-order", 1)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestChangeOrderStatus(t *testing.T) {
	s := newMemStore(map[int64]string{1: "3.00"})
	o := placeOrder(t, s, testNow, 1, domain.LineRequest{ProductID: 1, Quantity: 1})
	cache := newMemStatusCache()
	uc := NewChangeOrderStatus(s, s, cache)
	ctx := context.Background()

	require.NoError(t, uc.Execute(ctx, OrderStatusChangedMsg{OrderID: o.ID, Status: "paid"}))
	got, _ := s.GetByID(ctx, o.ID)
	assert.Equal(t, domain.StatusPaid, got.Status)
	assert.True(t, got.TotalPrice.Equal(o.TotalPrice))
	status, _ := cache.GetStatus(ctx, o.ID)
	assert.Equal(t, "paid", status)

	// redelivery is a no-op
	require.NoError(t, uc.Execute(ctx, OrderStatusChangedMsg{OrderID: o.ID, Status: "paid"}))

	err := uc.Execute(ctx, OrderStatusChangedMsg{OrderID: o.ID, Status: "cancelled"})
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, uc.Execute(ctx, OrderStatusChangedMsg{OrderID: o.ID, Status: "shipped"}))

	err = uc.Execute(ctx, OrderStatusChangedMsg{OrderID: o.ID, Status: "refunded"})
	require.ErrorIs(t, err, ErrInvalidInput)

	err = uc.Execute(ctx, OrderStatusChangedMsg{OrderID: "missing", Status: "paid"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errStoreDown))
	assert.Equal(t, KindDuplicate, KindOf(ErrDuplicate))
	assert.Equal(t, KindOrderCreationFailed, KindOf(ErrOrderCreationFailed))
}
