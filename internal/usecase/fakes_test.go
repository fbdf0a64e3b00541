package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/shopspring/decimal"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory OrderStore/OrderReader/OrderStatusWriter.
// failOn names the OrderTx step that should fail.
type memStore struct {
	mu        sync.Mutex
	prices    map[int64]decimal.Decimal
	orders    map[string]domain.Order
	outbox    [][]byte
	failOn    string
	rollbacks int
}

func newMemStore(prices map[int64]string) *memStore {
	s := &memStore{
		prices: map[int64]decimal.Decimal{},
		orders: map[string]domain.Order{},
	}
	for id, p := range prices {
		s.prices[id] = decimal.RequireFromString(p)
	}
	return s
}

func (s *memStore) BeginOrderTx(ctx context.Context) (OrderTx, error) {
	if s.failOn == "begin" {
		return nil, errStoreDown
	}
	return &memTx{s: s}, nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *memStore) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	s.orders[id] = o
	return true, nil
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type memTx struct {
	s      *memStore
	order  *domain.Order
	lines  []domain.OrderLine
	outbox [][]byte
	done   bool
}

func (t *memTx) ResolvePrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	if t.s.failOn == "resolve" {
		return nil, errStoreDown
	}
	out := map[int64]decimal.Decimal{}
	for _, id := range ids {
		if p, ok := t.s.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	if t.s.failOn == "order" {
		return errStoreDown
	}
	cp := *o
	t.order = &cp
	return nil
}

func (t *memTx) InsertOrderLine(ctx context.Context, l domain.OrderLine) error {
	if t.s.failOn == "line" && len(t.lines) == 1 {
		return errStoreDown
	}
	t.lines = append(t.lines, l)
	return nil
}

func (t *memTx) InsertOutbox(ctx context.Context, channel string, payload []byte) error {
	if t.s.failOn == "outbox" {
		return errStoreDown
	}
	t.outbox = append(t.outbox, payload)
	return nil
}

func (t *memTx) Commit() error {
	if t.s.failOn == "commit" {
		return errStoreDown
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	o := *t.order
	o.Lines = append([]domain.OrderLine(nil), t.lines...)
	t.s.orders[o.ID] = o
	t.s.outbox = append(t.s.outbox, t.outbox...)
	t.done = true
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.s.mu.Lock()
	t.s.rollbacks++
	t.s.mu.Unlock()
	t.done = true
	return nil
}

type memIdem struct {
	mu          sync.Mutex
	locks       map[string]bool
	values      map[string]string
	rememberErr error
}

func newMemIdem() *memIdem {
	return &memIdem{locks: map[string]bool{}, values: map[string]string{}}
}

func (m *memIdem) TryLock(ctx context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[scope+key] {
		return false, nil
	}
	m.locks[scope+key] = true
	return true, nil
}

func (m *memIdem) Remember(ctx context.Context, scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rememberErr != nil {
		return m.rememberErr
	}
	m.values[scope+key] = value
	return nil
}

func (m *memIdem) Recall(ctx context.Context, scope, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[scope+key]
	return v, ok, nil
}

func (m *memIdem) Release(ctx context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, scope+key)
	return nil
}

type memStatusCache struct {
	mu       sync.Mutex
	statuses map[string]string
}

func newMemStatusCache() *memStatusCache {
	return &memStatusCache{statuses: map[string]string{}}
}

func (c *memStatusCache) SetStatus(ctx context.Context, orderID string, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[orderID] = status
	return nil
}

func (c *memStatusCache) GetStatus(ctx context.Context, orderID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses[orderID], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
