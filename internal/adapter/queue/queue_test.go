package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.SetBase(logging.Discard())
}

type memOutbox struct {
	mu      sync.Mutex
	pending []usecase.OutboxRecord
	sent    []int64
	failed  map[int64]usecase.OutboxRecord
	reasons map[int64]string
}

func newMemOutbox(recs ...usecase.OutboxRecord) *memOutbox {
	return &memOutbox{pending: recs, failed: map[int64]usecase.OutboxRecord{}, reasons: map[int64]string{}}
}

func (m *memOutbox) FetchPending(ctx context.Context, limit int) ([]usecase.OutboxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) > limit {
		return append([]usecase.OutboxRecord(nil), m.pending[:limit]...), nil
	}
	return append([]usecase.OutboxRecord(nil), m.pending...), nil
}

func (m *memOutbox) MarkSent(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, id)
	m.drop(id)
	return nil
}

func (m *memOutbox) MarkFailed(ctx context.Context, id int64, retry int, next time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = usecase.OutboxRecord{ID: id, RetryCount: retry, NextAttempt: next}
	m.reasons[id] = reason
	return nil
}

func (m *memOutbox) drop(id int64) {
	for i, r := range m.pending {
		if r.ID == id {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

type fakePublisher struct {
	err   error
	calls []string
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.calls = append(p.calls, routingKey)
	return p.err
}

var relayNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestRelay(repo usecase.OutboxRepo, pub Publisher) *OutboxRelay {
	r := NewOutboxRelay(repo, pub, RelayConfig{
		BatchSize:   10,
		MaxBackoff:  time.Minute,
		RoutingKeys: map[string]string{usecase.ChannelOrderCreated: "order.created"},
	})
	r.now = func() time.Time { return relayNow }
	return r
}

func TestOutboxRelay_PublishesAndMarksSent(t *testing.T) {
	repo := newMemOutbox(
		usecase.OutboxRecord{ID: 1, Channel: usecase.ChannelOrderCreated, Payload: []byte(`{}`)},
		usecase.OutboxRecord{ID: 2, Channel: "other.v1", Payload: []byte(`{}`)},
	)
	pub := &fakePublisher{}

	n, err := newTestRelay(repo, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 2}, repo.sent)
	assert.Equal(t, []string{"order.created", "other.v1"}, pub.calls)
}

func TestOutboxRelay_FailureSchedulesRetry(t *testing.T) {
	repo := newMemOutbox(usecase.OutboxRecord{ID: 7, Channel: usecase.ChannelOrderCreated, RetryCount: 2})
	pub := &fakePublisher{err: errors.New("connection reset")}

	n, err := newTestRelay(repo, pub).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.Contains(t, repo.failed, int64(7))
	assert.Equal(t, 3, repo.failed[7].RetryCount)
	assert.Equal(t, relayNow.Add(4*time.Second), repo.failed[7].NextAttempt)
	assert.Equal(t, "connection reset", repo.reasons[7])
	assert.Empty(t, repo.sent)
}

func TestOutboxRelay_BreakerStopsPass(t *testing.T) {
	var recs []usecase.OutboxRecord
	for i := int64(1); i <= 8; i++ {
		recs = append(recs, usecase.OutboxRecord{ID: i, Channel: usecase.ChannelOrderCreated})
	}
	repo := newMemOutbox(recs...)
	pub := &fakePublisher{err: errors.New("broker down")}

	_, err := newTestRelay(repo, pub).RunOnce(context.Background())
	require.NoError(t, err)
	// five consecutive failures trip the breaker; the rest are left untouched
	assert.Len(t, pub.calls, 5)
	assert.Len(t, repo.failed, 5)
}

func TestOutboxRelay_Backoff(t *testing.T) {
	r := newTestRelay(newMemOutbox(), &fakePublisher{})
	assert.Equal(t, time.Second, r.backoff(1))
	assert.Equal(t, 2*time.Second, r.backoff(2))
	assert.Equal(t, 32*time.Second, r.backoff(6))
	assert.Equal(t, time.Minute, r.backoff(7))
	assert.Equal(t, time.Minute, r.backoff(40))
}

func TestOutboxRelay_RunStopsOnCancel(t *testing.T) {
	repo := newMemOutbox(usecase.OutboxRecord{ID: 1, Channel: usecase.ChannelOrderCreated})
	r := newTestRelay(repo, &fakePublisher{})
	r.cfg.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.sent) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(tag uint64, multiple bool) error { a.acked = true; return nil }
func (a *fakeAck) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAck) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func TestRouter_Dispatch(t *testing.T) {
	r := NewRouter(nil)
	h := JSONHandler[usecase.CreatedMsg]{HandleFunc: func(ctx context.Context, msg usecase.CreatedMsg) error {
		if msg.OrderID == "fail" {
			return errors.New("redis down")
		}
		return nil
	}}

	tests := []struct {
		name    string
		body    string
		ack     bool
		requeue bool
	}{
		{"ok", `{"orderId":"o-1","status":"pending"}`, true, false},
		{"transient", `{"orderId":"fail"}`, false, true},
		{"poison", `not json`, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAck{}
			r.dispatch(context.Background(), r.log, h, amqp.Delivery{Body: []byte(tt.body)}, a)
			assert.Equal(t, tt.ack, a.acked)
			assert.Equal(t, !tt.ack, a.nacked)
			assert.Equal(t, tt.requeue, a.requeued)
		})
	}
}

type memStatus map[string]string

func (m memStatus) SetStatus(ctx context.Context, id, status string) error { m[id] = status; return nil }
func (m memStatus) GetStatus(ctx context.Context, id string) (string, error) {
	return m[id], nil
}

func TestOrderCreatedHandler(t *testing.T) {
	cache := memStatus{"o-2": "paid"}
	h := NewOrderCreatedHandler(cache)
	ctx := context.Background()

	require.NoError(t, h.HandleCreated(ctx, usecase.CreatedMsg{OrderID: "o-1", Status: "pending"}))
	assert.Equal(t, "pending", cache["o-1"])

	require.NoError(t, h.HandleCreated(ctx, usecase.CreatedMsg{OrderID: "o-2", Status: "pending"}))
	assert.Equal(t, "paid", cache["o-2"])

	err := h.HandleCreated(ctx, usecase.CreatedMsg{})
	require.ErrorIs(t, err, ErrPoison)
}
