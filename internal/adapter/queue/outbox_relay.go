package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

const baseBackoff = time.Second

var (
	outboxPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_published_total",
		Help: "Outbox rows delivered to the broker.",
	})
	outboxFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_outbox_publish_failures_total",
		Help: "Failed outbox publish attempts.",
	})
)

// Publisher is satisfied by RabbitProducer.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type RelayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxBackoff time.Duration
	// RoutingKeys maps an outbox channel onto a routing key; unmapped channels route by name.
	RoutingKeys map[string]string
}

// OutboxRelay drains pending outbox rows to the broker. Rows are marked SENT
// only after a confirmed publish, so delivery is at-least-once.
type OutboxRelay struct {
	repo usecase.OutboxRepo
	pub  Publisher
	cb   *gobreaker.CircuitBreaker
	cfg  RelayConfig
	now  func() time.Time
	log  *slog.Logger
}

func NewOutboxRelay(repo usecase.OutboxRepo, pub Publisher, cfg RelayConfig) *OutboxRelay {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Minute
	}
	log := logging.New("outbox-relay")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rabbitmq-publish",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &OutboxRelay{repo: repo, pub: pub, cb: cb, cfg: cfg, now: time.Now, log: log}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.log.Info("outbox relay started", "interval", r.cfg.Interval.String())
	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Error("outbox relay pass failed", "error", err)
			}
		}
	}
}

// RunOnce publishes one batch and reports how many rows were sent.
// An open breaker ends the pass early without charging a retry to the rows.
func (r *OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	recs, err := r.repo.FetchPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range recs {
		_, err := r.cb.Execute(func() (any, error) {
			return nil, r.pub.Publish(ctx, r.routingKey(rec.Channel), rec.Payload)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return sent, nil
		}
		if err != nil {
			outboxFailures.Inc()
			retry := rec.RetryCount + 1
			next := r.now().Add(r.backoff(retry))
			r.log.Warn("outbox publish failed", "id", rec.ID, "retry", retry, "error", err)
			if mErr := r.repo.MarkFailed(ctx, rec.ID, retry, next, err.Error()); mErr != nil {
				return sent, mErr
			}
			continue
		}

		if err := r.repo.MarkSent(ctx, rec.ID); err != nil {
			// published but not marked: the row is re-sent next pass
			return sent, err
		}
		outboxPublished.Inc()
		sent++
	}
	return sent, nil
}

func (r *OutboxRelay) routingKey(channel string) string {
	if rk, ok := r.cfg.RoutingKeys[channel]; ok {
		return rk
	}
	return channel
}

// backoff doubles from baseBackoff per retry, capped at MaxBackoff.
func (r *OutboxRelay) backoff(retry int) time.Duration {
	d := baseBackoff
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	if d > r.cfg.MaxBackoff {
		return r.cfg.MaxBackoff
	}
	return d
}
