package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Orders committed by the create-order use case",
	})

	ordersFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_create_failures_total",
			Help: "Rejected or failed order creations by error kind",
		},
		[]string{"kind"},
	)

	idempotencyRememberFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_idempotency_remember_failures_total",
		Help: "Orders committed whose idempotency mapping could not be stored",
	})
)
