package usecase

import "time"

const ChannelOrderCreated = "order.created.v1"

// Written to the outbox in the order transaction, relayed to RabbitMQ.
type CreatedMsg struct {
	OrderID    string        `json:"orderId"`
	UserID     int64         `json:"userId"`
	TotalPrice string        `json:"totalPrice"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	Lines      []CreatedLine `json:"lines"`
}

type CreatedLine struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

// Sent by payment/fulfilment on Kafka
type OrderStatusChangedMsg struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"` // e.g. "paid", "cancelled", "shipped"
	Reason  string `json:"reason,omitempty"`
}
