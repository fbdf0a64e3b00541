package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type orderCreator interface {
	Execute(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error)
}

type orderLister interface {
	Execute(ctx context.Context, ownerID int64) ([]domain.Order, error)
}

type orderGetter interface {
	Execute(ctx context.Context, orderID string, requesterID int64) (*domain.Order, error)
}

type OrderHandler struct {
	create  orderCreator
	list    orderLister
	get     orderGetter
	timeout time.Duration
}

func NewOrderHandler(create orderCreator, list orderLister, get orderGetter, timeout time.Duration) *OrderHandler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &OrderHandler{create: create, list: list, get: get, timeout: timeout}
}

// CreateOrder handler: translate to use case input
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lines := make([]domain.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, domain.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	idemKey := c.GetHeader("X-Idempotency-Key") // opt-in replay protection

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	out, err := h.create.Execute(ctx, usecase.CreateOrderInput{
		UserID:         middleware.UserID(c),
		IdempotencyKey: idemKey,
		Lines:          lines,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Location", "/v1/orders/"+out.ID)
	ok(c, http.StatusCreated, toOrderResp(*out))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	orders, err := h.list.Execute(ctx, middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	okList(c, out, len(out))
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	o, err := h.get.Execute(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, toOrderResp(*o))
}
