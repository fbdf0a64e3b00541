package http

import (
	"context"
	"net/http"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/gin-gonic/gin"
)

type cart interface {
	Get(ctx context.Context, userID int64) ([]domain.CartItem, error)
	Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error)
	Update(ctx context.Context, userID, itemID int64, quantity int) (*domain.CartItem, error)
	Remove(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) error
}

type CartHandler struct {
	uc cart
}

func NewCartHandler(uc cart) *CartHandler {
	return &CartHandler{uc: uc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	items, err := h.uc.Get(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]cartItemResp, 0, len(items))
	for _, it := range items {
		out = append(out, toCartItemResp(it))
	}
	okList(c, out, len(out))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req addCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	item, err := h.uc.Add(c.Request.Context(), middleware.UserID(c), req.ProductID, qty)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, toCartItemResp(*item))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	itemID, err := pathID(c, "itemId")
	if err != nil {
		fail(c, err)
		return
	}
	var req updateCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.uc.Update(c.Request.Context(), middleware.UserID(c), itemID, *req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	if item == nil {
		ok(c, http.StatusOK, gin.H{"id": itemID, "removed": true})
		return
	}
	ok(c, http.StatusOK, toCartItemResp(*item))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, err := pathID(c, "itemId")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.uc.Remove(c.Request.Context(), middleware.UserID(c), itemID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": itemID, "removed": true})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.uc.Clear(c.Request.Context(), middleware.UserID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"cleared": true})
}
