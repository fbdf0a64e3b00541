package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type CatalogHandler struct {
	uc catalog
}

func NewCatalogHandler(uc catalog) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ps, err := h.uc.ListProducts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]productResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProductResp(p))
	}
	okList(c, out, len(out))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	p, err := h.uc.GetProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, toProductResp(*p))
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := req.toDomain(0)
	if err := h.uc.CreateProduct(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	// re-read so the response carries the joined category name
	if stored, err := h.uc.GetProduct(c.Request.Context(), p.ID); err == nil {
		p = stored
	}
	ok(c, http.StatusCreated, toProductResp(*p))
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	p := req.toDomain(id)
	if err := h.uc.UpdateProduct(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	if stored, err := h.uc.GetProduct(c.Request.Context(), id); err == nil {
		p = stored
	}
	ok(c, http.StatusOK, toProductResp(*p))
}

func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.uc.DeleteProduct(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cs, err := h.uc.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]categoryResp, 0, len(cs))
	for _, cat := range cs {
		out = append(out, categoryResp{ID: cat.ID, Name: cat.Name})
	}
	okList(c, out, len(out))
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", usecase.ErrInvalidInput, name)
	}
	return id, nil
}
