package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
)

type Catalog struct {
	products   ProductRepo
	categories CategoryRepo
	cache      ProductCache // optional
}

func NewCatalog(products ProductRepo, categories CategoryRepo, cache ProductCache) *Catalog {
	return &Catalog{products: products, categories: categories, cache: cache}
}

func (c *Catalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ps, err := c.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if ps == nil {
		ps = []domain.Product{}
	}
	return ps, nil
}

// GetProduct reads through the product cache. Cache failures fall back to the store.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid product id", ErrInvalidInput)
	}
	if c.cache != nil {
		if p, ok, err := c.cache.Get(ctx, id); err == nil && ok {
			return p, nil
		} else if err != nil {
			logging.FromCtx(ctx).Warn("product cache get", slog.Int64("product_id", id), slog.Any("error", err))
		}
	}

	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if c.cache != nil {
		_ = c.cache.Set(ctx, p)
	}
	return p, nil
}

func (c *Catalog) CreateProduct(ctx context.Context, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := c.products.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (c *Catalog) UpdateProduct(ctx context.Context, p *domain.Product) error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: invalid product id", ErrInvalidInput)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := c.products.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, p.ID)
		}
		return fmt.Errorf("update product: %w", err)
	}
	c.evict(ctx, p.ID)
	return nil
}

func (c *Catalog) DeleteProduct(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product id", ErrInvalidInput)
	}
	if err := c.products.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	c.evict(ctx, id)
	return nil
}

func (c *Catalog) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cs, err := c.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if cs == nil {
		cs = []domain.Category{}
	}
	return cs, nil
}

func (c *Catalog) evict(ctx context.Context, id int64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, id); err != nil {
		logging.FromCtx(ctx).Warn("product cache evict", slog.Int64("product_id", id), slog.Any("error", err))
	}
}
