package usecase

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/aq2208/storefront-api/internal/entity"
)

type Cart struct {
	repo CartRepo
}

func NewCart(repo CartRepo) *Cart {
	return &Cart{repo: repo}
}

func (c *Cart) Get(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	items, err := c.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// Add puts quantity units of a product in the cart, merging into an existing
// line for the same product.
func (c *Cart) Add(ctx context.Context, userID, productID int64, quantity int) (*domain.CartItem, error) {
	if productID <= 0 || quantity <= 0 {
		return nil, fmt.Errorf("%w: productId and positive quantity are required", ErrInvalidInput)
	}

	ok, err := c.repo.ProductExists(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
	}

	existing, err := c.repo.FindByUserAndProduct(ctx, userID, productID)
	switch {
	case err == nil:
		item, err := c.repo.IncrementQuantity(ctx, existing.ID, quantity)
		if err != nil {
			return nil, fmt.Errorf("add to cart: %w", err)
		}
		return item, nil
	case errors.Is(err, ErrNotFound):
		item := &domain.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}
		if err := c.repo.Insert(ctx, item); err != nil {
			return nil, fmt.Errorf("add to cart: %w", err)
		}
		return item, nil
	default:
		return nil, fmt.Errorf("add to cart: %w", err)
	}
}

// Update sets a line's quantity. A quantity <= 0 removes the line, in which
// case the returned item is nil.
func (c *Cart) Update(ctx context.Context, userID, itemID int64, quantity int) (*domain.CartItem, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("%w: invalid item id", ErrInvalidInput)
	}
	if quantity <= 0 {
		return nil, c.Remove(ctx, userID, itemID)
	}
	item, err := c.repo.SetQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return item, nil
}

func (c *Cart) Remove(ctx context.Context, userID, itemID int64) error {
	if err := c.repo.Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: cart item %d", ErrNotFound, itemID)
		}
		return fmt.Errorf("remove cart item: %w", err)
	}
	return nil
}

func (c *Cart) Clear(ctx context.Context, userID int64) error {
	if err := c.repo.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
