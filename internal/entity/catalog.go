package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductName  = errors.New("name is required")
	ErrProductPrice = errors.New("price must be non-negative")
	ErrProductStock = errors.New("stock must be non-negative")
)

type Category struct {
	ID   int64
	Name string
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	ImageURL    string
	CategoryID  *int64
	Category    string // resolved name on reads, empty when uncategorised
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrProductName
	}
	if p.Price.IsNegative() {
		return ErrProductPrice
	}
	if p.Stock < 0 {
		return ErrProductStock
	}
	return nil
}

// CartItem is a pending line of a user's cart joined with its product.
type CartItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	Product   Product
	UpdatedAt time.Time
}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
