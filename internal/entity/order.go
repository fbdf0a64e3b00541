package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidProduct  = errors.New("product id must be positive")
)

// CanTransition reports whether an order may move from s to next.
// Pending orders settle once; only paid orders ship.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPaid || next == StatusCancelled
	case StatusPaid:
		return next == StatusShipped
	default:
		return false
	}
}

// LineRequest is one (product, quantity) entry of a checkout request.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

type Order struct {
	ID         string
	UserID     int64
	TotalPrice decimal.Decimal
	Status     Status
	CreatedAt  time.Time
	Lines      []OrderLine
}

// OrderLine carries the unit price captured when the order was placed.
type OrderLine struct {
	OrderID   string
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ValidateLines checks request shape only; existence is the store's concern.
func ValidateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return ErrEmptyOrder
	}
	for _, l := range lines {
		if l.ProductID <= 0 {
			return ErrInvalidProduct
		}
		if l.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

// DistinctProductIDs returns the requested ids without duplicates, in first-seen order.
func DistinctProductIDs(lines []LineRequest) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	out := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		out = append(out, l.ProductID)
	}
	return out
}

// PriceLines builds one OrderLine per request entry (duplicates stay separate)
// and returns them with their decimal total. Every product id must be in prices.
func PriceLines(lines []LineRequest, prices map[int64]decimal.Decimal) ([]OrderLine, decimal.Decimal) {
	total := decimal.Zero
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		ol := OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: prices[l.ProductID],
		}
		total = total.Add(ol.Subtotal())
		out = append(out, ol)
	}
	return out, total
}

// LinesTotal sums quantity x unit price over lines.
func LinesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
