package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

const cartSelect = `
SELECT ci.id,ci.user_id,ci.product_id,ci.quantity,ci.updated_at,` + productColumns + `
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
LEFT JOIN categories c ON c.id = p.category_id`

type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

func scanCartItem(s rowScanner, it *domain.CartItem) error {
	var categoryID sql.NullInt64
	p := &it.Product
	err := s.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.UpdatedAt,
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &categoryID, &p.Category)
	if err != nil {
		return err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	return nil
}

// ListByUser returns the cart most recently touched first.
func (r *MySQLCartRepo) ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, cartSelect+`
WHERE ci.user_id=?
ORDER BY ci.updated_at DESC, ci.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CartItem{}
	for rows.Next() {
		var it domain.CartItem
		if err := scanCartItem(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MySQLCartRepo) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id=?`, productID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *MySQLCartRepo) FindByUserAndProduct(ctx context.Context, userID, productID int64) (*domain.CartItem, error) {
	return r.getOne(ctx, cartSelect+` WHERE ci.user_id=? AND ci.product_id=?`, userID, productID)
}

func (r *MySQLCartRepo) Insert(ctx context.Context, item *domain.CartItem) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (user_id,product_id,quantity,updated_at)
VALUES (?,?,?,UTC_TIMESTAMP())
ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity), updated_at = UTC_TIMESTAMP()
`, item.UserID, item.ProductID, item.Quantity)
	if err != nil {
		return err
	}
	stored, err := r.FindByUserAndProduct(ctx, item.UserID, item.ProductID)
	if err != nil {
		return err
	}
	*item = *stored
	return nil
}

func (r *MySQLCartRepo) IncrementQuantity(ctx context.Context, itemID int64, delta int) (*domain.CartItem, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE cart_items SET quantity = quantity + ?, updated_at = UTC_TIMESTAMP() WHERE id=?`, delta, itemID)
	if err != nil {
		return nil, err
	}
	if err := requireOneRow(res); err != nil {
		return nil, err
	}
	return r.getOne(ctx, cartSelect+` WHERE ci.id=?`, itemID)
}

func (r *MySQLCartRepo) SetQuantity(ctx context.Context, userID, itemID int64, quantity int) (*domain.CartItem, error) {
	// affected rows is 0 when the quantity is unchanged, so ownership is checked by the read back
	if _, err := r.db.ExecContext(ctx, `
UPDATE cart_items SET quantity=?, updated_at=UTC_TIMESTAMP() WHERE id=? AND user_id=?`, quantity, itemID, userID); err != nil {
		return nil, err
	}
	return r.getOne(ctx, cartSelect+` WHERE ci.id=? AND ci.user_id=?`, itemID, userID)
}

func (r *MySQLCartRepo) Delete(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id=? AND user_id=?`, itemID, userID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *MySQLCartRepo) Clear(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id=?`, userID)
	return err
}

func (r *MySQLCartRepo) getOne(ctx context.Context, q string, args ...any) (*domain.CartItem, error) {
	var it domain.CartItem
	if err := scanCartItem(r.db.QueryRowContext(ctx, q, args...), &it); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

var _ usecase.CartRepo = (*MySQLCartRepo)(nil)
