package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/shopspring/decimal"
)

var ErrNotFound = usecase.ErrNotFound

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

func (r *MySQLOrderRepo) BeginOrderTx(ctx context.Context) (usecase.OrderTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &mysqlOrderTx{tx: tx}, nil
}

type mysqlOrderTx struct {
	tx   *sql.Tx
	done bool
}

// ResolvePrices reads current prices without locking product rows; concurrent
// orders may snapshot the same price.
func (t *mysqlOrderTx) ResolvePrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := `SELECT id, price FROM products WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := t.tx.QueryContext(ctx, q, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			price decimal.Decimal
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		out[id] = price
	}
	return out, rows.Err()
}

func (t *mysqlOrderTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO orders (id,user_id,total_price,status,created_at,updated_at)
VALUES (?,?,?,?,?,?)
`, o.ID, o.UserID, o.TotalPrice, string(o.Status), o.CreatedAt, o.CreatedAt)
	return err
}

func (t *mysqlOrderTx) InsertOrderLine(ctx context.Context, l domain.OrderLine) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO order_items (order_id,product_id,quantity,price)
VALUES (?,?,?,?)
`, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice)
	return err
}

func (t *mysqlOrderTx) InsertOutbox(ctx context.Context, channel string, payload []byte) error {
	return insertOutbox(ctx, t.tx, channel, payload)
}

func (t *mysqlOrderTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *mysqlOrderTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,user_id,total_price,status,created_at
FROM orders WHERE id=?`, id)

	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalPrice, &status, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.Status = domain.Status(status)

	lines, err := r.linesFor(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

// ListByUser returns the user's orders newest first, each with its lines.
func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id,user_id,total_price,status,created_at
FROM orders WHERE user_id=?
ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var (
			o      domain.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Status = domain.Status(status)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

func (r *MySQLOrderRepo) linesFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderLine, error) {
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT order_id,product_id,quantity,price
FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`)
ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		out[l.OrderID] = append(out[l.OrderID], l)
	}
	return out, rows.Err()
}

func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders
SET status = ?, updated_at = UTC_TIMESTAMP()
WHERE id = ? AND status = ?`,
		string(to), id, string(from),
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// rows == 0 → nothing matched (either not found or status mismatch)
	return rows > 0, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

var (
	_ usecase.OrderStore        = (*MySQLOrderRepo)(nil)
	_ usecase.OrderReader       = (*MySQLOrderRepo)(nil)
	_ usecase.OrderStatusWriter = (*MySQLOrderRepo)(nil)
)
