package repo

import (
	"context"
	"database/sql"
	"errors"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

const productColumns = `p.id,p.name,p.description,p.price,p.stock,p.image_url,p.category_id,COALESCE(c.name,'')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner, p *domain.Product) error {
	var categoryID sql.NullInt64
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &categoryID, &p.Category); err != nil {
		return err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	return nil
}

type MySQLProductRepo struct{ db *sql.DB }

func NewMySQLProductRepo(db *sql.DB) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

func (r *MySQLProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
ORDER BY p.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *MySQLProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
WHERE p.id=?`, id)
	var p domain.Product
	if err := scanProduct(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO products (name,description,price,stock,image_url,category_id)
VALUES (?,?,?,?,?,?)
`, p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CategoryID)
	if err != nil {
		return productWriteError(err, p.CategoryID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *MySQLProductRepo) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET name=?, description=?, price=?, stock=?, image_url=?, category_id=?, updated_at=UTC_TIMESTAMP()
WHERE id=?`, p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CategoryID, p.ID)
	if err != nil {
		return productWriteError(err, p.CategoryID)
	}
	// rows affected counts matched rows (clientFoundRows), so zero means the id is unknown
	return requireOneRow(res)
}

func (r *MySQLProductRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

type MySQLCategoryRepo struct{ db *sql.DB }

func NewMySQLCategoryRepo(db *sql.DB) *MySQLCategoryRepo { return &MySQLCategoryRepo{db: db} }

func (r *MySQLCategoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var (
	_ usecase.ProductRepo  = (*MySQLProductRepo)(nil)
	_ usecase.CategoryRepo = (*MySQLCategoryRepo)(nil)
)
