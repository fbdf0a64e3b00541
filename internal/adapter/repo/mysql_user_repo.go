package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
)

type MySQLUserRepo struct{ db *sql.DB }

func NewMySQLUserRepo(db *sql.DB) *MySQLUserRepo { return &MySQLUserRepo{db: db} }

func (r *MySQLUserRepo) Create(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (name,email,password_hash,role,created_at)
VALUES (?,?,?,?,UTC_TIMESTAMP())
`, u.Name, u.Email, u.PasswordHash, string(u.Role))
	if err != nil {
		if isMySQLError(err, mysqlErrDuplicateEntry) {
			return fmt.Errorf("%w: email already exists", usecase.ErrConflict)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *MySQLUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `WHERE email=?`, email)
}

func (r *MySQLUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, `WHERE id=?`, id)
}

func (r *MySQLUserRepo) getOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,name,email,password_hash,role,created_at
FROM users `+where, arg)
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

var _ usecase.UserRepo = (*MySQLUserRepo)(nil)
