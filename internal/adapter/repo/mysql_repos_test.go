package repo

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "name", "description", "price", "stock", "image_url", "category_id", "category"}

func TestProductRepo_GetByIDWithCategory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM products p LEFT JOIN categories c`).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(3, "mug", "blue", "12.50", 4, "", 2, "Home"))
	mock.ExpectQuery(`FROM products p LEFT JOIN categories c`).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(productCols))

	r := NewMySQLProductRepo(db)
	p, err := r.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Home", p.Category)
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, int64(2), *p.CategoryID)
	assert.Equal(t, "12.50", p.Price.StringFixed(2))

	_, err = r.GetByID(context.Background(), 4)
	require.ErrorIs(t, err, usecase.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepo_CreateUpdateDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO products`).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(`UPDATE products`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM products WHERE id=\?`).WithArgs(int64(11)).WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewMySQLProductRepo(db)
	p := &domain.Product{Name: "mug", Price: decimal.NewFromInt(3)}
	require.NoError(t, r.Create(context.Background(), p))
	assert.Equal(t, int64(11), p.ID)

	p.ID = 99
	require.ErrorIs(t, r.Update(context.Background(), p), usecase.ErrNotFound)
	require.NoError(t, r.Delete(context.Background(), 11))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id,name FROM categories`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Books").AddRow(2, "Home"))

	cs, err := NewMySQLCategoryRepo(db).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{{ID: 1, Name: "Books"}, {ID: 2, Name: "Home"}}, cs)
}

func TestCartRepo_InsertReadsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cols := append([]string{"id", "user_id", "product_id", "quantity", "updated_at"}, productCols...)

	mock.ExpectExec(`INSERT INTO cart_items`).WithArgs(int64(9), int64(3), 2).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(`FROM cart_items ci`).WithArgs(int64(9), int64(3)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(5, 9, 3, 2, now, 3, "mug", "", "12.50", 4, "", nil, ""))

	item := &domain.CartItem{UserID: 9, ProductID: 3, Quantity: 2}
	require.NoError(t, NewMySQLCartRepo(db).Insert(context.Background(), item))
	assert.Equal(t, int64(5), item.ID)
	assert.Equal(t, "mug", item.Product.Name)
	assert.Nil(t, item.Product.CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepo_DeleteOtherUsersItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM cart_items WHERE id=\? AND user_id=\?`).WithArgs(int64(5), int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewMySQLCartRepo(db).Delete(context.Background(), 10, 5)
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestCartRepo_ProductExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT 1 FROM products`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`SELECT 1 FROM products`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	r := NewMySQLCartRepo(db)
	ok, err := r.ProductExists(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.ProductExists(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserRepo_DuplicateEmailIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err = NewMySQLUserRepo(db).Create(context.Background(), &domain.User{Email: "a@b.c", Role: domain.RoleCustomer})
	require.ErrorIs(t, err, usecase.ErrConflict)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM users WHERE email=\?`).WithArgs("a@b.c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at"}).
			AddRow(1, "Ada", "a@b.c", "hash", "admin", now))
	mock.ExpectQuery(`FROM users WHERE id=\?`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "created_at"}))

	r := NewMySQLUserRepo(db)
	u, err := r.GetByEmail(context.Background(), "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = r.GetByID(context.Background(), 2)
	require.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestOutboxRepo_FetchAndMark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	next := time.Date(2026, 3, 14, 16, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	mock.ExpectQuery(`FROM outbox\s+WHERE status='PENDING' AND next_attempt_at <= UTC_TIMESTAMP\(\)`).WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "channel", "payload", "retry_count", "next_attempt_at"}).
			AddRow(1, usecase.ChannelOrderCreated, []byte(`{"orderId":"o-1"}`), 0, next))
	mock.ExpectExec(`UPDATE outbox SET status='SENT'`).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	// written as UTC whatever zone the relay clock carries
	mock.ExpectExec(`UPDATE outbox SET retry_count=\?`).WithArgs(1, next.UTC(), "broker down", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewMySQLOutboxRepo(db)
	recs, err := r.FetchPending(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, usecase.ChannelOrderCreated, recs[0].Channel)
	require.NoError(t, r.MarkSent(context.Background(), 1))
	require.NoError(t, r.MarkFailed(context.Background(), 1, 1, next, "broker down"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeDSN(t *testing.T) {
	out, err := NormalizeDSN("app:pw@tcp(db:3306)/storefront?loc=Local&charset=utf8mb4")
	require.NoError(t, err)

	mc, err := mysql.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, mc.ParseTime)
	assert.Equal(t, time.UTC, mc.Loc)
	assert.Equal(t, "'+00:00'", mc.Params["time_zone"])
	assert.True(t, mc.ClientFoundRows)
	assert.Contains(t, out, "charset=utf8mb4")
	assert.Equal(t, "storefront", mc.DBName)

	_, err = NormalizeDSN("not a dsn")
	require.Error(t, err)
}

func TestProductRepo_UnknownCategoryIsInvalidInput(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fk := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row: a foreign key constraint fails"}
	mock.ExpectExec(`INSERT INTO products`).WillReturnError(fk)
	mock.ExpectExec(`UPDATE products`).WillReturnError(fk)

	cat := int64(99)
	r := NewMySQLProductRepo(db)
	p := &domain.Product{Name: "Lamp", Price: decimal.RequireFromString("20"), CategoryID: &cat}

	err = r.Create(context.Background(), p)
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
	assert.Equal(t, usecase.KindInvalidInput, usecase.KindOf(err))

	p.ID = 3
	err = r.Update(context.Background(), p)
	require.ErrorIs(t, err, usecase.ErrInvalidInput)
	require.NoError(t, mock.ExpectationsWereMet())
}
