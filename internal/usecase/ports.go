package usecase

import (
	"context"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/shopspring/decimal"
)

// OrderTx is one unit of work for order creation. Nothing written through it
// is visible to others until Commit; Rollback after Commit is a no-op.
type OrderTx interface {
	// ResolvePrices returns the current price of every id that exists,
	// silently omitting unknown ones.
	ResolvePrices(ctx context.Context, ids []int64) (map[int64]decimal.Decimal, error)
	InsertOrder(ctx context.Context, o *domain.Order) error
	InsertOrderLine(ctx context.Context, l domain.OrderLine) error
	InsertOutbox(ctx context.Context, channel string, payload []byte) error
	Commit() error
	Rollback() error
}

type OrderStore interface {
	BeginOrderTx(ctx context.Context) (OrderTx, error)
}

type OrderReader interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}

type OrderStatusWriter interface {
	UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error)
}

type OrderCache interface {
	SetStatus(ctx context.Context, orderID string, status string) error
	GetStatus(ctx context.Context, orderID string) (string, error)
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
	Release(ctx context.Context, scope, key string) error
}

type ProductRepo interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

// ProductCache is a best-effort read cache in front of ProductRepo.GetByID.
type ProductCache interface {
	Get(ctx context.Context, id int64) (*domain.Product, bool, error)
	Set(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type CategoryRepo interface {
	List(ctx context.Context) ([]domain.Category, error)
}

type CartRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.CartItem, error)
	ProductExists(ctx context.Context, productID int64) (bool, error)
	FindByUserAndProduct(ctx context.Context, userID, productID int64) (*domain.CartItem, error)
	Insert(ctx context.Context, item *domain.CartItem) error
	IncrementQuantity(ctx context.Context, itemID int64, delta int) (*domain.CartItem, error)
	SetQuantity(ctx context.Context, userID, itemID int64, quantity int) (*domain.CartItem, error)
	Delete(ctx context.Context, userID, itemID int64) error
	Clear(ctx context.Context, userID int64) error
}

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type TokenIssuer interface {
	Issue(userID int64, role domain.Role) (string, error)
}

// OutboxRecord is a pending event row written alongside the aggregate it describes.
type OutboxRecord struct {
	ID          int64
	Channel     string
	Payload     []byte
	RetryCount  int
	NextAttempt time.Time
}

type OutboxRepo interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, retryCount int, nextAttempt time.Time, reason string) error
}
