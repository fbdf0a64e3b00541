package http

import (
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/shopspring/decimal"
)

// money renders a fixed two-decimal string so clients never see float rounding.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type productResp struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	Stock       int     `json:"stock"`
	ImageURL    string  `json:"imageUrl"`
	CategoryID  *int64  `json:"categoryId"`
	Category    *string `json:"category"`
}

func toProductResp(p domain.Product) productResp {
	out := productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
	}
	if p.Category != "" {
		name := p.Category
		out.Category = &name
	}
	return out
}

type productReq struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       int              `json:"stock" binding:"gte=0"`
	ImageURL    string           `json:"imageUrl" binding:"omitempty,url"`
	CategoryID  *int64           `json:"categoryId" binding:"omitempty,gt=0"`
}

func (r productReq) toDomain(id int64) *domain.Product {
	return &domain.Product{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Price:       *r.Price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
		CategoryID:  r.CategoryID,
	}
}

type categoryResp struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type cartItemResp struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"productId"`
	Quantity  int         `json:"quantity"`
	Subtotal  string      `json:"subtotal"`
	Product   productResp `json:"product"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func toCartItemResp(it domain.CartItem) cartItemResp {
	return cartItemResp{
		ID:        it.ID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		Subtotal:  money(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))),
		Product:   toProductResp(it.Product),
		UpdatedAt: it.UpdatedAt,
	}
}

type addCartReq struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  *int  `json:"quantity"`
}

type updateCartReq struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type orderLineReq struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// Items are shape-checked by the use case so an empty list or bad quantity
// reports the same invalid_input kind as every other caller.
type createOrderReq struct {
	Items []orderLineReq `json:"items"`
}

type orderLineResp struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Subtotal  string `json:"subtotal"`
}

type orderResp struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"userId"`
	TotalPrice string          `json:"totalPrice"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	Items      []orderLineResp `json:"items"`
}

func toOrderResp(o domain.Order) orderResp {
	items := make([]orderLineResp, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, orderLineResp{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     money(l.UnitPrice),
			Subtotal:  money(l.Subtotal()),
		})
	}
	return orderResp{
		ID:         o.ID,
		UserID:     o.UserID,
		TotalPrice: money(o.TotalPrice),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
		Items:      items,
	}
}

type registerReq struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResp struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResp(u domain.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role), CreatedAt: u.CreatedAt}
}

type authResp struct {
	User  userResp `json:"user"`
	Token string   `json:"token"`
}
