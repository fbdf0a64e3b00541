package http

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth    *AuthHandler
	Catalog *CatalogHandler
	Cart    *CartHandler
	Order   *OrderHandler
}

func init() {
	// report json names in validation messages
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	}
}

func NewRouter(h Handlers, authz *middleware.Authz, l *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	r.Use(middleware.Tracing(), middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		logging.From(c).Debug("health check")
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	user := authz.RequireUser()
	admin := authz.RequireAdmin()

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/register", h.Auth.Register)
		v1.POST("/auth/login", h.Auth.Login)
		v1.GET("/auth/me", user, h.Auth.Me)

		v1.GET("/categories", h.Catalog.ListCategories)
		v1.GET("/products", h.Catalog.ListProducts)
		v1.GET("/products/:id", h.Catalog.GetProduct)
		v1.POST("/products", admin, h.Catalog.CreateProduct)
		v1.PUT("/products/:id", admin, h.Catalog.UpdateProduct)
		v1.DELETE("/products/:id", admin, h.Catalog.DeleteProduct)

		v1.GET("/cart", user, h.Cart.GetCart)
		v1.POST("/cart", user, h.Cart.AddItem)
		v1.DELETE("/cart", user, h.Cart.ClearCart)
		v1.PUT("/cart/items/:itemId", user, h.Cart.UpdateItem)
		v1.DELETE("/cart/items/:itemId", user, h.Cart.RemoveItem)

		v1.POST("/orders", user, h.Order.CreateOrder)
		v1.GET("/orders", user, h.Order.ListOrders)
		v1.GET("/orders/:id", user, h.Order.GetOrderByID)
	}

	return r
}
