package http

import (
	"context"
	"net/http"

	"github.com/aq2208/storefront-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type authenticator interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	Me(ctx context.Context, userID int64) (*domain.User, error)
}

type AuthHandler struct {
	uc authenticator
}

func NewAuthHandler(uc authenticator) *AuthHandler {
	return &AuthHandler{uc: uc}
}

// POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.uc.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, authResp{User: toUserResp(*res.User), Token: res.Token})
}

// POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.uc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, authResp{User: toUserResp(*res.User), Token: res.Token})
}

// GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.uc.Me(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, toUserResp(*u))
}
