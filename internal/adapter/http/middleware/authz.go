package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aq2208/storefront-api/configs"
	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxUserID = "auth.user_id"
	ctxRole   = "auth.role"
)

// UserClaims is the payload of the bearer tokens handed out at login.
type UserClaims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Authz struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

func NewAuthz(cfg configs.Config) *Authz {
	return &Authz{
		secret:   []byte(cfg.Security.JWTSecret),
		issuer:   cfg.Security.Issuer,
		audience: cfg.Security.Audience,
		ttl:      cfg.Security.TTL,
		now:      time.Now,
	}
}

// Issue signs an HS256 token for the user.
func (a *Authz) Issue(userID int64, role domain.Role) (string, error) {
	now := a.now()
	claims := UserClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authz) parse(raw string) (*UserClaims, error) {
	var claims UserClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithAudience(a.audience),
		jwt.WithLeeway(30*time.Second), // small clock skew
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}

// RequireUser accepts any valid bearer token and exposes its subject via UserID and Role.
func (a *Authz) RequireUser() gin.HandlerFunc {
	return a.require(nil)
}

// RequireAdmin additionally rejects non-admin tokens with 403.
func (a *Authz) RequireAdmin() gin.HandlerFunc {
	return a.require(func(c *UserClaims) bool { return c.Role == string(domain.RoleAdmin) })
}

func (a *Authz) require(allow func(*UserClaims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			unauth(c, "invalid_request", "missing bearer token")
			return
		}

		claims, err := a.parse(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			desc := "invalid jwt"
			if errors.Is(err, jwt.ErrTokenExpired) {
				desc = "token expired"
			}
			logging.From(c).Debug("jwt rejected", "error", err)
			unauth(c, "invalid_token", desc)
			return
		}

		if allow != nil && !allow(claims) {
			forbidden(c, "insufficient_scope", "admin role required")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, domain.Role(claims.Role))
		logging.With(c, logging.From(c).With("user_id", claims.UserID))
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireUser/RequireAdmin.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func Role(c *gin.Context) domain.Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(domain.Role); ok {
			return r
		}
	}
	return ""
}

func unauth(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "unauthorized", "message": desc})
}

func forbidden(c *gin.Context, code, desc string) {
	c.Header("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "error": "forbidden", "message": desc})
}
