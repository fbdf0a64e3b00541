package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aq2208/storefront-api/internal/logging"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Count  *int   `json:"count,omitempty"`
}

type errorBody struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

var kindStatus = map[usecase.Kind]int{
	usecase.KindInvalidInput:        http.StatusBadRequest,
	usecase.KindProductNotFound:     http.StatusNotFound,
	usecase.KindOrderCreationFailed: http.StatusInternalServerError,
	usecase.KindNotFound:            http.StatusNotFound,
	usecase.KindForbidden:           http.StatusForbidden,
	usecase.KindDuplicate:           http.StatusConflict,
	usecase.KindConflict:            http.StatusConflict,
	usecase.KindUnauthorized:        http.StatusUnauthorized,
	usecase.KindInternal:            http.StatusInternalServerError,
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Status: "ok", Data: data})
}

func okList(c *gin.Context, data any, n int) {
	c.JSON(http.StatusOK, envelope{Status: "ok", Data: data, Count: &n})
}

// fail maps a use case error onto its HTTP status. Server-side failures are
// logged with the cause and answered with a generic message.
func fail(c *gin.Context, err error) {
	kind := usecase.KindOf(err)
	status, found := kindStatus[kind]
	if !found {
		status = http.StatusInternalServerError
	}

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logging.From(c).Error("request failed", "kind", string(kind), "error", err)
		msg = strings.ReplaceAll(string(kind), "_", " ")
	}
	c.AbortWithStatusJSON(status, errorBody{Status: "error", Error: string(kind), Message: msg})
}

// badRequest answers a body or path that failed to bind.
func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{
		Status:  "error",
		Error:   string(usecase.KindInvalidInput),
		Message: describeBindError(err),
	})
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "malformed request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "email":
			parts = append(parts, fe.Field()+" must be a valid email")
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
