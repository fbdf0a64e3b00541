package usecase

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrDuplicate           = errors.New("duplicate idempotency key")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Kind is the stable, client-facing name of an error category.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindProductNotFound     Kind = "product_not_found"
	KindOrderCreationFailed Kind = "order_creation_failed"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindDuplicate           Kind = "duplicate"
	KindConflict            Kind = "conflict"
	KindUnauthorized        Kind = "unauthorized"
	KindInternal            Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrProductNotFound, KindProductNotFound},
	{ErrOrderCreationFailed, KindOrderCreationFailed},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrDuplicate, KindDuplicate},
	{ErrConflict, KindConflict},
	{ErrUnauthorized, KindUnauthorized},
}

// KindOf maps err onto its Kind. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
