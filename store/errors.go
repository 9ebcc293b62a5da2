package store

import (
	"errors"
	"fmt"
)

// Business failures. These are ordinary outcomes the caller reports to the
// user; they never indicate a broken process.
var (
	// ErrInsufficientStock returned when requested qty exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrInvalidSale       = errors.New("invalid sale")
	ErrEmptyCart         = errors.New("cart empty")
	ErrInvalidProduct    = errors.New("invalid product")
)

var failures = []error{
	ErrInsufficientStock,
	ErrInvalidQuantity,
	ErrAlreadyExists,
	ErrNotFound,
	ErrProductNotFound,
	ErrCartNotFound,
	ErrItemNotInCart,
	ErrInvalidSale,
	ErrEmptyCart,
	ErrInvalidProduct,
}

// IsFailure reports whether err is a business failure rather than an
// internal one.
func IsFailure(err error) bool {
	if err == nil {
		return false
	}
	var ie *InternalError
	if errors.As(err, &ie) {
		return false
	}
	for _, f := range failures {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}

// InternalError carries unexpected failures: broken invariants, repository
// errors, lookups that must not miss.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: internal: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func Internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

func Internalf(op, format string, args ...interface{}) error {
	return &InternalError{Op: op, Err: fmt.Errorf(format, args...)}
}

