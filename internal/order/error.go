package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidLineItem       = errors.New("invalid line item")
	ErrOrderRejected         = errors.New("order rejected")
	ErrPersistenceFailure    = errors.New("order could not be persisted")
	ErrOrderNotFound         = errors.New("order not found")
	ErrCatalogUnavailable    = errors.New("catalog unavailable")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")
	ErrInvalidCustomerInfo   = errors.New("invalid customer info")
	ErrOrderTooLarge         = errors.New("order total too large")
)

type RejectionReason string

const (
	ReasonNotFound    RejectionReason = "not_found"
	ReasonUnavailable RejectionReason = "unavailable"
)

// Rejection describes one offending product. Name is empty when the
// product does not exist.
type Rejection struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Reason    RejectionReason `json:"reason"`
}

// RejectedError carries every rejected product of a submission, in the
// order the products first appeared in the cart.
type RejectedError struct {
	Rejections []Rejection
}

func (e *RejectedError) Error() string {
	parts := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		parts = append(parts, fmt.Sprintf("product %d %s", r.ProductID, r.Reason))
	}
	return fmt.Sprintf("%s: %s", ErrOrderRejected, strings.Join(parts, ", "))
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrOrderRejected
}

func (e *RejectedError) ProductIDs() []int64 {
	ids := make([]int64, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		ids = append(ids, r.ProductID)
	}
	return ids
}
