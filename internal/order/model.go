package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPlaced:    {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID            int64
	OrderNumber   string
	TotalPrice    decimal.Decimal
	Status        Status
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
	ItemsCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []*OrderItem

	// Replayed is set when the order was returned for a repeated
	// idempotency key instead of being created.
	Replayed bool
}

type OrderItem struct {
	ID                 int64
	OrderID            int64
	ProductID          int64
	Quantity           int
	Price              decimal.Decimal
	ProductName        string
	ProductDescription *string
	CreatedAt          time.Time
}

// LineTotal is the snapshot price times quantity.
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type LineItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CustomerInfo struct {
	Name  *string
	Phone *string
	Notes *string
}

type PlaceOrderInput struct {
	Items          []LineItemInput
	Customer       CustomerInfo
	IdempotencyKey string
}

// PricedLine is a validated line with the catalog snapshot taken at
// pricing time.
type PricedLine struct {
	ProductID          int64
	Quantity           int
	UnitPrice          decimal.Decimal
	LineTotal          decimal.Decimal
	ProductName        string
	ProductDescription *string
}

// Draft is everything the repository needs to persist a new order.
type Draft struct {
	Lines          []PricedLine
	Total          decimal.Decimal
	Customer       CustomerInfo
	IdempotencyKey string
}

type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

type ListResult struct {
	Items  []*Order
	Total  int64
	Limit  int
	Offset int
}
