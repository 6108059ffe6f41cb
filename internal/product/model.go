package product

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           int64
	CategoryID   int64
	Name         string
	Description  *string
	Price        decimal.Decimal
	ImageURL     *string
	Available    bool
	Featured     bool
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CategoryName string
	CategoryIcon string
}

// ListFilter narrows the public product listing. Only available products
// are ever listed.
type ListFilter struct {
	CategoryID *int64
	Search     string
	Featured   bool
	Limit      int
	Offset     int
}

type ListResult struct {
	Items  []*Product
	Total  int64
	Limit  int
	Offset int
}
