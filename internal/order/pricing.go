package order

import (
	"context"
	"fmt"

	"coffeeshop-be/internal/product"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single line. maxOrderTotal is the largest value
// orders.total_price (NUMERIC(12,2)) can hold.
const MaxQuantity = 1000

var maxOrderTotal = decimal.RequireFromString("9999999999.99")

// CatalogReader is the read side of the catalog used to price a cart.
type CatalogReader interface {
	FindProductsByIDs(ctx context.Context, ids []int64) ([]*product.Product, error)
}

// Pricer validates a cart against live product state and prices it from
// catalog prices only. It never writes.
type Pricer struct {
	catalog CatalogReader
}

func NewPricer(catalog CatalogReader) *Pricer {
	return &Pricer{catalog: catalog}
}

// Price returns one priced line per input line, in input order, and their
// sum. Repeated product ids stay separate lines.
func (p *Pricer) Price(ctx context.Context, items []LineItemInput) ([]PricedLine, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, ErrEmptyCart
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))

	for i, item := range items {
		if item.ProductID <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: line %d: productId is required", ErrInvalidLineItem, i)
		}
		if item.Quantity < 1 {
			return nil, decimal.Zero, fmt.Errorf("%w: line %d: quantity must be at least 1", ErrInvalidLineItem, i)
		}
		if item.Quantity > MaxQuantity {
			return nil, decimal.Zero, fmt.Errorf("%w: line %d: quantity must be at most %d", ErrInvalidLineItem, i, MaxQuantity)
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	products, err := p.catalog.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	byID := make(map[int64]*product.Product, len(products))
	for _, prod := range products {
		byID[prod.ID] = prod
	}

	var rejections []Rejection
	for _, id := range ids {
		prod, ok := byID[id]
		switch {
		case !ok:
			rejections = append(rejections, Rejection{ProductID: id, Reason: ReasonNotFound})
		case !prod.Available:
			rejections = append(rejections, Rejection{ProductID: id, Name: prod.Name, Reason: ReasonUnavailable})
		}
	}
	if len(rejections) > 0 {
		return nil, decimal.Zero, &RejectedError{Rejections: rejections}
	}

	lines := make([]PricedLine, 0, len(items))
	total := decimal.Zero

	for _, item := range items {
		prod := byID[item.ProductID]
		lineTotal := prod.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		lines = append(lines, PricedLine{
			ProductID:          prod.ID,
			Quantity:           item.Quantity,
			UnitPrice:          prod.Price,
			LineTotal:          lineTotal,
			ProductName:        prod.Name,
			ProductDescription: prod.Description,
		})
		total = total.Add(lineTotal)
	}

	if total.GreaterThan(maxOrderTotal) {
		return nil, decimal.Zero, fmt.Errorf("%w: total %s exceeds %s", ErrOrderTooLarge, total.StringFixed(2), maxOrderTotal.StringFixed(2))
	}

	return lines, total, nil
}
