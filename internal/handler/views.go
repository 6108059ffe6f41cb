package handler

import (
	"encoding/json"
	"time"

	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/product"

	"github.com/shopspring/decimal"
)

// money renders as a JSON number with two decimals, e.g. 300.00.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

type productView struct {
	ID           int64       `json:"id"`
	CategoryID   int64       `json:"categoryId"`
	Name         string      `json:"name"`
	Description  *string     `json:"description"`
	Price        json.Number `json:"price"`
	ImageURL     *string     `json:"imageUrl"`
	Available    bool        `json:"available"`
	Featured     bool        `json:"featured"`
	DisplayOrder int         `json:"displayOrder"`
	CategoryName string      `json:"categoryName"`
	CategoryIcon string      `json:"categoryIcon"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func toProductView(p *product.Product) productView {
	return productView{
		ID:           p.ID,
		CategoryID:   p.CategoryID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        money(p.Price),
		ImageURL:     p.ImageURL,
		Available:    p.Available,
		Featured:     p.Featured,
		DisplayOrder: p.DisplayOrder,
		CategoryName: p.CategoryName,
		CategoryIcon: p.CategoryIcon,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProductViews(products []*product.Product) []productView {
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}
	return views
}

type orderItemView struct {
	ID                 int64       `json:"id"`
	ProductID          int64       `json:"productId"`
	ProductName        string      `json:"productName"`
	ProductDescription *string     `json:"productDescription"`
	Quantity           int         `json:"quantity"`
	Price              json.Number `json:"price"`
	Total              json.Number `json:"total"`
	CreatedAt          time.Time   `json:"createdAt"`
}

type orderView struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	TotalPrice    json.Number     `json:"totalPrice"`
	Status        order.Status    `json:"status"`
	CustomerName  *string         `json:"customerName"`
	CustomerPhone *string         `json:"customerPhone"`
	Notes         *string         `json:"notes"`
	ItemsCount    int             `json:"itemsCount"`
	Items         []orderItemView `json:"items,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func toOrderView(o *order.Order) orderView {
	v := orderView{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		TotalPrice:    money(o.TotalPrice),
		Status:        o.Status,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		Notes:         o.Notes,
		ItemsCount:    o.ItemsCount,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	if o.Items != nil {
		v.Items = make([]orderItemView, 0, len(o.Items))
		for _, it := range o.Items {
			v.Items = append(v.Items, orderItemView{
				ID:                 it.ID,
				ProductID:          it.ProductID,
				ProductName:        it.ProductName,
				ProductDescription: it.ProductDescription,
				Quantity:           it.Quantity,
				Price:              money(it.Price),
				Total:              money(it.LineTotal()),
				CreatedAt:          it.CreatedAt,
			})
		}
	}

	return v
}

func toOrderViews(orders []*order.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views
}
