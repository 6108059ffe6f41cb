package handler

import (
	"errors"
	"net/http"
	"strconv"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/product"

	"go.uber.org/zap"
)

type ProductHandler struct {
	svc product.Service
}

func NewProductHandler(svc product.Service) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := product.ListFilter{
		Search:   q.Get("search"),
		Featured: q.Get("featured") == "true",
	}

	if raw := q.Get("categoryId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid categoryId", nil)
			return
		}
		filter.CategoryID = &id
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid limit", nil)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid offset", nil)
		return
	}

	res, err := h.svc.GetList(r.Context(), filter)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	writePage(w, r, toProductViews(res.Items), Pagination{
		Limit:  res.Limit,
		Offset: res.Offset,
		Total:  res.Total,
	})
}

// Featured handles GET /api/products/featured
func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.GetFeatured(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, toProductViews(products))
}

// ByCategory handles GET /api/products/category/{categoryId}
func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid category id", nil)
		return
	}

	products, err := h.svc.GetByCategory(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, toProductViews(products))
}

// Get handles GET /api/products/{productId}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid product id", nil)
		return
	}

	p, err := h.svc.GetProductByID(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, toProductView(p))
}

func (h *ProductHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		writeError(w, r, http.StatusNotFound, "Product not found", nil)
	case errors.Is(err, product.ErrInvalidID):
		writeError(w, r, http.StatusBadRequest, "Invalid id", nil)
	default:
		logger.FromCtx(r.Context()).Error("product request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to load products", nil)
	}
}
