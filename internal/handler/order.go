package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/order"

	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"

	maxOrderBody  = 64 << 10
	maxStatusBody = 1 << 10
)

type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Client-sent prices or totals are not part of the request and are
// ignored if present.
type placeOrderRequest struct {
	Items         []order.LineItemInput `json:"items"`
	CustomerName  *string               `json:"customerName"`
	CustomerPhone *string               `json:"customerPhone"`
	Notes         *string               `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// Place handles POST /api/orders
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxOrderBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.FromCtx(r.Context()).Warn("failed to decode order request", zap.Error(err))
		writeError(w, r, http.StatusBadRequest, "Invalid request body", "invalid_body")
		return
	}

	o, err := h.svc.PlaceOrder(r.Context(), order.PlaceOrderInput{
		Items: req.Items,
		Customer: order.CustomerInfo{
			Name:  req.CustomerName,
			Phone: req.CustomerPhone,
			Notes: req.Notes,
		},
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	if o.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		writeJSON(w, r, http.StatusOK, Envelope{Success: true, Data: toOrderView(o), Message: "Order already placed"})
		return
	}

	writeJSON(w, r, http.StatusCreated, Envelope{Success: true, Data: toOrderView(o), Message: "Order placed"})
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter order.ListFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			writeOrderError(w, r, err)
			return
		}
		filter.Status = &status
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

	res, err := h.svc.ListOrders(r.Context(), filter)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writePage(w, r, toOrderViews(res.Items), Pagination{
		Limit:  res.Limit,
		Offset: res.Offset,
		Total:  res.Total,
	})
}

// Get handles GET /api/orders/{orderId}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid order id", nil)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, toOrderView(o))
}

// UpdateStatus handles PATCH /api/orders/{orderId}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "orderId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid order id", nil)
		return
	}

	var req updateStatusRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxStatusBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", "invalid_body")
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	writeData(w, r, http.StatusOK, toOrderView(o))
}

// writeOrderError maps the order error taxonomy to HTTP.
func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *order.RejectedError

	switch {
	case errors.As(err, &rejected):
		writeError(w, r, http.StatusUnprocessableEntity, "Some products are unavailable", rejected.Rejections)
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, "Cart is empty", "empty_cart")
	case errors.Is(err, order.ErrInvalidLineItem):
		writeError(w, r, http.StatusBadRequest, err.Error(), "invalid_line_item")
	case errors.Is(err, order.ErrOrderTooLarge):
		writeError(w, r, http.StatusBadRequest, "Order total is too large", "order_too_large")
	case errors.Is(err, order.ErrInvalidCustomerInfo):
		writeError(w, r, http.StatusBadRequest, err.Error(), "invalid_customer_info")
	case errors.Is(err, order.ErrInvalidIdempotencyKey):
		writeError(w, r, http.StatusBadRequest, "Idempotency-Key is too long", "invalid_idempotency_key")
	case errors.Is(err, order.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, "Unknown order status", "invalid_status")
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, r, http.StatusNotFound, "Order not found", "order_not_found")
	case errors.Is(err, order.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error(), "invalid_transition")
	case errors.Is(err, order.ErrCatalogUnavailable):
		logger.FromCtx(r.Context()).Error("catalog unavailable", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "Menu is temporarily unavailable, please retry", "catalog_unavailable")
	default:
		logger.FromCtx(r.Context()).Error("order request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Order could not be saved, please retry", "persistence_failure")
	}
}
