package handler

import (
	"errors"
	"net/http"

	"coffeeshop-be/internal/category"
	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
)

type CategoryHandler struct {
	svc category.Service
}

func NewCategoryHandler(svc category.Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// List handles GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.GetCategories(r.Context())
	if err != nil {
		logger.FromCtx(r.Context()).Error("list categories failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to load categories", nil)
		return
	}

	writeData(w, r, http.StatusOK, categories)
}

// Get handles GET /api/categories/{categoryId}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid category id", nil)
		return
	}

	c, err := h.svc.GetCategory(r.Context(), id)
	switch {
	case err == nil:
		writeData(w, r, http.StatusOK, c)
	case errors.Is(err, category.ErrCategoryNotFound):
		writeError(w, r, http.StatusNotFound, "Category not found", nil)
	case errors.Is(err, category.ErrInvalidID):
		writeError(w, r, http.StatusBadRequest, "Invalid category id", nil)
	default:
		logger.FromCtx(r.Context()).Error("get category failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Failed to load category", nil)
	}
}
