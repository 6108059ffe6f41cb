package product

import (
	"context"
	"time"

	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

type Service interface {
	GetList(ctx context.Context, filter ListFilter) (*ListResult, error)
	GetFeatured(ctx context.Context) ([]*Product, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetList(ctx context.Context, filter ListFilter) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "GetProductList"),
	)

	start := time.Now()

	/* ---------- INPUT NORMALIZATION ---------- */

	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	} else if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.CategoryID != nil && *filter.CategoryID <= 0 {
		return nil, ErrInvalidID
	}

	items, err := s.repo.GetProducts(ctx, filter)
	if err != nil {
		log.Error("failed to fetch products", zap.Error(err))
		return nil, err
	}

	total, err := s.repo.CountProducts(ctx, filter)
	if err != nil {
		log.Error("failed to count products", zap.Error(err))
		return nil, err
	}

	log.Info("product list fetched",
		zap.Int("count", len(items)),
		zap.Int64("total", total),
		zap.Duration("duration", time.Since(start)),
	)

	return &ListResult{
		Items:  items,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *service) GetFeatured(ctx context.Context) ([]*Product, error) {
	return s.repo.GetFeatured(ctx)
}

func (s *service) GetByCategory(ctx context.Context, categoryID int64) ([]*Product, error) {
	if categoryID <= 0 {
		return nil, ErrInvalidID
	}
	return s.repo.GetByCategory(ctx, categoryID)
}

func (s *service) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	return s.repo.GetProductByID(ctx, id)
}
