package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/metrics"

	"go.uber.org/zap"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	MaxIdempotencyKeyLen = 100
	maxCustomerNameLen   = 100
	maxCustomerPhoneLen  = 32
	maxNotesLen          = 500
)

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) (*ListResult, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
}

type service struct {
	repo    Repository
	pricer  *Pricer
	metrics *metrics.OrderMetrics
}

func NewService(repo Repository, catalog CatalogReader, m *metrics.OrderMetrics) Service {
	return &service{
		repo:    repo,
		pricer:  NewPricer(catalog),
		metrics: m,
	}
}

// PlaceOrder validates and prices the cart against the catalog, then
// persists it atomically. Nothing is written when validation fails.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "PlaceOrder"),
		zap.Int("line_count", len(input.Items)),
	)

	timer := metrics.StartTimer()

	key := strings.TrimSpace(input.IdempotencyKey)
	if utf8.RuneCountInString(key) > MaxIdempotencyKeyLen {
		return nil, ErrInvalidIdempotencyKey
	}

	customer, err := normalizeCustomer(input.Customer)
	if err != nil {
		log.Warn("invalid customer info", zap.Error(err))
		return nil, err
	}

	if key != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, key)
		switch {
		case err == nil:
			log.Info("idempotent replay", zap.Int64("order_id", existing.ID))
			existing.Replayed = true
			s.metrics.OrderReplayed()
			return existing, nil
		case !errors.Is(err, ErrOrderNotFound):
			log.Error("idempotency lookup failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
		}
	}

	lines, total, err := s.pricer.Price(ctx, input.Items)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			for _, r := range rejected.Rejections {
				s.metrics.LineRejected(string(r.Reason))
			}
			log.Warn("order rejected", zap.Int64s("product_ids", rejected.ProductIDs()))
		} else {
			log.Warn("order validation failed", zap.Error(err))
		}
		return nil, err
	}

	order, err := s.repo.CreateOrder(ctx, Draft{
		Lines:          lines,
		Total:          total,
		Customer:       customer,
		IdempotencyKey: key,
	})
	if err != nil {
		log.Error("failed to persist order", zap.Error(err))
		return nil, err
	}

	if order.Replayed {
		s.metrics.OrderReplayed()
		return order, nil
	}

	s.metrics.OrderPlaced(timer.Duration())
	log.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)

	return order, nil
}

func normalizeCustomer(in CustomerInfo) (CustomerInfo, error) {
	out := CustomerInfo{
		Name:  trimmedOrNil(in.Name),
		Phone: trimmedOrNil(in.Phone),
		Notes: trimmedOrNil(in.Notes),
	}

	if out.Name != nil && utf8.RuneCountInString(*out.Name) > maxCustomerNameLen {
		return CustomerInfo{}, fmt.Errorf("%w: customerName exceeds %d characters", ErrInvalidCustomerInfo, maxCustomerNameLen)
	}
	if out.Phone != nil && utf8.RuneCountInString(*out.Phone) > maxCustomerPhoneLen {
		return CustomerInfo{}, fmt.Errorf("%w: customerPhone exceeds %d characters", ErrInvalidCustomerInfo, maxCustomerPhoneLen)
	}
	if out.Notes != nil && utf8.RuneCountInString(*out.Notes) > maxNotesLen {
		return CustomerInfo{}, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidCustomerInfo, maxNotesLen)
	}

	return out, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListOrders"),
	)

	if filter.Status != nil && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	} else if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		log.Error("failed to list orders", zap.Error(err))
		return nil, err
	}

	total, err := s.repo.CountOrders(ctx, filter)
	if err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, err
	}

	return &ListResult{
		Items:  orders,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	if id <= 0 {
		return nil, ErrOrderNotFound
	}
	return s.repo.GetOrder(ctx, id)
}

func (s *service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateStatus"),
		zap.Int64("order_id", id),
		zap.String("status", string(status)),
	)

	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(current.Status, status) {
		log.Warn("rejected status transition", zap.String("from", string(current.Status)))
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, status)
	if err != nil {
		log.Warn("status update failed", zap.Error(err))
		return nil, err
	}

	s.metrics.StatusChanged(string(status))
	log.Info("order status updated", zap.String("from", string(current.Status)))

	updated.Items = current.Items
	return updated, nil
}
