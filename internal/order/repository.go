package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coffeeshop-be/internal/logger"
	"coffeeshop-be/internal/metrics"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 5 * time.Second
	maxNumberAttempts = 3

	uniqueViolation       = "23505"
	orderNumberConstraint = "orders_order_number_key"
	idempotencyConstraint = "orders_idempotency_key_key"
)

type Repository interface {
	CreateOrder(ctx context.Context, draft Draft) (*Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error)
	CountOrders(ctx context.Context, filter ListFilter) (int64, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) (*Order, error)
}

type repository struct {
	db        *sql.DB
	timeout   time.Duration
	newNumber NumberGenerator
	now       func() time.Time
	metrics   *metrics.OrderMetrics
}

type Option func(*repository)

func WithNumberGenerator(gen NumberGenerator) Option {
	return func(r *repository) { r.newNumber = gen }
}

func WithClock(now func() time.Time) Option {
	return func(r *repository) { r.now = now }
}

func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(r *repository) { r.metrics = m }
}

func NewRepository(db *sql.DB, timeout time.Duration, opts ...Option) Repository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	r := &repository{
		db:        db,
		timeout:   timeout,
		newNumber: GenerateOrderNumber,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const selectOrder = `
	SELECT
		o.id, o.order_number, o.total_price, o.status,
		o.customer_name, o.customer_phone, o.notes, o.items_count,
		o.created_at, o.updated_at
	FROM orders o
`

// CreateOrder persists the header and all lines in one transaction. An
// order number collision rolls the attempt back and retries with a fresh
// number, up to maxNumberAttempts times.
func (r *repository) CreateOrder(ctx context.Context, draft Draft) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.Int("line_count", len(draft.Lines)),
	)

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number := r.newNumber(r.now())

		order, err := r.insertOrder(ctx, draft, number)
		if err == nil {
			return order, nil
		}

		if isUniqueViolation(err, orderNumberConstraint) {
			r.metrics.NumberCollision()
			log.Warn("order number collision, retrying",
				zap.String("order_number", number),
				zap.Int("attempt", attempt),
			)
			continue
		}

		if draft.IdempotencyKey != "" && isUniqueViolation(err, idempotencyConstraint) {
			log.Info("concurrent submission with same idempotency key, returning existing order")

			existing, getErr := r.GetByIdempotencyKey(ctx, draft.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrPersistenceFailure, getErr)
			}
			existing.Replayed = true
			return existing, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
	}

	log.Error("order number collisions exhausted retries", zap.Int("attempts", maxNumberAttempts))
	return nil, fmt.Errorf("%w: order number collided %d times", ErrPersistenceFailure, maxNumberAttempts)
}

func (r *repository) insertOrder(ctx context.Context, draft Draft, number string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "insertOrder"),
		zap.String("order_number", number),
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			} else {
				log.Debug("transaction rolled back")
			}
		}
	}()

	order := &Order{
		OrderNumber:   number,
		TotalPrice:    draft.Total,
		Status:        StatusPlaced,
		CustomerName:  draft.Customer.Name,
		CustomerPhone: draft.Customer.Phone,
		Notes:         draft.Customer.Notes,
		ItemsCount:    len(draft.Lines),
	}

	idempotencyKey := sql.NullString{String: draft.IdempotencyKey, Valid: draft.IdempotencyKey != ""}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, total_price, status, customer_name,
			customer_phone, notes, items_count, idempotency_key
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id, created_at, updated_at
	`,
		order.OrderNumber,
		order.TotalPrice,
		order.Status,
		order.CustomerName,
		order.CustomerPhone,
		order.Notes,
		order.ItemsCount,
		idempotencyKey,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, err
	}

	order.Items = make([]*OrderItem, 0, len(draft.Lines))
	for i, line := range draft.Lines {
		item := &OrderItem{
			OrderID:            order.ID,
			ProductID:          line.ProductID,
			Quantity:           line.Quantity,
			Price:              line.UnitPrice,
			ProductName:        line.ProductName,
			ProductDescription: line.ProductDescription,
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO order_items (
				order_id, product_id, quantity, price,
				product_name, product_description
			) VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id, created_at
		`,
			item.OrderID,
			item.ProductID,
			item.Quantity,
			item.Price,
			item.ProductName,
			item.ProductDescription,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			log.Error("failed to insert order item",
				zap.Int("item_index", i),
				zap.Int64("product_id", line.ProductID),
				zap.Error(err),
			)
			return nil, err
		}

		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit order transaction", zap.Error(err))
		return nil, err
	}

	committed = true
	log.Info("order transaction committed",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.TotalPrice.StringFixed(2)),
	)

	return order, nil
}

func (r *repository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+" WHERE o.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetOrder failed", zap.Int64("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *repository) GetByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder+" WHERE o.idempotency_key = $1", key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetByIdempotencyKey failed", zap.Error(err))
		return nil, fmt.Errorf("get order by idempotency key: %w", err)
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

func (r *repository) getItems(ctx context.Context, orderID int64) ([]*OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT
			oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price,
			oi.product_name, oi.product_description, oi.created_at
		FROM order_items oi
		WHERE oi.order_id = $1
		ORDER BY oi.id ASC
	`, orderID)
	if err != nil {
		logger.FromCtx(ctx).Error("query order items failed", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := make([]*OrderItem, 0)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID,
			&it.OrderID,
			&it.ProductID,
			&it.Quantity,
			&it.Price,
			&it.ProductName,
			&it.ProductDescription,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, &it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func buildListFilter(filter ListFilter) (string, []any, int) {
	where := ""
	args := []any{}
	argIndex := 1

	if filter.Status != nil {
		where += fmt.Sprintf(" WHERE o.status = $%d", argIndex)
		args = append(args, string(*filter.Status))
		argIndex++
	}

	return where, args, argIndex
}

// ListOrders returns headers only, most recent first.
func (r *repository) ListOrders(ctx context.Context, filter ListFilter) ([]*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	where, args, argIndex := buildListFilter(filter)

	query := selectOrder + where +
		" ORDER BY o.created_at DESC, o.id DESC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	log.Debug("executing list orders query", zap.Int("limit", filter.Limit), zap.Int("offset", filter.Offset))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed ListOrders", zap.Error(err))
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

func (r *repository) CountOrders(ctx context.Context, filter ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	where, args, _ := buildListFilter(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders o"+where, args...).Scan(&total); err != nil {
		logger.FromCtx(ctx).Error("CountOrders failed", zap.Error(err))
		return 0, fmt.Errorf("count orders: %w", err)
	}

	return total, nil
}

// UpdateStatus moves an order from one status to another. It fails with
// ErrInvalidTransition when the stored status is no longer from.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders o
		SET status = $1, updated_at = NOW()
		WHERE o.id = $2 AND o.status = $3
		RETURNING
			o.id, o.order_number, o.total_price, o.status,
			o.customer_name, o.customer_phone, o.notes, o.items_count,
			o.created_at, o.updated_at
	`, string(to), id, string(from)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %d is no longer %s", ErrInvalidTransition, id, from)
	}
	if err != nil {
		logger.FromCtx(ctx).Error("UpdateStatus failed",
			zap.Int64("order_id", id),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*Order, error) {
	var o Order
	if err := s.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.TotalPrice,
		&o.Status,
		&o.CustomerName,
		&o.CustomerPhone,
		&o.Notes,
		&o.ItemsCount,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && pqErr.Constraint == constraint
}
