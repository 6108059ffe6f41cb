package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"coffeeshop-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

type Repository interface {
	GetProducts(ctx context.Context, filter ListFilter) ([]*Product, error)
	CountProducts(ctx context.Context, filter ListFilter) (int64, error)
	GetFeatured(ctx context.Context) ([]*Product, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]*Product, error)
	GetProductByID(ctx context.Context, id int64) (*Product, error)
	FindProductsByIDs(ctx context.Context, ids []int64) ([]*Product, error)
}

type repository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewRepository(db *sql.DB, timeout time.Duration) Repository {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &repository{db: db, timeout: timeout}
}

const selectProduct = `
	SELECT
		p.id, p.category_id, p.name, p.description, p.price, p.image_url,
		p.available, p.featured, p.display_order, p.created_at, p.updated_at,
		c.name, c.icon
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

// buildFilter returns the WHERE clause shared by the listing and its count.
func buildFilter(filter ListFilter) (string, []any, int) {
	where := " WHERE p.available = TRUE"
	args := []any{}
	argIndex := 1

	if filter.CategoryID != nil {
		where += fmt.Sprintf(" AND p.category_id = $%d", argIndex)
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		where += fmt.Sprintf(
			" AND (p.name ILIKE $%d OR p.description ILIKE $%d)",
			argIndex, argIndex,
		)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	if filter.Featured {
		where += " AND p.featured = TRUE"
	}

	return where, args, argIndex
}

func (r *repository) GetProducts(ctx context.Context, filter ListFilter) ([]*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	where, args, argIndex := buildFilter(filter)

	query := selectProduct + where +
		" ORDER BY c.display_order ASC, p.display_order ASC, p.id ASC" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	return r.queryProducts(ctx, "GetProducts", query, args...)
}

func (r *repository) CountProducts(ctx context.Context, filter ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	where, args, _ := buildFilter(filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p"+where, args...).Scan(&total); err != nil {
		logger.FromCtx(ctx).Error("CountProducts failed", zap.Error(err))
		return 0, fmt.Errorf("count products: %w", err)
	}

	return total, nil
}

func (r *repository) GetFeatured(ctx context.Context) ([]*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectProduct +
		" WHERE p.featured = TRUE AND p.available = TRUE" +
		" ORDER BY c.display_order ASC, p.display_order ASC, p.id ASC"

	return r.queryProducts(ctx, "GetFeatured", query)
}

func (r *repository) GetByCategory(ctx context.Context, categoryID int64) ([]*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectProduct +
		" WHERE p.category_id = $1 AND p.available = TRUE" +
		" ORDER BY p.display_order ASC, p.id ASC"

	return r.queryProducts(ctx, "GetByCategory", query, categoryID)
}

// GetProductByID returns the product whether or not it is currently available.
func (r *repository) GetProductByID(ctx context.Context, id int64) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := scanProduct(r.db.QueryRowContext(ctx, selectProduct+" WHERE p.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetProductByID failed",
			zap.Int64("product_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// FindProductsByIDs loads every product in ids with a single query. Missing
// ids are simply absent from the result; availability is not filtered.
func (r *repository) FindProductsByIDs(ctx context.Context, ids []int64) ([]*Product, error) {
	if len(ids) == 0 {
		return []*Product{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.queryProducts(ctx, "FindProductsByIDs", selectProduct+" WHERE p.id = ANY($1)", pq.Array(ids))
}

func (r *repository) queryProducts(ctx context.Context, method, query string, args ...any) ([]*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed", zap.Error(err))
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]*Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	log.Debug("query success", zap.Int("count", len(products)))
	return products, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*Product, error) {
	var p Product
	if err := s.Scan(
		&p.ID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.Available,
		&p.Featured,
		&p.DisplayOrder,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CategoryName,
		&p.CategoryIcon,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
