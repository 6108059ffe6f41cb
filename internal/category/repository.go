package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
)

const defaultTimeout = 5 * time.Second

type Repository interface {
	GetCategories(ctx context.Context) ([]*Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*Category, error)
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

const selectCategory = `
	SELECT c.id, c.name, c.icon, c.display_order, c.is_active, c.created_at, c.updated_at
	FROM categories c
`

// GetCategories lists active categories in menu order.
func (r *repository) GetCategories(ctx context.Context) ([]*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "GetCategories"),
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := selectCategory + ` WHERE c.is_active = TRUE ORDER BY c.display_order ASC, c.name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("DB query failed GetCategories", zap.Error(err))
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	log.Debug("GetCategories success", zap.Int("count", len(categories)))
	return categories, nil
}

func (r *repository) GetCategoryByID(ctx context.Context, id int64) (*Category, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, selectCategory+` WHERE c.id = $1`, id)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetCategoryByID failed",
			zap.Int64("category_id", id),
			zap.Error(err),
		)
		return nil, fmt.Errorf("get category: %w", err)
	}

	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (*Category, error) {
	var c Category
	if err := s.Scan(
		&c.ID,
		&c.Name,
		&c.Icon,
		&c.DisplayOrder,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}
