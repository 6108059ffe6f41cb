package category

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var categoryColumns = []string{"id", "name", "icon", "display_order", "is_active", "created_at", "updated_at"}

func TestRepository_GetCategories(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, time.Second)
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(categoryColumns).
			AddRow(1, "Coffee", "☕", 1, true, now, now).
			AddRow(2, "Pastry", "🥐", 2, true, now, now)

		mock.ExpectQuery("FROM categories c WHERE c.is_active = TRUE ORDER BY c.display_order").
			WillReturnRows(rows)

		res, err := repo.GetCategories(context.Background())
		assert.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, int64(1), res[0].ID)
		assert.Equal(t, "Pastry", res[1].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery("FROM categories c").WillReturnRows(sqlmock.NewRows(categoryColumns))

		res, err := repo.GetCategories(context.Background())
		assert.NoError(t, err)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	})

	t.Run("DB Error", func(t *testing.T) {
		mock.ExpectQuery("FROM categories c").WillReturnError(errors.New("db error"))

		_, err := repo.GetCategories(context.Background())
		assert.Error(t, err)
	})
}

func TestRepository_GetCategoryByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db, 0)
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("FROM categories c WHERE c.id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(categoryColumns).AddRow(3, "Tea", "🍵", 3, true, now, now))

		res, err := repo.GetCategoryByID(context.Background(), 3)
		assert.NoError(t, err)
		assert.Equal(t, "Tea", res.Name)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery("FROM categories c WHERE c.id = \\$1").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(categoryColumns))

		_, err := repo.GetCategoryByID(context.Background(), 99)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})

	t.Run("DB Error", func(t *testing.T) {
		mock.ExpectQuery("FROM categories c WHERE c.id = \\$1").
			WithArgs(int64(4)).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetCategoryByID(context.Background(), 4)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCategoryNotFound)
	})
}
