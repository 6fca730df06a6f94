package sqldb

import (
	"context"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/internal/repository/sqldb/converter"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
	"github.com/DRSN-tech/inventory-tracker/pkg/tr"
	"github.com/jimlawless/whereami"
	"github.com/jmoiron/sqlx"
)

// CategoryRepo считает агрегаты склада по категориям.
type CategoryRepo struct {
	storage *storage.Storage
	conv    converter.CategoryTotalsConverter
}

func NewCategoryRepo(storage *storage.Storage, conv converter.CategoryTotalsConverter) *CategoryRepo {
	return &CategoryRepo{storage: storage, conv: conv}
}

// Totals возвращает число продуктов, количество и стоимость по каждой категории.
// Пустая категория сводится к NULL и идёт последней.
func (c *CategoryRepo) Totals(ctx context.Context) ([]domain.CategoryTotals, error) {
	query := `
		SELECT
			NULLIF(category, '') AS category,
			COUNT(*) AS product_count,
			CAST(COALESCE(SUM(COALESCE(current_quantity, 0)), 0) AS BIGINT) AS total_quantity,
			COALESCE(SUM(COALESCE(current_price, 0) * COALESCE(current_quantity, 0)), 0) AS total_value
		FROM products
		GROUP BY NULLIF(category, '')
		ORDER BY NULLIF(category, '') IS NULL, NULLIF(category, '')
	`

	var models []converter.CategoryTotalsModel
	if err := sqlx.SelectContext(ctx, tr.Executor(ctx, c.storage.DB()), &models, query); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToArrEntity(models), nil
}
