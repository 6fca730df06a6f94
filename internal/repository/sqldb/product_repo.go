package sqldb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/internal/repository/sqldb/converter"
	"github.com/DRSN-tech/inventory-tracker/internal/usecase"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
	"github.com/DRSN-tech/inventory-tracker/pkg/tr"
	"github.com/jimlawless/whereami"
	"github.com/jmoiron/sqlx"
)

const productColumns = "id, name, category, current_price, current_quantity"

// ProductRepo реализует репозиторий снимков продуктов.
type ProductRepo struct {
	storage *storage.Storage
	conv    converter.ProductConverter
}

func NewProductRepo(storage *storage.Storage, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		storage: storage,
		conv:    conv,
	}
}

// Create вставляет продукт и возвращает его с присвоенным id.
func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	tx, err := tr.TxFromCtx(ctx, p.storage.DB())
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := p.storage.Rebind(`
		INSERT INTO products (name, category, current_price, current_quantity)
		VALUES (?, ?, ?, ?)
		RETURNING ` + productColumns)

	model := p.conv.ToModel(product)
	var created converter.ProductModel
	err = sqlx.GetContext(ctx, tx, &created, query,
		model.Name, model.Category, model.CurrentPrice, model.CurrentQuantity,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(&created), nil
}

// GetByID возвращает продукт по id или e.ErrProductNotFound.
func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := p.storage.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ?`)

	var model converter.ProductModel
	if err := sqlx.GetContext(ctx, tr.Executor(ctx, p.storage.DB()), &model, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(&model), nil
}

// Find возвращает продукты, подходящие под все заданные условия фильтра, по возрастанию id.
func (p *ProductRepo) Find(ctx context.Context, filter usecase.ProductFilter) ([]domain.Product, error) {
	where, args := productConditions(filter, p.storage.Dialect()).build()
	query := p.storage.Rebind(`SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY id`)

	var models []converter.ProductModel
	if err := sqlx.SelectContext(ctx, tr.Executor(ctx, p.storage.DB()), &models, query, args...); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToArrEntity(models), nil
}
