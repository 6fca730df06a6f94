package sqldb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/internal/repository/sqldb/converter"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/storage"
	"github.com/DRSN-tech/inventory-tracker/pkg/tr"
	"github.com/jimlawless/whereami"
	"github.com/jmoiron/sqlx"
)

const eventColumns = "id, product_id, event_type, quantity_change, price, timestamp, batch_id"

// InventoryEventRepo — журнал событий склада. Записи только добавляются.
type InventoryEventRepo struct {
	storage *storage.Storage
	conv    converter.InventoryEventConverter
}

func NewInventoryEventRepo(storage *storage.Storage, conv converter.InventoryEventConverter) *InventoryEventRepo {
	return &InventoryEventRepo{storage: storage, conv: conv}
}

// Append добавляет событие в журнал в текущей транзакции.
func (r *InventoryEventRepo) Append(ctx context.Context, event *domain.InventoryEvent) (*domain.InventoryEvent, error) {
	if !event.Type.Valid() {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("unknown event type %q", event.Type))
	}

	tx, err := tr.TxFromCtx(ctx, r.storage.DB())
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := r.storage.Rebind(`
		INSERT INTO inventory_events (product_id, event_type, quantity_change, price, timestamp, batch_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	model := r.conv.ToModel(event)
	err = sqlx.GetContext(ctx, tx, &model.ID, query,
		model.ProductID, model.EventType, model.QuantityChange, model.Price, model.Timestamp, model.BatchID,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.conv.ToEntity(model), nil
}

// ListByProduct возвращает события продукта в порядке записи.
func (r *InventoryEventRepo) ListByProduct(ctx context.Context, productID int64) ([]domain.InventoryEvent, error) {
	query := r.storage.Rebind(`SELECT ` + eventColumns + ` FROM inventory_events WHERE product_id = ? ORDER BY id`)

	return r.list(ctx, query, productID)
}

func (r *InventoryEventRepo) ListAll(ctx context.Context) ([]domain.InventoryEvent, error) {
	return r.list(ctx, `SELECT `+eventColumns+` FROM inventory_events ORDER BY id`)
}

// ListAfter возвращает до limit событий с id больше afterID.
func (r *InventoryEventRepo) ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.InventoryEvent, error) {
	query := r.storage.Rebind(`SELECT ` + eventColumns + ` FROM inventory_events WHERE id > ? ORDER BY id LIMIT ?`)

	return r.list(ctx, query, afterID, limit)
}

func (r *InventoryEventRepo) list(ctx context.Context, query string, args ...any) ([]domain.InventoryEvent, error) {
	var models []converter.InventoryEventModel
	if err := sqlx.SelectContext(ctx, tr.Executor(ctx, r.storage.DB()), &models, query, args...); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.conv.ToArrEntity(models), nil
}
