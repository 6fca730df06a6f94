package converter

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// ProductModel представляет запись таблицы products.
type ProductModel struct {
	ID              int64               `db:"id"`
	Name            string              `db:"name"`
	Category        sql.NullString      `db:"category"`
	CurrentPrice    decimal.NullDecimal `db:"current_price"`
	CurrentQuantity sql.NullInt64       `db:"current_quantity"`
}

// InventoryEventModel представляет запись таблицы inventory_events.
type InventoryEventModel struct {
	ID             int64               `db:"id"`
	ProductID      int64               `db:"product_id"`
	EventType      string              `db:"event_type"`
	QuantityChange int64               `db:"quantity_change"`
	Price          decimal.NullDecimal `db:"price"`
	Timestamp      time.Time           `db:"timestamp"`
	BatchID        sql.NullString      `db:"batch_id"`
}

// CategoryTotalsModel — строка агрегата по категории.
type CategoryTotalsModel struct {
	Category      sql.NullString  `db:"category"`
	ProductCount  int64           `db:"product_count"`
	TotalQuantity int64           `db:"total_quantity"`
	TotalValue    decimal.Decimal `db:"total_value"`
}
