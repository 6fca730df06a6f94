package usecase

import (
	"context"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
)

// Storage — область соединения хранилища.
type Storage interface {
	WithConnection(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Find(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
}

type CategoryRepository interface {
	Totals(ctx context.Context) ([]domain.CategoryTotals, error)
}

type InventoryEventRepository interface {
	Append(ctx context.Context, event *domain.InventoryEvent) (*domain.InventoryEvent, error)
	ListByProduct(ctx context.Context, productID int64) ([]domain.InventoryEvent, error)
	ListAll(ctx context.Context) ([]domain.InventoryEvent, error)
	ListAfter(ctx context.Context, afterID int64, limit int) ([]domain.InventoryEvent, error)
}

type EventOffsetRepository interface {
	Get(ctx context.Context, consumer string) (int64, error)
	Save(ctx context.Context, consumer string, lastEventID int64) error
}
