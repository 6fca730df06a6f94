package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
)

type InventoryUC interface {
	Import(ctx context.Context, path string) (*ImportRes, error)
	Find(ctx context.Context, req *FindProductsReq) ([]domain.Product, error)
	Report(ctx context.Context, path string) error
	WriteReport(ctx context.Context, w io.Writer) error
	BuildReport(ctx context.Context) (*domain.InventoryReport, error)
	History(ctx context.Context, productID int64) ([]domain.InventoryEvent, error)
	Verify(ctx context.Context) ([]domain.Drift, error)
}

// EventFeed — чтение журнала событий потребителем со смещением.
type EventFeed interface {
	PendingEvents(ctx context.Context, consumer string, limit int) (*EventFeedRes, error)
	AckEvents(ctx context.Context, consumer string, lastEventID int64) error
}
