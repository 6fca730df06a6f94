package usecase

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/DRSN-tech/inventory-tracker/pkg/e"
	"github.com/DRSN-tech/inventory-tracker/pkg/logger"
	"github.com/google/uuid"
)

// InventoryUseCase реализует импорт, поиск и отчёты по складу поверх хранилища.
// Между вызовами ничего не кэшируется: каждый вызов работает в своих областях соединения.
type InventoryUseCase struct {
	storage      Storage
	productRepo  ProductRepository
	categoryRepo CategoryRepository
	eventRepo    InventoryEventRepository
	offsetRepo   EventOffsetRepository
	source       ProductSource
	renderer     ReportRenderer
	logger       logger.Logger
	now          func() time.Time
}

func NewInventoryUC(
	storage Storage,
	productRepo ProductRepository,
	categoryRepo CategoryRepository,
	eventRepo InventoryEventRepository,
	offsetRepo EventOffsetRepository,
	source ProductSource,
	renderer ReportRenderer,
	logger logger.Logger,
) *InventoryUseCase {
	return &InventoryUseCase{
		storage:      storage,
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		eventRepo:    eventRepo,
		offsetRepo:   offsetRepo,
		source:       source,
		renderer:     renderer,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock подменяет источник времени событий.
func (u *InventoryUseCase) WithClock(now func() time.Time) *InventoryUseCase {
	u.now = now
	return u
}

// Import загружает продукты из файла. Каждая строка фиксируется сразу в отдельной
// области соединения: продукт и его событие add. Ошибка разбора останавливает импорт,
// уже зафиксированные строки остаются; ImportRes возвращается вместе с ошибкой.
func (u *InventoryUseCase) Import(ctx context.Context, path string) (*ImportRes, error) {
	const op = "InventoryUseCase.Import"

	startedAt := u.now().UTC()

	rows, err := u.source.Open(path)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer rows.Close()

	res := NewImportRes(uuid.NewString())
	for {
		row, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			u.logger.Warnf("import %s stopped after %d rows: %v", path, res.Imported, err)
			return res, e.Wrap(op, err)
		}

		err = u.storage.WithConnection(ctx, func(ctx context.Context) error {
			return u.importRow(ctx, row, startedAt, res.BatchID)
		})
		if err != nil {
			return res, e.Wrap(op, err)
		}
		res.Imported++
	}

	u.logger.Infof("imported %d products from %s (batch %s)", res.Imported, path, res.BatchID)
	return res, nil
}

// importRow записывает снимок продукта и событие add в текущей транзакции.
func (u *InventoryUseCase) importRow(ctx context.Context, row *ImportRow, at time.Time, batchID string) error {
	product, err := u.productRepo.Create(ctx, domain.NewProduct(row.Name, row.Category, row.Price, row.Quantity))
	if err != nil {
		return err
	}

	_, err = u.eventRepo.Append(ctx, domain.NewAddEvent(product, at, batchID))
	return err
}

// Find возвращает продукты, подходящие под все заданные фильтры, по возрастанию id.
func (u *InventoryUseCase) Find(ctx context.Context, req *FindProductsReq) ([]domain.Product, error) {
	const op = "InventoryUseCase.Find"

	var products []domain.Product
	err := u.storage.WithConnection(ctx, func(ctx context.Context) error {
		var err error
		products, err = u.productRepo.Find(ctx, toProductFilter(req))
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, nil
}

// BuildReport считает итоги по складу и по категориям.
func (u *InventoryUseCase) BuildReport(ctx context.Context) (*domain.InventoryReport, error) {
	const op = "InventoryUseCase.BuildReport"

	var categories []domain.CategoryTotals
	err := u.storage.WithConnection(ctx, func(ctx context.Context) error {
		var err error
		categories, err = u.categoryRepo.Totals(ctx)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return domain.NewInventoryReport(categories), nil
}

// Report записывает текстовый отчёт в файл path.
func (u *InventoryUseCase) Report(ctx context.Context, path string) error {
	const op = "InventoryUseCase.Report"

	report, err := u.BuildReport(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := u.renderer.WriteFile(path, report); err != nil {
		return e.Wrap(op, err)
	}

	u.logger.Infof("inventory report written to %s", path)
	return nil
}

// WriteReport выводит текстовый отчёт в w.
func (u *InventoryUseCase) WriteReport(ctx context.Context, w io.Writer) error {
	const op = "InventoryUseCase.WriteReport"

	report, err := u.BuildReport(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	if err := u.renderer.Render(w, report); err != nil {
		return e.Wrap(op, e.Mark(e.ErrIO, err))
	}

	return nil
}

// History возвращает журнал событий продукта в порядке записи.
func (u *InventoryUseCase) History(ctx context.Context, productID int64) ([]domain.InventoryEvent, error) {
	const op = "InventoryUseCase.History"

	var events []domain.InventoryEvent
	err := u.storage.WithConnection(ctx, func(ctx context.Context) error {
		if _, err := u.productRepo.GetByID(ctx, productID); err != nil {
			return err
		}

		var err error
		events, err = u.eventRepo.ListByProduct(ctx, productID)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return events, nil
}

// Verify сворачивает журнал каждого продукта и возвращает продукты,
// чей снимок расходится с историей.
func (u *InventoryUseCase) Verify(ctx context.Context) ([]domain.Drift, error) {
	const op = "InventoryUseCase.Verify"

	var (
		products []domain.Product
		events   []domain.InventoryEvent
	)
	err := u.storage.WithConnection(ctx, func(ctx context.Context) error {
		var err error
		if products, err = u.productRepo.Find(ctx, ProductFilter{}); err != nil {
			return err
		}

		events, err = u.eventRepo.ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	byProduct := make(map[int64][]domain.InventoryEvent, len(products))
	for _, ev := range events {
		byProduct[ev.ProductID] = append(byProduct[ev.ProductID], ev)
	}

	drifts := make([]domain.Drift, 0)
	for _, p := range products {
		if d, ok := domain.DetectDrift(p, byProduct[p.ID]); ok {
			drifts = append(drifts, d)
		}
	}

	if len(drifts) > 0 {
		u.logger.Warnf("%d products drifted from their event history", len(drifts))
	}

	return drifts, nil
}

// PendingEvents возвращает до limit событий после смещения потребителя.
func (u *InventoryUseCase) PendingEvents(ctx context.Context, consumer string, limit int) (*EventFeedRes, error) {
	const op = "InventoryUseCase.PendingEvents"

	var res *EventFeedRes
	err := u.storage.WithConnection(ctx, func(ctx context.Context) error {
		offset, err := u.offsetRepo.Get(ctx, consumer)
		if err != nil {
			return err
		}

		events, err := u.eventRepo.ListAfter(ctx, offset, limit)
		if err != nil {
			return err
		}

		lastID := offset
		if len(events) > 0 {
			lastID = events[len(events)-1].ID
		}
		res = NewEventFeedRes(events, lastID)
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// AckEvents сдвигает смещение потребителя на lastEventID.
func (u *InventoryUseCase) AckEvents(ctx context.Context, consumer string, lastEventID int64) error {
	const op = "InventoryUseCase.AckEvents"

	err := u.storage.WithConnection(ctx, func(ctx context.Context) error {
		return u.offsetRepo.Save(ctx, consumer, lastEventID)
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	return nil
}
