package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
)

// ProductSource открывает входной файл с продуктами.
type ProductSource interface {
	Open(path string) (ProductRows, error)
}

// ProductRows отдаёт разобранные строки по одной; конец файла — io.EOF.
type ProductRows interface {
	Next() (*ImportRow, error)
	io.Closer
}

// ReportRenderer записывает отчёт в текстовом виде.
type ReportRenderer interface {
	Render(w io.Writer, report *domain.InventoryReport) error
	WriteFile(path string, report *domain.InventoryReport) error
}

// MessageProducer публикует события инвентаря во внешний брокер.
type MessageProducer interface {
	WriteEvents(ctx context.Context, events []domain.InventoryEvent) error
}
