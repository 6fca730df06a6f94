package usecase

import (
	"strings"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// INVENTORY USECASE

// FindProductsReq — фильтры поиска; все поля необязательны и объединяются через AND.
type FindProductsReq struct {
	Name     *string
	Category *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// ImportRes — итог импорта файла. Imported считает зафиксированные строки,
// в том числе при ошибке разбора на более поздней строке.
type ImportRes struct {
	BatchID  string
	Imported int
}

// ImportRow — разобранная строка входного файла.
type ImportRow struct {
	Row      int
	Name     string
	Category string
	Price    decimal.Decimal
	Quantity int64
}

// EventFeedRes — пачка событий журнала после смещения потребителя.
type EventFeedRes struct {
	Events []domain.InventoryEvent
	LastID int64
}

// REPOSITORIES

// ProductFilter — нормализованный фильтр для репозитория: nil означает «без условия».
type ProductFilter struct {
	Name     *string
	Category *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// MAPPERS

func NewFindProductsReq(name, category string, minPrice, maxPrice *decimal.Decimal) *FindProductsReq {
	return &FindProductsReq{
		Name:     optionalString(name),
		Category: optionalString(category),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}
}

func NewImportRes(batchID string) *ImportRes {
	return &ImportRes{BatchID: batchID}
}

func NewImportRow(row int, name, category string, price decimal.Decimal, quantity int64) *ImportRow {
	return &ImportRow{
		Row:      row,
		Name:     name,
		Category: category,
		Price:    price,
		Quantity: quantity,
	}
}

func NewEventFeedRes(events []domain.InventoryEvent, lastID int64) *EventFeedRes {
	return &EventFeedRes{
		Events: events,
		LastID: lastID,
	}
}

// toProductFilter отбрасывает пустые строки: пустое имя или категория не фильтруют.
func toProductFilter(req *FindProductsReq) ProductFilter {
	if req == nil {
		return ProductFilter{}
	}

	return ProductFilter{
		Name:     nonEmpty(req.Name),
		Category: nonEmpty(req.Category),
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}

	return s
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	return &s
}
