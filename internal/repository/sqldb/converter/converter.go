package converter

import (
	"database/sql"

	"github.com/DRSN-tech/inventory-tracker/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует Product между domain и моделью БД.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
	ToArrEntity(models []ProductModel) []domain.Product
}

// InventoryEventConverter преобразует InventoryEvent между domain и моделью БД.
type InventoryEventConverter interface {
	ToModel(entity *domain.InventoryEvent) *InventoryEventModel
	ToEntity(model *InventoryEventModel) *domain.InventoryEvent
	ToArrEntity(models []InventoryEventModel) []domain.InventoryEvent
}

// CategoryTotalsConverter преобразует строки агрегатов в domain.
type CategoryTotalsConverter interface {
	ToArrEntity(models []CategoryTotalsModel) []domain.CategoryTotals
}

type ProductConverterImpl struct{}

func NewProductConverterImpl() *ProductConverterImpl {
	return &ProductConverterImpl{}
}

func (c *ProductConverterImpl) ToModel(entity *domain.Product) *ProductModel {
	return &ProductModel{
		ID:              entity.ID,
		Name:            entity.Name,
		Category:        ConvertCategory(entity.Category),
		CurrentPrice:    decimal.NewNullDecimal(entity.Price),
		CurrentQuantity: sql.NullInt64{Int64: entity.Quantity, Valid: true},
	}
}

func (c *ProductConverterImpl) ToEntity(model *ProductModel) *domain.Product {
	return &domain.Product{
		ID:       model.ID,
		Name:     model.Name,
		Category: model.Category.String,
		Price:    ConvertNullDecimal(model.CurrentPrice),
		Quantity: model.CurrentQuantity.Int64,
	}
}

func (c *ProductConverterImpl) ToArrEntity(models []ProductModel) []domain.Product {
	res := make([]domain.Product, 0, len(models))
	for i := range models {
		res = append(res, *c.ToEntity(&models[i]))
	}

	return res
}

type InventoryEventConverterImpl struct{}

func NewInventoryEventConverterImpl() *InventoryEventConverterImpl {
	return &InventoryEventConverterImpl{}
}

func (c *InventoryEventConverterImpl) ToModel(entity *domain.InventoryEvent) *InventoryEventModel {
	return &InventoryEventModel{
		ID:             entity.ID,
		ProductID:      entity.ProductID,
		EventType:      string(entity.Type),
		QuantityChange: entity.QuantityChange,
		Price:          decimal.NewNullDecimal(entity.Price),
		Timestamp:      entity.Timestamp.UTC(),
		BatchID:        sql.NullString{String: entity.BatchID, Valid: entity.BatchID != ""},
	}
}

func (c *InventoryEventConverterImpl) ToEntity(model *InventoryEventModel) *domain.InventoryEvent {
	return &domain.InventoryEvent{
		ID:             model.ID,
		ProductID:      model.ProductID,
		Type:           domain.EventType(model.EventType),
		QuantityChange: model.QuantityChange,
		Price:          ConvertNullDecimal(model.Price),
		Timestamp:      model.Timestamp.UTC(),
		BatchID:        model.BatchID.String,
	}
}

func (c *InventoryEventConverterImpl) ToArrEntity(models []InventoryEventModel) []domain.InventoryEvent {
	res := make([]domain.InventoryEvent, 0, len(models))
	for i := range models {
		res = append(res, *c.ToEntity(&models[i]))
	}

	return res
}

type CategoryTotalsConverterImpl struct{}

func NewCategoryTotalsConverterImpl() *CategoryTotalsConverterImpl {
	return &CategoryTotalsConverterImpl{}
}

func (c *CategoryTotalsConverterImpl) ToArrEntity(models []CategoryTotalsModel) []domain.CategoryTotals {
	res := make([]domain.CategoryTotals, 0, len(models))
	for _, m := range models {
		res = append(res, domain.CategoryTotals{
			Category: m.Category.String,
			StockTotals: domain.StockTotals{
				Products: m.ProductCount,
				Quantity: m.TotalQuantity,
				Value:    m.TotalValue,
			},
		})
	}

	return res
}

// ConvertCategory хранит пустую категорию как NULL.
func ConvertCategory(category string) sql.NullString {
	return sql.NullString{String: category, Valid: category != ""}
}

func ConvertNullDecimal(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}

	return d.Decimal
}
