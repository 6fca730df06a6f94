package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType — тип изменения остатка.
type EventType string

const (
	EventAdd    EventType = "add"
	EventRemove EventType = "remove"
	EventUpdate EventType = "update"
)

func (t EventType) Valid() bool {
	switch t {
	case EventAdd, EventRemove, EventUpdate:
		return true
	default:
		return false
	}
}

// InventoryEvent — неизменяемая запись журнала изменений остатка продукта.
type InventoryEvent struct {
	ID             int64
	ProductID      int64
	Type           EventType
	QuantityChange int64
	Price          decimal.Decimal
	Timestamp      time.Time
	BatchID        string // идентификатор импорта, породившего событие
}

// NewAddEvent создаёт событие поступления продукта при импорте.
func NewAddEvent(product *Product, at time.Time, batchID string) *InventoryEvent {
	return &InventoryEvent{
		ProductID:      product.ID,
		Type:           EventAdd,
		QuantityChange: product.Quantity,
		Price:          product.Price,
		Timestamp:      at,
		BatchID:        batchID,
	}
}
