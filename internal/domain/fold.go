package domain

import "github.com/shopspring/decimal"

// StockState — количество и цена, выведенные из журнала событий.
type StockState struct {
	Quantity int64
	Price    decimal.Decimal
}

// FoldEvents сворачивает историю продукта в текущее состояние.
// Любое событие прибавляет QuantityChange; add и update устанавливают цену.
// События должны идти в порядке записи.
func FoldEvents(events []InventoryEvent) StockState {
	var state StockState
	for _, ev := range events {
		state.Quantity += ev.QuantityChange
		if ev.Type == EventAdd || ev.Type == EventUpdate {
			state.Price = ev.Price
		}
	}

	return state
}

// Drift — расхождение между снимком продукта и свёрткой его событий.
type Drift struct {
	Product  Product
	Expected StockState
}

// DetectDrift сравнивает снимок с журналом. Второй результат false, если расхождения нет.
func DetectDrift(product Product, events []InventoryEvent) (Drift, bool) {
	state := FoldEvents(events)
	if state.Quantity == product.Quantity && state.Price.Equal(product.Price) {
		return Drift{}, false
	}

	return Drift{Product: product, Expected: state}, true
}
