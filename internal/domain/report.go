package domain

import "github.com/shopspring/decimal"

// StockTotals — агрегаты по набору продуктов.
type StockTotals struct {
	Products int64
	Quantity int64
	Value    decimal.Decimal
}

func (t *StockTotals) add(o StockTotals) {
	t.Products += o.Products
	t.Quantity += o.Quantity
	t.Value = t.Value.Add(o.Value)
}

// CategoryTotals — агрегаты одной категории. Пустое имя — продукты без категории.
type CategoryTotals struct {
	Category string
	StockTotals
}

// InventoryReport — сводка по складу: общие итоги и разбивка по категориям.
type InventoryReport struct {
	Totals     StockTotals
	Categories []CategoryTotals
}

// NewInventoryReport собирает отчёт из агрегатов по категориям; общие итоги — их сумма.
func NewInventoryReport(categories []CategoryTotals) *InventoryReport {
	report := &InventoryReport{
		Totals:     StockTotals{Value: decimal.Zero},
		Categories: categories,
	}
	for _, c := range categories {
		report.Totals.add(c.StockTotals)
	}

	return report
}
