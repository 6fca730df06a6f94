package domain

import "github.com/shopspring/decimal"

// Product описывает текущее состояние продукта на складе.
type Product struct {
	ID       int64
	Name     string
	Category string // пустая строка — категория не задана
	Price    decimal.Decimal
	Quantity int64
}

func NewProduct(name string, category string, price decimal.Decimal, quantity int64) *Product {
	return &Product{
		Name:     name,
		Category: category,
		Price:    price,
		Quantity: quantity,
	}
}

// Value возвращает стоимость остатка: количество × цена.
func (p *Product) Value() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(p.Quantity))
}
