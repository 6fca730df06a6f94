// Package jitter рассеивает интервалы повторов, чтобы клиенты хранилища
// и брокера не повторяли запросы синхронно.
package jitter

import (
	"math/rand/v2"
	"time"
)

// DefaultFactor — доля случайной добавки к интервалу.
const DefaultFactor = 0.5

// Backoff — экспоненциальный интервал повтора с потолком и джиттером.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// NewBackoff возвращает Backoff с DefaultFactor.
func NewBackoff(base, max time.Duration) Backoff {
	return Backoff{Base: base, Max: max, Factor: DefaultFactor}
}

// Next возвращает паузу перед повтором номер attempt (с нуля): Base*2^attempt,
// не больше Max, плюс случайная добавка до Factor от неё.
func (b Backoff) Next(attempt int) time.Duration {
	d := b.Base
	for i := 0; i < attempt && d < b.Max; i++ {
		d *= 2
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}

	return Spread(d, b.Factor)
}

// Spread возвращает d плюс случайную добавку в [0, d*factor).
func Spread(d time.Duration, factor float64) time.Duration {
	if d <= 0 || factor <= 0 {
		return d
	}

	return d + time.Duration(rand.Float64()*factor*float64(d))
}
