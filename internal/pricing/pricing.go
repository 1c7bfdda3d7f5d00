// Package pricing вычисляет итоговые суммы заказа.
package pricing

// Line описывает одну позицию расчёта: цена в минимальных единицах валюты
// и количество. Вызывающая сторона обязана передавать только положительные
// количества и неотрицательные цены.
type Line struct {
	PriceCents int64
	Quantity   int
}

// Totals содержит результат расчёта в минимальных единицах валюты.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	PayableCents  int64
}

// Calculate возвращает итоговые суммы по позициям заказа.
// Налог округляется до цента арифметически, итог — точная сумма целых центов,
// поэтому результат совпадает с округлением до двух знаков в основных единицах.
func Calculate(lines []Line, taxRate float64, shippingCents int64) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.PriceCents * int64(l.Quantity)
	}

	tax := roundCents(float64(subtotal) * taxRate)

	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      tax,
		ShippingCents: shippingCents,
		PayableCents:  subtotal + tax + shippingCents,
	}
}

func roundCents(v float64) int64 {
	if v < 0 {
		return -int64(-v + 0.5)
	}
	return int64(v + 0.5)
}
