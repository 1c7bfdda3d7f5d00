package service

import (
	"context"
	"math"

	"github.com/avetikov/bookstore-system/internal/model"
	"github.com/avetikov/bookstore-system/internal/pricing"
)

// CreateBook добавляет книгу в каталог. Цена принимается в основных единицах
// валюты и сохраняется в минимальных.
func (s *Service) CreateBook(ctx context.Context, b *model.Book) (*model.Book, error) {
	b.PriceCents = int64(math.Round(b.Price * 100))
	if b.Rating == 0 {
		b.Rating = 4
	}

	id, err := s.repo.CreateBook(ctx, b)
	if err != nil {
		return nil, err
	}

	return s.repo.GetBookByID(ctx, id)
}

// ListBooks возвращает каталог книг.
func (s *Service) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.repo.ListBooks(ctx)
}

// DeleteBook удаляет книгу из каталога.
func (s *Service) DeleteBook(ctx context.Context, id int64) error {
	return s.repo.DeleteBook(ctx, id)
}

// CartSummary содержит предварительный расчёт стоимости корзины.
// Используются те же налоговая ставка и стоимость доставки, что и при
// оформлении заказа.
type CartSummary struct {
	TotalAmount float64 `json:"totalAmount"`
	Tax         float64 `json:"tax"`
	Shipping    float64 `json:"shipping"`
	FinalAmount float64 `json:"finalAmount"`
}

// AddToCart добавляет книгу в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID, bookID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	if _, err := s.repo.GetBookByID(ctx, bookID); err != nil {
		return err
	}

	return s.repo.AddCartItem(ctx, userID, bookID, quantity)
}

// GetCart возвращает корзину пользователя с предварительным расчётом стоимости.
func (s *Service) GetCart(ctx context.Context, userID int64) ([]model.CartItem, CartSummary, error) {
	items, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, CartSummary{}, err
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{PriceCents: it.Book.PriceCents, Quantity: it.Quantity})
	}

	totals := pricing.Calculate(lines, s.settings.TaxRate, s.settings.ShippingCents)

	summary := CartSummary{
		TotalAmount: float64(totals.SubtotalCents) / 100,
		Tax:         float64(totals.TaxCents) / 100,
		Shipping:    float64(totals.ShippingCents) / 100,
		FinalAmount: float64(totals.PayableCents) / 100,
	}

	return items, summary, nil
}

// UpdateCartItem устанавливает количество для позиции корзины.
func (s *Service) UpdateCartItem(ctx context.Context, userID, bookID int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.repo.SetCartItemQuantity(ctx, userID, bookID, quantity)
}

// RemoveCartItem удаляет позицию из корзины пользователя.
func (s *Service) RemoveCartItem(ctx context.Context, userID, bookID int64) error {
	return s.repo.RemoveCartItem(ctx, userID, bookID)
}

// ClearCart очищает корзину пользователя. Вызывается внешним процессом
// оформления после размещения заказа; создание заказа от очистки не зависит.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	return s.repo.ClearCart(ctx, userID)
}
