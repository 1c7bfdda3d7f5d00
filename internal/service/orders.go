package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/avetikov/bookstore-system/internal/gateway"
	"github.com/avetikov/bookstore-system/internal/model"
	"github.com/avetikov/bookstore-system/internal/pricing"
	"github.com/avetikov/bookstore-system/internal/repository"
)

// syncWorkers ограничивает число одновременных запросов к шлюзу при сверке.
const syncWorkers = 4

// OrderItemInput ссылается на книгу каталога и её количество в заказе.
type OrderItemInput struct {
	BookID   int64
	Quantity int
}

// OrderInput содержит данные запроса на оформление заказа.
type OrderInput struct {
	Customer      model.ShippingAddress
	Items         []OrderItemInput
	PaymentMethod model.PaymentMethod
	Notes         string
	DeliveryDate  *time.Time
}

// Checkout содержит данные, необходимые клиенту для завершения онлайн-оплаты.
// Секретный ключ шлюза сюда не попадает.
type Checkout struct {
	KeyID          string `json:"keyId"`
	GatewayOrderID string `json:"orderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// CreateOrder оформляет заказ: проверяет позиции по каталогу, считает итоговые
// суммы и для онлайн-оплаты создаёт платёжный ордер на стороне шлюза до записи
// в БД. Если шлюз недоступен, заказ не сохраняется вовсе.
func (s *Service) CreateOrder(ctx context.Context, userID int64, in OrderInput) (*model.Order, *Checkout, error) {
	if len(in.Items) == 0 {
		return nil, nil, ErrEmptyItems
	}
	if !in.PaymentMethod.Valid() {
		return nil, nil, ErrInvalidPaymentMethod
	}

	items := make([]model.OrderItem, 0, len(in.Items))
	lines := make([]pricing.Line, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, nil, ErrInvalidQuantity
		}

		book, err := s.repo.GetBookByID(ctx, it.BookID)
		if err != nil {
			return nil, nil, err
		}

		items = append(items, model.OrderItem{
			BookID:     book.ID,
			Title:      book.Title,
			Author:     book.Author,
			Image:      book.Image,
			PriceCents: book.PriceCents,
			Quantity:   it.Quantity,
		})
		lines = append(lines, pricing.Line{PriceCents: book.PriceCents, Quantity: it.Quantity})
	}

	totals := pricing.Calculate(lines, s.settings.TaxRate, s.settings.ShippingCents)

	order := &model.Order{
		OrderID:         "ORD-" + uuid.NewString(),
		UserID:          userID,
		ShippingAddress: in.Customer,
		Items:           items,
		SubtotalCents:   totals.SubtotalCents,
		TaxCents:        totals.TaxCents,
		ShippingCents:   totals.ShippingCents,
		PayableCents:    totals.PayableCents,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   model.PaymentStatusUnpaid,
		OrderStatus:     model.OrderStatusPending,
		DeliveryDate:    in.DeliveryDate,
		Notes:           in.Notes,
	}

	var checkout *Checkout
	if in.PaymentMethod == model.PaymentMethodOnline {
		if s.gateway == nil {
			return nil, nil, gateway.ErrUnavailable
		}

		gwOrder, err := s.gateway.CreateOrder(ctx, totals.PayableCents, s.settings.Currency, order.OrderID)
		if err != nil {
			return nil, nil, err
		}

		order.GatewayOrderID = gwOrder.ID
		checkout = &Checkout{
			KeyID:          s.gateway.KeyID(),
			GatewayOrderID: gwOrder.ID,
			Amount:         gwOrder.Amount,
			Currency:       gwOrder.Currency,
		}
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, nil, err
	}

	order.FillAmounts()
	return order, checkout, nil
}

// ConfirmPayment подтверждает онлайн-оплату: проверяет подпись, убеждается,
// что платёж захвачен на стороне шлюза, и переводит заказ в статус Paid.
// Повторное подтверждение уже оплаченного заказа завершается успехом без
// изменения состояния.
func (s *Service) ConfirmPayment(ctx context.Context, gatewayPaymentID, gatewayOrderID, signature string) (*model.Order, error) {
	if gatewayPaymentID == "" || gatewayOrderID == "" || signature == "" {
		return nil, ErrMissingPaymentFields
	}

	if s.gateway == nil {
		return nil, gateway.ErrUnavailable
	}

	if !s.gateway.VerifySignature(gatewayOrderID, gatewayPaymentID, signature) {
		s.logger.Warn("payment signature verification failed",
			zap.String("gatewayOrderID", gatewayOrderID),
			zap.String("gatewayPaymentID", gatewayPaymentID))
		return nil, ErrInvalidSignature
	}

	payment, err := s.gateway.FetchPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}

	if payment.Status != "captured" && payment.Status != "authorized" {
		return nil, ErrPaymentNotCompleted
	}

	order, _, err := s.repo.MarkOrderPaid(ctx, gatewayOrderID, gatewayPaymentID, time.Now())
	if err != nil {
		return nil, err
	}

	order.FillAmounts()
	return order, nil
}

// ListOrders возвращает заказы по фильтру вместе с агрегатами. При sync=true
// перед выдачей выполняется сверка неоплаченных онлайн-заказов со шлюзом.
func (s *Service) ListOrders(ctx context.Context, search string, status model.OrderStatus, sync bool) ([]model.Order, model.OrderCounts, error) {
	orders, err := s.repo.ListOrders(ctx, search, status)
	if err != nil {
		return nil, model.OrderCounts{}, err
	}

	if sync {
		s.reconcile(ctx, orders)

		orders, err = s.repo.ListOrders(ctx, search, status)
		if err != nil {
			return nil, model.OrderCounts{}, err
		}
	}

	counts := countOrders(orders)
	for i := range orders {
		orders[i].FillAmounts()
	}

	return orders, counts, nil
}

// reconcile сверяет каждый неоплаченный онлайн-заказ с платёжным шлюзом.
// Сбой сверки одного заказа логируется и не прерывает обработку остальных.
func (s *Service) reconcile(ctx context.Context, orders []model.Order) {
	if s.gateway == nil {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(syncWorkers)

	for _, o := range orders {
		if o.GatewayOrderID == "" || o.PaymentStatus == model.PaymentStatusPaid {
			continue
		}

		gatewayOrderID := o.GatewayOrderID
		g.Go(func() error {
			if err := s.syncOrder(ctx, gatewayOrderID); err != nil {
				s.logger.Warn("failed to reconcile order",
					zap.String("gatewayOrderID", gatewayOrderID),
					zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()
}

// syncOrder запрашивает у шлюза платежи по платёжному ордеру и при наличии
// захваченного платежа переводит локальный заказ в статус Paid.
func (s *Service) syncOrder(ctx context.Context, gatewayOrderID string) error {
	payments, err := s.gateway.FetchOrderPayments(ctx, gatewayOrderID)
	if err != nil {
		return err
	}

	for _, p := range payments {
		if p.Status == "captured" || p.Captured {
			_, _, err := s.repo.MarkOrderPaid(ctx, gatewayOrderID, p.ID, time.Now())
			return err
		}
	}

	return nil
}

func countOrders(orders []model.Order) model.OrderCounts {
	var c model.OrderCounts
	for _, o := range orders {
		c.Total++

		switch o.OrderStatus {
		case model.OrderStatusPending:
			c.Pending++
		case model.OrderStatusProcessing:
			c.Processing++
		case model.OrderStatusShipped:
			c.Shipped++
		case model.OrderStatusDelivered:
			c.Delivered++
		case model.OrderStatusCancelled:
			c.Cancelled++
		}

		switch o.PaymentStatus {
		case model.PaymentStatusPaid:
			c.Paid++
		case model.PaymentStatusUnpaid:
			c.PendingPayment++
		}
	}
	return c
}

// GetOrder возвращает заказ по внутреннему идентификатору.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.FillAmounts()
	return order, nil
}

// GetUserOrders возвращает заказы пользователя, новые первыми.
func (s *Service) GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.repo.GetOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].FillAmounts()
	}
	return orders, nil
}

// UpdateOrder применяет частичное обновление из разрешённого набора полей.
func (s *Service) UpdateOrder(ctx context.Context, id int64, patch repository.OrderPatch) (*model.Order, error) {
	order, err := s.repo.UpdateOrder(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	order.FillAmounts()
	return order, nil
}

// DeleteOrder безвозвратно удаляет заказ.
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	return s.repo.DeleteOrder(ctx, id)
}

// StartPaymentSync запускает фоновую сверку неоплаченных заказов со шлюзом.
// Не запускается, если шлюз не настроен или интервал не задан.
func (s *Service) StartPaymentSync(ctx context.Context) {
	if s.gateway == nil || s.settings.SyncInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(s.settings.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.syncBatch(ctx)
			}
		}
	}()
}

func (s *Service) syncBatch(ctx context.Context) {
	ids, err := s.repo.GetOrdersForSync(ctx, 100)
	if err != nil {
		s.logger.Error("failed to list orders for payment sync", zap.Error(err))
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(syncWorkers)

	for _, id := range ids {
		gatewayOrderID := id
		g.Go(func() error {
			if err := s.syncOrder(ctx, gatewayOrderID); err != nil {
				s.logger.Warn("failed to sync order payment",
					zap.String("gatewayOrderID", gatewayOrderID),
					zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()
}
