package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avetikov/bookstore-system/internal/model"
)

const orderColumns = `id, order_id, user_id, full_name, email, phone_number, street, city, state, zip_code,
	subtotal_cents, tax_cents, shipping_cents, payable_cents,
	payment_method, payment_status, gateway_order_id, gateway_payment_id, paid_at,
	order_status, delivery_date, notes, placed_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o                model.Order
		gatewayOrderID   *string
		gatewayPaymentID *string
	)

	err := row.Scan(
		&o.ID, &o.OrderID, &o.UserID,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Email, &o.ShippingAddress.PhoneNumber,
		&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
		&o.ShippingAddress.ZipCode,
		&o.SubtotalCents, &o.TaxCents, &o.ShippingCents, &o.PayableCents,
		&o.PaymentMethod, &o.PaymentStatus, &gatewayOrderID, &gatewayPaymentID, &o.PaidAt,
		&o.OrderStatus, &o.DeliveryDate, &o.Notes, &o.PlacedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if gatewayOrderID != nil {
		o.GatewayOrderID = *gatewayOrderID
	}
	if gatewayPaymentID != nil {
		o.GatewayPaymentID = *gatewayPaymentID
	}

	return &o, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateOrder сохраняет заказ вместе с позициями в одной транзакции
// и заполняет серверные поля переданной структуры.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO orders (order_id, user_id, full_name, email, phone_number, street, city, state, zip_code,
		                     subtotal_cents, tax_cents, shipping_cents, payable_cents,
		                     payment_method, payment_status, gateway_order_id, order_status, delivery_date, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id, placed_at, updated_at`,
		o.OrderID, o.UserID,
		o.ShippingAddress.FullName, o.ShippingAddress.Email, o.ShippingAddress.PhoneNumber,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode,
		o.SubtotalCents, o.TaxCents, o.ShippingCents, o.PayableCents,
		string(o.PaymentMethod), string(o.PaymentStatus), nullString(o.GatewayOrderID),
		string(o.OrderStatus), o.DeliveryDate, o.Notes,
	).Scan(&o.ID, &o.PlacedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		_, err := tx.Exec(ctx,
			`INSERT INTO order_items (order_id, book_id, title, author, image, price_cents, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			o.ID, it.BookID, it.Title, it.Author, it.Image, it.PriceCents, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func (r *PostgresRepository) loadItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(orders))
	index := make(map[int64]*model.Order, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		index[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx,
		`SELECT order_id, book_id, title, author, image, price_cents, quantity
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      model.OrderItem
		)
		if err := rows.Scan(&orderID, &it.BookID, &it.Title, &it.Author, &it.Image,
			&it.PriceCents, &it.Quantity); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := index[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) getOrder(ctx context.Context, where string, args ...any) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+where, args...,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []model.Order{*o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// GetOrderByID возвращает заказ с позициями по внутреннему идентификатору.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	return r.getOrder(ctx, `id = $1`, id)
}

// GetOrderByGatewayID возвращает заказ по идентификатору платёжного ордера.
func (r *PostgresRepository) GetOrderByGatewayID(ctx context.Context, gatewayOrderID string) (*model.Order, error) {
	return r.getOrder(ctx, `gateway_order_id = $1`, gatewayOrderID)
}

func (r *PostgresRepository) selectOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.selectOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY placed_at DESC`,
		userID,
	)
}

// ListOrders возвращает заказы по фильтру: подстрочный поиск без учёта регистра
// по номеру заказа, имени и почте покупателя, названиям позиций и идентификаторам
// шлюза, плюс необязательный фильтр по статусу исполнения.
func (r *PostgresRepository) ListOrders(ctx context.Context, search string, status model.OrderStatus) ([]model.Order, error) {
	var (
		conds []string
		args  []any
	)

	if status != "" {
		args = append(args, string(status))
		conds = append(conds, fmt.Sprintf("order_status = $%d", len(args)))
	}

	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(order_id ILIKE $%[1]d OR full_name ILIKE $%[1]d OR email ILIKE $%[1]d
			  OR gateway_order_id ILIKE $%[1]d OR gateway_payment_id ILIKE $%[1]d
			  OR EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = orders.id AND i.title ILIKE $%[1]d))`,
			n))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY placed_at DESC`

	return r.selectOrders(ctx, query, args...)
}

// GetOrdersForSync возвращает идентификаторы платёжных ордеров заказов,
// ожидающих подтверждения оплаты.
func (r *PostgresRepository) GetOrdersForSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT gateway_order_id
		 FROM orders
		 WHERE gateway_order_id IS NOT NULL AND payment_status <> $1
		 ORDER BY placed_at
		 LIMIT $2`,
		string(model.PaymentStatusPaid), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders for sync: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan gateway order id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return ids, nil
}

// MarkOrderPaid атомарно переводит заказ в статус Paid по идентификатору
// платёжного ордера. Возвращает заказ и признак того, что переход выполнен
// этим вызовом; для уже оплаченного заказа возвращается (order, false, nil).
func (r *PostgresRepository) MarkOrderPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID string, paidAt time.Time) (*model.Order, bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET payment_status = $2, gateway_payment_id = $3, paid_at = $4, updated_at = now()
		 WHERE gateway_order_id = $1 AND payment_status <> $2`,
		gatewayOrderID, string(model.PaymentStatusPaid), gatewayPaymentID, paidAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("mark order paid: %w", err)
	}

	o, err := r.GetOrderByGatewayID(ctx, gatewayOrderID)
	if err != nil {
		return nil, false, err
	}

	return o, cmdTag.RowsAffected() == 1, nil
}

// OrderPatch описывает частичное обновление заказа. Обновляются только поля
// из разрешённого набора; nil означает «не менять».
type OrderPatch struct {
	OrderStatus   *model.OrderStatus
	PaymentStatus *model.PaymentStatus
	DeliveryDate  *time.Time
	Notes         *string
}

// UpdateOrder применяет частичное обновление и возвращает обновлённый заказ.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, id int64, patch OrderPatch) (*model.Order, error) {
	var (
		sets []string
		args []any
	)
	args = append(args, id)

	if patch.OrderStatus != nil {
		args = append(args, string(*patch.OrderStatus))
		sets = append(sets, fmt.Sprintf("order_status = $%d", len(args)))
	}
	if patch.PaymentStatus != nil {
		args = append(args, string(*patch.PaymentStatus))
		sets = append(sets, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	if patch.DeliveryDate != nil {
		args = append(args, *patch.DeliveryDate)
		sets = append(sets, fmt.Sprintf("delivery_date = $%d", len(args)))
	}
	if patch.Notes != nil {
		args = append(args, *patch.Notes)
		sets = append(sets, fmt.Sprintf("notes = $%d", len(args)))
	}

	if len(sets) == 0 {
		return r.GetOrderByID(ctx, id)
	}

	sets = append(sets, "updated_at = now()")

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = $1`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrderByID(ctx, id)
}

// DeleteOrder безвозвратно удаляет заказ вместе с позициями.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}
