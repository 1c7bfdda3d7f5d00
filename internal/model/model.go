// Package model содержит доменные сущности книжного магазина.
package model

import "time"

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Login        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Book описывает книгу в каталоге. Цена хранится в минимальных единицах валюты.
type Book struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Price       float64   `json:"price"`
	PriceCents  int64     `json:"-"`
	Image       string    `json:"image,omitempty"`
	Rating      int       `json:"rating"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CartItem описывает позицию корзины пользователя.
type CartItem struct {
	Book     Book `json:"book"`
	Quantity int  `json:"quantity"`
}

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "Cash on Delivery"
	PaymentMethodOnline PaymentMethod = "Online Payment"
)

// Valid сообщает, входит ли способ оплаты в закрытый набор допустимых значений.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

// PaymentStatus описывает статус оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "Unpaid"
	PaymentStatusPaid   PaymentStatus = "Paid"
)

// OrderStatus описывает статус исполнения заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// ValidOrderStatus сообщает, является ли строка допустимым статусом заказа.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// ShippingAddress содержит снимок контактных данных покупателя на момент заказа.
type ShippingAddress struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
}

// OrderItem описывает позицию заказа. Название, автор и цена копируются из
// каталога при создании и дальше живут независимо от него.
type OrderItem struct {
	BookID     int64   `json:"bookId"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Image      string  `json:"image,omitempty"`
	Price      float64 `json:"price"`
	PriceCents int64   `json:"-"`
	Quantity   int     `json:"quantity"`
}

// Order описывает заказ пользователя вместе с финансовыми и платёжными полями.
type Order struct {
	ID               int64           `json:"id"`
	OrderID          string          `json:"orderId"`
	UserID           int64           `json:"userId"`
	ShippingAddress  ShippingAddress `json:"shippingAddress"`
	Items            []OrderItem     `json:"books"`
	SubtotalCents    int64           `json:"-"`
	TaxCents         int64           `json:"-"`
	ShippingCents    int64           `json:"-"`
	PayableCents     int64           `json:"-"`
	Subtotal         float64         `json:"totalAmount"`
	Tax              float64         `json:"taxAmount"`
	Shipping         float64         `json:"shippingCharge"`
	Payable          float64         `json:"payableAmount"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	GatewayOrderID   string          `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string          `json:"gatewayPaymentId,omitempty"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	OrderStatus      OrderStatus     `json:"orderStatus"`
	DeliveryDate     *time.Time      `json:"deliveryDate,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	PlacedAt         time.Time       `json:"placedAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// FillAmounts заполняет отображаемые денежные поля заказа из значений в центах.
func (o *Order) FillAmounts() {
	o.Subtotal = float64(o.SubtotalCents) / 100
	o.Tax = float64(o.TaxCents) / 100
	o.Shipping = float64(o.ShippingCents) / 100
	o.Payable = float64(o.PayableCents) / 100
	for i := range o.Items {
		o.Items[i].Price = float64(o.Items[i].PriceCents) / 100
	}
}

// OrderCounts содержит агрегаты по статусам заказов и оплат.
type OrderCounts struct {
	Total          int `json:"totalOrders"`
	Pending        int `json:"pending"`
	Processing     int `json:"processing"`
	Shipped        int `json:"shipped"`
	Delivered      int `json:"delivered"`
	Cancelled      int `json:"cancelled"`
	Paid           int `json:"paid"`
	PendingPayment int `json:"pendingPayment"`
}
