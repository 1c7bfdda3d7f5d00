// Package handler содержит HTTP-обработчики API книжного магазина.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avetikov/bookstore-system/internal/middleware"
	"github.com/avetikov/bookstore-system/internal/model"
	"github.com/avetikov/bookstore-system/internal/repository"
	"github.com/avetikov/bookstore-system/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)
	CreateBook(ctx context.Context, b *model.Book) (*model.Book, error)
	ListBooks(ctx context.Context) ([]model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
	AddToCart(ctx context.Context, userID, bookID int64, quantity int) error
	GetCart(ctx context.Context, userID int64) ([]model.CartItem, service.CartSummary, error)
	UpdateCartItem(ctx context.Context, userID, bookID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, bookID int64) error
	ClearCart(ctx context.Context, userID int64) error
	CreateOrder(ctx context.Context, userID int64, in service.OrderInput) (*model.Order, *service.Checkout, error)
	ConfirmPayment(ctx context.Context, gatewayPaymentID, gatewayOrderID, signature string) (*model.Order, error)
	ListOrders(ctx context.Context, search string, status model.OrderStatus, sync bool) ([]model.Order, model.OrderCounts, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrder(ctx context.Context, id int64, patch repository.OrderPatch) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// Handler реализует HTTP-обработчики API книжного магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

type customerAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

type customerInfo struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone"`
	Address customerAddress `json:"address"`
}

type orderItemRequest struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type createOrderRequest struct {
	Customer      customerInfo       `json:"customer"`
	Items         []orderItemRequest `json:"items"`
	PaymentMethod string             `json:"paymentMethod"`
	Notes         string             `json:"notes"`
	DeliveryDate  *time.Time         `json:"deliveryDate"`
}

// CreateOrder оформляет заказ текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.Customer.Name == "" || req.Customer.Email == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "customer name and email are required")
		return
	}

	in := service.OrderInput{
		Customer: model.ShippingAddress{
			FullName:    req.Customer.Name,
			Email:       req.Customer.Email,
			PhoneNumber: req.Customer.Phone,
			Street:      req.Customer.Address.Street,
			City:        req.Customer.Address.City,
			State:       req.Customer.Address.State,
			ZipCode:     req.Customer.Address.Zip,
		},
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
		DeliveryDate:  req.DeliveryDate,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.OrderItemInput{BookID: it.ID, Quantity: it.Quantity})
	}

	order, checkout, err := h.service.CreateOrder(r.Context(), userID, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"order":   order,
		"payment": checkout,
	})
}

type confirmPaymentRequest struct {
	PaymentID string `json:"paymentId"`
	OrderID   string `json:"orderId"`
	Signature string `json:"signature"`
}

// ConfirmPayment подтверждает онлайн-оплату заказа.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	order, err := h.service.ConfirmPayment(r.Context(), req.PaymentID, req.OrderID, req.Signature)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]any{"order": order})
}

// GetOrders возвращает заказы по фильтру вместе с агрегатами.
// Параметр sync=true запускает сверку платежей со шлюзом перед выдачей.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	search := r.URL.Query().Get("search")
	status := model.OrderStatus(r.URL.Query().Get("status"))
	sync := r.URL.Query().Get("sync") == "true"

	if status != "" && !model.ValidOrderStatus(status) {
		writeError(w, http.StatusBadRequest, codeValidation, "unknown order status")
		return
	}

	orders, counts, err := h.service.ListOrders(r.Context(), search, status, sync)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}

	writeData(w, http.StatusOK, map[string]any{
		"counts": counts,
		"orders": orders,
	})
}

// GetOrderByID возвращает заказ по внутреннему идентификатору.
func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order id")
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, order)
}

// GetUserOrders возвращает заказы текущего пользователя.
func (h *Handler) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	orders, err := h.service.GetUserOrders(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}

	writeData(w, http.StatusOK, orders)
}

type updateOrderRequest struct {
	OrderStatus   *string    `json:"orderStatus"`
	PaymentStatus *string    `json:"paymentStatus"`
	DeliveryDate  *time.Time `json:"deliveryDate"`
	Notes         *string    `json:"notes"`
}

// UpdateOrder применяет частичное обновление заказа. Меняются только поля из
// разрешённого набора; всё прочее в теле запроса игнорируется.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order id")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	var patch repository.OrderPatch

	if req.OrderStatus != nil {
		status := model.OrderStatus(*req.OrderStatus)
		if !model.ValidOrderStatus(status) {
			writeError(w, http.StatusBadRequest, codeValidation, "unknown order status")
			return
		}
		patch.OrderStatus = &status
	}
	if req.PaymentStatus != nil {
		status := model.PaymentStatus(*req.PaymentStatus)
		if status != model.PaymentStatusUnpaid && status != model.PaymentStatusPaid {
			writeError(w, http.StatusBadRequest, codeValidation, "unknown payment status")
			return
		}
		patch.PaymentStatus = &status
	}
	patch.DeliveryDate = req.DeliveryDate
	patch.Notes = req.Notes

	order, err := h.service.UpdateOrder(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, order)
}

// DeleteOrder безвозвратно удаляет заказ.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid order id")
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "order deleted"})
}
