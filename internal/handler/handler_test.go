package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/avetikov/bookstore-system/internal/gateway"
	"github.com/avetikov/bookstore-system/internal/middleware"
	"github.com/avetikov/bookstore-system/internal/model"
	"github.com/avetikov/bookstore-system/internal/repository"
	"github.com/avetikov/bookstore-system/internal/service"
)

type stubService struct {
	registerID  int64
	registerErr error
	authID      int64
	authErr     error

	books    []model.Book
	booksErr error

	cart        []model.CartItem
	cartSummary service.CartSummary

	createOrderUserID int64
	createOrderIn     service.OrderInput
	order             *model.Order
	checkout          *service.Checkout
	createOrderErr    error

	confirmErr error

	listSearch string
	listStatus model.OrderStatus
	listSync   bool
	orders     []model.Order
	counts     model.OrderCounts

	updateID    int64
	updatePatch repository.OrderPatch
	updateErr   error

	deleteErr error
}

func (s *stubService) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	return s.registerID, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	return s.authID, s.authErr
}

func (s *stubService) CreateBook(ctx context.Context, b *model.Book) (*model.Book, error) {
	return b, nil
}

func (s *stubService) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.books, s.booksErr
}

func (s *stubService) DeleteBook(ctx context.Context, id int64) error { return nil }

func (s *stubService) AddToCart(ctx context.Context, userID, bookID int64, quantity int) error {
	return nil
}

func (s *stubService) GetCart(ctx context.Context, userID int64) ([]model.CartItem, service.CartSummary, error) {
	return s.cart, s.cartSummary, nil
}

func (s *stubService) UpdateCartItem(ctx context.Context, userID, bookID int64, quantity int) error {
	return nil
}

func (s *stubService) RemoveCartItem(ctx context.Context, userID, bookID int64) error { return nil }

func (s *stubService) ClearCart(ctx context.Context, userID int64) error { return nil }

func (s *stubService) CreateOrder(ctx context.Context, userID int64, in service.OrderInput) (*model.Order, *service.Checkout, error) {
	s.createOrderUserID = userID
	s.createOrderIn = in
	return s.order, s.checkout, s.createOrderErr
}

func (s *stubService) ConfirmPayment(ctx context.Context, gatewayPaymentID, gatewayOrderID, signature string) (*model.Order, error) {
	if s.confirmErr != nil {
		return nil, s.confirmErr
	}
	return s.order, nil
}

func (s *stubService) ListOrders(ctx context.Context, search string, status model.OrderStatus, sync bool) ([]model.Order, model.OrderCounts, error) {
	s.listSearch = search
	s.listStatus = status
	s.listSync = sync
	return s.orders, s.counts, nil
}

func (s *stubService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if s.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return s.order, nil
}

func (s *stubService) GetUserOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.orders, nil
}

func (s *stubService) UpdateOrder(ctx context.Context, id int64, patch repository.OrderPatch) (*model.Order, error) {
	s.updateID = id
	s.updatePatch = patch
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.order, nil
}

func (s *stubService) DeleteOrder(ctx context.Context, id int64) error { return s.deleteErr }

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, svc *stubService) (*httptest.Server, string) {
	t.Helper()

	auth := middleware.NewAuthMiddleware("test-secret")
	h := NewHandler(svc, zap.NewNop(), auth)

	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)

	return srv, auth.Token(1)
}

func doRequest(t *testing.T, method, url, token, body string) (*http.Response, testEnvelope) {
	t.Helper()

	var reqBody *bytes.Reader
	if body != "" {
		reqBody = bytes.NewReader([]byte(body))
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var env testEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&env)

	return resp, env
}

func TestCreateOrder_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{})

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/", "", `{}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if env.Success {
		t.Fatalf("success = true, want false")
	}
	if env.Error == nil || env.Error.Code != "unauthorized" {
		t.Fatalf("error = %+v, want code unauthorized", env.Error)
	}
}

func TestCreateOrder_CashOnDelivery(t *testing.T) {
	svc := &stubService{
		order: &model.Order{
			OrderID:       "ORD-test",
			PaymentMethod: model.PaymentMethodCOD,
			PaymentStatus: model.PaymentStatusUnpaid,
			OrderStatus:   model.OrderStatusPending,
		},
	}
	srv, token := newTestServer(t, svc)

	body := `{
		"customer": {"name": "Ivan Petrov", "email": "ivan@example.com", "phone": "123",
			"address": {"street": "Lenina 1", "city": "Moscow", "state": "RU", "zip": "101000"}},
		"items": [{"id": 5, "quantity": 2}],
		"paymentMethod": "Cash on Delivery"
	}`

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/", token, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if !env.Success {
		t.Fatalf("success = false, error: %+v", env.Error)
	}

	if svc.createOrderUserID != 1 {
		t.Fatalf("userID = %d, want 1", svc.createOrderUserID)
	}
	in := svc.createOrderIn
	if in.Customer.FullName != "Ivan Petrov" || in.Customer.City != "Moscow" {
		t.Fatalf("unexpected customer mapping: %+v", in.Customer)
	}
	if len(in.Items) != 1 || in.Items[0].BookID != 5 || in.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items mapping: %+v", in.Items)
	}
	if in.PaymentMethod != model.PaymentMethodCOD {
		t.Fatalf("payment method = %q", in.PaymentMethod)
	}

	var data struct {
		Payment *service.Checkout `json:"payment"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.Payment != nil {
		t.Fatalf("payment must be null for cash on delivery, got %+v", data.Payment)
	}
}

func TestCreateOrder_Online(t *testing.T) {
	svc := &stubService{
		order: &model.Order{OrderID: "ORD-test", GatewayOrderID: "gw_123"},
		checkout: &service.Checkout{
			KeyID:          "key_test",
			GatewayOrderID: "gw_123",
			Amount:         26250,
			Currency:       "INR",
		},
	}
	srv, token := newTestServer(t, svc)

	body := `{
		"customer": {"name": "Ivan Petrov", "email": "ivan@example.com"},
		"items": [{"id": 5, "quantity": 1}],
		"paymentMethod": "Online Payment"
	}`

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/", token, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var data struct {
		Payment *service.Checkout `json:"payment"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.Payment == nil || data.Payment.GatewayOrderID != "gw_123" || data.Payment.KeyID != "key_test" {
		t.Fatalf("unexpected payment block: %+v", data.Payment)
	}

	raw := string(env.Data)
	if strings.Contains(raw, "secret") {
		t.Fatalf("response must not expose gateway secret: %s", raw)
	}
}

func TestCreateOrder_InvalidPaymentMethod(t *testing.T) {
	svc := &stubService{createOrderErr: service.ErrInvalidPaymentMethod}
	srv, token := newTestServer(t, svc)

	body := `{
		"customer": {"name": "Ivan Petrov", "email": "ivan@example.com"},
		"items": [{"id": 5, "quantity": 1}],
		"paymentMethod": "Barter"
	}`

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/", token, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "invalid_payment_method" {
		t.Fatalf("error = %+v, want code invalid_payment_method", env.Error)
	}
}

func TestCreateOrder_MissingCustomer(t *testing.T) {
	srv, token := newTestServer(t, &stubService{})

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/", token,
		`{"items": [{"id": 5, "quantity": 1}], "paymentMethod": "Cash on Delivery"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("error = %+v, want code validation_error", env.Error)
	}
}

func TestConfirmPayment_InvalidSignature(t *testing.T) {
	svc := &stubService{confirmErr: service.ErrInvalidSignature}
	srv, token := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/confirm", token,
		`{"paymentId": "pay_42", "orderId": "gw_123", "signature": "bad"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "invalid_signature" {
		t.Fatalf("error = %+v, want code invalid_signature", env.Error)
	}
}

func TestConfirmPayment_GatewayUnavailable(t *testing.T) {
	svc := &stubService{confirmErr: gateway.ErrUnavailable}
	srv, token := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/orders/confirm", token,
		`{"paymentId": "pay_42", "orderId": "gw_123", "signature": "sig"}`)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "gateway_unavailable" {
		t.Fatalf("error = %+v, want code gateway_unavailable", env.Error)
	}
}

func TestGetOrders_PassesFilters(t *testing.T) {
	svc := &stubService{counts: model.OrderCounts{Total: 0}}
	srv, token := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodGet,
		srv.URL+"/api/orders/?search=ivan&status=Pending&sync=true", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.Success {
		t.Fatalf("success = false, error: %+v", env.Error)
	}

	if svc.listSearch != "ivan" || svc.listStatus != model.OrderStatusPending || !svc.listSync {
		t.Fatalf("filters = %q/%q/%v, want ivan/Pending/true",
			svc.listSearch, svc.listStatus, svc.listSync)
	}

	var data struct {
		Orders []model.Order `json:"orders"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data.Orders == nil {
		t.Fatalf("orders must be an empty array, not null")
	}
}

func TestGetOrders_UnknownStatus(t *testing.T) {
	srv, token := newTestServer(t, &stubService{})

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/orders/?status=Bogus", token, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("error = %+v, want code validation_error", env.Error)
	}
}

func TestUpdateOrder_AllowedFieldsOnly(t *testing.T) {
	svc := &stubService{order: &model.Order{ID: 7, OrderStatus: model.OrderStatusShipped}}
	srv, token := newTestServer(t, svc)

	delivery := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	body := `{
		"orderStatus": "Shipped",
		"deliveryDate": "2024-06-01T00:00:00Z",
		"totalAmount": 1,
		"items": [],
		"userId": 99
	}`

	resp, _ := doRequest(t, http.MethodPut, srv.URL+"/api/orders/7", token, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if svc.updateID != 7 {
		t.Fatalf("id = %d, want 7", svc.updateID)
	}
	patch := svc.updatePatch
	if patch.OrderStatus == nil || *patch.OrderStatus != model.OrderStatusShipped {
		t.Fatalf("patch.OrderStatus = %v, want Shipped", patch.OrderStatus)
	}
	if patch.DeliveryDate == nil || !patch.DeliveryDate.Equal(delivery) {
		t.Fatalf("patch.DeliveryDate = %v, want %v", patch.DeliveryDate, delivery)
	}
	if patch.PaymentStatus != nil || patch.Notes != nil {
		t.Fatalf("untouched fields must stay nil: %+v", patch)
	}
}

func TestUpdateOrder_UnknownStatus(t *testing.T) {
	srv, token := newTestServer(t, &stubService{})

	resp, env := doRequest(t, http.MethodPut, srv.URL+"/api/orders/7", token,
		`{"orderStatus": "Teleported"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "validation_error" {
		t.Fatalf("error = %+v, want code validation_error", env.Error)
	}
}

func TestUpdateOrder_NotFound(t *testing.T) {
	svc := &stubService{updateErr: repository.ErrOrderNotFound}
	srv, token := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodPut, srv.URL+"/api/orders/404", token,
		`{"orderStatus": "Shipped"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "order_not_found" {
		t.Fatalf("error = %+v, want code order_not_found", env.Error)
	}
}

func TestDeleteOrder(t *testing.T) {
	srv, token := newTestServer(t, &stubService{})

	resp, env := doRequest(t, http.MethodDelete, srv.URL+"/api/orders/7", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.Success {
		t.Fatalf("success = false, error: %+v", env.Error)
	}
}

func TestGetBooks_Public(t *testing.T) {
	svc := &stubService{books: []model.Book{{ID: 1, Title: "First Book"}}}
	srv, _ := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodGet, srv.URL+"/api/books/", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.Success {
		t.Fatalf("success = false, error: %+v", env.Error)
	}
}

func TestRegister_DuplicateUser(t *testing.T) {
	svc := &stubService{registerErr: repository.ErrUserExists}
	srv, _ := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/users/register", "",
		`{"login": "ivan", "password": "longenough"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "user_exists" {
		t.Fatalf("error = %+v, want code user_exists", env.Error)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{authErr: service.ErrInvalidCredentials}
	srv, _ := newTestServer(t, svc)

	resp, env := doRequest(t, http.MethodPost, srv.URL+"/api/users/login", "",
		`{"login": "ivan", "password": "wrongpass"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != "unauthorized" {
		t.Fatalf("error = %+v, want code unauthorized", env.Error)
	}
}
