package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateOrder_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/orders" {
			t.Fatalf("path = %s, want /v1/orders", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_test" || pass != "secret_test" {
			t.Fatalf("basic auth = %q/%q, want key_test/secret_test", user, pass)
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Amount != 26250 || req.Currency != "INR" || req.Receipt != "ORD-1" {
			t.Fatalf("unexpected request: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Order{
			ID:       "gw_123",
			Amount:   req.Amount,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Status:   "created",
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key_test", "secret_test")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	order, err := client.CreateOrder(ctx, 26250, "INR", "ORD-1")
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if order.ID != "gw_123" || order.Amount != 26250 || order.Currency != "INR" {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestCreateOrder_ServerErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.CreateOrder(ctx, 100, "INR", "ORD-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestCreateOrder_TransportErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // закрываем сразу, чтобы получить сетевую ошибку

	client := NewClient(ts.URL, "key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.CreateOrder(ctx, 100, "INR", "ORD-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestFetchPayment_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pay_42" {
			t.Fatalf("path = %s, want /v1/payments/pay_42", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Payment{
			ID:      "pay_42",
			OrderID: "gw_123",
			Status:  "captured",
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payment, err := client.FetchPayment(ctx, "pay_42")
	if err != nil {
		t.Fatalf("FetchPayment error: %v", err)
	}
	if payment.ID != "pay_42" || payment.Status != "captured" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
}

func TestFetchOrderPayments_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders/gw_123/payments" {
			t.Fatalf("path = %s, want /v1/orders/gw_123/payments", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(paymentList{
			Count: 2,
			Items: []Payment{
				{ID: "pay_1", Status: "failed"},
				{ID: "pay_2", Status: "captured", Captured: true},
			},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "key", "secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payments, err := client.FetchOrderPayments(ctx, "gw_123")
	if err != nil {
		t.Fatalf("FetchOrderPayments error: %v", err)
	}
	if len(payments) != 2 || payments[1].ID != "pay_2" || !payments[1].Captured {
		t.Fatalf("unexpected payments: %+v", payments)
	}
}

func signTest(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	client := NewClient("localhost:9999", "key", "secret_test")

	valid := signTest("secret_test", "gw_123", "pay_42")

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{"valid signature", "gw_123", "pay_42", valid, true},
		{"mutated order id", "gw_124", "pay_42", valid, false},
		{"mutated payment id", "gw_123", "pay_43", valid, false},
		{"wrong secret", "gw_123", "pay_42", signTest("other", "gw_123", "pay_42"), false},
		{"empty signature", "gw_123", "pay_42", "", false},
		{"empty order id", "", "pay_42", valid, false},
		{"empty payment id", "gw_123", "", valid, false},
		{"garbage signature", "gw_123", "pay_42", "not-a-hex-signature", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.VerifySignature(tt.orderID, tt.paymentID, tt.signature); got != tt.want {
				t.Fatalf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifySignature_LastCharMutation(t *testing.T) {
	client := NewClient("localhost:9999", "key", "secret_test")
	valid := signTest("secret_test", "gw_123", "pay_42")

	// меняем последний hex-символ на заведомо другой
	last := valid[len(valid)-1]
	replacement := byte('0')
	if last == '0' {
		replacement = '1'
	}
	mutated := valid[:len(valid)-1] + string(replacement)

	if client.VerifySignature("gw_123", "pay_42", mutated) {
		t.Fatalf("mutated signature must not verify")
	}
}
