// Package gateway предоставляет клиент для внешнего платёжного шлюза.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable возвращается при сетевой ошибке или недоступности шлюза.
// Вызывающая сторона может безопасно повторить операцию.
var ErrUnavailable = errors.New("payment gateway unavailable")

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// Order описывает платёжный ордер, созданный на стороне шлюза.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment описывает платёж на стороне шлюза.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Captured bool   `json:"captured"`
}

// NewClient создаёт HTTP-клиент платёжного шлюза по указанному адресу и ключам.
func NewClient(baseURL, keyID, keySecret string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type createOrderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

// CreateOrder создаёт платёжный ордер на указанную сумму в минимальных
// единицах валюты. Receipt — внутренний номер заказа магазина.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, currency, receipt string) (*Order, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	body, err := json.Marshal(createOrderRequest{
		Amount:         amountCents,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

// FetchPayment запрашивает у шлюза состояние платежа по его идентификатору.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &payment); err != nil {
		return nil, err
	}

	return &payment, nil
}

type paymentList struct {
	Count int       `json:"count"`
	Items []Payment `json:"items"`
}

// FetchOrderPayments возвращает все платежи, привязанные к платёжному ордеру.
func (c *Client) FetchOrderPayments(ctx context.Context, gatewayOrderID string) ([]Payment, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("gateway client not configured")
	}

	var list paymentList
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+gatewayOrderID+"/payments", nil, &list); err != nil {
		return nil, err
	}

	return list.Items, nil
}

// VerifySignature проверяет подпись платежа: hex-кодированный HMAC-SHA256
// от строки "orderID|paymentID" на секретном ключе шлюза. Сравнение выполняется
// за постоянное время; на некорректном входе возвращается false.
func (c *Client) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) bool {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// KeyID возвращает публичный идентификатор ключа для передачи на клиент.
// Секретный ключ за пределы сервиса не выходит.
func (c *Client) KeyID() string {
	return c.keyID
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("gateway request failed: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
