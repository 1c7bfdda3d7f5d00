package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/avetikov/bookstore-system/internal/gateway"
	"github.com/avetikov/bookstore-system/internal/repository"
	"github.com/avetikov/bookstore-system/internal/service"
)

// Стабильные коды ошибок API. Клиент различает по ним постоянные отказы
// и временные сбои, которые имеет смысл повторить.
const (
	codeValidation           = "validation_error"
	codeItemNotFound         = "item_not_found"
	codeUnauthorized         = "unauthorized"
	codeOrderNotFound        = "order_not_found"
	codeInvalidSignature     = "invalid_signature"
	codePaymentNotCompleted  = "payment_not_completed"
	codeGatewayUnavailable   = "gateway_unavailable"
	codeInvalidPaymentMethod = "invalid_payment_method"
	codeUserExists           = "user_exists"
	codeInternal             = "internal_error"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   &errorBody{Code: code, Message: message},
	})
}

// writeServiceError отображает доменные ошибки в HTTP-статусы и стабильные коды.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyItems),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrMissingPaymentFields):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		writeError(w, http.StatusBadRequest, codeInvalidPaymentMethod, err.Error())
	case errors.Is(err, service.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, codeInvalidSignature, err.Error())
	case errors.Is(err, service.ErrPaymentNotCompleted):
		writeError(w, http.StatusBadRequest, codePaymentNotCompleted, err.Error())
	case errors.Is(err, repository.ErrBookNotFound),
		errors.Is(err, repository.ErrCartItemNotFound):
		writeError(w, http.StatusNotFound, codeItemNotFound, err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, "order not found")
	case errors.Is(err, repository.ErrUserExists):
		writeError(w, http.StatusConflict, codeUserExists, "user already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
	case errors.Is(err, gateway.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeGatewayUnavailable, "payment gateway unavailable")
	default:
		h.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}

func unauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
}
