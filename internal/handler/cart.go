package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avetikov/bookstore-system/internal/middleware"
	"github.com/avetikov/bookstore-system/internal/model"
)

type cartItemRequest struct {
	BookID   int64 `json:"bookId"`
	Quantity int   `json:"quantity"`
}

// AddToCart добавляет книгу в корзину текущего пользователя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.BookID <= 0 || req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, codeValidation, "book id and valid quantity are required")
		return
	}

	if err := h.service.AddToCart(r.Context(), userID, req.BookID, req.Quantity); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "item added to cart"})
}

// GetCart возвращает корзину текущего пользователя с предварительным расчётом.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	items, summary, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if items == nil {
		items = []model.CartItem{}
	}

	writeData(w, http.StatusOK, map[string]any{
		"items":   items,
		"summary": summary,
	})
}

// UpdateCart устанавливает количество для позиции корзины.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.BookID <= 0 || req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, codeValidation, "book id and valid quantity are required")
		return
	}

	if err := h.service.UpdateCartItem(r.Context(), userID, req.BookID, req.Quantity); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "cart updated"})
}

// RemoveCartItem удаляет позицию из корзины текущего пользователя.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil || bookID <= 0 {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid book id")
		return
	}

	if err := h.service.RemoveCartItem(r.Context(), userID, bookID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "item removed from cart"})
}

// ClearCart очищает корзину текущего пользователя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
