package handler

import (
	"encoding/json"
	"net/http"

	"github.com/avetikov/bookstore-system/internal/middleware"
	"github.com/avetikov/bookstore-system/internal/model"
)

type createBookRequest struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Rating      int     `json:"rating"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// CreateBook добавляет книгу в каталог.
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.Title == "" || req.Author == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "title, author and category are required")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, codeValidation, "price must be non-negative")
		return
	}
	if req.Rating != 0 && (req.Rating < 1 || req.Rating > 5) {
		writeError(w, http.StatusBadRequest, codeValidation, "rating must be between 1 and 5")
		return
	}

	book, err := h.service.CreateBook(r.Context(), &model.Book{
		Title:       req.Title,
		Author:      req.Author,
		Price:       req.Price,
		Image:       req.Image,
		Rating:      req.Rating,
		Category:    req.Category,
		Description: req.Description,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusCreated, book)
}

// GetBooks возвращает каталог книг.
func (h *Handler) GetBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if books == nil {
		books = []model.Book{}
	}

	writeData(w, http.StatusOK, books)
}

// DeleteBook удаляет книгу из каталога.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		unauthorized(w)
		return
	}

	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid book id")
		return
	}

	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"message": "book deleted"})
}
