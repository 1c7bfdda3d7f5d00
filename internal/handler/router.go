package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/avetikov/bookstore-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware книжного магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Route("/api/books", func(r chi.Router) {
		r.Get("/", h.GetBooks)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/", h.CreateBook)
			r.Delete("/{id}", h.DeleteBook)
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/add", h.AddToCart)
		r.Get("/", h.GetCart)
		r.Put("/update", h.UpdateCart)
		r.Delete("/remove/{bookID}", h.RemoveCartItem)
		r.Delete("/clear", h.ClearCart)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Post("/", h.CreateOrder)
		r.Post("/confirm", h.ConfirmPayment)
		r.Get("/", h.GetOrders)
		r.Get("/user", h.GetUserOrders)
		r.Get("/{id}", h.GetOrderByID)
		r.Put("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.DeleteOrder)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
