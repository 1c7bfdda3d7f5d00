package handler

import (
	"encoding/json"
	"net/http"
)

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.Login == "" || len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, codeValidation, "login and password of at least 8 characters are required")
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	writeData(w, http.StatusCreated, map[string]any{
		"id":    userID,
		"token": h.authMiddleware.Token(userID),
	})
}

// Login выполняет аутентификацию пользователя и выдаёт токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "login and password are required")
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	writeData(w, http.StatusOK, map[string]any{
		"id":    userID,
		"token": h.authMiddleware.Token(userID),
	})
}
