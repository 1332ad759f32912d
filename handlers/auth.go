package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/CrowderSoup/spearmint/services"
)

// AuthHandler serves the /users routes.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Ping answers GET /users.
func (h *AuthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Users route works!")
}

// Register creates an account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.authService.Register(r.Context(), req)
	switch {
	case err == nil:
		writeMessage(w, http.StatusCreated, "User registered successfully")
	case errors.Is(err, services.ErrMissingFields),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Error registering user: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
}

// Login checks credentials and returns the profile the client keeps as its session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authService.Login(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, loginResponse{
			Message:  "Login successful",
			Username: user.Username,
			Fullname: user.Fullname,
			Email:    user.Email,
		})
	case errors.Is(err, services.ErrMissingCredentials),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrWrongPassword):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Error logging in: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Server error")
	}
}

// Home answers GET /.
func Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Hello from Spearmint!")
}

// Health answers GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
