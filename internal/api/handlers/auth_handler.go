package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"auction-house/internal/api/middleware"
	"auction-house/internal/domain"
	"auction-house/internal/services"
	"auction-house/pkg/logger"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      logger.Logger
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewAuthHandler(accounts *services.AccountService, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		log:      log,
	}
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	_, err := h.accounts.Signup(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		var validationErr *domain.ValidationError
		switch {
		case errors.As(err, &validationErr):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Username and password required"})
		case errors.Is(err, domain.ErrDuplicateUsername):
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Username already exists"})
		default:
			h.log.Error("Signup failed", "username", req.Username, "error", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
		}
	}

	return c.JSON(http.StatusCreated, map[string]string{"message": "User registered successfully"})
}

func (h *AuthHandler) Signin(c echo.Context) error {
	var req SigninRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	token, err := h.accounts.Signin(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
		}
		h.log.Error("Signin failed", "username", req.Username, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Signin successful",
		"token":   token,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	token := middleware.GetToken(c)
	if err := h.accounts.Logout(c.Request().Context(), token); err != nil {
		h.log.Error("Logout failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logout successful"})
}
