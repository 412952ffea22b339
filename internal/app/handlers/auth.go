package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
	"github.com/chainbazzar/chainbazzar/internal/service"
)

// RegisterRequest — payload of POST /api/auth/register.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	WalletAddress string `json:"wallet_address" validate:"omitempty,hexadecimal|startswith=0x"`
}

// LoginRequest — payload of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// AuthResponse carries the issued JWT.
type AuthResponse struct {
	Token string `json:"token"`
}

// RegisterHandler обрабатывает POST /api/auth/register.
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		token, err := authService.Register(r.Context(), req.Email, req.Password, req.WalletAddress)
		if err != nil {
			if errors.Is(err, service.ErrEmailTaken) {
				respondError(w, logger, http.StatusConflict, "email already registered")
				return
			}
			logger.Error("registration failed", slog.Any("error", err))
			respondError(w, logger, http.StatusInternalServerError, "registration failed")
			return
		}

		respondJSON(w, logger, http.StatusCreated, AuthResponse{Token: token})
	}
}

// LoginHandler обрабатывает POST /api/auth/login.
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			respondError(w, logger, http.StatusBadRequest, "validation error")
			return
		}

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Warn("login failed", slog.Any("error", err))
			respondError(w, logger, http.StatusUnauthorized, "invalid credentials")
			return
		}

		respondJSON(w, logger, http.StatusOK, AuthResponse{Token: token})
	}
}

// MeResponse is the bearer-token validation response of GET /api/auth/me.
type MeResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address,omitempty"`
}

// MeHandler обрабатывает GET /api/auth/me.
func MeHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MeHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := authService.Me(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get profile", slog.Any("error", err))
			respondError(w, logger, http.StatusUnauthorized, "unauthorized")
			return
		}

		respondJSON(w, logger, http.StatusOK, MeResponse{
			ID:            user.ID,
			Email:         user.Email,
			WalletAddress: user.WalletAddress,
		})
	}
}
