package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"todoList/internal/auth"
	"todoList/internal/handlers/dto"
	"todoList/internal/logger"

	"go.uber.org/zap"
)

type AuthHandler struct {
	authenticator auth.Authenticator
}

func NewAuthHandler(authenticator auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !checkContentType(r, "application/json") {
		responseWithError(w, http.StatusUnsupportedMediaType, errUnsupported, "Content-Type должен быть application/json")
		return
	}

	var request dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		responseWithError(w, http.StatusBadRequest, errBadRequest, "неверное тело запроса: "+err.Error())
		return
	}

	err := h.authenticator.Authenticate(r.Context(), request.Username, request.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidCredentials):
		logger.Warn("HTTP: Неудачная попытка входа",
			zap.String("username", request.Username),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, errUnauthorized, err.Error())
		return
	default:
		handleServiceError(w, r, err, "login")
		return
	}

	logger.Info("HTTP_OUT: Пользователь вошёл", zap.String("username", request.Username))
	responseWithJSON(w, http.StatusOK, toPayload("authenticated", true))
}
