package handlers

import (
	"net/http"

	"todoList/internal/logger"

	"go.uber.org/zap"
)

type ThemeHandler struct {
	store ThemeStore
}

func NewThemeHandler(store ThemeStore) *ThemeHandler {
	return &ThemeHandler{store: store}
}

func (h *ThemeHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	responseWithJSON(w, http.StatusOK, toPayload("theme", h.store.Current()))
}

func (h *ThemeHandler) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	th := h.store.Toggle()
	logger.Info("HTTP_OUT: Тема переключена", zap.String("theme", string(th.Name)))
	responseWithJSON(w, http.StatusOK, toPayload("theme", th))
}
