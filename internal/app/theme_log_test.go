package app

import (
	"testing"

	"todoList/internal/logger"
	"todoList/internal/theme"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = prev })
	return logs
}

func TestThemeLogger_DevelopmentAddsPreview(t *testing.T) {
	logs := observeLogs(t)

	store := theme.NewStore()
	store.Subscribe(themeLogger(true))
	store.Toggle()

	entries := logs.FilterMessage("App: Тема изменена").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "dark", fields["theme"])
	require.Contains(t, fields, "preview")
	assert.Contains(t, fields["preview"], "dark")
}

func TestThemeLogger_ProductionWithoutPreview(t *testing.T) {
	logs := observeLogs(t)

	store := theme.NewStore()
	store.Subscribe(themeLogger(false))
	store.Toggle()

	entries := logs.FilterMessage("App: Тема изменена").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "preview")
}
