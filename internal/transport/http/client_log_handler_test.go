package http

import (
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/shared/testutil"
)

func TestClientLogHandler(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewClientLogHandler(logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Post("/api/client-log", handler.Handle)

	t.Run("accepted", func(t *testing.T) {
		body := `{"level":"error","message":"chart render failed","source":"dashboard","data":{"symbol":"BTC"}}`
		rec := serve(r, http.MethodPost, "/api/client-log", strings.NewReader(body), "application/json")

		assert.Equal(t, http.StatusAccepted, rec.Code)
		testutil.AssertLogContains(t, logs, slog.LevelError, "chart render failed")
		assert.True(t, logs.ContainsAttr("client_source", "dashboard"))
	})

	t.Run("missing message", func(t *testing.T) {
		rec := serve(r, http.MethodPost, "/api/client-log", strings.NewReader(`{"level":"info"}`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not json", func(t *testing.T) {
		rec := serve(r, http.MethodPost, "/api/client-log", strings.NewReader(`level=info`), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClientLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, clientLevel("debug"))
	assert.Equal(t, slog.LevelWarn, clientLevel("warn"))
	assert.Equal(t, slog.LevelError, clientLevel("error"))
	assert.Equal(t, slog.LevelInfo, clientLevel("verbose"))
}
