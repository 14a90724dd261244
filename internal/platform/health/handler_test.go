package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) (int, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness_GatedOnStartup(t *testing.T) {
	h := New("test")
	h.RegisterCheck("message_store", func(context.Context) error { return nil })

	code, body := serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "pending", body["checks"].(map[string]any)["startup"])

	h.MarkReady()

	code, body = serve(t, h, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "up", body["checks"].(map[string]any)["message_store"])
}

func TestReadiness_FailingCheck(t *testing.T) {
	h := New("test")
	h.MarkReady()
	h.RegisterCheck("message_store", func(context.Context) error { return errors.New("database is locked") })

	code, body := serve(t, h, "/health/ready")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "down: database is locked", body["checks"].(map[string]any)["message_store"])
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("production")

	code, body := serve(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])

	code, body = serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "production", body["environment"])
	assert.Equal(t, Version, body["version"])
}
