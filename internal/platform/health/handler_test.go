package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("test")

	w, body := serve(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alive", body["status"])

	w, body = serve(t, h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", body["environment"])
	assert.Equal(t, Version, body["version"])
}

func TestReadiness(t *testing.T) {
	t.Run("ready when all checks pass", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("kv", func(context.Context) error { return nil })

		w, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", body["status"])
		checks := body["checks"].([]any)
		require.Len(t, checks, 1)
		assert.Equal(t, "kv", checks[0].(map[string]any)["name"])
		assert.Equal(t, "up", checks[0].(map[string]any)["status"])
	})

	t.Run("not ready when a check fails", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("kv", func(context.Context) error { return nil })
		h.RegisterCheck("kafka", func(context.Context) error { return errors.New("connection refused") })

		w, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "not_ready", body["status"])
		checks := body["checks"].([]any)
		require.Len(t, checks, 2)
		kafka := checks[0].(map[string]any)
		assert.Equal(t, "kafka", kafka["name"])
		assert.Equal(t, "down", kafka["status"])
		assert.Equal(t, "connection refused", kafka["error"])
		assert.Equal(t, "up", checks[1].(map[string]any)["status"])
	})

	t.Run("slow check is cut off by the deadline", func(t *testing.T) {
		h := New("test")
		h.checkTimeout = 20 * time.Millisecond
		h.RegisterCheck("kv", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		w, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		check := body["checks"].([]any)[0].(map[string]any)
		assert.Equal(t, "context deadline exceeded", check["error"])
	})

	t.Run("re-registering a name replaces the check", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("kv", func(context.Context) error { return errors.New("down") })
		h.RegisterCheck("kv", func(context.Context) error { return nil })

		w, body := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body["checks"], 1)
	})
}
