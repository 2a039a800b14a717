package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandlerReady(t *testing.T) {
	h := NewHealthHandler(nil, map[string]ReadinessCheck{
		"storage": func(ctx context.Context) error { return nil },
	}, 0, nil)

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"storage":"ok"}}`, w.Body.String())
}

func TestHealthHandlerReadyDegraded(t *testing.T) {
	h := NewHealthHandler(nil, map[string]ReadinessCheck{
		"storage": func(ctx context.Context) error { return nil },
		"cache":   func(ctx context.Context) error { return errors.New("connection refused") },
	}, 0, nil)

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"storage":"ok","cache":"connection refused"}}`, w.Body.String())
}

func TestHealthHandlerMetricsDisabled(t *testing.T) {
	h := NewHealthHandler(nil, nil, 0, nil)

	c, _ := newGinContext(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, c.Writer.Status())

	c, w := newGinContext(http.MethodGet, "/health", nil)
	h.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
