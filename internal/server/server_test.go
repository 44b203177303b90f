package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMetricsRouteToggle(t *testing.T) {
	analytics := services.NewAnalytics(services.Options{
		SalesFile: filepath.Join(t.TempDir(), "missing.csv"),
		Logger:    discardLogger(),
	})
	dashboard := &TemplateHandlers{Dashboard: func(w http.ResponseWriter, r *http.Request) {}}

	off := NewServer(analytics, discardLogger(), config.MetricsConfig{Enabled: false, Path: "/metrics"}, dashboard)
	w := httptest.NewRecorder()
	off.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	on := NewServer(analytics, discardLogger(), config.MetricsConfig{Enabled: true, Path: "/internal/metrics"}, dashboard)
	w = httptest.NewRecorder()
	on.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	on.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/overview", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func newGraceful(t *testing.T) *GracefulServer {
	t.Helper()
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	return NewGracefulServer(srv, discardLogger(), config.ServerConfig{ShutdownTimeout: 5 * time.Second})
}

func TestRunStopsOnCancel(t *testing.T) {
	gs := newGraceful(t)

	var ran atomic.Int32
	gs.RegisterShutdownHook("first", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	gs.RegisterShutdownHook("second", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Equal(t, int32(2), ran.Load())
}

func TestShutdownHookError(t *testing.T) {
	gs := newGraceful(t)
	boom := errors.New("boom")
	gs.RegisterShutdownHook("flaky", func(ctx context.Context) error { return boom })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := gs.shutdown(ctx)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "shutdown hook flaky")
}

func TestRunReportsListenFailure(t *testing.T) {
	srv := &http.Server{Addr: "256.0.0.1:bad", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(srv, discardLogger(), config.ServerConfig{ShutdownTimeout: time.Second})

	err := gs.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "server failed")
}
