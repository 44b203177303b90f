package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/services"
)

const salesCSV = `InvoiceNo,Quantity,InvoiceDate,UnitPrice,Country,Discount,ShippingCost,Category,SalesChannel,ReturnStatus
A1,2,2024-01-15 10:00,10,UK,0.1,5,Electronics,Online,Not Returned
A2,1,2024-02-20 12:00,100,France,0,10,Furniture,In-store,Returned
`

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o600))

	cfg := &config.Config{
		Security: config.SecurityConfig{
			EnableRateLimit: false,
			RateLimitRPS:    100,
			RateLimitBurst:  20,
			AllowedOrigins:  []string{"*"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	analytics := services.NewAnalytics(services.Options{SalesFile: path, IssuesFile: path, Logger: logger})
	limiter := middleware.NewRateLimiter(cfg.Security)

	return newHandler(cfg, analytics, logger, limiter)
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/admin/stats", http.StatusOK},
		{http.MethodPost, "/admin/cache/clear", http.StatusOK},
		{http.MethodGet, "/admin/cache/clear", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/overview", http.StatusOK},
		{http.MethodGet, "/api/preview?n=5", http.StatusOK},
		{http.MethodGet, "/api/columns", http.StatusOK},
		{http.MethodGet, "/api/univariate/numeric?column=quantity", http.StatusOK},
		{http.MethodGet, "/api/univariate/categorical?column=country", http.StatusOK},
		{http.MethodGet, "/api/bivariate/numeric?x=quantity&y=unit_price", http.StatusOK},
		{http.MethodGet, "/api/bivariate/categorical?by=country&metric=quantity", http.StatusOK},
		{http.MethodGet, "/api/bivariate/time?metric=quantity&func=mean", http.StatusOK},
		{http.MethodGet, "/api/aggregate?by=category&metric=net_revenue&func=median", http.StatusOK},
		{http.MethodGet, "/api/insights", http.StatusOK},
		{http.MethodGet, "/api/questions", http.StatusOK},
		{http.MethodGet, "/api/questions/top-category", http.StatusOK},
		{http.MethodGet, "/api/questions/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/quality", http.StatusOK},
		{http.MethodGet, "/sse/overview", http.StatusOK},
		{http.MethodGet, "/sse/aggregate", http.StatusOK},
		{http.MethodGet, "/sse/insights", http.StatusOK},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDashboardPage(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, cacheMaxAge, w.Header().Get("Cache-Control"))
	require.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
	require.Contains(t, w.Body.String(), "Online Sales Dashboard")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), `sales_dashboard_http_requests_total{method="GET",path="/health",status="200"}`))
}
