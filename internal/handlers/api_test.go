package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/services"
)

const salesCSV = `InvoiceNo,Quantity,InvoiceDate,UnitPrice,Country,Discount,ShippingCost,Category,SalesChannel,ReturnStatus,PaymentMethod,Customer_Type
A1,2,2024-01-15 10:00,10,UK,0.1,5,Electronics,Online,Not Returned,Card,Registered
A2,1,2024-02-20 12:00,100,France,0,10,Furniture,In-store,Returned,PayPal,Guest
A3,3,2024-02-03 09:30,20,UK,0.5,2,Electronics,Online,Not Returned,Card,Registered
A4,4,2024-03-10 08:00,50,Germany,0.2,20,Electronics,Online,Not Returned,Card,Registered
`

const issuesCSV = `InvoiceNo,Quantity,Country
A1,2,UK
A1,2,UK
A3,,France
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	dir := t.TempDir()
	sales := filepath.Join(dir, "sales.csv")
	issues := filepath.Join(dir, "issues.csv")
	require.NoError(t, os.WriteFile(sales, []byte(salesCSV), 0o600))
	require.NoError(t, os.WriteFile(issues, []byte(issuesCSV), 0o600))

	return services.NewAnalytics(services.Options{
		SalesFile:  sales,
		IssuesFile: issues,
		Workers:    2,
		Logger:     testLogger(),
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(t *testing.T, h http.HandlerFunc, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	logger := testLogger()
	handlers := NewAPIHandlers(analytics, logger)

	require.NotNil(t, handlers)
	require.Same(t, analytics, handlers.analytics)
	require.Same(t, logger, handlers.logger)
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())
	w, env := serve(t, h.HandleHealth, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	require.Empty(t, w.Header().Get("Cache-Control"))

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, "healthy", data["status"])
}

func TestAPIHandlers_HandleOverview(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())
	w, env := serve(t, h.HandleOverview, "/api/overview?country=UK")

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Equal(t, "private, max-age=60", w.Header().Get("Cache-Control"))

	var data services.Overview
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, 2, data.KPIs.Orders)
	require.InDelta(t, 48.0, data.KPIs.NetRevenue.Float64, 1e-9)
	require.Equal(t, []string{"All", "France", "Germany", "UK"}, data.Options.Countries)
}

func TestAPIHandlers_BadDate(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())
	w, env := serve(t, h.HandleOverview, "/api/overview?start=15/01/2024")

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.False(t, env.Success)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAPIHandlers_HandlePreview(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w, env := serve(t, h.HandlePreview, "/api/preview?n=5&category=Furniture")
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "A2", rows[0]["invoice_no"])

	w, _ = serve(t, h.HandlePreview, "/api/preview?n=ten")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIHandlers_Profiles(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w, env := serve(t, h.HandleNumericProfile, "/api/univariate/numeric?column=net_revenue")
	require.Equal(t, http.StatusOK, w.Code)
	var num services.NumericProfile
	require.NoError(t, json.Unmarshal(env.Data, &num))
	require.Equal(t, 4, num.Summary.Count)

	w, env = serve(t, h.HandleCategoricalProfile, "/api/univariate/categorical?column=country&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var cat services.CategoricalProfile
	require.NoError(t, json.Unmarshal(env.Data, &cat))
	require.Len(t, cat.Counts, 1)
	require.Equal(t, "UK", cat.Counts[0].Value)

	w, env = serve(t, h.HandleNumericProfile, "/api/univariate/numeric")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	w, env = serve(t, h.HandleNumericProfile, "/api/univariate/numeric?column=nope")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "COLUMN_NOT_FOUND", env.Error.Code)
}

func TestAPIHandlers_HandleNumericRelation(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())
	w, env := serve(t, h.HandleNumericRelation, "/api/bivariate/numeric?x=quantity&y=gross_sales")
	require.Equal(t, http.StatusOK, w.Code)

	var rel services.Relation
	require.NoError(t, json.Unmarshal(env.Data, &rel))
	require.Equal(t, 4, rel.Records)
}

func TestAPIHandlers_HandleAggregate(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w, env := serve(t, h.HandleAggregate, "/api/aggregate?by=category&metric=net_revenue&func=sum")
	require.Equal(t, http.StatusOK, w.Code)
	var cmp services.Comparison
	require.NoError(t, json.Unmarshal(env.Data, &cmp))
	require.Equal(t, "Electronics has the highest total net_revenue (208.00)", cmp.Headline)

	w, env = serve(t, h.HandleAggregate, "/api/aggregate?by=category&metric=net_revenue&func=mode")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Aggregation function must be one of sum, mean, median", env.Error.Message)

	w, env = serve(t, h.HandleAggregate, "/api/aggregate?metric=net_revenue")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing required parameter by", env.Error.Message)
}

func TestAPIHandlers_HandleTimeTrend(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w, env := serve(t, h.HandleTimeTrend, "/api/bivariate/time?metric=net_revenue")
	require.Equal(t, http.StatusOK, w.Code)
	var cmp services.Comparison
	require.NoError(t, json.Unmarshal(env.Data, &cmp))
	require.Equal(t, "Peak total net_revenue in 2024-03 (160.00)", cmp.Headline)

	w, _ = serve(t, h.HandleTimeTrend, "/api/bivariate/time?metric=net_revenue&func=median")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIHandlers_Questions(t *testing.T) {
	analytics := createTestAnalytics(t)
	h := NewAPIHandlers(analytics, testLogger())

	w, env := serve(t, h.HandleQuestions, "/api/questions")
	require.Equal(t, http.StatusOK, w.Code)
	var answers []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &answers))
	require.Len(t, answers, 13)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/questions/{id}", h.HandleQuestion)

	req := httptest.NewRequest(http.MethodGet, "/api/questions/top-category", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Electronics is the strongest category by revenue.")

	req = httptest.NewRequest(http.MethodGet, "/api/questions/unknown", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIHandlers_HandleInsightsAndQuality(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())

	w, env := serve(t, h.HandleInsights, "/api/insights")
	require.Equal(t, http.StatusOK, w.Code)
	var rep services.InsightsReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	require.Equal(t, "Electronics", rep.Summary.TopCategory)

	w, env = serve(t, h.HandleQuality, "/api/quality")
	require.Equal(t, http.StatusOK, w.Code)
	var q map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &q))
	require.EqualValues(t, 3, q["records"])
}

func TestAPIHandlers_StatsAndClearCache(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(t), testLogger())

	_, _ = serve(t, h.HandleColumns, "/api/columns")

	_, env := serve(t, h.HandleStats, "/admin/stats")
	var stats map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.EqualValues(t, 1, stats["cached_tables"])

	req := httptest.NewRequest(http.MethodPost, "/admin/cache/clear", nil)
	w := httptest.NewRecorder()
	h.HandleClearCache(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	_, env = serve(t, h.HandleStats, "/admin/stats")
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.EqualValues(t, 0, stats["cached_tables"])
}

func TestAPIHandlers_LoadFailure(t *testing.T) {
	analytics := services.NewAnalytics(services.Options{
		SalesFile: filepath.Join(t.TempDir(), "missing.csv"),
		Logger:    testLogger(),
	})
	h := NewAPIHandlers(analytics, testLogger())

	w, env := serve(t, h.HandleOverview, "/api/overview")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "LOAD_ERROR", env.Error.Code)
}
