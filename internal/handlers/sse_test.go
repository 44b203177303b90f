package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func sseRequest(t *testing.T, h http.HandlerFunc, path, signals string) *httptest.ResponseRecorder {
	t.Helper()
	target := path
	if signals != "" {
		target += "?datastar=" + url.QueryEscape(signals)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics(t)
	logger := testLogger()
	handlers := NewSSEHandlers(analytics, logger)

	require.NotNil(t, handlers)
	require.Same(t, analytics, handlers.analytics)
	require.Same(t, logger, handlers.logger)
}

func TestSignalsAggregationDefaults(t *testing.T) {
	spec, err := signals{}.aggregation()
	require.NoError(t, err)
	require.Equal(t, "category", spec.GroupBy)
	require.Equal(t, "net_revenue", spec.Metric)
	require.Equal(t, "sum", string(spec.Func))

	_, err = signals{Func: "mode"}.aggregation()
	require.Error(t, err)
}

func TestSSEHandlers_HandleOverview(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(t), testLogger())
	w := sseRequest(t, h.HandleOverview, "/sse/overview", `{"country":"UK"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	require.Contains(t, body, "datastar-patch-elements")
	require.Contains(t, body, `id="kpi-panel"`)
	require.Contains(t, body, "48.00")
	require.Contains(t, body, "datastar-patch-signals")
	require.Contains(t, body, `"countries"`)
}

func TestSSEHandlers_HandleOverviewWithoutSignals(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(t), testLogger())
	w := sseRequest(t, h.HandleOverview, "/sse/overview", "")

	require.Contains(t, w.Body.String(), `<strong class="metric-value">4</strong>`)
}

func TestSSEHandlers_HandleAggregate(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(t), testLogger())
	w := sseRequest(t, h.HandleAggregate, "/sse/aggregate", `{"by":"country","metric":"quantity","func":"sum"}`)

	body := w.Body.String()
	require.Contains(t, body, `id="aggregate-panel"`)
	require.Contains(t, body, "UK has the highest total quantity (5.00)")
	require.Contains(t, body, "<td>Germany</td>")
}

func TestSSEHandlers_ErrorFragment(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(t), testLogger())

	w := sseRequest(t, h.HandleAggregate, "/sse/aggregate", `{"by":"nope"}`)
	body := w.Body.String()
	require.Contains(t, body, "panel-error")
	require.Contains(t, body, "Unknown column")

	w = sseRequest(t, h.HandleInsights, "/sse/insights", `{"start":"yesterday"}`)
	body = w.Body.String()
	require.Contains(t, body, `id="insights-panel"`)
	require.Contains(t, body, "Dates must use the YYYY-MM-DD format")
}

func TestSSEHandlers_HandleInsights(t *testing.T) {
	h := NewSSEHandlers(createTestAnalytics(t), testLogger())
	w := sseRequest(t, h.HandleInsights, "/sse/insights", `{}`)

	body := w.Body.String()
	require.Contains(t, body, `id="insights-panel"`)
	require.Contains(t, body, "Electronics is the strongest category by revenue.")
	require.Contains(t, body, `id="q-discount-returns"`)
}
