package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const defaultCategoryLimit = 20

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

var cacheHeaders = map[string]string{
	"Cache-Control": "private, max-age=60",
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

// filterFromQuery reads the shared start/end/country/category parameters.
func filterFromQuery(r *http.Request) (dataset.FilterSpec, error) {
	q := r.URL.Query()
	f, err := services.ParseFilter(q.Get("start"), q.Get("end"), q.Get("country"), q.Get("category"))
	if err != nil {
		return f, errors.ValidationWrap(err, "Dates must use the YYYY-MM-DD format")
	}
	return f, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationWrap(err, "Parameter "+name+" must be an integer")
	}
	return n, nil
}

func requireParam(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", errors.Validation("Missing required parameter " + name)
	}
	return v, nil
}

func aggregationFromQuery(r *http.Request) (dataset.AggregationSpec, error) {
	by, err := requireParam(r, "by")
	if err != nil {
		return dataset.AggregationSpec{}, err
	}
	metric, err := requireParam(r, "metric")
	if err != nil {
		return dataset.AggregationSpec{}, err
	}
	fn := dataset.Sum
	if raw := r.URL.Query().Get("func"); raw != "" {
		if fn, err = dataset.ParseFunc(raw); err != nil {
			return dataset.AggregationSpec{}, err
		}
	}
	return dataset.AggregationSpec{GroupBy: by, Metric: metric, Func: fn}, nil
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}

func (h *APIHandlers) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	h.analytics.Invalidate()
	errors.WriteSuccess(w, map[string]string{"status": "cleared"})
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.analytics.Overview(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, data, cacheHeaders)
}

func (h *APIHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := intParam(r, "n", services.DefaultPreviewRows)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.analytics.Preview(r.Context(), f, n)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, rows, cacheHeaders)
}

func (h *APIHandlers) HandleColumns(w http.ResponseWriter, r *http.Request) {
	cat, err := h.analytics.Columns(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, cat, cacheHeaders)
}

func (h *APIHandlers) HandleNumericProfile(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	column, err := requireParam(r, "column")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	profile, err := h.analytics.NumericProfile(r.Context(), f, column)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, profile, cacheHeaders)
}

func (h *APIHandlers) HandleCategoricalProfile(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	column, err := requireParam(r, "column")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := intParam(r, "limit", defaultCategoryLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	profile, err := h.analytics.CategoricalProfile(r.Context(), f, column, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, profile, cacheHeaders)
}

func (h *APIHandlers) HandleNumericRelation(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	x, err := requireParam(r, "x")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	y, err := requireParam(r, "y")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rel, err := h.analytics.NumericRelation(r.Context(), f, x, y)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, rel, cacheHeaders)
}

// HandleAggregate serves both /api/aggregate and /api/bivariate/categorical.
func (h *APIHandlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	spec, err := aggregationFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cmp, err := h.analytics.Aggregate(r.Context(), f, spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, cmp, cacheHeaders)
}

func (h *APIHandlers) HandleTimeTrend(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	metric, err := requireParam(r, "metric")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fn := dataset.Sum
	if raw := r.URL.Query().Get("func"); raw != "" {
		if fn, err = dataset.ParseFunc(raw); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	cmp, err := h.analytics.TimeTrend(r.Context(), f, metric, fn)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, cmp, cacheHeaders)
}

func (h *APIHandlers) HandleInsights(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rep, err := h.analytics.Insights(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, rep, cacheHeaders)
}

func (h *APIHandlers) HandleQuestions(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	answers, err := h.analytics.Questions(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, answers, cacheHeaders)
}

func (h *APIHandlers) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ans, err := h.analytics.Question(r.Context(), f, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, ans, cacheHeaders)
}

func (h *APIHandlers) HandleQuality(w http.ResponseWriter, r *http.Request) {
	rep, err := h.analytics.Quality(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, rep, cacheHeaders)
}
