package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const maxTableRows = 50

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// signals mirrors the data-signals object declared by the dashboard shell.
type signals struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Country  string `json:"country"`
	Category string `json:"category"`
	By       string `json:"by"`
	Metric   string `json:"metric"`
	Func     string `json:"func"`
}

func (s signals) filter() (dataset.FilterSpec, error) {
	f, err := services.ParseFilter(s.Start, s.End, s.Country, s.Category)
	if err != nil {
		return f, errors.ValidationWrap(err, "Dates must use the YYYY-MM-DD format")
	}
	return f, nil
}

func (s signals) aggregation() (dataset.AggregationSpec, error) {
	spec := dataset.AggregationSpec{GroupBy: s.By, Metric: s.Metric, Func: dataset.Sum}
	if spec.GroupBy == "" {
		spec.GroupBy = "category"
	}
	if spec.Metric == "" {
		spec.Metric = "net_revenue"
	}
	if s.Func != "" {
		fn, err := dataset.ParseFunc(s.Func)
		if err != nil {
			return spec, err
		}
		spec.Func = fn
	}
	return spec, nil
}

func (h *SSEHandlers) readSignals(r *http.Request) (signals, error) {
	var s signals
	if err := datastar.ReadSignals(r, &s); err != nil {
		return s, errors.BadRequestWrap(err, "Malformed signals")
	}
	return s, nil
}

// patch renders c and sends it as an element patch.
func (h *SSEHandlers) patch(ctx context.Context, sse *datastar.ServerSentEventGenerator, c templ.Component) {
	html, err := templates.Render(ctx, c)
	if err != nil {
		observability.LoggerFrom(ctx, h.logger).Error("render fragment", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		observability.LoggerFrom(ctx, h.logger).Warn("patch elements", "error", err)
	}
}

// patchError replaces panel id with the client-facing message for err.
func (h *SSEHandlers) patchError(ctx context.Context, sse *datastar.ServerSentEventGenerator, id string, err error) {
	appErr := errors.FromDomain(err)
	observability.LoggerFrom(ctx, h.logger).Warn("sse panel failed",
		"panel", id,
		"code", appErr.Code,
		"error", err,
	)
	h.patch(ctx, sse, templates.ErrorPanel(id, appErr.Message))
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	s, sigErr := h.readSignals(r)
	ctx := r.Context()
	sse := datastar.NewSSE(w, r)
	defer flush(w)

	if sigErr != nil {
		h.patchError(ctx, sse, templates.KPIPanelID, sigErr)
		return
	}
	f, err := s.filter()
	if err != nil {
		h.patchError(ctx, sse, templates.KPIPanelID, err)
		return
	}
	ov, err := h.analytics.Overview(ctx, f)
	if err != nil {
		h.patchError(ctx, sse, templates.KPIPanelID, err)
		return
	}

	h.patch(ctx, sse, templates.KPICards(ov.KPIs))

	jsonData, err := json.Marshal(map[string]any{
		"options": ov.Options,
		"kpis":    ov.KPIs,
	})
	if err != nil {
		h.logger.Error("marshal overview signals", "error", err)
		return
	}
	if err := sse.PatchSignals(jsonData); err != nil {
		h.logger.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	s, sigErr := h.readSignals(r)
	ctx := r.Context()
	sse := datastar.NewSSE(w, r)
	defer flush(w)

	if sigErr != nil {
		h.patchError(ctx, sse, templates.AggregatePanel, sigErr)
		return
	}
	f, err := s.filter()
	if err != nil {
		h.patchError(ctx, sse, templates.AggregatePanel, err)
		return
	}
	spec, err := s.aggregation()
	if err != nil {
		h.patchError(ctx, sse, templates.AggregatePanel, err)
		return
	}
	cmp, err := h.analytics.Aggregate(ctx, f, spec)
	if err != nil {
		h.patchError(ctx, sse, templates.AggregatePanel, err)
		return
	}

	h.patch(ctx, sse, templates.AggregationTable(cmp.Result.Limit(maxTableRows), cmp.Headline))
}

func (h *SSEHandlers) HandleInsights(w http.ResponseWriter, r *http.Request) {
	s, sigErr := h.readSignals(r)
	ctx := r.Context()
	sse := datastar.NewSSE(w, r)
	defer flush(w)

	if sigErr != nil {
		h.patchError(ctx, sse, templates.InsightsPanelID, sigErr)
		return
	}
	f, err := s.filter()
	if err != nil {
		h.patchError(ctx, sse, templates.InsightsPanelID, err)
		return
	}
	rep, err := h.analytics.Insights(ctx, f)
	if err != nil {
		h.patchError(ctx, sse, templates.InsightsPanelID, err)
		return
	}
	answers, err := h.analytics.Questions(ctx, f)
	if err != nil {
		h.patchError(ctx, sse, templates.InsightsPanelID, err)
		return
	}

	h.patch(ctx, sse, templates.InsightsPanel(rep.Text, rep.Flags, answers))
}
