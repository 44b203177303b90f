package templates

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/insights"
	"sales-dashboard/internal/models"
)

// Element ids patched by the SSE endpoints.
const (
	KPIPanelID      = "kpi-panel"
	AggregatePanel  = "aggregate-panel"
	InsightsPanelID = "insights-panel"
)

// Number formats a nullable value with two decimals, or a dash when null.
func Number(v models.NullFloat) string {
	if !v.Valid {
		return "–"
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(2)
}

type attr struct{ name, value string }

// el renders one element with escaped attribute values around its children.
func el(tag string, attrs []attr, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var open strings.Builder
		open.WriteString("<" + tag)
		for _, a := range attrs {
			open.WriteString(" " + a.name + `="` + templ.EscapeString(a.value) + `"`)
		}
		open.WriteString(">")
		if _, err := io.WriteString(w, open.String()); err != nil {
			return err
		}
		if err := templ.Join(children...).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</"+tag+">")
		return err
	})
}

func text(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}

func class(c string) []attr { return []attr{{"class", c}} }

func card(label, value string) templ.Component {
	return el("div", class("metric-card"),
		el("span", class("metric-label"), text(label)),
		el("strong", class("metric-value"), text(value)),
	)
}

// KPICards renders the headline indicators for the overview panel.
func KPICards(k models.KPISummary) templ.Component {
	return el("div", []attr{{"id", KPIPanelID}, {"class", "kpi-grid"}},
		card("Gross Sales", Number(k.GrossSales)),
		card("Net Revenue", Number(k.NetRevenue)),
		card("Orders", strconv.Itoa(k.Orders)),
		card("Return Rate %", Number(k.ReturnRatePct)),
		card("Avg Order Value", Number(k.AvgOrderValue)),
	)
}

// AggregationTable renders a grouped result with its headline.
func AggregationTable(res *models.AggregationResult, headline string) templ.Component {
	rows := make([]templ.Component, 0, len(res.Rows))
	for _, row := range res.Rows {
		key := row.Key
		if row.KeyNull {
			key = "(missing)"
		}
		rows = append(rows, el("tr", nil,
			el("td", nil, text(key)),
			el("td", nil, text(Number(row.Value))),
			el("td", nil, text(strconv.Itoa(row.Count))),
		))
	}
	return el("div", []attr{{"id", AggregatePanel}},
		el("p", class("insight"), text(headline)),
		el("table", class("modern-table"),
			el("thead", nil, el("tr", nil,
				el("th", nil, text(res.GroupBy)),
				el("th", nil, text(res.Func+" of "+res.Metric)),
				el("th", nil, text("Rows")),
			)),
			el("tbody", nil, rows...),
		),
	)
}

func answer(a insights.Answer) templ.Component {
	parts := []templ.Component{
		el("summary", nil, text(a.Question)),
		el("p", class("answer answer-"+string(a.Level)), text(a.Headline)),
	}
	if a.Decision != "" {
		parts = append(parts, el("p", class("decision"), text("Decision: "+a.Decision)))
	}
	if a.Metric != nil {
		parts = append(parts, card(a.Metric.Label, Number(a.Metric.Value)))
	}
	return el("details", []attr{{"class", "question"}, {"id", "q-" + a.ID}}, parts...)
}

// InsightsPanel renders the executive summary, flags and answered questions.
func InsightsPanel(summary string, flags []insights.Flag, answers []insights.Answer) templ.Component {
	items := make([]templ.Component, 0, len(flags))
	for _, f := range flags {
		items = append(items, el("li", class("flag flag-"+string(f.Level)), text(f.Message)))
	}
	parts := []templ.Component{
		el("p", class("summary"), text(summary)),
		el("ul", class("flags"), items...),
	}
	for _, a := range answers {
		parts = append(parts, answer(a))
	}
	return el("div", []attr{{"id", InsightsPanelID}}, parts...)
}

// ErrorPanel replaces a panel's content with an error message.
func ErrorPanel(id, message string) templ.Component {
	return el("div", []attr{{"id", id}, {"class", "panel-error"}}, text(message))
}

// Render renders a component to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
