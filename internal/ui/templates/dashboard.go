// Package templates holds the server-rendered dashboard shell and the HTML
// fragments patched into it over SSE.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Online Sales Dashboard</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0-RC.5/bundles/datastar.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#0b1020;color:#e5e7eb}
main{max-width:1200px;margin:0 auto;padding:24px}
.filters{display:flex;gap:12px;flex-wrap:wrap;margin-bottom:16px}
.kpi-grid{display:grid;grid-template-columns:repeat(5,1fr);gap:12px}
.metric-card{background:#111827;padding:15px;border-radius:10px}
.metric-label{display:block;font-size:13px;color:#9ca3af}
.metric-value{font-size:20px}
.modern-table{width:100%;border-collapse:collapse}
.modern-table td,.modern-table th{padding:6px 10px;border-bottom:1px solid #1f2937;text-align:left}
.flag-warning,.answer-warning{color:#fbbf24}.flag-error,.answer-error{color:#f87171}
.flag-success,.answer-success{color:#34d399}.flag-info,.answer-info{color:#60a5fa}
.panel-error{color:#f87171}
</style>
</head>
<body>
<main data-signals="{start:'',end:'',country:'All',category:'All',by:'category',metric:'net_revenue',func:'sum'}">
<h1>Online Sales Dashboard</h1>
<section class="filters">
<label>From <input type="date" data-bind-start></label>
<label>To <input type="date" data-bind-end></label>
<label>Country <input data-bind-country></label>
<label>Category <input data-bind-category></label>
<button data-on-click="@get('/sse/overview');@get('/sse/aggregate');@get('/sse/insights')">Apply</button>
</section>
<h2>Overview</h2>
<div id="kpi-panel" data-on-load="@get('/sse/overview')">Loading…</div>
<h2>Compare</h2>
<section class="filters">
<label>Group by <input data-bind-by></label>
<label>Metric <input data-bind-metric></label>
<label>Function <select data-bind-func><option>sum</option><option>mean</option><option>median</option></select></label>
<button data-on-click="@get('/sse/aggregate')">Compare</button>
</section>
<div id="aggregate-panel" data-on-load="@get('/sse/aggregate')">Loading…</div>
<h2>Insights &amp; Recommendations</h2>
<div id="insights-panel" data-on-load="@get('/sse/insights')">Loading…</div>
</main>
</body>
</html>`

// Dashboard is the page shell. Panels fill themselves in over SSE.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}
