package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/insights"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/quality"
	"sales-dashboard/internal/schema"
	"sales-dashboard/internal/stats"
)

const (
	// maxCategoryLevels is the distinct-value limit below which a text column
	// counts as categorical.
	maxCategoryLevels = 50

	DefaultPreviewRows = 10
	MinPreviewRows     = 5
	MaxPreviewRows     = 50
)

type Options struct {
	SalesFile   string
	IssuesFile  string
	Workers     int
	LoadTimeout time.Duration
	Logger      *slog.Logger
	Clock       clockwork.Clock
}

// Analytics answers every dashboard query against the cached sales table.
// Each call filters the shared table into a fresh one, so concurrent queries
// never observe each other.
type Analytics struct {
	cache       *dataset.Cache
	salesFile   string
	issuesFile  string
	workers     int
	loadTimeout time.Duration
	logger      *slog.Logger
	started     time.Time
	queries     atomic.Int64
}

func NewAnalytics(opts Options) *Analytics {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loadTimeout := opts.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = 30 * time.Second
	}
	return &Analytics{
		cache:       dataset.NewCache(dataset.WithClock(clock), dataset.WithLogger(logger)),
		salesFile:   opts.SalesFile,
		issuesFile:  opts.IssuesFile,
		workers:     opts.Workers,
		loadTimeout: loadTimeout,
		logger:      logger,
		started:     clock.Now(),
	}
}

func (a *Analytics) load(ctx context.Context, path string, raw bool) (*dataset.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, a.loadTimeout)
	defer cancel()
	return a.cache.Get(ctx, path, dataset.LoadOptions{Workers: a.workers, SkipDerive: raw, Logger: a.logger})
}

// Table returns the full derived sales table.
func (a *Analytics) Table(ctx context.Context) (*dataset.Table, error) {
	return a.load(ctx, a.salesFile, false)
}

// Filtered returns the sales table restricted by f.
func (a *Analytics) Filtered(ctx context.Context, f dataset.FilterSpec) (*dataset.Table, error) {
	a.queries.Add(1)
	t, err := a.Table(ctx)
	if err != nil {
		return nil, err
	}
	if f.IsZero() {
		return t, nil
	}
	return dataset.Apply(t, f)
}

// Warm loads the sales table so the first request does not pay for it.
func (a *Analytics) Warm(ctx context.Context) error {
	start := time.Now()
	t, err := a.Table(ctx)
	if err != nil {
		return fmt.Errorf("warm sales table: %w", err)
	}
	a.logger.Info("sales table ready",
		"file", a.salesFile,
		"rows", t.Len(),
		"columns", t.Width(),
		"duration", time.Since(start),
	)
	return nil
}

// Invalidate drops every cached table; the next query reloads from disk.
func (a *Analytics) Invalidate() {
	a.cache.Invalidate()
	a.logger.Info("dataset cache cleared")
}

// Reload invalidates the cache and reads the sales table again.
func (a *Analytics) Reload(ctx context.Context) error {
	a.Invalidate()
	return a.Warm(ctx)
}

// ParseFilter builds a filter from request values. Dates are YYYY-MM-DD; the
// end date covers its whole day.
func ParseFilter(start, end, country, category string) (dataset.FilterSpec, error) {
	rng, err := dataset.ParseDateRange(strings.TrimSpace(start), strings.TrimSpace(end))
	if err != nil {
		return dataset.FilterSpec{}, fmt.Errorf("invalid date: %w", err)
	}
	return dataset.FilterSpec{
		DateRange: rng,
		Country:   strings.TrimSpace(country),
		Category:  strings.TrimSpace(category),
	}, nil
}

type Overview struct {
	Options models.FilterOptions  `json:"options"`
	KPIs    models.KPISummary     `json:"kpis"`
	Summary models.DatasetSummary `json:"summary"`
}

// Overview reports the filter choices of the full table together with the
// KPIs and shape of the filtered one.
func (a *Analytics) Overview(ctx context.Context, f dataset.FilterSpec) (*Overview, error) {
	full, err := a.Table(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := filterOptions(full)
	if err != nil {
		return nil, err
	}
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Options: opts,
		KPIs:    insights.KPIs(t).Rounded(),
		Summary: t.Summary(),
	}, nil
}

func filterOptions(t *dataset.Table) (models.FilterOptions, error) {
	var opts models.FilterOptions
	for _, dim := range []struct {
		name string
		dst  *[]string
	}{
		{schema.Country, &opts.Countries},
		{schema.Category, &opts.Categories},
	} {
		values := []string{dataset.All}
		if t.HasColumn(dim.name) {
			distinct, err := t.Distinct(dim.name)
			if err != nil {
				return opts, err
			}
			values = append(values, distinct...)
		}
		*dim.dst = values
	}
	opts.MinDate, opts.MaxDate = t.DateBounds()
	return opts, nil
}

// ClampPreview bounds a requested preview size.
func ClampPreview(n int) int {
	switch {
	case n <= 0:
		return DefaultPreviewRows
	case n < MinPreviewRows:
		return MinPreviewRows
	case n > MaxPreviewRows:
		return MaxPreviewRows
	}
	return n
}

func (a *Analytics) Preview(ctx context.Context, f dataset.FilterSpec, n int) ([]models.Transaction, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	return t.Transactions(ClampPreview(n)), nil
}

type ColumnCatalog struct {
	Numeric     []string        `json:"numeric"`
	Categorical []string        `json:"categorical"`
	Date        []string        `json:"date"`
	Known       []schema.Column `json:"known"`
}

func (a *Analytics) Columns(ctx context.Context) (*ColumnCatalog, error) {
	t, err := a.Table(ctx)
	if err != nil {
		return nil, err
	}
	return &ColumnCatalog{
		Numeric:     t.NumericColumns(),
		Categorical: t.CategoricalColumns(maxCategoryLevels),
		Date:        t.DateColumns(),
		Known:       schema.Known(),
	}, nil
}

type NumericProfile struct {
	Column   string           `json:"column"`
	Summary  stats.Summary    `json:"summary"`
	Skewness models.NullFloat `json:"skewness"`
	Shape    stats.SkewClass  `json:"shape"`
}

func (a *Analytics) NumericProfile(ctx context.Context, f dataset.FilterSpec, column string) (*NumericProfile, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	c, err := t.Numeric(column)
	if err != nil {
		return nil, err
	}
	values := c.Floats()
	skew := stats.Skewness(values)
	return &NumericProfile{
		Column:   c.Name,
		Summary:  stats.Describe(values).Rounded(),
		Skewness: skew.Round2(),
		Shape:    stats.ClassifySkew(skew),
	}, nil
}

type CategoricalProfile struct {
	Column    string                `json:"column"`
	Counts    []models.ValueCount   `json:"counts"`
	Dominance stats.DominanceResult `json:"dominance"`
	TopPct    models.NullFloat      `json:"top_pct"`
}

// CategoricalProfile counts a column's values; limit caps the returned
// counts but the dominance figures always use every value.
func (a *Analytics) CategoricalProfile(ctx context.Context, f dataset.FilterSpec, column string, limit int) (*CategoricalProfile, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	counts, err := dataset.ValueCounts(t, column)
	if err != nil {
		return nil, err
	}
	dom := stats.Dominance(counts)
	top := dom.Ratio
	if top.Valid {
		top = models.Float(top.Float64 * 100).Round2()
	}
	dom.Ratio = dom.Ratio.Round2()
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return &CategoricalProfile{
		Column:    schema.Normalize(column),
		Counts:    counts,
		Dominance: dom,
		TopPct:    top,
	}, nil
}

type Relation struct {
	X           string            `json:"x"`
	Y           string            `json:"y"`
	Records     int               `json:"records"`
	Correlation stats.Correlation `json:"correlation"`
	MeanY       models.NullFloat  `json:"mean_y"`
}

// NumericRelation correlates two numeric columns over rows where both are
// present.
func (a *Analytics) NumericRelation(ctx context.Context, f dataset.FilterSpec, x, y string) (*Relation, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	xc, err := t.Numeric(x)
	if err != nil {
		return nil, err
	}
	yc, err := t.Numeric(y)
	if err != nil {
		return nil, err
	}
	xs, ys := xc.Floats(), yc.Floats()
	var paired []models.NullFloat
	for i := range xs {
		if xs[i].Valid && ys[i].Valid {
			paired = append(paired, ys[i])
		}
	}
	corr := stats.Correlate(xs, ys)
	corr.R = corr.R.Round2()
	return &Relation{
		X:           xc.Name,
		Y:           yc.Name,
		Records:     corr.N,
		Correlation: corr,
		MeanY:       stats.Mean(paired).Round2(),
	}, nil
}

type Comparison struct {
	Result   *models.AggregationResult `json:"result"`
	Headline string                    `json:"headline"`
}

// Aggregate runs a grouping over the filtered table and rounds it for display.
func (a *Analytics) Aggregate(ctx context.Context, f dataset.FilterSpec, spec dataset.AggregationSpec) (*Comparison, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	res, err := dataset.Aggregate(t, spec)
	if err != nil {
		return nil, err
	}
	return &Comparison{Result: res.Rounded(), Headline: headline(res)}, nil
}

// TimeTrend buckets a metric by calendar month. Only sum and mean apply.
func (a *Analytics) TimeTrend(ctx context.Context, f dataset.FilterSpec, metric string, fn dataset.Func) (*Comparison, error) {
	if fn != dataset.Sum && fn != dataset.Mean {
		return nil, fmt.Errorf("%w: %q for a time trend", dataset.ErrUnsupportedFunc, fn)
	}
	return a.Aggregate(ctx, f, dataset.AggregationSpec{GroupBy: schema.YearMonth, Metric: metric, Func: fn})
}

var funcWords = map[string]string{"sum": "total", "mean": "average", "median": "median"}

func headline(res *models.AggregationResult) string {
	var best *models.GroupValue
	for i := range res.Rows {
		row := &res.Rows[i]
		if row.KeyNull || !row.Value.Valid {
			continue
		}
		if best == nil || row.Value.Float64 > best.Value.Float64 {
			best = row
		}
	}
	if best == nil {
		return stats.NotEnoughData
	}
	value := models.Round2(best.Value.Float64)
	if res.TimeOrdered {
		return fmt.Sprintf("Peak %s %s in %s (%.2f)", funcWords[res.Func], res.Metric, best.Key, value)
	}
	return fmt.Sprintf("%s has the highest %s %s (%.2f)", best.Key, funcWords[res.Func], res.Metric, value)
}

type InsightsReport struct {
	Summary insights.ExecutiveSummary `json:"summary"`
	Text    string                    `json:"text"`
	KPIs    models.KPISummary         `json:"kpis"`
	Flags   []insights.Flag           `json:"flags"`
}

func (a *Analytics) Insights(ctx context.Context, f dataset.FilterSpec) (*InsightsReport, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	summary, err := insights.Summarize(t)
	if err != nil {
		return nil, err
	}
	kpis := insights.KPIs(t)
	return &InsightsReport{
		Summary: summary.Rounded(),
		Text:    summary.Narrative(),
		KPIs:    kpis.Rounded(),
		Flags:   insights.Flags(kpis),
	}, nil
}

func (a *Analytics) Questions(ctx context.Context, f dataset.FilterSpec) ([]insights.Answer, error) {
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	return insights.AnswerAll(ctx, t, a.workers)
}

func (a *Analytics) Question(ctx context.Context, f dataset.FilterSpec, id string) (*insights.Answer, error) {
	if _, ok := insights.Lookup(id); !ok {
		return nil, fmt.Errorf("%w: %q", insights.ErrUnknownQuestion, id)
	}
	t, err := a.Filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	ans, err := insights.AnswerOne(t, id)
	if err != nil {
		return nil, err
	}
	return &ans, nil
}

// Quality reports on the raw export, read without derived columns.
func (a *Analytics) Quality(ctx context.Context) (*quality.Report, error) {
	a.queries.Add(1)
	t, err := a.load(ctx, a.issuesFile, true)
	if err != nil {
		return nil, err
	}
	r := quality.Analyze(t).Rounded()
	return &r, nil
}

// Stats reports cache state for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	entries := a.cache.Entries()
	loaded := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		loaded = append(loaded, map[string]any{
			"path":      e.Path,
			"rows":      e.Rows,
			"columns":   e.Columns,
			"loaded_at": e.LoadedAt,
		})
	}
	return map[string]any{
		"sales_file":     a.salesFile,
		"issues_file":    a.issuesFile,
		"cached_tables":  a.cache.Len(),
		"tables":         loaded,
		"queries_served": a.queries.Load(),
		"started_at":     a.started,
	}
}
