package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/quality"
	"sales-dashboard/internal/schema"
	"sales-dashboard/internal/stats"
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

func newTestAnalytics(t *testing.T) *Analytics {
	t.Helper()
	dir := t.TempDir()
	sales := filepath.Join(dir, "sales.csv")
	issues := filepath.Join(dir, "issues.csv")
	require.NoError(t, os.WriteFile(sales, []byte(salesCSV), 0o600))
	require.NoError(t, os.WriteFile(issues, []byte(issuesCSV), 0o600))

	return NewAnalytics(Options{
		SalesFile:  sales,
		IssuesFile: issues,
		Workers:    2,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:      clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("2024-01-01", "2024-01-31", " UK ", "All")
	require.NoError(t, err)
	require.Equal(t, "UK", f.Country)
	require.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), f.DateRange.End)

	f, err = ParseFilter("", "", "", "")
	require.NoError(t, err)
	require.True(t, f.IsZero())

	_, err = ParseFilter("01/02/2024", "", "", "")
	require.Error(t, err)
}

func TestOverview(t *testing.T) {
	a := newTestAnalytics(t)

	ov, err := a.Overview(context.Background(), dataset.FilterSpec{Country: "UK"})
	require.NoError(t, err)
	require.Equal(t, []string{"All", "France", "Germany", "UK"}, ov.Options.Countries)
	require.Equal(t, []string{"All", "Electronics", "Furniture"}, ov.Options.Categories)
	require.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), ov.Options.MinDate.Time)

	require.Equal(t, 2, ov.KPIs.Orders)
	require.InDelta(t, 48.0, ov.KPIs.NetRevenue.Float64, 1e-9)
	require.InDelta(t, 0.0, ov.KPIs.ReturnRatePct.Float64, 1e-9)
	require.Equal(t, 2, ov.Summary.Rows)
}

func TestOverviewEmptySelection(t *testing.T) {
	a := newTestAnalytics(t)
	rng, err := dataset.ParseDateRange("2025-01-01", "2025-12-31")
	require.NoError(t, err)

	ov, err := a.Overview(context.Background(), dataset.FilterSpec{DateRange: rng})
	require.NoError(t, err)
	require.Equal(t, 0, ov.KPIs.Orders)
	require.False(t, ov.KPIs.NetRevenue.Valid)
}

func TestClampPreview(t *testing.T) {
	require.Equal(t, DefaultPreviewRows, ClampPreview(0))
	require.Equal(t, MinPreviewRows, ClampPreview(2))
	require.Equal(t, MaxPreviewRows, ClampPreview(500))
	require.Equal(t, 20, ClampPreview(20))
}

func TestPreview(t *testing.T) {
	a := newTestAnalytics(t)
	rows, err := a.Preview(context.Background(), dataset.FilterSpec{}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.Equal(t, "A1", rows[0].InvoiceNo)
}

func TestColumns(t *testing.T) {
	a := newTestAnalytics(t)
	cat, err := a.Columns(context.Background())
	require.NoError(t, err)
	require.Contains(t, cat.Numeric, schema.NetRevenue)
	require.Contains(t, cat.Categorical, schema.Country)
	require.NotContains(t, cat.Categorical, schema.InvoiceNo)
	require.Equal(t, []string{schema.InvoiceDate}, cat.Date)
}

func TestProfiles(t *testing.T) {
	a := newTestAnalytics(t)
	ctx := context.Background()

	num, err := a.NumericProfile(ctx, dataset.FilterSpec{}, "Net_Revenue")
	require.NoError(t, err)
	require.Equal(t, schema.NetRevenue, num.Column)
	require.Equal(t, 4, num.Summary.Count)
	require.InDelta(t, 77.0, num.Summary.Mean.Float64, 1e-9)
	require.NotEmpty(t, num.Shape)

	cat, err := a.CategoricalProfile(ctx, dataset.FilterSpec{}, "Country", 2)
	require.NoError(t, err)
	require.Len(t, cat.Counts, 2)
	require.Equal(t, "UK", cat.Dominance.Top)
	require.Equal(t, 4, cat.Dominance.Total)
	require.InDelta(t, 50.0, cat.TopPct.Float64, 1e-9)
	require.Equal(t, stats.Balanced, cat.Dominance.Signal)

	_, err = a.NumericProfile(ctx, dataset.FilterSpec{}, "Country")
	var typeErr *dataset.ColumnTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestNumericRelation(t *testing.T) {
	a := newTestAnalytics(t)
	rel, err := a.NumericRelation(context.Background(), dataset.FilterSpec{}, "quantity", "gross_sales")
	require.NoError(t, err)
	require.Equal(t, 4, rel.Records)
	require.True(t, rel.Correlation.R.Valid)
	require.InDelta(t, 95.0, rel.MeanY.Float64, 1e-9)
}

func TestAggregateHeadline(t *testing.T) {
	a := newTestAnalytics(t)
	cmp, err := a.Aggregate(context.Background(), dataset.FilterSpec{}, dataset.AggregationSpec{
		GroupBy: "category", Metric: "net_revenue", Func: dataset.Sum,
	})
	require.NoError(t, err)
	require.Equal(t, "Electronics has the highest total net_revenue (208.00)", cmp.Headline)
	require.Equal(t, "Electronics", cmp.Result.Rows[0].Key)
}

func TestTimeTrend(t *testing.T) {
	a := newTestAnalytics(t)
	ctx := context.Background()

	trend, err := a.TimeTrend(ctx, dataset.FilterSpec{}, schema.NetRevenue, dataset.Sum)
	require.NoError(t, err)
	require.True(t, trend.Result.TimeOrdered)
	require.Equal(t, "2024-01", trend.Result.Rows[0].Key)
	require.Equal(t, "Peak total net_revenue in 2024-03 (160.00)", trend.Headline)

	_, err = a.TimeTrend(ctx, dataset.FilterSpec{}, schema.NetRevenue, dataset.Median)
	require.ErrorIs(t, err, dataset.ErrUnsupportedFunc)
}

func TestInsightsAndQuestions(t *testing.T) {
	a := newTestAnalytics(t)
	ctx := context.Background()

	rep, err := a.Insights(ctx, dataset.FilterSpec{})
	require.NoError(t, err)
	require.Equal(t, "Electronics", rep.Summary.TopCategory)
	require.NotEmpty(t, rep.Flags)
	require.Contains(t, rep.Text, "Electronics")

	answers, err := a.Questions(ctx, dataset.FilterSpec{})
	require.NoError(t, err)
	require.Len(t, answers, 13)

	ans, err := a.Question(ctx, dataset.FilterSpec{}, "top-category")
	require.NoError(t, err)
	require.Equal(t, "Electronics is the strongest category by revenue.", ans.Headline)

	_, err = a.Question(ctx, dataset.FilterSpec{}, "nope")
	require.Error(t, err)
}

func TestQuality(t *testing.T) {
	a := newTestAnalytics(t)
	rep, err := a.Quality(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, rep.Records)
	require.Equal(t, 3, rep.Columns)
	require.Equal(t, 1, rep.DuplicateRows)
	require.Equal(t, quality.Unreliable, rep.Verdict)
}

func TestLoadFailureIsLoadError(t *testing.T) {
	a := NewAnalytics(Options{SalesFile: filepath.Join(t.TempDir(), "missing.csv")})
	_, err := a.Overview(context.Background(), dataset.FilterSpec{})
	var loadErr *dataset.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestReloadAndStats(t *testing.T) {
	a := newTestAnalytics(t)
	ctx := context.Background()

	require.NoError(t, a.Warm(ctx))
	require.Equal(t, 1, a.Stats()["cached_tables"])

	a.Invalidate()
	require.Equal(t, 0, a.Stats()["cached_tables"])

	require.NoError(t, a.Reload(ctx))
	require.Equal(t, 1, a.Stats()["cached_tables"])
}

func TestConcurrentQueries(t *testing.T) {
	a := newTestAnalytics(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			country := []string{"UK", "France", "All", "Germany"}[i%4]
			_, err := a.Overview(ctx, dataset.FilterSpec{Country: country})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	full, err := a.Table(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, full.Len())
}
