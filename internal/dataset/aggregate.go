package dataset

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/schema"
)

type Func string

const (
	Sum    Func = "sum"
	Mean   Func = "mean"
	Median Func = "median"
)

// ParseFunc accepts sum, mean or median case-insensitively. "avg" and
// "average" are accepted for mean.
func ParseFunc(s string) (Func, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sum":
		return Sum, nil
	case "mean", "avg", "average":
		return Mean, nil
	case "median":
		return Median, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFunc, s)
}

type AggregationSpec struct {
	GroupBy string
	Metric  string
	Func    Func
}

type group struct {
	key    string
	null   bool
	values []float64
	count  int
}

// Aggregate groups t by one dimension and reduces one numeric metric. Nulls in
// the metric are ignored; a group with no values reduces to null. Rows are
// ordered by value descending unless the dimension is time-ordered.
func Aggregate(t *Table, spec AggregationSpec) (*models.AggregationResult, error) {
	switch spec.Func {
	case Sum, Mean, Median:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFunc, spec.Func)
	}

	keyOf, groupBy, err := dimension(t, spec.GroupBy)
	if err != nil {
		return nil, err
	}
	metric, err := t.Numeric(spec.Metric)
	if err != nil {
		return nil, err
	}

	groups := make(map[string]*group)
	var nullGroup *group
	for i := 0; i < t.Len(); i++ {
		key, ok := keyOf(i)
		var g *group
		if !ok {
			if nullGroup == nil {
				nullGroup = &group{null: true}
			}
			g = nullGroup
		} else {
			g = groups[key]
			if g == nil {
				g = &group{key: key}
				groups[key] = g
			}
		}
		g.count++
		if v := metric.Num(i); v.Valid {
			g.values = append(g.values, v.Float64)
		}
	}

	rows := make([]models.GroupValue, 0, len(groups)+1)
	for _, g := range groups {
		rows = append(rows, models.GroupValue{Key: g.key, Value: reduce(spec.Func, g.values), Count: g.count})
	}

	timeOrdered := schema.IsTimeOrdered(groupBy)
	if timeOrdered {
		slices.SortFunc(rows, func(a, b models.GroupValue) int { return compareChrono(groupBy, a.Key, b.Key) })
	} else {
		slices.SortFunc(rows, compareByValue)
	}
	if nullGroup != nil {
		rows = append(rows, models.GroupValue{KeyNull: true, Value: reduce(spec.Func, nullGroup.values), Count: nullGroup.count})
	}

	return &models.AggregationResult{
		GroupBy:     groupBy,
		Metric:      metric.Name,
		Func:        string(spec.Func),
		TimeOrdered: timeOrdered,
		Rows:        rows,
	}, nil
}

// dimension resolves a group-by name, including the virtual year_month bucket.
func dimension(t *Table, name string) (func(i int) (string, bool), string, error) {
	canonical := schema.Normalize(name)
	if canonical == schema.YearMonth && !t.HasColumn(schema.YearMonth) {
		dates, err := t.Column(schema.InvoiceDate)
		if err != nil {
			return nil, "", &ColumnNotFoundError{Column: name}
		}
		if dates.Kind != schema.KindDatetime {
			return nil, "", &ColumnTypeError{Column: dates.Name, Want: schema.KindDatetime.String(), Got: dates.Kind.String()}
		}
		return func(i int) (string, bool) {
			d := dates.Time(i)
			if !d.Valid {
				return "", false
			}
			return d.Time.Format("2006-01"), true
		}, schema.YearMonth, nil
	}
	c, err := t.Column(name)
	if err != nil {
		return nil, "", err
	}
	return c.Key, c.Name, nil
}

func reduce(f Func, values []float64) models.NullFloat {
	if len(values) == 0 {
		return models.NullFloat{}
	}
	switch f {
	case Sum:
		var s float64
		for _, v := range values {
			s += v
		}
		return models.Float(s)
	case Mean:
		var s float64
		for _, v := range values {
			s += v
		}
		return models.Float(s / float64(len(values)))
	default:
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return models.Float(sorted[n/2])
		}
		return models.Float((sorted[n/2-1] + sorted[n/2]) / 2)
	}
}

func compareByValue(a, b models.GroupValue) int {
	switch {
	case a.Value.Valid && !b.Value.Valid:
		return -1
	case !a.Value.Valid && b.Value.Valid:
		return 1
	case a.Value.Valid && b.Value.Valid:
		if a.Value.Float64 > b.Value.Float64 {
			return -1
		}
		if a.Value.Float64 < b.Value.Float64 {
			return 1
		}
	}
	return compareNatural(a.Key, b.Key)
}

func compareChrono(dim, a, b string) int {
	if dim == schema.MonthName {
		ma, okA := monthNumber(a)
		mb, okB := monthNumber(b)
		if okA && okB {
			return ma - mb
		}
	}
	return compareNatural(a, b)
}

func monthNumber(name string) (int, bool) {
	for m := time.January; m <= time.December; m++ {
		if strings.EqualFold(m.String(), name) || strings.EqualFold(m.String()[:3], name) {
			return int(m), true
		}
	}
	return 0, false
}

// ValueCounts counts the non-null values of a column, most frequent first and
// ties by value.
func ValueCounts(t *Table, name string) ([]models.ValueCount, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i := 0; i < t.Len(); i++ {
		if key, ok := c.Key(i); ok {
			counts[key]++
		}
	}
	out := make([]models.ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, models.ValueCount{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b models.ValueCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return compareNatural(a.Value, b.Value)
	})
	return out, nil
}
