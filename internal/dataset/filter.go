package dataset

import (
	"slices"
	"time"

	"sales-dashboard/internal/schema"
)

// All is the selector value meaning "no restriction".
const All = "All"

// DateRange is an inclusive timestamp range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// FilterSpec restricts a table. Empty selectors and All mean no restriction.
type FilterSpec struct {
	DateRange *DateRange
	Country   string
	Category  string
	// Equals holds extra column == value predicates keyed by column name.
	Equals map[string]string
}

func restricts(v string) bool { return v != "" && v != All }

// IsZero reports whether the filter keeps every row.
func (f FilterSpec) IsZero() bool {
	if f.DateRange != nil || restricts(f.Country) || restricts(f.Category) {
		return false
	}
	for _, v := range f.Equals {
		if restricts(v) {
			return false
		}
	}
	return true
}

type predicate struct {
	column *Column
	value  string
}

// Apply returns the rows of t matching every active selector, in their
// original order. A start after the end yields an empty table; rows with a
// null invoice date never match a date range.
func Apply(t *Table, f FilterSpec) (*Table, error) {
	var preds []predicate
	add := func(name, value string) error {
		if !restricts(value) {
			return nil
		}
		c, err := t.Column(name)
		if err != nil {
			return err
		}
		preds = append(preds, predicate{column: c, value: value})
		return nil
	}

	if err := add(schema.Country, f.Country); err != nil {
		return nil, err
	}
	if err := add(schema.Category, f.Category); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.Equals))
	for k := range f.Equals {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := add(k, f.Equals[k]); err != nil {
			return nil, err
		}
	}

	var dates *Column
	if f.DateRange != nil {
		c, err := t.Column(schema.InvoiceDate)
		if err != nil {
			return nil, err
		}
		if c.Kind != schema.KindDatetime {
			return nil, &ColumnTypeError{Column: c.Name, Want: schema.KindDatetime.String(), Got: c.Kind.String()}
		}
		if f.DateRange.Start.After(f.DateRange.End) {
			return t.take(nil), nil
		}
		dates = c
	}

	keep := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if dates != nil {
			d := dates.Time(i)
			if !d.Valid || d.Time.Before(f.DateRange.Start) || d.Time.After(f.DateRange.End) {
				continue
			}
		}
		if matchesAll(preds, i) {
			keep = append(keep, i)
		}
	}
	return t.take(keep), nil
}

func matchesAll(preds []predicate, i int) bool {
	for _, p := range preds {
		key, ok := p.column.Key(i)
		if !ok || key != p.value {
			return false
		}
	}
	return true
}

// EndOfDay extends a date-only bound to the last instant of that day.
func EndOfDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// ParseDateRange builds an inclusive range from YYYY-MM-DD bounds. Either bound
// may be empty, in which case it is open-ended. Both empty returns nil.
func ParseDateRange(start, end string) (*DateRange, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	r := &DateRange{
		Start: time.Time{},
		End:   time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC),
	}
	if start != "" {
		s, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return nil, err
		}
		r.Start = s
	}
	if end != "" {
		e, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return nil, err
		}
		r.End = EndOfDay(e)
	}
	return r, nil
}
