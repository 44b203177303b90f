// Package dataset holds the in-memory sales table and the pipeline stages
// that operate on it: loading, metric derivation, filtering and grouping.
//
// A Table is immutable once built. Every stage returns a new Table; columns
// are never written after construction, so a derived table may share column
// vectors with its parent without either being able to affect the other.
package dataset

import (
	"slices"
	"strconv"
	"strings"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/schema"
)

const dateTimeLayout = "2006-01-02 15:04:05"

// Column is one typed column vector. Exactly one of the backing slices is
// populated, chosen by Kind. Empty text is treated as null.
type Column struct {
	Name  string
	Kind  schema.Kind
	text  []string
	nums  []models.NullFloat
	times []models.NullTime
}

func newTextColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: schema.KindText, text: values}
}

func newNumericColumn(name string, values []models.NullFloat) *Column {
	return &Column{Name: name, Kind: schema.KindNumeric, nums: values}
}

func newTimeColumn(name string, values []models.NullTime) *Column {
	return &Column{Name: name, Kind: schema.KindDatetime, times: values}
}

func (c *Column) Len() int {
	switch c.Kind {
	case schema.KindNumeric:
		return len(c.nums)
	case schema.KindDatetime:
		return len(c.times)
	default:
		return len(c.text)
	}
}

func (c *Column) Text(i int) string {
	if c.Kind != schema.KindText {
		key, _ := c.Key(i)
		return key
	}
	return c.text[i]
}

func (c *Column) Num(i int) models.NullFloat {
	if c.Kind != schema.KindNumeric {
		return models.NullFloat{}
	}
	return c.nums[i]
}

func (c *Column) Time(i int) models.NullTime {
	if c.Kind != schema.KindDatetime {
		return models.NullTime{}
	}
	return c.times[i]
}

func (c *Column) IsNull(i int) bool {
	switch c.Kind {
	case schema.KindNumeric:
		return !c.nums[i].Valid
	case schema.KindDatetime:
		return !c.times[i].Valid
	default:
		return c.text[i] == ""
	}
}

// Key renders the cell as a grouping key. ok is false for null cells.
func (c *Column) Key(i int) (key string, ok bool) {
	switch c.Kind {
	case schema.KindNumeric:
		v := c.nums[i]
		if !v.Valid {
			return "", false
		}
		return strconv.FormatFloat(v.Float64, 'f', -1, 64), true
	case schema.KindDatetime:
		v := c.times[i]
		if !v.Valid {
			return "", false
		}
		return v.Time.Format(dateTimeLayout), true
	default:
		return c.text[i], c.text[i] != ""
	}
}

// Floats returns a copy of a numeric column's values.
func (c *Column) Floats() []models.NullFloat {
	return slices.Clone(c.nums)
}

func (c *Column) take(indices []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case schema.KindNumeric:
		out.nums = make([]models.NullFloat, len(indices))
		for j, i := range indices {
			out.nums[j] = c.nums[i]
		}
	case schema.KindDatetime:
		out.times = make([]models.NullTime, len(indices))
		for j, i := range indices {
			out.times[j] = c.times[i]
		}
	default:
		out.text = make([]string, len(indices))
		for j, i := range indices {
			out.text[j] = c.text[i]
		}
	}
	return out
}

// Table is an ordered set of equal-length columns.
type Table struct {
	source  string
	columns []*Column
	index   map[string]int
	rows    int
}

func newTable(source string, rows int, columns []*Column) *Table {
	t := &Table{
		source:  source,
		columns: columns,
		index:   make(map[string]int, len(columns)),
		rows:    rows,
	}
	for i, c := range columns {
		t.index[c.Name] = i
	}
	return t
}

// Source is the identity of the file the table was loaded from.
func (t *Table) Source() string { return t.source }

func (t *Table) Len() int { return t.rows }

func (t *Table) Width() int { return len(t.columns) }

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[schema.Normalize(name)]
	return ok
}

// Column resolves a user-facing or canonical column name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[schema.Normalize(name)]
	if !ok {
		return nil, &ColumnNotFoundError{Column: name}
	}
	return t.columns[i], nil
}

// Numeric resolves a column and checks it holds numbers.
func (t *Table) Numeric(name string) (*Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != schema.KindNumeric {
		return nil, &ColumnTypeError{Column: c.Name, Want: schema.KindNumeric.String(), Got: c.Kind.String()}
	}
	return c, nil
}

func (t *Table) numeric(name string) ([]models.NullFloat, bool) {
	i, ok := t.index[name]
	if !ok || t.columns[i].Kind != schema.KindNumeric {
		return nil, false
	}
	return t.columns[i].nums, true
}

// take builds a new table holding only the given rows, in order.
func (t *Table) take(indices []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.take(indices)
	}
	return newTable(t.source, len(indices), cols)
}

// with returns a table sharing t's columns plus c, replacing any column of the
// same name in place.
func (t *Table) with(c *Column) *Table {
	cols := slices.Clone(t.columns)
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return newTable(t.source, t.rows, cols)
}

// Distinct returns the sorted non-null values of a column.
func (t *Table) Distinct(name string) ([]string, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for i := 0; i < t.rows; i++ {
		if key, ok := c.Key(i); ok {
			seen[key] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.SortFunc(out, compareNatural)
	return out, nil
}

// DateBounds returns the earliest and latest non-null invoice dates.
func (t *Table) DateBounds() (minDate, maxDate models.NullTime) {
	c, err := t.Column(schema.InvoiceDate)
	if err != nil || c.Kind != schema.KindDatetime {
		return
	}
	for _, v := range c.times {
		if !v.Valid {
			continue
		}
		if !minDate.Valid || v.Time.Before(minDate.Time) {
			minDate = v
		}
		if !maxDate.Valid || v.Time.After(maxDate.Time) {
			maxDate = v
		}
	}
	return
}

// MissingCells counts null cells per column, in column order.
func (t *Table) MissingCells() (perColumn []int, total int) {
	perColumn = make([]int, len(t.columns))
	for j, c := range t.columns {
		for i := 0; i < t.rows; i++ {
			if c.IsNull(i) {
				perColumn[j]++
			}
		}
		total += perColumn[j]
	}
	return perColumn, total
}

// DuplicateRows counts rows identical in every column to an earlier row.
func (t *Table) DuplicateRows() int {
	seen := make(map[string]struct{}, t.rows)
	dups := 0
	var b strings.Builder
	for i := 0; i < t.rows; i++ {
		b.Reset()
		for _, c := range t.columns {
			if key, ok := c.Key(i); ok {
				b.WriteString(key)
			} else {
				b.WriteString("\x00null")
			}
			b.WriteByte(0x1f)
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// Summary reports the table's shape and total missing cells.
func (t *Table) Summary() models.DatasetSummary {
	_, missing := t.MissingCells()
	return models.DatasetSummary{Rows: t.rows, Columns: len(t.columns), MissingValues: missing}
}

// NumericColumns lists numeric columns in table order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.columns {
		if c.Kind == schema.KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// CategoricalColumns lists text columns with fewer than maxLevels distinct
// values, skipping identifiers and free text.
func (t *Table) CategoricalColumns(maxLevels int) []string {
	var out []string
	for _, c := range t.columns {
		if c.Kind != schema.KindText {
			continue
		}
		if meta, ok := schema.Lookup(c.Name); ok && (meta.Role == schema.RoleIdentifier || meta.Role == schema.RoleFreeText) {
			continue
		}
		levels := make(map[string]struct{})
		for i := 0; i < t.rows && len(levels) < maxLevels; i++ {
			if key, ok := c.Key(i); ok {
				levels[key] = struct{}{}
			}
		}
		if len(levels) < maxLevels {
			out = append(out, c.Name)
		}
	}
	return out
}

// DateColumns lists datetime columns.
func (t *Table) DateColumns() []string {
	var out []string
	for _, c := range t.columns {
		if c.Kind == schema.KindDatetime {
			out = append(out, c.Name)
		}
	}
	return out
}

// Transactions returns the first n rows as typed records. n <= 0 returns all.
func (t *Table) Transactions(n int) []models.Transaction {
	if n <= 0 || n > t.rows {
		n = t.rows
	}
	text := func(name string, i int) string {
		if j, ok := t.index[name]; ok {
			return t.columns[j].Text(i)
		}
		return ""
	}
	num := func(name string, i int) models.NullFloat {
		if j, ok := t.index[name]; ok {
			return t.columns[j].Num(i)
		}
		return models.NullFloat{}
	}
	out := make([]models.Transaction, n)
	for i := 0; i < n; i++ {
		tx := models.Transaction{
			InvoiceNo:         text(schema.InvoiceNo, i),
			StockCode:         text(schema.StockCode, i),
			Description:       text(schema.Description, i),
			Quantity:          num(schema.Quantity, i),
			UnitPrice:         num(schema.UnitPrice, i),
			CustomerID:        text(schema.CustomerID, i),
			Country:           text(schema.Country, i),
			Discount:          num(schema.Discount, i),
			PaymentMethod:     text(schema.PaymentMethod, i),
			ShippingCost:      num(schema.ShippingCost, i),
			Category:          text(schema.Category, i),
			SalesChannel:      text(schema.SalesChannel, i),
			ReturnStatus:      text(schema.ReturnStatus, i),
			ShipmentProvider:  text(schema.ShipmentProvider, i),
			WarehouseLocation: text(schema.WarehouseLocation, i),
			OrderPriority:     text(schema.OrderPriority, i),
			CustomerType:      text(schema.CustomerType, i),
			GrossSales:        num(schema.GrossSales, i),
			NetRevenue:        num(schema.NetRevenue, i),
			TotalOrderValue:   num(schema.TotalOrderValue, i),
			ShippingRatio:     num(schema.ShippingRatio, i),
			IsReturned:        num(schema.IsReturned, i),
			Profit:            num(schema.Profit, i),
			Year:              num(schema.Year, i),
			Month:             num(schema.Month, i),
			MonthName:         text(schema.MonthName, i),
		}
		if j, ok := t.index[schema.InvoiceDate]; ok {
			tx.InvoiceDate = t.columns[j].Time(i)
		}
		out[i] = tx
	}
	return out
}

// compareNatural orders numerically when both strings are numbers and
// lexically otherwise.
func compareNatural(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}
