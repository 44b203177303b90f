package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/schema"
)

const defaultWorkers = 8

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
}

type LoadOptions struct {
	// Workers bounds concurrent column coercion. Zero uses a default.
	Workers int
	// SkipDerive leaves the raw columns untouched, used for the raw export
	// behind the data-quality report.
	SkipDerive bool
	Logger     *slog.Logger
}

func (o LoadOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Load reads a delimited file from disk. See Read.
func Load(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Reason: "open file", Err: err}
	}
	defer file.Close()

	return Read(ctx, file, path, opts)
}

// Read parses delimited text with a header row into a typed table. Column
// names are normalised and duplicates keep their first occurrence. Numeric
// coercion failures leave a column as text instead of failing the load;
// unparseable dates become null.
func Read(ctx context.Context, r io.Reader, source string, opts LoadOptions) (*Table, error) {
	log := opts.logger()
	start := time.Now()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &LoadError{Source: source, Reason: "empty source"}
	}
	if err != nil {
		return nil, &LoadError{Source: source, Reason: "read header", Err: err}
	}

	names, positions := resolveHeader(header)
	if len(names) == 0 {
		return nil, &LoadError{Source: source, Reason: "no usable columns"}
	}

	raw := make([][]string, len(names))
	rows := 0
	for {
		if rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &LoadError{Source: source, Reason: "cancelled", Err: err}
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Source: source, Reason: fmt.Sprintf("read row %d", rows+1), Err: err}
		}
		for j, pos := range positions {
			cell := ""
			if pos < len(record) {
				cell = strings.TrimSpace(record[pos])
			}
			raw[j] = append(raw[j], cell)
		}
		rows++
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	columns := make([]*Column, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for j, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[j] = coerceColumn(name, raw[j], log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &LoadError{Source: source, Reason: "coerce columns", Err: err}
	}

	table := newTable(source, rows, columns)
	if !opts.SkipDerive {
		table = Derive(table)
	}

	log.Debug("dataset parsed",
		"source", source,
		"rows", table.Len(),
		"columns", table.Width(),
		"duration", time.Since(start),
	)
	return table, nil
}

// resolveHeader normalises header names and drops blanks and duplicates,
// returning the kept names and their positions in the raw record.
func resolveHeader(header []string) (names []string, positions []int) {
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		name := schema.Normalize(h)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		positions = append(positions, i)
	}
	return names, positions
}

func coerceColumn(name string, values []string, log *slog.Logger) *Column {
	meta, known := schema.Lookup(name)

	switch {
	case known && meta.Kind == schema.KindNumeric:
		if nums, ok := parseNumbers(values); ok {
			return newNumericColumn(name, nums)
		}
		log.Warn("numeric coercion failed, keeping column as text", "column", name)
		return newTextColumn(name, values)

	case known && meta.Kind == schema.KindDatetime:
		return newTimeColumn(name, parseTimes(values))

	case known:
		return newTextColumn(name, values)
	}

	if nums, ok := parseNumbers(values); ok && hasValue(values) {
		return newNumericColumn(name, nums)
	}
	if strings.Contains(name, "date") || strings.Contains(name, "time") {
		times := parseTimes(values)
		if allParsed(values, times) && hasValue(values) {
			return newTimeColumn(name, times)
		}
	}
	return newTextColumn(name, values)
}

func parseNumbers(values []string) ([]models.NullFloat, bool) {
	out := make([]models.NullFloat, len(values))
	for i, v := range values {
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out[i] = models.Float(f)
	}
	return out, true
}

func parseTimes(values []string) []models.NullTime {
	out := make([]models.NullTime, len(values))
	for i, v := range values {
		if t, ok := parseTime(v); ok {
			out[i] = models.Time(t)
		}
	}
	return out
}

// parseTime accepts the layouts seen in the exports and drops any zone so
// every timestamp compares as wall-clock time.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
		}
	}
	return time.Time{}, false
}

func allParsed(values []string, times []models.NullTime) bool {
	for i, v := range values {
		if v != "" && !times[i].Valid {
			return false
		}
	}
	return true
}

func hasValue(values []string) bool {
	for _, v := range values {
		if v != "" {
			return true
		}
	}
	return false
}
