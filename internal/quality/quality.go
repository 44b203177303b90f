// Package quality reports on the structural health of the raw sales export:
// gaps, duplicates and extreme values.
package quality

import (
	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/stats"
)

type Verdict string

const (
	Reliable   Verdict = "reliable"
	Caution    Verdict = "usable with caution"
	Unreliable Verdict = "unreliable"
)

const (
	reliablePct = 5.0
	cautionPct  = 20.0
)

type ColumnReport struct {
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	Missing    int              `json:"missing"`
	MissingPct models.NullFloat `json:"missing_pct"`
	Outliers   int              `json:"outliers,omitempty"`
}

type Report struct {
	Source        string           `json:"source"`
	Records       int              `json:"records"`
	Columns       int              `json:"columns"`
	MissingCells  int              `json:"missing_cells"`
	MissingPct    models.NullFloat `json:"missing_pct"`
	DuplicateRows int              `json:"duplicate_rows"`
	DuplicatePct  models.NullFloat `json:"duplicate_pct"`
	PerColumn     []ColumnReport   `json:"per_column"`
	Verdict       Verdict          `json:"verdict"`
}

func (r Report) Rounded() Report {
	r.MissingPct = r.MissingPct.Round2()
	r.DuplicatePct = r.DuplicatePct.Round2()
	cols := make([]ColumnReport, len(r.PerColumn))
	for i, c := range r.PerColumn {
		c.MissingPct = c.MissingPct.Round2()
		cols[i] = c
	}
	r.PerColumn = cols
	return r
}

func percentOf(n, total int) models.NullFloat {
	return stats.SafeRatio(models.Float(float64(n)*100), models.Float(float64(total)))
}

// Analyze builds the report for a table loaded without derivation.
func Analyze(t *dataset.Table) Report {
	perColumn, missing := t.MissingCells()
	r := Report{
		Source:        t.Source(),
		Records:       t.Len(),
		Columns:       t.Width(),
		MissingCells:  missing,
		MissingPct:    percentOf(missing, t.Len()*t.Width()),
		DuplicateRows: t.DuplicateRows(),
	}
	r.DuplicatePct = percentOf(r.DuplicateRows, t.Len())

	for i, name := range t.ColumnNames() {
		c, _ := t.Column(name)
		cr := ColumnReport{
			Name:       name,
			Kind:       c.Kind.String(),
			Missing:    perColumn[i],
			MissingPct: percentOf(perColumn[i], t.Len()),
		}
		if num, err := t.Numeric(name); err == nil {
			cr.Outliers = stats.Outliers(num.Floats())
		}
		r.PerColumn = append(r.PerColumn, cr)
	}

	r.Verdict = verdict(r.MissingPct, r.DuplicatePct)
	return r
}

func verdict(missingPct, duplicatePct models.NullFloat) Verdict {
	if !missingPct.Valid {
		return Unreliable
	}
	worst := missingPct.Float64
	if duplicatePct.Valid && duplicatePct.Float64 > worst {
		worst = duplicatePct.Float64
	}
	switch {
	case worst < reliablePct:
		return Reliable
	case worst < cautionPct:
		return Caution
	}
	return Unreliable
}
