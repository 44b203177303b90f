package stats

import (
	"math"

	"sales-dashboard/internal/models"
)

// Skewness is the adjusted Fisher-Pearson coefficient over the non-null
// values. Fewer than three values is null; zero variance is 0.
func Skewness(values []models.NullFloat) models.NullFloat {
	xs := nonNull(values)
	n := float64(len(xs))
	if len(xs) < 3 {
		return models.Null()
	}
	mean := meanOf(xs)
	var m2, m3 float64
	for _, x := range xs {
		d := x - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return models.Float(0)
	}
	g1 := m3 / math.Pow(m2, 1.5)
	return models.Float(math.Sqrt(n*(n-1)) / (n - 2) * g1)
}

type SkewClass string

const (
	RightSkewed SkewClass = "right-skewed"
	LeftSkewed  SkewClass = "left-skewed"
	Normal      SkewClass = "approximately normal"
	SkewUnknown SkewClass = NotEnoughData
)

// ClassifySkew labels a skewness coefficient: above 1 is right-skewed, below
// -1 left-skewed.
func ClassifySkew(skew models.NullFloat) SkewClass {
	switch {
	case !skew.Valid:
		return SkewUnknown
	case skew.Float64 > 1:
		return RightSkewed
	case skew.Float64 < -1:
		return LeftSkewed
	}
	return Normal
}

type Strength string

const (
	Strong     Strength = "strong"
	Moderate   Strength = "moderate"
	Weak       Strength = "weak"
	NoStrength Strength = NotEnoughData
)

const (
	strongCutoff   = 0.7
	moderateCutoff = 0.4
)

// ClassifyStrength buckets |r|: above 0.7 strong, above 0.4 moderate.
func ClassifyStrength(r models.NullFloat) Strength {
	return classify(r, strongCutoff, moderateCutoff)
}

// HistoricalStrength buckets |r| with the 0.6 and 0.3 cut-offs an earlier
// revision of the dashboard used. Kept for comparison only.
func HistoricalStrength(r models.NullFloat) Strength {
	return classify(r, 0.6, 0.3)
}

func classify(r models.NullFloat, strong, moderate float64) Strength {
	if !r.Valid {
		return NoStrength
	}
	a := math.Abs(r.Float64)
	switch {
	case a > strong:
		return Strong
	case a > moderate:
		return Moderate
	}
	return Weak
}

type Correlation struct {
	R        models.NullFloat `json:"r"`
	N        int              `json:"n"`
	Strength Strength         `json:"strength"`
}

// Correlate is the Pearson coefficient over rows where both values are
// present. Under two pairs or zero variance on either side gives a null
// coefficient.
func Correlate(a, b []models.NullFloat) Correlation {
	var xs, ys []float64
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Valid && b[i].Valid {
			xs = append(xs, a[i].Float64)
			ys = append(ys, b[i].Float64)
		}
	}
	c := Correlation{N: len(xs), Strength: NoStrength}
	if len(xs) < 2 {
		return c
	}
	mx, my := meanOf(xs), meanOf(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return c
	}
	r := sxy / math.Sqrt(sxx*syy)
	r = math.Max(-1, math.Min(1, r))
	c.R = models.Float(r)
	c.Strength = ClassifyStrength(c.R)
	return c
}

type Signal string

const (
	Dominant Signal = "dominant"
	Skewed   Signal = "skewed"
	Balanced Signal = "balanced"
)

// ClassifyDominance labels the top category's share d: above 0.51 dominant,
// strictly between 0.36 and 0.50 skewed, anything else balanced.
func ClassifyDominance(d models.NullFloat) Signal {
	switch {
	case !d.Valid:
		return Balanced
	case d.Float64 > 0.51:
		return Dominant
	case d.Float64 > 0.36 && d.Float64 < 0.50:
		return Skewed
	}
	return Balanced
}

type DominanceResult struct {
	Top      string           `json:"top"`
	TopCount int              `json:"top_count"`
	Total    int              `json:"total"`
	Levels   int              `json:"levels"`
	Ratio    models.NullFloat `json:"ratio"`
	Signal   Signal           `json:"signal"`
}

// Dominance measures how concentrated counts are in the most frequent value.
// counts must be sorted most frequent first.
func Dominance(counts []models.ValueCount) DominanceResult {
	res := DominanceResult{Levels: len(counts), Signal: Balanced}
	for _, c := range counts {
		res.Total += c.Count
	}
	if len(counts) == 0 || res.Total == 0 {
		return res
	}
	res.Top = counts[0].Value
	res.TopCount = counts[0].Count
	res.Ratio = models.Float(float64(res.TopCount) / float64(res.Total))
	res.Signal = ClassifyDominance(res.Ratio)
	return res
}
