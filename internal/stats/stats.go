// Package stats holds the descriptive statistics and the threshold
// classifiers that turn them into plain-language signals.
package stats

import (
	"math"
	"slices"

	"sales-dashboard/internal/models"
)

// NotEnoughData labels a statistic that could not be computed.
const NotEnoughData = "not enough data"

// Summary describes the non-null values of one numeric column.
type Summary struct {
	Count  int              `json:"count"`
	Nulls  int              `json:"nulls"`
	Mean   models.NullFloat `json:"mean"`
	Median models.NullFloat `json:"median"`
	Min    models.NullFloat `json:"min"`
	Max    models.NullFloat `json:"max"`
	StdDev models.NullFloat `json:"std_dev"`
}

func (s Summary) Rounded() Summary {
	s.Mean = s.Mean.Round2()
	s.Median = s.Median.Round2()
	s.Min = s.Min.Round2()
	s.Max = s.Max.Round2()
	s.StdDev = s.StdDev.Round2()
	return s
}

func nonNull(values []models.NullFloat) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v.Valid {
			out = append(out, v.Float64)
		}
	}
	return out
}

// Describe summarises values, ignoring nulls. StdDev is the sample standard
// deviation and is null below two values.
func Describe(values []models.NullFloat) Summary {
	xs := nonNull(values)
	s := Summary{Count: len(xs), Nulls: len(values) - len(xs)}
	if len(xs) == 0 {
		return s
	}

	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	s.Min = models.Float(sorted[0])
	s.Max = models.Float(sorted[len(sorted)-1])
	s.Median = models.Float(median(sorted))

	mean := meanOf(xs)
	s.Mean = models.Float(mean)

	if len(xs) > 1 {
		var ss float64
		for _, x := range xs {
			ss += (x - mean) * (x - mean)
		}
		s.StdDev = models.Float(math.Sqrt(ss / float64(len(xs)-1)))
	}
	return s
}

// Mean averages the non-null values; none gives null.
func Mean(values []models.NullFloat) models.NullFloat {
	xs := nonNull(values)
	if len(xs) == 0 {
		return models.Null()
	}
	return models.Float(meanOf(xs))
}

// Sum adds the non-null values; none gives null.
func Sum(values []models.NullFloat) models.NullFloat {
	var s float64
	n := 0
	for _, v := range values {
		if v.Valid {
			s += v.Float64
			n++
		}
	}
	if n == 0 {
		return models.Null()
	}
	return models.Float(s)
}

func meanOf(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// SafeRatio divides, returning null for a null operand or a zero denominator.
func SafeRatio(num, den models.NullFloat) models.NullFloat {
	if !num.Valid || !den.Valid || den.Float64 == 0 {
		return models.Null()
	}
	return models.Float(num.Float64 / den.Float64)
}

// Quantile interpolates linearly between the closest ranks of the non-null
// values, q in [0, 1].
func Quantile(values []models.NullFloat, q float64) models.NullFloat {
	xs := nonNull(values)
	if len(xs) == 0 || q < 0 || q > 1 {
		return models.Null()
	}
	slices.Sort(xs)
	pos := q * float64(len(xs)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return models.Float(xs[lo] + (xs[hi]-xs[lo])*(pos-float64(lo)))
}

// Outliers counts values outside the 1.5 IQR fences.
func Outliers(values []models.NullFloat) int {
	q1, q3 := Quantile(values, 0.25), Quantile(values, 0.75)
	if !q1.Valid || !q3.Valid {
		return 0
	}
	iqr := q3.Float64 - q1.Float64
	lo, hi := q1.Float64-1.5*iqr, q3.Float64+1.5*iqr
	n := 0
	for _, v := range values {
		if v.Valid && (v.Float64 < lo || v.Float64 > hi) {
			n++
		}
	}
	return n
}
