package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// NullFloat is a float64 that may be missing. The zero value is null.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a valid NullFloat. NaN and infinities collapse to null.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

func Null() NullFloat { return NullFloat{} }

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// Round2 rounds to two decimal places. Only the presentation layer calls it.
func (n NullFloat) Round2() NullFloat {
	if !n.Valid {
		return n
	}
	return Float(Round2(n.Float64))
}

// Round2 rounds half away from zero on the decimal representation, so 2.675
// becomes 2.68 rather than the binary-float 2.67.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// NullTime is a timezone-naive timestamp that may be missing.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func Time(t time.Time) NullTime { return NullTime{Time: t, Valid: true} }

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.Format("2006-01-02T15:04:05"))
}
