// Package insights turns a filtered sales table into KPIs, an executive
// summary, threshold flags and answers to a fixed set of business questions.
package insights

import (
	"errors"
	"strconv"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/schema"
	"sales-dashboard/internal/stats"
)

const (
	returnRateAlertPct   = 10.0
	shippingRatioAlert   = 0.3
	heavyDiscountAlert   = 0.35
	priceSensitivityCorr = 0.4
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// column returns a numeric column's values, or nil when the column is absent
// or not numeric.
func column(t *dataset.Table, name string) []models.NullFloat {
	c, err := t.Numeric(name)
	if err != nil {
		return nil
	}
	return c.Floats()
}

func pct(v models.NullFloat) models.NullFloat {
	if !v.Valid {
		return v
	}
	return models.Float(v.Float64 * 100)
}

// KPIs computes the headline indicators for t. Orders is the row count; the
// other figures are null when their column is missing or entirely null.
func KPIs(t *dataset.Table) models.KPISummary {
	return models.KPISummary{
		GrossSales:      stats.Sum(column(t, schema.GrossSales)),
		NetRevenue:      stats.Sum(column(t, schema.NetRevenue)),
		Orders:          t.Len(),
		ReturnRatePct:   pct(stats.Mean(column(t, schema.IsReturned))),
		AvgOrderValue:   stats.Mean(column(t, schema.TotalOrderValue)),
		TotalProfit:     stats.Sum(column(t, schema.Profit)),
		AvgDiscount:     stats.Mean(column(t, schema.Discount)),
		AvgShippingRate: stats.Mean(column(t, schema.ShippingRatio)),
	}
}

type ExecutiveSummary struct {
	TotalRevenue  models.NullFloat `json:"total_revenue"`
	TotalProfit   models.NullFloat `json:"total_profit"`
	ReturnRatePct models.NullFloat `json:"return_rate_pct"`
	Orders        int              `json:"orders"`
	TopCategory   string           `json:"top_category"`
	TopChannel    string           `json:"top_channel"`
}

func (s ExecutiveSummary) Rounded() ExecutiveSummary {
	s.TotalRevenue = s.TotalRevenue.Round2()
	s.TotalProfit = s.TotalProfit.Round2()
	s.ReturnRatePct = s.ReturnRatePct.Round2()
	return s
}

// Narrative renders the summary as one plain-language sentence.
func (s ExecutiveSummary) Narrative() string {
	text := "The business generated " + money(s.TotalRevenue) + " in net revenue with a total profit of " +
		money(s.TotalProfit) + " across " + strconv.Itoa(s.Orders) + " orders; the return rate is " +
		percent(s.ReturnRatePct) + "."
	if s.TopCategory != "" {
		text += " Top revenue category: " + s.TopCategory + "."
	}
	if s.TopChannel != "" {
		text += " Best sales channel: " + s.TopChannel + "."
	}
	return text
}

// Summarize builds the executive summary. The top category and channel are
// those with the highest total net revenue; they are empty when unknown.
func Summarize(t *dataset.Table) (ExecutiveSummary, error) {
	kpi := KPIs(t)
	s := ExecutiveSummary{
		TotalRevenue:  kpi.NetRevenue,
		TotalProfit:   kpi.TotalProfit,
		ReturnRatePct: kpi.ReturnRatePct,
		Orders:        kpi.Orders,
	}
	var err error
	if s.TopCategory, err = topBy(t, schema.Category, schema.NetRevenue); err != nil {
		return s, err
	}
	if s.TopChannel, err = topBy(t, schema.SalesChannel, schema.NetRevenue); err != nil {
		return s, err
	}
	return s, nil
}

// topBy returns the group with the largest summed metric. Missing columns
// yield an empty key rather than an error.
func topBy(t *dataset.Table, groupBy, metric string) (string, error) {
	res, err := dataset.Aggregate(t, dataset.AggregationSpec{GroupBy: groupBy, Metric: metric, Func: dataset.Sum})
	if err != nil {
		if missing(err) {
			return "", nil
		}
		return "", err
	}
	top, ok := res.Top()
	if !ok || top.KeyNull || !top.Value.Valid {
		return "", nil
	}
	return top.Key, nil
}

func missing(err error) bool {
	var notFound *dataset.ColumnNotFoundError
	var wrongType *dataset.ColumnTypeError
	return errors.As(err, &notFound) || errors.As(err, &wrongType)
}

type Flag struct {
	Code    string `json:"code"`
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Flags raises the threshold alerts for a KPI summary. A closing revenue note
// is always present.
func Flags(k models.KPISummary) []Flag {
	var flags []Flag
	if k.ReturnRatePct.Valid && k.ReturnRatePct.Float64 > returnRateAlertPct {
		flags = append(flags, Flag{
			Code:    "high_return_rate",
			Level:   LevelWarning,
			Message: "High return rate detected, pointing to a quality or expectation mismatch.",
		})
	}
	if k.AvgShippingRate.Valid && k.AvgShippingRate.Float64 > shippingRatioAlert {
		flags = append(flags, Flag{
			Code:    "high_shipping_ratio",
			Level:   LevelWarning,
			Message: "Shipping costs consume a large portion of order value.",
		})
	}
	if k.AvgDiscount.Valid && k.AvgDiscount.Float64 > heavyDiscountAlert {
		flags = append(flags, Flag{
			Code:    "heavy_discounting",
			Level:   LevelInfo,
			Message: "Heavy discounting detected, which may erode long-term margins.",
		})
	}
	flags = append(flags, Flag{
		Code:    "revenue_note",
		Level:   LevelSuccess,
		Message: "Revenue generation appears strong with a stable average order value.",
	})
	return flags
}

func money(v models.NullFloat) string {
	if !v.Valid {
		return stats.NotEnoughData
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(2)
}

func percent(v models.NullFloat) string {
	if !v.Valid {
		return stats.NotEnoughData
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(1) + "%"
}
