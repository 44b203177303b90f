package dataset

import (
	"strings"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/schema"
)

// Per-row business formulas. Any null operand yields null; none of them
// panics or divides by zero.

func GrossSales(quantity, unitPrice models.NullFloat) models.NullFloat {
	return mul(quantity, unitPrice)
}

func NetRevenue(grossSales, discount models.NullFloat) models.NullFloat {
	if !discount.Valid {
		return models.NullFloat{}
	}
	return mul(grossSales, models.Float(1-discount.Float64))
}

func TotalOrderValue(netRevenue, shippingCost models.NullFloat) models.NullFloat {
	if !netRevenue.Valid || !shippingCost.Valid {
		return models.NullFloat{}
	}
	return models.Float(netRevenue.Float64 + shippingCost.Float64)
}

func ShippingRatio(shippingCost, totalOrderValue models.NullFloat) models.NullFloat {
	if !shippingCost.Valid || !totalOrderValue.Valid || totalOrderValue.Float64 == 0 {
		return models.NullFloat{}
	}
	return models.Float(shippingCost.Float64 / totalOrderValue.Float64)
}

func Profit(netRevenue, shippingCost models.NullFloat) models.NullFloat {
	if !netRevenue.Valid || !shippingCost.Valid {
		return models.NullFloat{}
	}
	return models.Float(netRevenue.Float64 - shippingCost.Float64)
}

// IsReturned maps a return status onto 1 or 0; an empty status is null.
func IsReturned(status string) models.NullFloat {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "":
		return models.NullFloat{}
	case "returned", "return", "yes", "y", "true", "1":
		return models.Float(1)
	}
	return models.Float(0)
}

func mul(a, b models.NullFloat) models.NullFloat {
	if !a.Valid || !b.Valid {
		return models.NullFloat{}
	}
	return models.Float(a.Float64 * b.Float64)
}

// Derive recomputes every derived column from the raw columns. A derived
// column whose inputs are missing or non-numeric is left as loaded.
func Derive(t *Table) *Table {
	out := t
	n := t.Len()

	column := func(name string, inputs [][]models.NullFloat, f func(i int) models.NullFloat) []models.NullFloat {
		for _, in := range inputs {
			if in == nil {
				existing, _ := out.numeric(name)
				return existing
			}
		}
		values := make([]models.NullFloat, n)
		for i := range values {
			values[i] = f(i)
		}
		out = out.with(newNumericColumn(name, values))
		return values
	}

	qty, _ := t.numeric(schema.Quantity)
	price, _ := t.numeric(schema.UnitPrice)
	discount, _ := t.numeric(schema.Discount)
	shipping, _ := t.numeric(schema.ShippingCost)

	gross := column(schema.GrossSales, [][]models.NullFloat{qty, price}, func(i int) models.NullFloat {
		return GrossSales(qty[i], price[i])
	})
	net := column(schema.NetRevenue, [][]models.NullFloat{gross, discount}, func(i int) models.NullFloat {
		return NetRevenue(gross[i], discount[i])
	})
	total := column(schema.TotalOrderValue, [][]models.NullFloat{net, shipping}, func(i int) models.NullFloat {
		return TotalOrderValue(net[i], shipping[i])
	})
	column(schema.ShippingRatio, [][]models.NullFloat{shipping, total}, func(i int) models.NullFloat {
		return ShippingRatio(shipping[i], total[i])
	})
	column(schema.Profit, [][]models.NullFloat{net, shipping}, func(i int) models.NullFloat {
		return Profit(net[i], shipping[i])
	})

	if idx, ok := t.index[schema.ReturnStatus]; ok {
		status := t.columns[idx]
		values := make([]models.NullFloat, n)
		for i := range values {
			values[i] = IsReturned(status.Text(i))
		}
		out = out.with(newNumericColumn(schema.IsReturned, values))
	}

	if idx, ok := t.index[schema.InvoiceDate]; ok && t.columns[idx].Kind == schema.KindDatetime {
		dates := t.columns[idx]
		years := make([]models.NullFloat, n)
		months := make([]models.NullFloat, n)
		names := make([]string, n)
		for i := 0; i < n; i++ {
			d := dates.Time(i)
			if !d.Valid {
				continue
			}
			years[i] = models.Float(float64(d.Time.Year()))
			months[i] = models.Float(float64(d.Time.Month()))
			names[i] = d.Time.Format("Jan")
		}
		out = out.with(newNumericColumn(schema.Year, years))
		out = out.with(newNumericColumn(schema.Month, months))
		out = out.with(newTextColumn(schema.MonthName, names))
	}

	return out
}
