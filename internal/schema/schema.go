// Package schema is the registry of known sales-export columns. Column names
// in the exports are inconsistent ("invoicedate", "InvoiceDate",
// "Gross_Sales"), so every name is normalised once at the load boundary and
// user-supplied names go through the same function.
package schema

import (
	"strings"
	"unicode"
)

type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindDatetime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDatetime:
		return "datetime"
	default:
		return "text"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

type Role string

const (
	RoleIdentifier  Role = "identifier"
	RoleCategorical Role = "categorical"
	RoleMeasure     Role = "measure"
	RoleTemporal    Role = "temporal"
	RoleFreeText    Role = "free_text"
	RoleDerived     Role = "derived"
)

// Column describes one known column.
type Column struct {
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Role  Role   `json:"role"`
	Label string `json:"label"`
}

const (
	InvoiceNo         = "invoice_no"
	StockCode         = "stock_code"
	Description       = "description"
	Quantity          = "quantity"
	InvoiceDate       = "invoice_date"
	UnitPrice         = "unit_price"
	CustomerID        = "customer_id"
	Country           = "country"
	Discount          = "discount"
	PaymentMethod     = "payment_method"
	ShippingCost      = "shipping_cost"
	Category          = "category"
	SalesChannel      = "sales_channel"
	ReturnStatus      = "return_status"
	ShipmentProvider  = "shipment_provider"
	WarehouseLocation = "warehouse_location"
	OrderPriority     = "order_priority"
	CustomerType      = "customer_type"

	GrossSales      = "gross_sales"
	NetRevenue      = "net_revenue"
	TotalOrderValue = "total_order_value"
	ShippingRatio   = "shipping_ratio"
	IsReturned      = "is_returned"
	Profit          = "profit"
	Year            = "year"
	Month           = "month"
	MonthName       = "month_name"

	// YearMonth is a virtual dimension bucketing invoice_date by calendar month.
	YearMonth = "year_month"
)

var registry = []Column{
	{InvoiceNo, KindText, RoleIdentifier, "Invoice No"},
	{StockCode, KindText, RoleIdentifier, "Stock Code"},
	{Description, KindText, RoleFreeText, "Description"},
	{Quantity, KindNumeric, RoleMeasure, "Quantity"},
	{InvoiceDate, KindDatetime, RoleTemporal, "Invoice Date"},
	{UnitPrice, KindNumeric, RoleMeasure, "Unit Price"},
	{CustomerID, KindText, RoleIdentifier, "Customer ID"},
	{Country, KindText, RoleCategorical, "Country"},
	{Discount, KindNumeric, RoleMeasure, "Discount"},
	{PaymentMethod, KindText, RoleCategorical, "Payment Method"},
	{ShippingCost, KindNumeric, RoleMeasure, "Shipping Cost"},
	{Category, KindText, RoleCategorical, "Category"},
	{SalesChannel, KindText, RoleCategorical, "Sales Channel"},
	{ReturnStatus, KindText, RoleCategorical, "Return Status"},
	{ShipmentProvider, KindText, RoleCategorical, "Shipment Provider"},
	{WarehouseLocation, KindText, RoleCategorical, "Warehouse Location"},
	{OrderPriority, KindText, RoleCategorical, "Order Priority"},
	{CustomerType, KindText, RoleCategorical, "Customer Type"},
	{GrossSales, KindNumeric, RoleDerived, "Gross Sales"},
	{NetRevenue, KindNumeric, RoleDerived, "Net Revenue"},
	{TotalOrderValue, KindNumeric, RoleDerived, "Total Order Value"},
	{ShippingRatio, KindNumeric, RoleDerived, "Shipping Ratio"},
	{IsReturned, KindNumeric, RoleDerived, "Is Returned"},
	{Profit, KindNumeric, RoleDerived, "Profit"},
	{Year, KindNumeric, RoleDerived, "Year"},
	{Month, KindNumeric, RoleDerived, "Month"},
	{MonthName, KindText, RoleDerived, "Month Name"},
}

var (
	byName  = make(map[string]Column, len(registry))
	byAlias = make(map[string]string, len(registry))
)

func init() {
	for _, c := range registry {
		byName[c.Name] = c
		byAlias[squash(c.Name)] = c.Name
	}
	byAlias[squash(YearMonth)] = YearMonth
}

// Normalize maps a raw or user-supplied column name onto its canonical
// snake_case name. Unknown names are lower-cased with separators folded to
// underscores.
func Normalize(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	if canonical, ok := byAlias[squash(name)]; ok {
		return canonical
	}
	return snake(name)
}

// Lookup returns the registry entry for a canonical name.
func Lookup(name string) (Column, bool) {
	c, ok := byName[name]
	return c, ok
}

// Known returns every registered column in registry order.
func Known() []Column {
	return append([]Column(nil), registry...)
}

// IsTimeOrdered reports whether grouping by the column must be ordered
// chronologically instead of by value.
func IsTimeOrdered(name string) bool {
	switch name {
	case YearMonth, Year, Month, MonthName:
		return true
	}
	return false
}

func squash(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func snake(s string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
