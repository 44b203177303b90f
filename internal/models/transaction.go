package models

// Transaction is one order line with its derived metrics. Numeric fields are
// nullable because the source export has gaps.
type Transaction struct {
	InvoiceNo         string    `json:"invoice_no,omitempty"`
	StockCode         string    `json:"stock_code,omitempty"`
	Description       string    `json:"description"`
	Quantity          NullFloat `json:"quantity"`
	InvoiceDate       NullTime  `json:"invoice_date"`
	UnitPrice         NullFloat `json:"unit_price"`
	CustomerID        string    `json:"customer_id"`
	Country           string    `json:"country"`
	Discount          NullFloat `json:"discount"`
	PaymentMethod     string    `json:"payment_method"`
	ShippingCost      NullFloat `json:"shipping_cost"`
	Category          string    `json:"category"`
	SalesChannel      string    `json:"sales_channel"`
	ReturnStatus      string    `json:"return_status"`
	ShipmentProvider  string    `json:"shipment_provider"`
	WarehouseLocation string    `json:"warehouse_location"`
	OrderPriority     string    `json:"order_priority"`
	CustomerType      string    `json:"customer_type"`

	GrossSales      NullFloat `json:"gross_sales"`
	NetRevenue      NullFloat `json:"net_revenue"`
	TotalOrderValue NullFloat `json:"total_order_value"`
	ShippingRatio   NullFloat `json:"shipping_ratio"`
	IsReturned      NullFloat `json:"is_returned"`
	Profit          NullFloat `json:"profit"`
	Year            NullFloat `json:"year"`
	Month           NullFloat `json:"month"`
	MonthName       string    `json:"month_name"`
}

// GroupValue is one row of an aggregation result.
type GroupValue struct {
	Key     string    `json:"key"`
	KeyNull bool      `json:"key_null,omitempty"`
	Value   NullFloat `json:"value"`
	Count   int       `json:"count"`
}

// AggregationResult is the ordered output of grouping a table by one
// dimension and reducing one metric.
type AggregationResult struct {
	GroupBy     string       `json:"group_by"`
	Metric      string       `json:"metric"`
	Func        string       `json:"func"`
	TimeOrdered bool         `json:"time_ordered"`
	Rows        []GroupValue `json:"rows"`
}

// Top returns the first row, or false when the result is empty.
func (r *AggregationResult) Top() (GroupValue, bool) {
	if r == nil || len(r.Rows) == 0 {
		return GroupValue{}, false
	}
	return r.Rows[0], true
}

// Rounded returns a copy with every value rounded to two decimals.
func (r *AggregationResult) Rounded() *AggregationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Rows = make([]GroupValue, len(r.Rows))
	for i, row := range r.Rows {
		row.Value = row.Value.Round2()
		out.Rows[i] = row
	}
	return &out
}

// Limit returns a copy holding at most n rows. n <= 0 keeps every row.
func (r *AggregationResult) Limit(n int) *AggregationResult {
	if r == nil || n <= 0 || len(r.Rows) <= n {
		return r
	}
	out := *r
	out.Rows = append([]GroupValue(nil), r.Rows[:n]...)
	return &out
}

// ValueCount is the frequency of one categorical value.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type FilterOptions struct {
	Countries  []string `json:"countries"`
	Categories []string `json:"categories"`
	MinDate    NullTime `json:"min_date"`
	MaxDate    NullTime `json:"max_date"`
}

type KPISummary struct {
	GrossSales      NullFloat `json:"gross_sales"`
	NetRevenue      NullFloat `json:"net_revenue"`
	Orders          int       `json:"orders"`
	ReturnRatePct   NullFloat `json:"return_rate_pct"`
	AvgOrderValue   NullFloat `json:"avg_order_value"`
	TotalProfit     NullFloat `json:"total_profit"`
	AvgDiscount     NullFloat `json:"avg_discount"`
	AvgShippingRate NullFloat `json:"avg_shipping_ratio"`
}

// Rounded returns the KPIs rounded for display.
func (k KPISummary) Rounded() KPISummary {
	k.GrossSales = k.GrossSales.Round2()
	k.NetRevenue = k.NetRevenue.Round2()
	k.ReturnRatePct = k.ReturnRatePct.Round2()
	k.AvgOrderValue = k.AvgOrderValue.Round2()
	k.TotalProfit = k.TotalProfit.Round2()
	k.AvgDiscount = k.AvgDiscount.Round2()
	k.AvgShippingRate = k.AvgShippingRate.Round2()
	return k
}

type DatasetSummary struct {
	Rows          int `json:"rows"`
	Columns       int `json:"columns"`
	MissingValues int `json:"missing_values"`
}
