package insights

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/schema"
	"sales-dashboard/internal/stats"
)

// ErrUnknownQuestion is returned for a question id that is not registered.
var ErrUnknownQuestion = errors.New("unknown question")

type Metric struct {
	Label string           `json:"label"`
	Value models.NullFloat `json:"value"`
}

// Answer is the outcome of one business question over a table.
type Answer struct {
	ID       string                    `json:"id"`
	Question string                    `json:"question"`
	Headline string                    `json:"headline"`
	Decision string                    `json:"decision,omitempty"`
	Level    Level                     `json:"level"`
	Metric   *Metric                   `json:"metric,omitempty"`
	Table    *models.AggregationResult `json:"table,omitempty"`
	// Unavailable marks an answer that could not be computed because a column
	// it needs is missing from the dataset.
	Unavailable bool `json:"unavailable,omitempty"`
}

type Question struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	answer func(t *dataset.Table) (Answer, error)
}

var registry = []Question{
	{ID: "discount-returns", Title: "Do higher discounts lead to more returned orders?", answer: discountVsReturns},
	{ID: "top-category", Title: "Which category generates the highest revenue?", answer: topCategory},
	{ID: "country-returns", Title: "Which country has the highest return rate?", answer: countryReturns},
	{ID: "channel-revenue", Title: "Which sales channel drives scalable growth?", answer: channelRevenue},
	{ID: "shipping-revenue", Title: "Is there a relationship between shipping cost and revenue?", answer: shippingVsRevenue},
	{ID: "customer-type", Title: "Which customer type spends more?", answer: customerType},
	{ID: "seasonality", Title: "Is the business seasonal?", answer: seasonality},
	{ID: "payment-method", Title: "Which payment method generates the highest revenue?", answer: paymentMethod},
	{ID: "category-returns", Title: "Which category has the highest return rate?", answer: categoryReturns},
	{ID: "discount-profit", Title: "How do discounts impact profit?", answer: discountVsProfit},
	{ID: "return-losses", Title: "Where are we losing money?", answer: returnLosses},
	{ID: "price-sensitivity", Title: "Are customers price-sensitive?", answer: priceSensitivity},
	{ID: "logistics", Title: "Is logistics hurting profitability?", answer: logistics},
}

// Questions lists every registered question in display order.
func Questions() []Question {
	return append([]Question(nil), registry...)
}

func Lookup(id string) (Question, bool) {
	for _, q := range registry {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Answer evaluates q over t. A missing or non-numeric column produces an
// unavailable answer instead of an error.
func (q Question) Answer(t *dataset.Table) (Answer, error) {
	a, err := q.answer(t)
	if err != nil {
		if !missing(err) {
			return Answer{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
		a = Answer{Headline: fmt.Sprintf("%s: %v", stats.NotEnoughData, err), Level: LevelInfo, Unavailable: true}
	}
	a.ID = q.ID
	a.Question = q.Title
	observability.QuestionsAnsweredTotal.WithLabelValues(q.ID).Inc()
	return a, nil
}

// AnswerOne answers a single question by id.
func AnswerOne(t *dataset.Table, id string) (Answer, error) {
	q, ok := Lookup(id)
	if !ok {
		return Answer{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, id)
	}
	return q.Answer(t)
}

// AnswerAll answers every question concurrently, preserving registry order.
func AnswerAll(ctx context.Context, t *dataset.Table, workers int) ([]Answer, error) {
	answers := make([]Answer, len(registry))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, q := range registry {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := q.Answer(t)
			if err != nil {
				return err
			}
			answers[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}

func aggregate(t *dataset.Table, groupBy, metric string, f dataset.Func) (*models.AggregationResult, error) {
	return dataset.Aggregate(t, dataset.AggregationSpec{GroupBy: groupBy, Metric: metric, Func: f})
}

func empty() Answer {
	return Answer{Headline: stats.NotEnoughData, Level: LevelInfo}
}

// leader answers "which group is highest" questions over an aggregation.
func leader(t *dataset.Table, groupBy, metric string, f dataset.Func, level Level, headline, decision string, limit int) (Answer, error) {
	res, err := aggregate(t, groupBy, metric, f)
	if err != nil {
		return Answer{}, err
	}
	top, ok := res.Top()
	if !ok || top.KeyNull || !top.Value.Valid {
		return empty(), nil
	}
	return Answer{
		Headline: fmt.Sprintf(headline, top.Key),
		Decision: decision,
		Level:    level,
		Table:    res.Limit(limit).Rounded(),
	}, nil
}

func discountVsReturns(t *dataset.Table) (Answer, error) {
	res, err := aggregate(t, schema.IsReturned, schema.Discount, dataset.Mean)
	if err != nil {
		return Answer{}, err
	}
	var kept, returned models.NullFloat
	for _, row := range res.Rows {
		switch row.Key {
		case "0":
			kept = row.Value
		case "1":
			returned = row.Value
		}
	}
	if !kept.Valid || !returned.Valid {
		return empty(), nil
	}
	diff := returned.Float64 - kept.Float64
	a := Answer{
		Level:  LevelInfo,
		Metric: &Metric{Label: "Discount difference (returned - kept)", Value: models.Float(diff)},
		Table:  res.Rounded(),
	}
	if math.Abs(diff) < 0.01 {
		a.Headline = "Discounts do not significantly impact return rates."
	} else if diff > 0 {
		a.Headline = "Returned orders carry noticeably higher discounts."
		a.Decision = "Review deep-discount campaigns for return-prone products."
		a.Level = LevelWarning
	} else {
		a.Headline = "Returned orders carry lower discounts than kept orders."
	}
	return a, nil
}

func topCategory(t *dataset.Table) (Answer, error) {
	return leader(t, schema.Category, schema.NetRevenue, dataset.Sum, LevelSuccess,
		"%s is the strongest category by revenue.",
		"Increase inventory depth, marketing spend and cross-selling around this category.", 0)
}

func countryReturns(t *dataset.Table) (Answer, error) {
	return leader(t, schema.Country, schema.IsReturned, dataset.Mean, LevelWarning,
		"Highest return rate: %s.",
		"Audit fulfilment and product expectations in this market.", 10)
}

func channelRevenue(t *dataset.Table) (Answer, error) {
	return leader(t, schema.SalesChannel, schema.NetRevenue, dataset.Sum, LevelSuccess,
		"%s is the most scalable channel.",
		"Prioritise this channel for paid campaigns and partnerships.", 0)
}

func paymentMethod(t *dataset.Table) (Answer, error) {
	return leader(t, schema.PaymentMethod, schema.NetRevenue, dataset.Sum, LevelSuccess,
		"Top payment method: %s.", "", 0)
}

func categoryReturns(t *dataset.Table) (Answer, error) {
	return leader(t, schema.Category, schema.IsReturned, dataset.Mean, LevelWarning,
		"Highest return category: %s.",
		"Tighten quality checks and product descriptions for this category.", 0)
}

func correlation(t *dataset.Table, x, y, label string) (stats.Correlation, *Metric, error) {
	xc, err := t.Numeric(x)
	if err != nil {
		return stats.Correlation{}, nil, err
	}
	yc, err := t.Numeric(y)
	if err != nil {
		return stats.Correlation{}, nil, err
	}
	c := stats.Correlate(xc.Floats(), yc.Floats())
	return c, &Metric{Label: label, Value: c.R.Round2()}, nil
}

func shippingVsRevenue(t *dataset.Table) (Answer, error) {
	c, m, err := correlation(t, schema.ShippingCost, schema.NetRevenue, "Correlation")
	if err != nil {
		return Answer{}, err
	}
	a := Answer{Level: LevelInfo, Metric: m}
	switch c.Strength {
	case stats.Strong, stats.Moderate:
		a.Headline = fmt.Sprintf("Shipping cost has a %s relationship with revenue.", c.Strength)
	case stats.Weak:
		a.Headline = "Shipping cost has no meaningful impact on revenue."
	default:
		a.Headline = stats.NotEnoughData
	}
	return a, nil
}

func discountVsProfit(t *dataset.Table) (Answer, error) {
	c, m, err := correlation(t, schema.Discount, schema.Profit, "Correlation")
	if err != nil {
		return Answer{}, err
	}
	a := Answer{Level: LevelInfo, Metric: m}
	switch {
	case !c.R.Valid:
		a.Headline = stats.NotEnoughData
	case c.R.Float64 < 0 && c.Strength != stats.Weak:
		a.Headline = "Deeper discounts clearly reduce profit."
		a.Decision = "Cap discount depth and target promotions."
		a.Level = LevelWarning
	default:
		a.Headline = "Excessive discounting may reduce profitability."
	}
	return a, nil
}

func customerType(t *dataset.Table) (Answer, error) {
	res, err := aggregate(t, schema.CustomerType, schema.NetRevenue, dataset.Sum)
	if err != nil {
		return Answer{}, err
	}
	top, ok := res.Top()
	if !ok || top.KeyNull || !top.Value.Valid {
		return empty(), nil
	}
	var total float64
	for _, row := range res.Rows {
		if row.Value.Valid {
			total += row.Value.Float64
		}
	}
	share := stats.SafeRatio(top.Value, models.Float(total))
	return Answer{
		Headline: fmt.Sprintf("%s customers generate %s of revenue.", top.Key, percent(pct(share))),
		Level:    LevelInfo,
		Metric:   &Metric{Label: "Revenue share %", Value: pct(share)},
		Table:    res.Rounded(),
	}, nil
}

func seasonality(t *dataset.Table) (Answer, error) {
	res, err := aggregate(t, schema.MonthName, schema.NetRevenue, dataset.Sum)
	if err != nil {
		return Answer{}, err
	}
	var best, worst *models.GroupValue
	for i := range res.Rows {
		row := &res.Rows[i]
		if row.KeyNull || !row.Value.Valid {
			continue
		}
		if best == nil || row.Value.Float64 > best.Value.Float64 {
			best = row
		}
		if worst == nil || row.Value.Float64 < worst.Value.Float64 {
			worst = row
		}
	}
	if best == nil {
		return empty(), nil
	}
	return Answer{
		Headline: fmt.Sprintf("Best month: %s. Worst month: %s.", best.Key, worst.Key),
		Decision: "Shift promotions and inventory planning based on seasonality.",
		Level:    LevelInfo,
		Table:    res.Rounded(),
	}, nil
}

func returnLosses(t *dataset.Table) (Answer, error) {
	net, err := t.Numeric(schema.NetRevenue)
	if err != nil {
		return Answer{}, err
	}
	returned, err := t.Numeric(schema.IsReturned)
	if err != nil {
		return Answer{}, err
	}
	var lost, total float64
	seen := false
	for i := 0; i < t.Len(); i++ {
		v := net.Num(i)
		if !v.Valid {
			continue
		}
		seen = true
		total += v.Float64
		if r := returned.Num(i); r.Valid && r.Float64 == 1 {
			lost += v.Float64
		}
	}
	if !seen {
		return empty(), nil
	}
	share := pct(stats.SafeRatio(models.Float(lost), models.Float(total)))
	return Answer{
		Headline: fmt.Sprintf("Returned orders cause approximately %s revenue loss.", percent(share)),
		Decision: "Improve product descriptions, quality checks and return policies.",
		Level:    LevelError,
		Metric:   &Metric{Label: "Revenue lost to returns %", Value: share},
	}, nil
}

func priceSensitivity(t *dataset.Table) (Answer, error) {
	c, m, err := correlation(t, schema.Discount, schema.Quantity, "Discount vs quantity correlation")
	if err != nil {
		return Answer{}, err
	}
	a := Answer{Metric: m}
	switch {
	case !c.R.Valid:
		a.Headline = stats.NotEnoughData
		a.Level = LevelInfo
	case c.R.Float64 > priceSensitivityCorr:
		a.Headline = "Customers respond strongly to discounts."
		a.Decision = "Tactical discounting can boost volume."
		a.Level = LevelSuccess
	default:
		a.Headline = "Customers are not highly price-sensitive."
		a.Decision = "Focus on value, quality and brand positioning."
		a.Level = LevelInfo
	}
	return a, nil
}

func logistics(t *dataset.Table) (Answer, error) {
	c, err := t.Numeric(schema.ShippingRatio)
	if err != nil {
		return Answer{}, err
	}
	ratio := stats.Mean(c.Floats())
	a := Answer{Metric: &Metric{Label: "Average shipping ratio", Value: ratio}}
	switch {
	case !ratio.Valid:
		a.Headline = stats.NotEnoughData
		a.Level = LevelInfo
	case ratio.Float64 > shippingRatioAlert:
		a.Headline = "Logistics costs are negatively impacting margins."
		a.Decision = "Negotiate carriers, optimise routes or introduce minimum order thresholds."
		a.Level = LevelError
	default:
		a.Headline = "Shipping costs are under control."
		a.Level = LevelSuccess
	}
	return a, nil
}
