package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/insights"
	"sales-dashboard/internal/models"
)

func num(v models.NullFloat) string {
	if !v.Valid {
		return "-"
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(2)
}

func newOverviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show headline KPIs and the executive summary",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			ov, err := s.analytics.Overview(s.ctx, s.filter)
			if err != nil {
				return err
			}
			k := ov.KPIs
			table := s.table([]string{"KPI", "Value"})
			table.AppendBulk([][]string{
				{"Gross Sales", num(k.GrossSales)},
				{"Net Revenue", num(k.NetRevenue)},
				{"Orders", strconv.Itoa(k.Orders)},
				{"Return Rate (%)", num(k.ReturnRatePct)},
				{"Avg Order Value", num(k.AvgOrderValue)},
				{"Total Profit", num(k.TotalProfit)},
			})
			table.Render()

			rep, err := s.analytics.Insights(s.ctx, s.filter)
			if err != nil {
				return err
			}
			fmt.Fprintln(s.out, rep.Text)
			for _, f := range rep.Flags {
				fmt.Fprintf(s.out, "[%s] %s\n", f.Level, f.Message)
			}
			return nil
		}),
	}
}

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Group by a column and reduce a metric",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			by, _ := cmd.Flags().GetString("by")
			metric, _ := cmd.Flags().GetString("metric")
			rawFn, _ := cmd.Flags().GetString("func")
			limit, _ := cmd.Flags().GetInt("limit")

			fn, err := dataset.ParseFunc(rawFn)
			if err != nil {
				return err
			}
			cmp, err := s.analytics.Aggregate(s.ctx, s.filter, dataset.AggregationSpec{GroupBy: by, Metric: metric, Func: fn})
			if err != nil {
				return err
			}
			res := cmp.Result.Limit(limit)
			table := s.table([]string{res.GroupBy, res.Func + "(" + res.Metric + ")", "Rows"})
			for _, row := range res.Rows {
				key := row.Key
				if row.KeyNull {
					key = "(missing)"
				}
				table.Append([]string{key, num(row.Value), strconv.Itoa(row.Count)})
			}
			table.Render()
			fmt.Fprintln(s.out, cmp.Headline)
			return nil
		}),
	}
	cmd.Flags().String("by", "category", "column to group by (year_month for a monthly trend)")
	cmd.Flags().String("metric", "net_revenue", "numeric column to reduce")
	cmd.Flags().String("func", "sum", "sum, mean or median")
	cmd.Flags().Int("limit", 0, "maximum groups to print (0 prints all)")
	return cmd
}

func newDescribeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarise one column",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			column, _ := cmd.Flags().GetString("column")

			p, err := s.analytics.NumericProfile(s.ctx, s.filter, column)
			var typeErr *dataset.ColumnTypeError
			if errors.As(err, &typeErr) {
				return printCategorical(s, column, 10)
			}
			if err != nil {
				return err
			}
			sum := p.Summary
			table := s.table([]string{"Statistic", p.Column})
			table.AppendBulk([][]string{
				{"count", strconv.Itoa(sum.Count)},
				{"nulls", strconv.Itoa(sum.Nulls)},
				{"mean", num(sum.Mean)},
				{"median", num(sum.Median)},
				{"std", num(sum.StdDev)},
				{"min", num(sum.Min)},
				{"max", num(sum.Max)},
				{"skewness", num(p.Skewness)},
			})
			table.Render()
			fmt.Fprintf(s.out, "Distribution: %s\n", p.Shape)
			return nil
		}),
	}
	cmd.Flags().String("column", "net_revenue", "column to describe")
	return cmd
}

func printCategorical(s *session, column string, limit int) error {
	p, err := s.analytics.CategoricalProfile(s.ctx, s.filter, column, limit)
	if err != nil {
		return err
	}
	table := s.table([]string{p.Column, "Count"})
	for _, c := range p.Counts {
		table.Append([]string{c.Value, strconv.Itoa(c.Count)})
	}
	table.Render()
	d := p.Dominance
	fmt.Fprintf(s.out, "Top value %q holds %s%% of %d rows across %d levels (%s)\n",
		d.Top, num(p.TopPct), d.Total, d.Levels, d.Signal)
	return nil
}

func newCorrelateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Pearson correlation between two numeric columns",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			x, _ := cmd.Flags().GetString("x")
			y, _ := cmd.Flags().GetString("y")

			rel, err := s.analytics.NumericRelation(s.ctx, s.filter, x, y)
			if err != nil {
				return err
			}
			table := s.table([]string{"X", "Y", "Pairs", "r", "Strength", "Mean Y"})
			table.Append([]string{
				rel.X, rel.Y,
				strconv.Itoa(rel.Records),
				num(rel.Correlation.R),
				string(rel.Correlation.Strength),
				num(rel.MeanY),
			})
			table.Render()
			return nil
		}),
	}
	cmd.Flags().String("x", "discount", "first numeric column")
	cmd.Flags().String("y", "net_revenue", "second numeric column")
	return cmd
}

func newDominanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dominance",
		Short: "Value counts and dominance of a categorical column",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			column, _ := cmd.Flags().GetString("column")
			limit, _ := cmd.Flags().GetInt("limit")
			return printCategorical(s, column, limit)
		}),
	}
	cmd.Flags().String("column", "category", "categorical column")
	cmd.Flags().Int("limit", 10, "maximum values to print (0 prints all)")
	return cmd
}

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Answer the business questions",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			id, _ := cmd.Flags().GetString("id")

			var answers []insights.Answer
			if id != "" {
				ans, err := s.analytics.Question(s.ctx, s.filter, id)
				if err != nil {
					return err
				}
				answers = append(answers, *ans)
			} else {
				var err error
				if answers, err = s.analytics.Questions(s.ctx, s.filter); err != nil {
					return err
				}
			}

			table := s.table([]string{"ID", "Answer", "Decision"})
			for _, a := range answers {
				table.Append([]string{a.ID, a.Headline, a.Decision})
			}
			table.Render()
			return nil
		}),
	}
	cmd.Flags().String("id", "", "answer a single question by id")
	return cmd
}

func newQualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Data-quality report over the raw export",
		RunE: runWith(func(s *session, cmd *cobra.Command) error {
			rep, err := s.analytics.Quality(s.ctx)
			if err != nil {
				return err
			}
			table := s.table([]string{"Column", "Kind", "Missing", "Missing (%)", "Outliers"})
			for _, c := range rep.PerColumn {
				table.Append([]string{c.Name, c.Kind, strconv.Itoa(c.Missing), num(c.MissingPct), strconv.Itoa(c.Outliers)})
			}
			table.Render()
			fmt.Fprintf(s.out, "Records: %d  Columns: %d  Missing cells: %d (%s%%)  Duplicate rows: %d (%s%%)\n",
				rep.Records, rep.Columns, rep.MissingCells, num(rep.MissingPct), rep.DuplicateRows, num(rep.DuplicatePct))
			fmt.Fprintf(s.out, "Verdict: %s\n", rep.Verdict)
			return nil
		}),
	}
}
