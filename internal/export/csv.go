// Package export renders period reports as downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CSV writes a report as a single CSV file made of three blocks separated by
// an empty record: summary, daily breakdown and top dishes.
type CSV struct{}

func (CSV) ContentType() string   { return "text/csv; charset=utf-8" }
func (CSV) FileExtension() string { return "csv" }

// Export writes r to w.
func (CSV) Export(w io.Writer, r *service.PeriodReport) error {
	cw := csv.NewWriter(w)

	records := [][]string{
		{"section", "key", "value"},
		{"summary", "start_date", r.Period.Start.Format(dateLayout)},
		{"summary", "end_date", r.Period.LastDay().Format(dateLayout)},
		{"summary", "currency", enum.Currency},
		{"summary", "payment_count", strconv.FormatInt(r.Totals.PaymentCount, 10)},
		{"summary", "payments", amount(r.Totals.Payments)},
		{"summary", "expense_count", strconv.FormatInt(r.Totals.ExpenseCount, 10)},
		{"summary", "expenses", amount(r.Totals.Expenses)},
		{"summary", "net", amount(r.Totals.Net)},
		{"summary", "cash_balance", amount(r.Balance)},
		{"summary", "generated_at", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{},
		{"date", "payment_count", "payments", "expense_count", "expenses", "net"},
	}
	for _, d := range r.Daily {
		records = append(records, []string{
			d.Day.Format(dateLayout),
			strconv.FormatInt(d.PaymentCount, 10),
			amount(d.Payments),
			strconv.FormatInt(d.ExpenseCount, 10),
			amount(d.Expenses),
			amount(d.Net),
		})
	}

	records = append(records, []string{}, []string{"rank", "dish", "quantity", "revenue"})
	for i, d := range r.TopDishes {
		records = append(records, []string{
			strconv.Itoa(i + 1),
			d.DishName,
			strconv.FormatInt(d.Quantity, 10),
			amount(d.Revenue),
		})
	}

	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(money.Scale)
}
