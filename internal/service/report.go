package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/money"
	"github.com/shopspring/decimal"
)

const (
	dateLayout        = "2006-01-02"
	defaultReportDays = 30
	topDishesLimit    = 10
)

var ErrInvalidDateRange = newError(KindValidation, "start_date must be on or before end_date (YYYY-MM-DD)")

// ReportStore defines the read-only queries behind dashboards and reports.
// Satisfied by *database.Queries.
type ReportStore interface {
	SumPayments(ctx context.Context, arg database.SumPaymentsParams) (database.SumPaymentsRow, error)
	SumExpenses(ctx context.Context, arg database.SumExpensesParams) (database.SumExpensesRow, error)
	GetDailyTotals(ctx context.Context, arg database.GetDailyTotalsParams) ([]database.GetDailyTotalsRow, error)
	GetTopDishes(ctx context.Context, arg database.GetTopDishesParams) ([]database.GetTopDishesRow, error)
	GetCashRegister(ctx context.Context) (database.CashRegister, error)
	CountOrdersByStatus(ctx context.Context) ([]database.CountOrdersByStatusRow, error)
	CountDiningTablesByState(ctx context.Context) ([]database.CountDiningTablesByStateRow, error)
}

// Period is a half-open time window [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// LastDay is the inclusive last calendar day of the period.
func (p Period) LastDay() time.Time {
	return p.End.AddDate(0, 0, -1)
}

// ParsePeriod reads inclusive YYYY-MM-DD boundaries in loc. Missing bounds
// default to the last 30 days up to and including today.
func ParsePeriod(start, end string, loc *time.Location, now time.Time) (Period, error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	p := Period{
		Start: today.AddDate(0, 0, -defaultReportDays),
		End:   today.AddDate(0, 0, 1),
	}
	if start != "" {
		t, err := time.ParseInLocation(dateLayout, start, loc)
		if err != nil {
			return Period{}, ErrInvalidDateRange
		}
		p.Start = t
	}
	if end != "" {
		t, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return Period{}, ErrInvalidDateRange
		}
		p.End = t.AddDate(0, 0, 1)
	}
	if !p.Start.Before(p.End) {
		return Period{}, ErrInvalidDateRange
	}
	return p, nil
}

// DayPeriod is the calendar day containing t in loc.
func DayPeriod(t time.Time, loc *time.Location) Period {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return Period{Start: start, End: start.AddDate(0, 0, 1)}
}

// Totals aggregates payments and expenses over a window.
type Totals struct {
	PaymentCount int64
	Payments     decimal.Decimal
	ExpenseCount int64
	Expenses     decimal.Decimal
	Net          decimal.Decimal
}

// DailyTotals is Totals for one calendar day.
type DailyTotals struct {
	Day time.Time
	Totals
}

// DishSales is one dish's paid quantity and revenue.
type DishSales struct {
	DishID   uuid.UUID
	DishName string
	Quantity int64
	Revenue  decimal.Decimal
}

// Dashboard is the accountant's landing view.
type Dashboard struct {
	Today           Totals
	Balance         decimal.Decimal
	CashInitialized bool
	OrdersByStatus  map[database.OrderStatus]int64
	TablesByState   map[database.TableState]int64
}

// PeriodReport is the financial report for a date range.
type PeriodReport struct {
	Period      Period
	Totals      Totals
	Daily       []DailyTotals
	TopDishes   []DishSales
	Balance     decimal.Decimal
	GeneratedAt time.Time
}

// ReportExporter renders a PeriodReport for download.
type ReportExporter interface {
	ContentType() string
	FileExtension() string
	Export(w io.Writer, r *PeriodReport) error
}

// ReportService recomputes every aggregate from payments and expenses in the
// requested window. Nothing is materialized.
type ReportService struct {
	store ReportStore
	loc   *time.Location
}

// NewReportService creates a new ReportService. Day boundaries use loc.
func NewReportService(store ReportStore, loc *time.Location) *ReportService {
	return &ReportService{store: store, loc: loc}
}

func (s *ReportService) Location() *time.Location { return s.loc }

// Dashboard returns today's totals, the cash balance and live counters.
func (s *ReportService) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	today, err := s.totals(ctx, DayPeriod(now, s.loc))
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Today:          today,
		Balance:        decimal.Zero,
		OrdersByStatus: map[database.OrderStatus]int64{},
		TablesByState:  map[database.TableState]int64{},
	}

	cash, err := s.store.GetCashRegister(ctx)
	switch {
	case err == nil:
		d.Balance = money.FromNumeric(cash.Balance)
		d.CashInitialized = true
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return nil, fmt.Errorf("get cash register: %w", err)
	}

	orders, err := s.store.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	for _, o := range orders {
		d.OrdersByStatus[o.Status] = o.Count
	}

	tables, err := s.store.CountDiningTablesByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tables: %w", err)
	}
	for _, t := range tables {
		d.TablesByState[t.State] = t.Count
	}
	return d, nil
}

// Report builds the period report: totals, a per-day breakdown and the best
// selling dishes among paid orders.
func (s *ReportService) Report(ctx context.Context, p Period, now time.Time) (*PeriodReport, error) {
	if !p.Start.Before(p.End) {
		return nil, ErrInvalidDateRange
	}

	totals, err := s.totals(ctx, p)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.GetDailyTotals(ctx, database.GetDailyTotalsParams{
		StartAt:  p.Start,
		EndAt:    p.End,
		TimeZone: s.loc.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("get daily totals: %w", err)
	}
	daily := make([]DailyTotals, 0, len(rows))
	for _, row := range rows {
		payments := money.FromNumeric(row.PaymentTotal)
		expenses := money.FromNumeric(row.ExpenseTotal)
		daily = append(daily, DailyTotals{
			Day: time.Date(row.Day.Time.Year(), row.Day.Time.Month(), row.Day.Time.Day(), 0, 0, 0, 0, s.loc),
			Totals: Totals{
				PaymentCount: row.PaymentCount,
				Payments:     payments,
				ExpenseCount: row.ExpenseCount,
				Expenses:     expenses,
				Net:          payments.Sub(expenses),
			},
		})
	}

	dishes, err := s.store.GetTopDishes(ctx, database.GetTopDishesParams{
		StartAt: p.Start,
		EndAt:   p.End,
		Limit:   topDishesLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("get top dishes: %w", err)
	}
	top := make([]DishSales, 0, len(dishes))
	for _, d := range dishes {
		top = append(top, DishSales{
			DishID:   d.DishID,
			DishName: d.DishName,
			Quantity: d.QuantitySold,
			Revenue:  money.FromNumeric(d.Revenue),
		})
	}

	balance := decimal.Zero
	cash, err := s.store.GetCashRegister(ctx)
	if err == nil {
		balance = money.FromNumeric(cash.Balance)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get cash register: %w", err)
	}

	return &PeriodReport{
		Period:      p,
		Totals:      totals,
		Daily:       daily,
		TopDishes:   top,
		Balance:     balance,
		GeneratedAt: now.In(s.loc),
	}, nil
}

func (s *ReportService) totals(ctx context.Context, p Period) (Totals, error) {
	pay, err := s.store.SumPayments(ctx, database.SumPaymentsParams{StartAt: p.Start, EndAt: p.End})
	if err != nil {
		return Totals{}, fmt.Errorf("sum payments: %w", err)
	}
	exp, err := s.store.SumExpenses(ctx, database.SumExpensesParams{StartAt: p.Start, EndAt: p.End})
	if err != nil {
		return Totals{}, fmt.Errorf("sum expenses: %w", err)
	}
	payments := money.FromNumeric(pay.Total)
	expenses := money.FromNumeric(exp.Total)
	return Totals{
		PaymentCount: pay.Count,
		Payments:     payments,
		ExpenseCount: exp.Count,
		Expenses:     expenses,
		Net:          payments.Sub(expenses),
	}, nil
}
