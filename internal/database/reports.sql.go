package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getDailyTotals = `-- name: GetDailyTotals :many
WITH p AS (
    SELECT (paid_at AT TIME ZONE $3::text)::date AS day,
           COUNT(*) AS cnt,
           SUM(amount) AS total
    FROM payments
    WHERE paid_at >= $1 AND paid_at < $2
    GROUP BY 1
), e AS (
    SELECT (recorded_at AT TIME ZONE $3::text)::date AS day,
           COUNT(*) AS cnt,
           SUM(amount) AS total
    FROM expenses
    WHERE recorded_at >= $1 AND recorded_at < $2
    GROUP BY 1
)
SELECT COALESCE(p.day, e.day)::date AS day,
       COALESCE(p.cnt, 0)::bigint AS payment_count,
       COALESCE(p.total, 0)::numeric AS payment_total,
       COALESCE(e.cnt, 0)::bigint AS expense_count,
       COALESCE(e.total, 0)::numeric AS expense_total
FROM p
FULL OUTER JOIN e ON e.day = p.day
ORDER BY 1
`

type GetDailyTotalsParams struct {
	StartAt  time.Time `json:"start_at"`
	EndAt    time.Time `json:"end_at"`
	TimeZone string    `json:"time_zone"`
}

type GetDailyTotalsRow struct {
	Day          pgtype.Date    `json:"day"`
	PaymentCount int64          `json:"payment_count"`
	PaymentTotal pgtype.Numeric `json:"payment_total"`
	ExpenseCount int64          `json:"expense_count"`
	ExpenseTotal pgtype.Numeric `json:"expense_total"`
}

func (q *Queries) GetDailyTotals(ctx context.Context, arg GetDailyTotalsParams) ([]GetDailyTotalsRow, error) {
	rows, err := q.db.Query(ctx, getDailyTotals, arg.StartAt, arg.EndAt, arg.TimeZone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetDailyTotalsRow{}
	for rows.Next() {
		var i GetDailyTotalsRow
		if err := rows.Scan(
			&i.Day,
			&i.PaymentCount,
			&i.PaymentTotal,
			&i.ExpenseCount,
			&i.ExpenseTotal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTopDishes = `-- name: GetTopDishes :many
SELECT oi.dish_id, oi.dish_name,
       SUM(oi.quantity)::bigint AS quantity_sold,
       SUM(oi.quantity * oi.unit_price)::numeric AS revenue
FROM order_items oi
JOIN payments p ON p.order_id = oi.order_id
WHERE p.paid_at >= $1 AND p.paid_at < $2
GROUP BY oi.dish_id, oi.dish_name
ORDER BY quantity_sold DESC, revenue DESC
LIMIT $3
`

type GetTopDishesParams struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Limit   int32     `json:"limit"`
}

type GetTopDishesRow struct {
	DishID       uuid.UUID      `json:"dish_id"`
	DishName     string         `json:"dish_name"`
	QuantitySold int64          `json:"quantity_sold"`
	Revenue      pgtype.Numeric `json:"revenue"`
}

func (q *Queries) GetTopDishes(ctx context.Context, arg GetTopDishesParams) ([]GetTopDishesRow, error) {
	rows, err := q.db.Query(ctx, getTopDishes, arg.StartAt, arg.EndAt, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []GetTopDishesRow{}
	for rows.Next() {
		var i GetTopDishesRow
		if err := rows.Scan(
			&i.DishID,
			&i.DishName,
			&i.QuantitySold,
			&i.Revenue,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
