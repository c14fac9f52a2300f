package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (motif, amount, recorded_by)
VALUES ($1, $2, $3)
RETURNING id, motif, amount, recorded_by, recorded_at
`

type CreateExpenseParams struct {
	Motif      string         `json:"motif"`
	Amount     pgtype.Numeric `json:"amount"`
	RecordedBy uuid.UUID      `json:"recorded_by"`
}

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRow(ctx, createExpense, arg.Motif, arg.Amount, arg.RecordedBy)
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.Motif,
		&i.Amount,
		&i.RecordedBy,
		&i.RecordedAt,
	)
	return i, err
}

const listExpenses = `-- name: ListExpenses :many
SELECT e.id, e.motif, e.amount, e.recorded_by, e.recorded_at, u.login AS recorded_by_login
FROM expenses e
JOIN users u ON u.id = e.recorded_by
WHERE e.recorded_at >= $1 AND e.recorded_at < $2
ORDER BY e.recorded_at DESC
LIMIT $3 OFFSET $4
`

type ListExpensesParams struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Limit   int32     `json:"limit"`
	Offset  int32     `json:"offset"`
}

type ListExpensesRow struct {
	ID              uuid.UUID      `json:"id"`
	Motif           string         `json:"motif"`
	Amount          pgtype.Numeric `json:"amount"`
	RecordedBy      uuid.UUID      `json:"recorded_by"`
	RecordedAt      time.Time      `json:"recorded_at"`
	RecordedByLogin string         `json:"recorded_by_login"`
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]ListExpensesRow, error) {
	rows, err := q.db.Query(ctx, listExpenses,
		arg.StartAt,
		arg.EndAt,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListExpensesRow{}
	for rows.Next() {
		var i ListExpensesRow
		if err := rows.Scan(
			&i.ID,
			&i.Motif,
			&i.Amount,
			&i.RecordedBy,
			&i.RecordedAt,
			&i.RecordedByLogin,
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

const sumExpenses = `-- name: SumExpenses :one
SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0)::numeric AS total
FROM expenses
WHERE recorded_at >= $1 AND recorded_at < $2
`

type SumExpensesParams struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type SumExpensesRow struct {
	Count int64          `json:"count"`
	Total pgtype.Numeric `json:"total"`
}

func (q *Queries) SumExpenses(ctx context.Context, arg SumExpensesParams) (SumExpensesRow, error) {
	row := q.db.QueryRow(ctx, sumExpenses, arg.StartAt, arg.EndAt)
	var i SumExpensesRow
	err := row.Scan(&i.Count, &i.Total)
	return i, err
}
