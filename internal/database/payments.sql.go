package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `-- name: CreatePayment :one
INSERT INTO payments (order_id, amount)
VALUES ($1, $2)
RETURNING id, order_id, amount, paid_at
`

type CreatePaymentParams struct {
	OrderID uuid.UUID      `json:"order_id"`
	Amount  pgtype.Numeric `json:"amount"`
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment, arg.OrderID, arg.Amount)
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Amount,
		&i.PaidAt,
	)
	return i, err
}

const getPaymentByOrder = `-- name: GetPaymentByOrder :one
SELECT id, order_id, amount, paid_at FROM payments
WHERE order_id = $1
`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	row := q.db.QueryRow(ctx, getPaymentByOrder, orderID)
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Amount,
		&i.PaidAt,
	)
	return i, err
}

const listPayments = `-- name: ListPayments :many
SELECT p.id, p.order_id, p.amount, p.paid_at, o.order_number, t.table_number
FROM payments p
JOIN orders o ON o.id = p.order_id
JOIN dining_tables t ON t.id = o.table_id
WHERE p.paid_at >= $1 AND p.paid_at < $2
ORDER BY p.paid_at DESC
LIMIT $3 OFFSET $4
`

type ListPaymentsParams struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
	Limit   int32     `json:"limit"`
	Offset  int32     `json:"offset"`
}

type ListPaymentsRow struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     uuid.UUID      `json:"order_id"`
	Amount      pgtype.Numeric `json:"amount"`
	PaidAt      time.Time      `json:"paid_at"`
	OrderNumber int64          `json:"order_number"`
	TableNumber string         `json:"table_number"`
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]ListPaymentsRow, error) {
	rows, err := q.db.Query(ctx, listPayments,
		arg.StartAt,
		arg.EndAt,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListPaymentsRow{}
	for rows.Next() {
		var i ListPaymentsRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.Amount,
			&i.PaidAt,
			&i.OrderNumber,
			&i.TableNumber,
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

const sumPayments = `-- name: SumPayments :one
SELECT COUNT(*) AS count, COALESCE(SUM(amount), 0)::numeric AS total
FROM payments
WHERE paid_at >= $1 AND paid_at < $2
`

type SumPaymentsParams struct {
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

type SumPaymentsRow struct {
	Count int64          `json:"count"`
	Total pgtype.Numeric `json:"total"`
}

func (q *Queries) SumPayments(ctx context.Context, arg SumPaymentsParams) (SumPaymentsRow, error) {
	row := q.db.QueryRow(ctx, sumPayments, arg.StartAt, arg.EndAt)
	var i SumPaymentsRow
	err := row.Scan(&i.Count, &i.Total)
	return i, err
}
