package database

import (
	"context"

	"github.com/google/uuid"
)

const createDiningTable = `-- name: CreateDiningTable :one
INSERT INTO dining_tables (table_number, seats, user_id)
VALUES ($1, $2, $3)
RETURNING id, table_number, seats, state, user_id, created_at
`

type CreateDiningTableParams struct {
	TableNumber string    `json:"table_number"`
	Seats       int32     `json:"seats"`
	UserID      uuid.UUID `json:"user_id"`
}

func (q *Queries) CreateDiningTable(ctx context.Context, arg CreateDiningTableParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, createDiningTable, arg.TableNumber, arg.Seats, arg.UserID)
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.TableNumber,
		&i.Seats,
		&i.State,
		&i.UserID,
		&i.CreatedAt,
	)
	return i, err
}

const countDiningTablesByState = `-- name: CountDiningTablesByState :many
SELECT state, COUNT(*) AS count FROM dining_tables
GROUP BY state
`

type CountDiningTablesByStateRow struct {
	State TableState `json:"state"`
	Count int64      `json:"count"`
}

func (q *Queries) CountDiningTablesByState(ctx context.Context) ([]CountDiningTablesByStateRow, error) {
	rows, err := q.db.Query(ctx, countDiningTablesByState)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountDiningTablesByStateRow{}
	for rows.Next() {
		var i CountDiningTablesByStateRow
		if err := rows.Scan(&i.State, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDiningTable = `-- name: GetDiningTable :one
SELECT id, table_number, seats, state, user_id, created_at FROM dining_tables
WHERE id = $1
`

func (q *Queries) GetDiningTable(ctx context.Context, id uuid.UUID) (DiningTable, error) {
	row := q.db.QueryRow(ctx, getDiningTable, id)
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.TableNumber,
		&i.Seats,
		&i.State,
		&i.UserID,
		&i.CreatedAt,
	)
	return i, err
}

const getDiningTableByUser = `-- name: GetDiningTableByUser :one
SELECT id, table_number, seats, state, user_id, created_at FROM dining_tables
WHERE user_id = $1
`

func (q *Queries) GetDiningTableByUser(ctx context.Context, userID uuid.UUID) (DiningTable, error) {
	row := q.db.QueryRow(ctx, getDiningTableByUser, userID)
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.TableNumber,
		&i.Seats,
		&i.State,
		&i.UserID,
		&i.CreatedAt,
	)
	return i, err
}

const getDiningTableForUpdate = `-- name: GetDiningTableForUpdate :one
SELECT id, table_number, seats, state, user_id, created_at FROM dining_tables
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetDiningTableForUpdate(ctx context.Context, id uuid.UUID) (DiningTable, error) {
	row := q.db.QueryRow(ctx, getDiningTableForUpdate, id)
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.TableNumber,
		&i.Seats,
		&i.State,
		&i.UserID,
		&i.CreatedAt,
	)
	return i, err
}

const listDiningTables = `-- name: ListDiningTables :many
SELECT id, table_number, seats, state, user_id, created_at FROM dining_tables
ORDER BY table_number
`

func (q *Queries) ListDiningTables(ctx context.Context) ([]DiningTable, error) {
	rows, err := q.db.Query(ctx, listDiningTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DiningTable{}
	for rows.Next() {
		var i DiningTable
		if err := rows.Scan(
			&i.ID,
			&i.TableNumber,
			&i.Seats,
			&i.State,
			&i.UserID,
			&i.CreatedAt,
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

const updateDiningTableState = `-- name: UpdateDiningTableState :one
UPDATE dining_tables SET state = $2
WHERE id = $1
RETURNING id, table_number, seats, state, user_id, created_at
`

type UpdateDiningTableStateParams struct {
	ID    uuid.UUID  `json:"id"`
	State TableState `json:"state"`
}

func (q *Queries) UpdateDiningTableState(ctx context.Context, arg UpdateDiningTableStateParams) (DiningTable, error) {
	row := q.db.QueryRow(ctx, updateDiningTableState, arg.ID, arg.State)
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.TableNumber,
		&i.Seats,
		&i.State,
		&i.UserID,
		&i.CreatedAt,
	)
	return i, err
}
