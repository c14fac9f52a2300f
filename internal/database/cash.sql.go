package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createCashRegister = `-- name: CreateCashRegister :one
INSERT INTO cash_register (balance)
VALUES ($1)
RETURNING singleton, balance, updated_at
`

// CreateCashRegister fails with a unique violation if the register exists.
func (q *Queries) CreateCashRegister(ctx context.Context, balance pgtype.Numeric) (CashRegister, error) {
	row := q.db.QueryRow(ctx, createCashRegister, balance)
	var i CashRegister
	err := row.Scan(&i.Singleton, &i.Balance, &i.UpdatedAt)
	return i, err
}

const creditCashRegister = `-- name: CreditCashRegister :one
UPDATE cash_register SET balance = balance + $1, updated_at = now()
WHERE singleton = true
RETURNING singleton, balance, updated_at
`

func (q *Queries) CreditCashRegister(ctx context.Context, amount pgtype.Numeric) (CashRegister, error) {
	row := q.db.QueryRow(ctx, creditCashRegister, amount)
	var i CashRegister
	err := row.Scan(&i.Singleton, &i.Balance, &i.UpdatedAt)
	return i, err
}

const debitCashRegister = `-- name: DebitCashRegister :one
UPDATE cash_register SET balance = balance - $1, updated_at = now()
WHERE singleton = true AND balance >= $1
RETURNING singleton, balance, updated_at
`

// DebitCashRegister returns pgx.ErrNoRows when the balance is below amount.
func (q *Queries) DebitCashRegister(ctx context.Context, amount pgtype.Numeric) (CashRegister, error) {
	row := q.db.QueryRow(ctx, debitCashRegister, amount)
	var i CashRegister
	err := row.Scan(&i.Singleton, &i.Balance, &i.UpdatedAt)
	return i, err
}

const getCashRegister = `-- name: GetCashRegister :one
SELECT singleton, balance, updated_at FROM cash_register
WHERE singleton = true
`

func (q *Queries) GetCashRegister(ctx context.Context) (CashRegister, error) {
	row := q.db.QueryRow(ctx, getCashRegister)
	var i CashRegister
	err := row.Scan(&i.Singleton, &i.Balance, &i.UpdatedAt)
	return i, err
}

const getCashRegisterForUpdate = `-- name: GetCashRegisterForUpdate :one
SELECT singleton, balance, updated_at FROM cash_register
WHERE singleton = true
FOR UPDATE
`

func (q *Queries) GetCashRegisterForUpdate(ctx context.Context) (CashRegister, error) {
	row := q.db.QueryRow(ctx, getCashRegisterForUpdate)
	var i CashRegister
	err := row.Scan(&i.Singleton, &i.Balance, &i.UpdatedAt)
	return i, err
}
