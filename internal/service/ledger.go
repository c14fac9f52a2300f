package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restopos/api/internal/access"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/money"
	"github.com/shopspring/decimal"
)

// LedgerStore defines the DB methods for the cash register and expenses.
// Satisfied by *database.Queries (and its WithTx variant).
type LedgerStore interface {
	CreateCashRegister(ctx context.Context, balance pgtype.Numeric) (database.CashRegister, error)
	GetCashRegister(ctx context.Context) (database.CashRegister, error)
	GetCashRegisterForUpdate(ctx context.Context) (database.CashRegister, error)
	DebitCashRegister(ctx context.Context, amount pgtype.Numeric) (database.CashRegister, error)
	CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error)
}

// NewLedgerStore creates a LedgerStore from a DBTX (pool or tx).
type NewLedgerStore func(db database.DBTX) LedgerStore

// ExpenseResult is a recorded expense and the balance it left.
type ExpenseResult struct {
	Expense database.Expense
	Balance decimal.Decimal
}

// LedgerService owns the singleton cash register. Credits only happen inside
// OrderService.ValidatePayment; this service debits for expenses.
type LedgerService struct {
	pool     TxBeginner
	newStore NewLedgerStore
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(pool TxBeginner, newStore NewLedgerStore) *LedgerService {
	return &LedgerService{pool: pool, newStore: newStore}
}

// InitCash creates the cash register with an opening balance. It is run once
// at bootstrap; any later call fails with ErrCashAlreadyInitialized.
func (s *LedgerService) InitCash(ctx context.Context, opening decimal.Decimal) (database.CashRegister, error) {
	if opening.IsNegative() {
		return database.CashRegister{}, ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.CashRegister{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cash, err := s.newStore(tx).CreateCashRegister(ctx, money.ToNumeric(opening))
	if err != nil {
		if isUniqueViolation(err) {
			return database.CashRegister{}, ErrCashAlreadyInitialized
		}
		return database.CashRegister{}, fmt.Errorf("create cash register: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.CashRegister{}, fmt.Errorf("commit tx: %w", err)
	}
	logger.Infof("cash register initialized with %s", money.String(cash.Balance))
	return cash, nil
}

// Balance returns the current cash balance.
func (s *LedgerService) Balance(ctx context.Context) (decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cash, err := s.newStore(tx).GetCashRegister(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrCashNotInitialized
		}
		return decimal.Zero, fmt.Errorf("get cash register: %w", err)
	}
	return money.FromNumeric(cash.Balance), nil
}

// RecordExpense debits the cash register and stores the expense atomically.
// An expense larger than the balance is rejected and nothing is written.
func (s *LedgerService) RecordExpense(ctx context.Context, actor Actor, motif string, amount decimal.Decimal) (*ExpenseResult, error) {
	if !actor.Can(access.RecordExpense) {
		return nil, ErrForbidden
	}
	motif = strings.TrimSpace(motif)
	if motif == "" {
		return nil, ErrMotifRequired
	}
	if !amount.IsPositive() || !amount.Equal(amount.Round(money.Scale)) {
		return nil, ErrInvalidAmount
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	cash, err := store.GetCashRegisterForUpdate(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCashNotInitialized
		}
		return nil, fmt.Errorf("lock cash register: %w", err)
	}

	balance := money.FromNumeric(cash.Balance)
	if amount.GreaterThan(balance) {
		return nil, fmt.Errorf("%w: balance is %s", ErrInsufficientCash, balance.StringFixed(money.Scale))
	}

	cash, err = store.DebitCashRegister(ctx, money.ToNumeric(amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInsufficientCash
		}
		return nil, fmt.Errorf("debit cash register: %w", err)
	}

	expense, err := store.CreateExpense(ctx, database.CreateExpenseParams{
		Motif:      motif,
		Amount:     money.ToNumeric(amount),
		RecordedBy: actor.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logger.Infof("expense %q of %s recorded by %s", motif, amount.StringFixed(money.Scale), actor.UserID)
	return &ExpenseResult{Expense: expense, Balance: money.FromNumeric(cash.Balance)}, nil
}

