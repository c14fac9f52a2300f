package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a domain error so the HTTP layer can pick a status code
// without knowing individual sentinels.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindPermission
	KindState
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	case KindState:
		return "state"
	case KindIntegrity:
		return "integrity"
	}
	return "internal"
}

// Error is a domain error with a user-facing message.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Errors returned by the services.
var (
	ErrQuantityRange   = newError(KindValidation, "quantity must be between 1 and 10")
	ErrEmptyCart       = newError(KindValidation, "cart is empty")
	ErrInvalidStatus   = newError(KindValidation, "invalid order status")
	ErrInvalidAmount   = newError(KindValidation, "amount must be a positive decimal with at most 2 places")
	ErrMotifRequired   = newError(KindValidation, "motif is required")
	ErrInvalidLogin    = newError(KindValidation, "login must be 6 to 30 characters")
	ErrInvalidPassword = newError(KindValidation, "password must be 6 characters to 72 bytes long")
	ErrInvalidRole     = newError(KindValidation, "invalid role")
	ErrTableNumber     = newError(KindValidation, "TABLE users need a table_number of at most 10 characters")
	ErrInvalidSeats    = newError(KindValidation, "seats must be > 0")
	ErrOrderTooLarge   = newError(KindValidation, "order total exceeds 9999999999.99; split the cart into several orders")
	ErrValueTooLong    = newError(KindValidation, "a text field is longer than allowed")
	ErrOutOfRange      = newError(KindValidation, "a numeric field is out of range")

	ErrNoTable          = newError(KindNotFound, "no table is linked to this account")
	ErrDishNotFound     = newError(KindNotFound, "dish not found")
	ErrCartItemNotFound = newError(KindNotFound, "cart item not found")
	ErrOrderNotFound    = newError(KindNotFound, "order not found")
	ErrTableNotFound    = newError(KindNotFound, "table not found")

	ErrForbiddenTransition = newError(KindPermission, "your role cannot make this status change")
	ErrForbidden           = newError(KindPermission, "insufficient permissions")

	ErrNoActiveCart           = newError(KindState, "no active cart to check out")
	ErrIllegalTransition      = newError(KindState, "illegal order status transition")
	ErrPaymentRequired        = newError(KindState, "orders are marked paid by validating a payment")
	ErrNothingToServe         = newError(KindState, "no order is ready to be served at this table")
	ErrNothingToPay           = newError(KindState, "no served order awaits payment at this table")
	ErrInsufficientCash       = newError(KindState, "expense exceeds the cash balance")
	ErrCashNotInitialized     = newError(KindState, "cash register is not initialized")
	ErrCashAlreadyInitialized = newError(KindState, "cash register is already initialized")

	ErrDuplicate = newError(KindIntegrity, "a record with the same unique value already exists")
)

// KindOf reports the kind of err. Unique violations from Postgres count as
// integrity errors and column overflows as validation errors; anything
// unrecognised is internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if isUniqueViolation(err) {
		return KindIntegrity
	}
	if overflow := columnOverflow(err); overflow != nil {
		return overflow.Kind
	}
	return KindInternal
}

// Message returns the user-facing message for err, or a generic one for
// internal errors so driver details never leak.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return err.Error()
	}
	if isUniqueViolation(err) {
		return ErrDuplicate.Msg
	}
	if overflow := columnOverflow(err); overflow != nil {
		return overflow.Msg
	}
	return "internal server error"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// columnOverflow maps string_data_right_truncation (22001) and
// numeric_value_out_of_range (22003) to validation errors.
func columnOverflow(err error) *Error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case "22001":
		return ErrValueTooLong
	case "22003":
		return ErrOutOfRange
	}
	return nil
}
