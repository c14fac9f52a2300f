package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restopos/api/internal/access"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/money"
	"github.com/shopspring/decimal"
)

// OrderStore defines the DB methods used by checkout and the status workflow.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetActiveCartForUpdate(ctx context.Context, tableID uuid.UUID) (database.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error)
	DeleteCartItems(ctx context.Context, cartID uuid.UUID) error
	DeactivateCart(ctx context.Context, id uuid.UUID) (database.Cart, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOldestOrderByTableStatusForUpdate(ctx context.Context, arg database.GetOldestOrderByTableStatusForUpdateParams) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	GetDiningTableForUpdate(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	ListOpenOrderStatusesByTable(ctx context.Context, tableID uuid.UUID) ([]database.OrderStatus, error)
	UpdateDiningTableState(ctx context.Context, arg database.UpdateDiningTableStateParams) (database.DiningTable, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	CreditCashRegister(ctx context.Context, amount pgtype.Numeric) (database.CashRegister, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CheckoutResult is the order created from a cart.
type CheckoutResult struct {
	Order database.Order
	Items []database.OrderItem
	Table database.DiningTable
}

// TransitionResult is an order after a status change and the table state it left.
type TransitionResult struct {
	Order database.Order
	Table database.DiningTable
}

// PaymentResult is the outcome of validating a table's payment.
type PaymentResult struct {
	Order   database.Order
	Payment database.Payment
	Table   database.DiningTable
	Balance decimal.Decimal
}

// transition is one legal edge of the order lifecycle.
type transition struct {
	from database.OrderStatus
	to   database.OrderStatus
}

// legalTransitions lists every edge an order may take. READY is the only
// predecessor of SERVED.
var legalTransitions = map[transition]bool{
	{database.OrderStatusPENDING, database.OrderStatusPREPARING}:   true,
	{database.OrderStatusPREPARING, database.OrderStatusREADY}:     true,
	{database.OrderStatusREADY, database.OrderStatusSERVED}:        true,
	{database.OrderStatusSERVED, database.OrderStatusPAID}:         true,
	{database.OrderStatusPENDING, database.OrderStatusCANCELLED}:   true,
	{database.OrderStatusPREPARING, database.OrderStatusCANCELLED}: true,
}

// targetCapability is the capability required to move an order into a status.
var targetCapability = map[database.OrderStatus]access.Capability{
	database.OrderStatusPREPARING: access.AdvanceKitchen,
	database.OrderStatusREADY:     access.AdvanceKitchen,
	database.OrderStatusSERVED:    access.ServeTables,
	database.OrderStatusPAID:      access.ServeTables,
	database.OrderStatusCANCELLED: access.ServeTables,
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to database.OrderStatus) bool {
	return legalTransitions[transition{from, to}]
}

// OrderService handles checkout and the order status workflow.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// Checkout converts the caller's active cart into a PENDING order in one
// transaction. The cart row is locked first, so of two concurrent checkouts
// the second finds no active cart and fails with ErrNoActiveCart.
func (s *OrderService) Checkout(ctx context.Context, actor Actor) (*CheckoutResult, error) {
	if !actor.Can(access.Checkout) {
		return nil, ErrForbidden
	}
	tableID, err := actor.ownTable()
	if err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Lock cart ---
	cart, err := store.GetActiveCartForUpdate(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveCart
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	lines, err := store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// --- Total from frozen unit prices ---
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(money.LineTotal(l.Quantity, money.FromNumeric(l.UnitPrice)))
	}
	if total.GreaterThan(money.MaxAmount) {
		return nil, ErrOrderTooLarge
	}

	// --- Insert order and items ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:     tableID,
		TotalAmount: money.ToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, l := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			DishID:    l.DishID,
			DishName:  l.DishName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// --- Consume cart ---
	if err := store.DeleteCartItems(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("delete cart items: %w", err)
	}
	if _, err := store.DeactivateCart(ctx, cart.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveCart
		}
		return nil, fmt.Errorf("deactivate cart: %w", err)
	}

	table, err := syncTableState(ctx, store, tableID)
	if err != nil {
		return nil, fmt.Errorf("sync table state: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logger.Infof("order #%d created for table %s, total %s", order.OrderNumber, table.TableNumber, total.StringFixed(money.Scale))
	return &CheckoutResult{Order: order, Items: items, Table: table}, nil
}

// Advance moves one order to status to. Payment is not reachable here; it
// goes through ValidatePayment so the cash ledger is credited.
func (s *OrderService) Advance(ctx context.Context, actor Actor, orderID uuid.UUID, to database.OrderStatus) (*TransitionResult, error) {
	capability, ok := targetCapability[to]
	if !ok {
		return nil, ErrInvalidStatus
	}
	if to == database.OrderStatusPAID {
		return nil, ErrPaymentRequired
	}
	if !actor.Can(capability) {
		return nil, ErrForbiddenTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	result, err := applyTransition(ctx, store, order, to, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// Cancel moves a PENDING or PREPARING order to CANCELLED.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (*TransitionResult, error) {
	return s.Advance(ctx, actor, orderID, database.OrderStatusCANCELLED)
}

// MarkServed serves the oldest READY order of a table and records the acting
// server on it.
func (s *OrderService) MarkServed(ctx context.Context, actor Actor, tableID uuid.UUID) (*TransitionResult, error) {
	if !actor.Can(access.ServeTables) {
		return nil, ErrForbiddenTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := lockTable(ctx, store, tableID); err != nil {
		return nil, err
	}

	order, err := store.GetOldestOrderByTableStatusForUpdate(ctx, database.GetOldestOrderByTableStatusForUpdateParams{
		TableID: tableID,
		Status:  database.OrderStatusREADY,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNothingToServe
		}
		return nil, fmt.Errorf("find ready order: %w", err)
	}

	result, err := applyTransition(ctx, store, order, database.OrderStatusSERVED, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// ValidatePayment settles the oldest SERVED order of a table: it records a
// payment for the order total, credits the cash register and marks the order
// PAID, all in one transaction.
func (s *OrderService) ValidatePayment(ctx context.Context, actor Actor, tableID uuid.UUID) (*PaymentResult, error) {
	if !actor.Can(access.ServeTables) {
		return nil, ErrForbiddenTransition
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := lockTable(ctx, store, tableID); err != nil {
		return nil, err
	}

	order, err := store.GetOldestOrderByTableStatusForUpdate(ctx, database.GetOldestOrderByTableStatusForUpdateParams{
		TableID: tableID,
		Status:  database.OrderStatusSERVED,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNothingToPay
		}
		return nil, fmt.Errorf("find served order: %w", err)
	}

	// --- Payment ---
	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID: order.ID,
		Amount:  order.TotalAmount,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("order #%d already paid: %w", order.OrderNumber, ErrDuplicate)
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	// --- Cash credit ---
	cash, err := store.CreditCashRegister(ctx, order.TotalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCashNotInitialized
		}
		return nil, fmt.Errorf("credit cash register: %w", err)
	}

	// --- Status ---
	result, err := applyTransition(ctx, store, order, database.OrderStatusPAID, actor)
	if err != nil {
		return nil, err
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logger.Infof("payment of %s for order #%d at table %s", money.String(payment.Amount), order.OrderNumber, result.Table.TableNumber)
	return &PaymentResult{
		Order:   result.Order,
		Payment: payment,
		Table:   result.Table,
		Balance: money.FromNumeric(cash.Balance),
	}, nil
}

// applyTransition checks the edge and the actor's capability, writes the new
// status with a compare-and-set on the old one, then resyncs the table.
func applyTransition(ctx context.Context, store OrderStore, order database.Order, to database.OrderStatus, actor Actor) (*TransitionResult, error) {
	if !CanTransition(order.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, order.Status, to)
	}
	if !actor.Can(targetCapability[to]) {
		return nil, ErrForbiddenTransition
	}

	params := database.UpdateOrderStatusParams{
		ID:         order.ID,
		Status:     to,
		FromStatus: order.Status,
	}
	if to == database.OrderStatusSERVED {
		params.ServerID = pgUUID(actor.UserID)
	}

	updated, err := store.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order #%d changed concurrently", ErrIllegalTransition, order.OrderNumber)
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	table, err := syncTableState(ctx, store, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("sync table state: %w", err)
	}

	logger.Debugf("order #%d %s -> %s by %s", order.OrderNumber, order.Status, to, actor.Role)
	return &TransitionResult{Order: updated, Table: table}, nil
}

func lockTable(ctx context.Context, store OrderStore, tableID uuid.UUID) (database.DiningTable, error) {
	table, err := store.GetDiningTableForUpdate(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.DiningTable{}, ErrTableNotFound
		}
		return database.DiningTable{}, fmt.Errorf("lock table: %w", err)
	}
	return table, nil
}
