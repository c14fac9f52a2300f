package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/shopspring/decimal"
)

// CartStore defines the DB methods needed to edit a table's cart.
// Satisfied by *database.Queries (and its WithTx variant).
type CartStore interface {
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	GetActiveCart(ctx context.Context, tableID uuid.UUID) (database.Cart, error)
	GetActiveCartForUpdate(ctx context.Context, tableID uuid.UUID) (database.Cart, error)
	CreateCart(ctx context.Context, tableID uuid.UUID) (database.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error)
	GetCartItem(ctx context.Context, arg database.GetCartItemParams) (database.CartItem, error)
	GetCartItemByDish(ctx context.Context, arg database.GetCartItemByDishParams) (database.CartItem, error)
	CreateCartItem(ctx context.Context, arg database.CreateCartItemParams) (database.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error)
	DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (int64, error)
	DeleteCartItems(ctx context.Context, cartID uuid.UUID) error
}

// NewCartStore creates a CartStore from a DBTX (pool or tx).
type NewCartStore func(db database.DBTX) CartStore

// CartLine is one dish in a cart with its computed line total.
type CartLine struct {
	ItemID    uuid.UUID
	DishID    uuid.UUID
	DishName  string
	Category  database.DishCategory
	Quantity  int32
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
	AddedAt   time.Time
}

// CartView is a table's active cart. CartID is uuid.Nil when the table has
// no active cart yet.
type CartView struct {
	CartID  uuid.UUID
	TableID uuid.UUID
	Lines   []CartLine
	Total   decimal.Decimal
}

// CartService handles cart business logic. Every mutation locks the table's
// active cart row so it cannot interleave with a checkout.
type CartService struct {
	pool     TxBeginner
	newStore NewCartStore
}

// NewCartService creates a new CartService.
func NewCartService(pool TxBeginner, newStore NewCartStore) *CartService {
	return &CartService{pool: pool, newStore: newStore}
}

// Get returns the caller's active cart, empty if none exists.
func (s *CartService) Get(ctx context.Context, actor Actor) (*CartView, error) {
	tableID, err := actor.ownTable()
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	cart, err := store.GetActiveCart(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &CartView{TableID: tableID, Lines: []CartLine{}, Total: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get active cart: %w", err)
	}
	return loadCartView(ctx, store, cart)
}

// AddDish puts quantity units of a dish in the caller's cart, creating the
// cart and the line as needed. An existing line is incremented and keeps the
// unit price captured when it was first added.
func (s *CartService) AddDish(ctx context.Context, actor Actor, dishID uuid.UUID, quantity int32) (*CartView, error) {
	if !validQuantity(quantity) {
		return nil, ErrQuantityRange
	}
	tableID, err := actor.ownTable()
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	dish, err := store.GetDish(ctx, dishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDishNotFound
		}
		return nil, fmt.Errorf("get dish: %w", err)
	}
	if !dish.IsAvailable {
		return nil, ErrDishNotFound
	}

	cart, err := getOrCreateCart(ctx, store, tableID)
	if err != nil {
		return nil, err
	}

	existing, err := store.GetCartItemByDish(ctx, database.GetCartItemByDishParams{CartID: cart.ID, DishID: dishID})
	switch {
	case err == nil:
		total := existing.Quantity + quantity
		if !validQuantity(total) {
			return nil, ErrQuantityRange
		}
		if _, err := store.UpdateCartItemQuantity(ctx, database.UpdateCartItemQuantityParams{
			ID:       existing.ID,
			Quantity: total,
		}); err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := store.CreateCartItem(ctx, database.CreateCartItemParams{
			CartID:    cart.ID,
			DishID:    dishID,
			Quantity:  quantity,
			UnitPrice: dish.Price,
		}); err != nil {
			return nil, fmt.Errorf("create cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("get cart item: %w", err)
	}

	view, err := loadCartView(ctx, store, cart)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return view, nil
}

// SetQuantity replaces the quantity of one line in the caller's cart.
func (s *CartService) SetQuantity(ctx context.Context, actor Actor, itemID uuid.UUID, quantity int32) (*CartView, error) {
	if !validQuantity(quantity) {
		return nil, ErrQuantityRange
	}
	return s.withLockedCart(ctx, actor, ErrCartItemNotFound, func(store CartStore, cart database.Cart) error {
		if _, err := store.GetCartItem(ctx, database.GetCartItemParams{ID: itemID, CartID: cart.ID}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrCartItemNotFound
			}
			return fmt.Errorf("get cart item: %w", err)
		}
		if _, err := store.UpdateCartItemQuantity(ctx, database.UpdateCartItemQuantityParams{
			ID:       itemID,
			Quantity: quantity,
		}); err != nil {
			return fmt.Errorf("update cart item: %w", err)
		}
		return nil
	})
}

// RemoveLine deletes one line from the caller's cart.
func (s *CartService) RemoveLine(ctx context.Context, actor Actor, itemID uuid.UUID) (*CartView, error) {
	return s.withLockedCart(ctx, actor, ErrCartItemNotFound, func(store CartStore, cart database.Cart) error {
		n, err := store.DeleteCartItem(ctx, database.DeleteCartItemParams{ID: itemID, CartID: cart.ID})
		if err != nil {
			return fmt.Errorf("delete cart item: %w", err)
		}
		if n == 0 {
			return ErrCartItemNotFound
		}
		return nil
	})
}

// Clear deletes every line of the caller's cart. The cart stays active.
// Clearing when there is no cart is a no-op.
func (s *CartService) Clear(ctx context.Context, actor Actor) (*CartView, error) {
	view, err := s.withLockedCart(ctx, actor, nil, func(store CartStore, cart database.Cart) error {
		if err := store.DeleteCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("delete cart items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if view == nil {
		return &CartView{TableID: actor.TableID, Lines: []CartLine{}, Total: decimal.Zero}, nil
	}
	return view, nil
}

// withLockedCart runs fn against the caller's locked active cart inside a
// transaction and returns the resulting cart. When there is no active cart
// it returns noCart, or (nil, nil) if noCart is nil.
func (s *CartService) withLockedCart(ctx context.Context, actor Actor, noCart error, fn func(CartStore, database.Cart) error) (*CartView, error) {
	tableID, err := actor.ownTable()
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	cart, err := store.GetActiveCartForUpdate(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, noCart
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	if err := fn(store, cart); err != nil {
		return nil, err
	}

	view, err := loadCartView(ctx, store, cart)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return view, nil
}

// getOrCreateCart locks the table's active cart, creating it first if needed.
// CreateCart yields no row when a concurrent request created the cart, in
// which case the fresh row is locked instead.
func getOrCreateCart(ctx context.Context, store CartStore, tableID uuid.UUID) (database.Cart, error) {
	cart, err := store.GetActiveCartForUpdate(ctx, tableID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Cart{}, fmt.Errorf("lock cart: %w", err)
	}

	cart, err = store.CreateCart(ctx, tableID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.Cart{}, fmt.Errorf("create cart: %w", err)
	}

	cart, err = store.GetActiveCartForUpdate(ctx, tableID)
	if err != nil {
		return database.Cart{}, fmt.Errorf("lock cart: %w", err)
	}
	return cart, nil
}

type cartItemLister interface {
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error)
}

func loadCartView(ctx context.Context, store cartItemLister, cart database.Cart) (*CartView, error) {
	rows, err := store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	view := &CartView{
		CartID:  cart.ID,
		TableID: cart.TableID,
		Lines:   make([]CartLine, 0, len(rows)),
		Total:   decimal.Zero,
	}
	for _, row := range rows {
		price := money.FromNumeric(row.UnitPrice)
		line := CartLine{
			ItemID:    row.ID,
			DishID:    row.DishID,
			DishName:  row.DishName,
			Category:  row.DishCategory,
			Quantity:  row.Quantity,
			UnitPrice: price,
			LineTotal: money.LineTotal(row.Quantity, price),
			AddedAt:   row.AddedAt,
		}
		view.Total = view.Total.Add(line.LineTotal)
		view.Lines = append(view.Lines, line)
	}
	return view, nil
}

func validQuantity(q int32) bool {
	return q >= enum.CartQuantityMin && q <= enum.CartQuantityMax
}
