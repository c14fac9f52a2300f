package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCart = `-- name: CreateCart :one
INSERT INTO carts (table_id)
VALUES ($1)
ON CONFLICT (table_id) WHERE is_active DO NOTHING
RETURNING id, table_id, is_active, created_at
`

// CreateCart returns pgx.ErrNoRows when the table already has an active cart.
func (q *Queries) CreateCart(ctx context.Context, tableID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, createCart, tableID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const createCartItem = `-- name: CreateCartItem :one
INSERT INTO cart_items (cart_id, dish_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, cart_id, dish_id, quantity, unit_price, added_at
`

type CreateCartItemParams struct {
	CartID    uuid.UUID      `json:"cart_id"`
	DishID    uuid.UUID      `json:"dish_id"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
}

func (q *Queries) CreateCartItem(ctx context.Context, arg CreateCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, createCartItem,
		arg.CartID,
		arg.DishID,
		arg.Quantity,
		arg.UnitPrice,
	)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.DishID,
		&i.Quantity,
		&i.UnitPrice,
		&i.AddedAt,
	)
	return i, err
}

const deactivateCart = `-- name: DeactivateCart :one
UPDATE carts SET is_active = false
WHERE id = $1 AND is_active = true
RETURNING id, table_id, is_active, created_at
`

func (q *Queries) DeactivateCart(ctx context.Context, id uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, deactivateCart, id)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const deleteCartItem = `-- name: DeleteCartItem :execrows
DELETE FROM cart_items
WHERE id = $1 AND cart_id = $2
`

type DeleteCartItemParams struct {
	ID     uuid.UUID `json:"id"`
	CartID uuid.UUID `json:"cart_id"`
}

func (q *Queries) DeleteCartItem(ctx context.Context, arg DeleteCartItemParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteCartItem, arg.ID, arg.CartID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const deleteCartItems = `-- name: DeleteCartItems :exec
DELETE FROM cart_items
WHERE cart_id = $1
`

func (q *Queries) DeleteCartItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteCartItems, cartID)
	return err
}

const getActiveCart = `-- name: GetActiveCart :one
SELECT id, table_id, is_active, created_at FROM carts
WHERE table_id = $1 AND is_active = true
`

func (q *Queries) GetActiveCart(ctx context.Context, tableID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getActiveCart, tableID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveCartForUpdate = `-- name: GetActiveCartForUpdate :one
SELECT id, table_id, is_active, created_at FROM carts
WHERE table_id = $1 AND is_active = true
FOR UPDATE
`

func (q *Queries) GetActiveCartForUpdate(ctx context.Context, tableID uuid.UUID) (Cart, error) {
	row := q.db.QueryRow(ctx, getActiveCartForUpdate, tableID)
	var i Cart
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getCartItem = `-- name: GetCartItem :one
SELECT id, cart_id, dish_id, quantity, unit_price, added_at FROM cart_items
WHERE id = $1 AND cart_id = $2
`

type GetCartItemParams struct {
	ID     uuid.UUID `json:"id"`
	CartID uuid.UUID `json:"cart_id"`
}

func (q *Queries) GetCartItem(ctx context.Context, arg GetCartItemParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, getCartItem, arg.ID, arg.CartID)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.DishID,
		&i.Quantity,
		&i.UnitPrice,
		&i.AddedAt,
	)
	return i, err
}

const getCartItemByDish = `-- name: GetCartItemByDish :one
SELECT id, cart_id, dish_id, quantity, unit_price, added_at FROM cart_items
WHERE cart_id = $1 AND dish_id = $2
`

type GetCartItemByDishParams struct {
	CartID uuid.UUID `json:"cart_id"`
	DishID uuid.UUID `json:"dish_id"`
}

func (q *Queries) GetCartItemByDish(ctx context.Context, arg GetCartItemByDishParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, getCartItemByDish, arg.CartID, arg.DishID)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.DishID,
		&i.Quantity,
		&i.UnitPrice,
		&i.AddedAt,
	)
	return i, err
}

const listCartItems = `-- name: ListCartItems :many
SELECT ci.id, ci.cart_id, ci.dish_id, ci.quantity, ci.unit_price, ci.added_at,
       d.name AS dish_name, d.category AS dish_category
FROM cart_items ci
JOIN dishes d ON d.id = ci.dish_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at, ci.id
`

type ListCartItemsRow struct {
	ID           uuid.UUID      `json:"id"`
	CartID       uuid.UUID      `json:"cart_id"`
	DishID       uuid.UUID      `json:"dish_id"`
	Quantity     int32          `json:"quantity"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	AddedAt      time.Time      `json:"added_at"`
	DishName     string         `json:"dish_name"`
	DishCategory DishCategory   `json:"dish_category"`
}

func (q *Queries) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]ListCartItemsRow, error) {
	rows, err := q.db.Query(ctx, listCartItems, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCartItemsRow{}
	for rows.Next() {
		var i ListCartItemsRow
		if err := rows.Scan(
			&i.ID,
			&i.CartID,
			&i.DishID,
			&i.Quantity,
			&i.UnitPrice,
			&i.AddedAt,
			&i.DishName,
			&i.DishCategory,
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

const updateCartItemQuantity = `-- name: UpdateCartItemQuantity :one
UPDATE cart_items SET quantity = $2
WHERE id = $1
RETURNING id, cart_id, dish_id, quantity, unit_price, added_at
`

type UpdateCartItemQuantityParams struct {
	ID       uuid.UUID `json:"id"`
	Quantity int32     `json:"quantity"`
}

func (q *Queries) UpdateCartItemQuantity(ctx context.Context, arg UpdateCartItemQuantityParams) (CartItem, error) {
	row := q.db.QueryRow(ctx, updateCartItemQuantity, arg.ID, arg.Quantity)
	var i CartItem
	err := row.Scan(
		&i.ID,
		&i.CartID,
		&i.DishID,
		&i.Quantity,
		&i.UnitPrice,
		&i.AddedAt,
	)
	return i, err
}
