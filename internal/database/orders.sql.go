package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (table_id, total_amount)
VALUES ($1, $2)
RETURNING id, order_number, table_id, total_amount, status, server_id, created_at, updated_at
`

type CreateOrderParams struct {
	TableID     uuid.UUID      `json:"table_id"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.TableID, arg.TotalAmount)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, dish_id, dish_name, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, dish_id, dish_name, quantity, unit_price
`

type CreateOrderItemParams struct {
	OrderID   uuid.UUID      `json:"order_id"`
	DishID    uuid.UUID      `json:"dish_id"`
	DishName  string         `json:"dish_name"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.DishID,
		arg.DishName,
		arg.Quantity,
		arg.UnitPrice,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.DishID,
		&i.DishName,
		&i.Quantity,
		&i.UnitPrice,
	)
	return i, err
}

const countOrdersByStatus = `-- name: CountOrdersByStatus :many
SELECT status, COUNT(*) AS count FROM orders
GROUP BY status
`

type CountOrdersByStatusRow struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]CountOrdersByStatusRow, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CountOrdersByStatusRow{}
	for rows.Next() {
		var i CountOrdersByStatusRow
		if err := rows.Scan(&i.Status, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getOrder = `-- name: GetOrder :one
SELECT id, order_number, table_id, total_amount, status, server_id, created_at, updated_at FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, id)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getLatestOrder = `-- name: GetLatestOrder :one
SELECT id, order_number, table_id, total_amount, status, server_id, created_at, updated_at FROM orders
ORDER BY order_number DESC
LIMIT 1
`

func (q *Queries) GetLatestOrder(ctx context.Context) (Order, error) {
	row := q.db.QueryRow(ctx, getLatestOrder)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT id, order_number, table_id, total_amount, status, server_id, created_at, updated_at FROM orders
WHERE id = $1
FOR NO KEY UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, id)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCurrentOrderByTable = `-- name: GetCurrentOrderByTable :one
SELECT id, order_number, table_id, total_amount, status, server_id, created_at, updated_at FROM orders
WHERE table_id = $1 AND status NOT IN ('PAID', 'CANCELLED')
ORDER BY created_at DESC, order_number DESC
LIMIT 1
`

func (q *Queries) GetCurrentOrderByTable(ctx context.Context, tableID uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, getCurrentOrderByTable, tableID)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getOldestOrderByTableStatusForUpdate = `-- name: GetOldestOrderByTableStatusForUpdate :one
SELECT id, order_number, table_id, total_amount, status, server_id, created_at, updated_at FROM orders
WHERE table_id = $1 AND status = $2
ORDER BY created_at, order_number
LIMIT 1
FOR NO KEY UPDATE
`

type GetOldestOrderByTableStatusForUpdateParams struct {
	TableID uuid.UUID   `json:"table_id"`
	Status  OrderStatus `json:"status"`
}

func (q *Queries) GetOldestOrderByTableStatusForUpdate(ctx context.Context, arg GetOldestOrderByTableStatusForUpdateParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOldestOrderByTableStatusForUpdate, arg.TableID, arg.Status)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listKitchenOrders = `-- name: ListKitchenOrders :many
SELECT o.id, o.order_number, o.table_id, o.total_amount, o.status, o.server_id, o.created_at, o.updated_at,
       t.table_number
FROM orders o
JOIN dining_tables t ON t.id = o.table_id
WHERE o.status IN ('PENDING', 'PREPARING', 'READY')
ORDER BY o.created_at, o.order_number
`

type ListKitchenOrdersRow struct {
	ID          uuid.UUID      `json:"id"`
	OrderNumber int64          `json:"order_number"`
	TableID     uuid.UUID      `json:"table_id"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
	Status      OrderStatus    `json:"status"`
	ServerID    pgtype.UUID    `json:"server_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	TableNumber string         `json:"table_number"`
}

func (q *Queries) ListKitchenOrders(ctx context.Context) ([]ListKitchenOrdersRow, error) {
	rows, err := q.db.Query(ctx, listKitchenOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListKitchenOrdersRow{}
	for rows.Next() {
		var i ListKitchenOrdersRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderNumber,
			&i.TableID,
			&i.TotalAmount,
			&i.Status,
			&i.ServerID,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const listOpenOrderStatusesByTable = `-- name: ListOpenOrderStatusesByTable :many
SELECT status FROM orders
WHERE table_id = $1 AND status NOT IN ('PAID', 'CANCELLED')
`

func (q *Queries) ListOpenOrderStatusesByTable(ctx context.Context, tableID uuid.UUID) ([]OrderStatus, error) {
	rows, err := q.db.Query(ctx, listOpenOrderStatusesByTable, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderStatus{}
	for rows.Next() {
		var status OrderStatus
		if err := rows.Scan(&status); err != nil {
			return nil, err
		}
		items = append(items, status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listOrderItemsByOrder = `-- name: ListOrderItemsByOrder :many
SELECT id, order_id, dish_id, dish_name, quantity, unit_price FROM order_items
WHERE order_id = $1
ORDER BY dish_name, id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.DishID,
			&i.DishName,
			&i.Quantity,
			&i.UnitPrice,
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

const listOrdersByTable = `-- name: ListOrdersByTable :many
SELECT id, order_number, table_id, total_amount, status, server_id, created_at, updated_at FROM orders
WHERE table_id = $1
ORDER BY created_at DESC, order_number DESC
LIMIT $2
`

type ListOrdersByTableParams struct {
	TableID uuid.UUID `json:"table_id"`
	Limit   int32     `json:"limit"`
}

func (q *Queries) ListOrdersByTable(ctx context.Context, arg ListOrdersByTableParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByTable, arg.TableID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		var i Order
		if err := rows.Scan(
			&i.ID,
			&i.OrderNumber,
			&i.TableID,
			&i.TotalAmount,
			&i.Status,
			&i.ServerID,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders SET status = $2, server_id = COALESCE($4, server_id), updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, order_number, table_id, total_amount, status, server_id, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID         uuid.UUID   `json:"id"`
	Status     OrderStatus `json:"status"`
	FromStatus OrderStatus `json:"from_status"`
	ServerID   pgtype.UUID `json:"server_id"`
}

// UpdateOrderStatus is a compare-and-set on status: it returns pgx.ErrNoRows
// when the row is no longer in FromStatus.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.Status,
		arg.FromStatus,
		arg.ServerID,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.TableID,
		&i.TotalAmount,
		&i.Status,
		&i.ServerID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
