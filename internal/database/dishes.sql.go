package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const countDishes = `-- name: CountDishes :one
SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_available) AS available FROM dishes
`

type CountDishesRow struct {
	Total     int64 `json:"total"`
	Available int64 `json:"available"`
}

func (q *Queries) CountDishes(ctx context.Context) (CountDishesRow, error) {
	row := q.db.QueryRow(ctx, countDishes)
	var i CountDishesRow
	err := row.Scan(&i.Total, &i.Available)
	return i, err
}

const createDish = `-- name: CreateDish :one
INSERT INTO dishes (name, description, price, category, is_available)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, name, description, price, category, is_available, created_at, updated_at
`

type CreateDishParams struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    DishCategory   `json:"category"`
	IsAvailable bool           `json:"is_available"`
}

func (q *Queries) CreateDish(ctx context.Context, arg CreateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, createDish,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
		arg.IsAvailable,
	)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getDish = `-- name: GetDish :one
SELECT id, name, description, price, category, is_available, created_at, updated_at FROM dishes
WHERE id = $1
`

func (q *Queries) GetDish(ctx context.Context, id uuid.UUID) (Dish, error) {
	row := q.db.QueryRow(ctx, getDish, id)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listDishes = `-- name: ListDishes :many
SELECT id, name, description, price, category, is_available, created_at, updated_at FROM dishes
WHERE ($1::boolean = false OR is_available = true)
  AND ($2::dish_category IS NULL OR category = $2)
  AND ($3::text IS NULL OR name ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
ORDER BY category, name
`

type ListDishesParams struct {
	AvailableOnly bool             `json:"available_only"`
	Category      NullDishCategory `json:"category"`
	Search        pgtype.Text      `json:"search"`
}

func (q *Queries) ListDishes(ctx context.Context, arg ListDishesParams) ([]Dish, error) {
	rows, err := q.db.Query(ctx, listDishes, arg.AvailableOnly, arg.Category, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Dish{}
	for rows.Next() {
		var i Dish
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Price,
			&i.Category,
			&i.IsAvailable,
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

const setDishAvailability = `-- name: SetDishAvailability :one
UPDATE dishes SET is_available = $2, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, category, is_available, created_at, updated_at
`

type SetDishAvailabilityParams struct {
	ID          uuid.UUID `json:"id"`
	IsAvailable bool      `json:"is_available"`
}

func (q *Queries) SetDishAvailability(ctx context.Context, arg SetDishAvailabilityParams) (Dish, error) {
	row := q.db.QueryRow(ctx, setDishAvailability, arg.ID, arg.IsAvailable)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const updateDish = `-- name: UpdateDish :one
UPDATE dishes SET name = $2, description = $3, price = $4, category = $5, updated_at = now()
WHERE id = $1
RETURNING id, name, description, price, category, is_available, created_at, updated_at
`

type UpdateDishParams struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    DishCategory   `json:"category"`
}

func (q *Queries) UpdateDish(ctx context.Context, arg UpdateDishParams) (Dish, error) {
	row := q.db.QueryRow(ctx, updateDish,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.Category,
	)
	var i Dish
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Description,
		&i.Price,
		&i.Category,
		&i.IsAvailable,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
