package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type DishCategory string

const (
	DishCategorySTARTER DishCategory = "STARTER"
	DishCategoryMAIN    DishCategory = "MAIN"
	DishCategoryDESSERT DishCategory = "DESSERT"
	DishCategoryDRINK   DishCategory = "DRINK"
)

func (e *DishCategory) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = DishCategory(s)
	case string:
		*e = DishCategory(s)
	default:
		return fmt.Errorf("unsupported scan type for DishCategory: %T", src)
	}
	return nil
}

type NullDishCategory struct {
	DishCategory DishCategory `json:"dish_category"`
	Valid        bool         `json:"valid"` // Valid is true if DishCategory is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullDishCategory) Scan(value interface{}) error {
	if value == nil {
		ns.DishCategory, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.DishCategory.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullDishCategory) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.DishCategory), nil
}

type OrderStatus string

const (
	OrderStatusPENDING   OrderStatus = "PENDING"
	OrderStatusPREPARING OrderStatus = "PREPARING"
	OrderStatusREADY     OrderStatus = "READY"
	OrderStatusSERVED    OrderStatus = "SERVED"
	OrderStatusPAID      OrderStatus = "PAID"
	OrderStatusCANCELLED OrderStatus = "CANCELLED"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type TableState string

const (
	TableStateFREE            TableState = "FREE"
	TableStateAWAITINGSERVICE TableState = "AWAITING_SERVICE"
	TableStateSERVED          TableState = "SERVED"
	TableStatePAID            TableState = "PAID"
)

func (e *TableState) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = TableState(s)
	case string:
		*e = TableState(s)
	default:
		return fmt.Errorf("unsupported scan type for TableState: %T", src)
	}
	return nil
}

type Cart struct {
	ID        uuid.UUID `json:"id"`
	TableID   uuid.UUID `json:"table_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CartItem struct {
	ID        uuid.UUID      `json:"id"`
	CartID    uuid.UUID      `json:"cart_id"`
	DishID    uuid.UUID      `json:"dish_id"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	AddedAt   time.Time      `json:"added_at"`
}

type CashRegister struct {
	Singleton bool           `json:"singleton"`
	Balance   pgtype.Numeric `json:"balance"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type DiningTable struct {
	ID          uuid.UUID  `json:"id"`
	TableNumber string     `json:"table_number"`
	Seats       int32      `json:"seats"`
	State       TableState `json:"state"`
	UserID      uuid.UUID  `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Dish struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Category    DishCategory   `json:"category"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Expense struct {
	ID         uuid.UUID      `json:"id"`
	Motif      string         `json:"motif"`
	Amount     pgtype.Numeric `json:"amount"`
	RecordedBy uuid.UUID      `json:"recorded_by"`
	RecordedAt time.Time      `json:"recorded_at"`
}

type Order struct {
	ID          uuid.UUID      `json:"id"`
	OrderNumber int64          `json:"order_number"`
	TableID     uuid.UUID      `json:"table_id"`
	TotalAmount pgtype.Numeric `json:"total_amount"`
	Status      OrderStatus    `json:"status"`
	ServerID    pgtype.UUID    `json:"server_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	DishID    uuid.UUID      `json:"dish_id"`
	DishName  string         `json:"dish_name"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
}

type Payment struct {
	ID      uuid.UUID      `json:"id"`
	OrderID uuid.UUID      `json:"order_id"`
	Amount  pgtype.Numeric `json:"amount"`
	PaidAt  time.Time      `json:"paid_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Login          string    `json:"login"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
