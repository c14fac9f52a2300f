package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/money"
	"github.com/shopspring/decimal"
)

// --- In-memory store ---

// fakeState is the full contents of the fake database.
type fakeState struct {
	users      map[uuid.UUID]database.User
	tables     map[uuid.UUID]database.DiningTable
	dishes     map[uuid.UUID]database.Dish
	carts      map[uuid.UUID]database.Cart
	cartItems  map[uuid.UUID]database.CartItem
	orders     map[uuid.UUID]database.Order
	orderItems []database.OrderItem
	payments   map[uuid.UUID]database.Payment // keyed by order ID
	cash       *database.CashRegister
	expenses   []database.Expense
	orderSeq   int64
	clock      time.Time
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		users:      make(map[uuid.UUID]database.User, len(s.users)),
		tables:     make(map[uuid.UUID]database.DiningTable, len(s.tables)),
		dishes:     make(map[uuid.UUID]database.Dish, len(s.dishes)),
		carts:      make(map[uuid.UUID]database.Cart, len(s.carts)),
		cartItems:  make(map[uuid.UUID]database.CartItem, len(s.cartItems)),
		orders:     make(map[uuid.UUID]database.Order, len(s.orders)),
		orderItems: append([]database.OrderItem(nil), s.orderItems...),
		payments:   make(map[uuid.UUID]database.Payment, len(s.payments)),
		expenses:   append([]database.Expense(nil), s.expenses...),
		orderSeq:   s.orderSeq,
		clock:      s.clock,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.dishes {
		c.dishes[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	if s.cash != nil {
		cash := *s.cash
		c.cash = &cash
	}
	return c
}

// fakeDB satisfies every service store interface. Begin snapshots the state
// and a rollback without commit restores it, so atomicity is observable.
type fakeDB struct {
	fakeState
	snapshot *fakeState
	fail     map[string]error
	begins   int
	commits  int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		fakeState: fakeState{
			users:     map[uuid.UUID]database.User{},
			tables:    map[uuid.UUID]database.DiningTable{},
			dishes:    map[uuid.UUID]database.Dish{},
			carts:     map[uuid.UUID]database.Cart{},
			cartItems: map[uuid.UUID]database.CartItem{},
			orders:    map[uuid.UUID]database.Order{},
			payments:  map[uuid.UUID]database.Payment{},
			clock:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		fail: map[string]error{},
	}
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := db.fail["Begin"]; err != nil {
		return nil, err
	}
	db.begins++
	snap := db.fakeState.clone()
	db.snapshot = &snap
	return &fakeTx{db: db}, nil
}

func (db *fakeDB) now() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// fakeTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type fakeTx struct {
	db        *fakeDB
	committed bool
	done      bool
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (t *fakeTx) Commit(ctx context.Context) error {
	if err := t.db.fail["Commit"]; err != nil {
		t.rollback()
		return err
	}
	t.committed = true
	t.done = true
	t.db.commits++
	t.db.snapshot = nil
	return nil
}
func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.rollback()
	return nil
}
func (t *fakeTx) rollback() {
	if t.db.snapshot != nil {
		t.db.fakeState = *t.db.snapshot
		t.db.snapshot = nil
	}
	t.done = true
}
func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (t *fakeTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (t *fakeTx) Conn() *pgx.Conn { panic("not implemented") }

// --- Seed helpers ---

func (db *fakeDB) addTable(number string) (database.User, database.DiningTable) {
	u := database.User{ID: uuid.New(), Login: "table-" + number, Role: "TABLE", IsActive: true, CreatedAt: db.now()}
	db.users[u.ID] = u
	t := database.DiningTable{ID: uuid.New(), TableNumber: number, Seats: 4, State: database.TableStateFREE, UserID: u.ID, CreatedAt: db.now()}
	db.tables[t.ID] = t
	return u, t
}

func (db *fakeDB) addDish(name, price string) database.Dish {
	d := database.Dish{
		ID:          uuid.New(),
		Name:        name,
		Price:       money.ToNumeric(decimal.RequireFromString(price)),
		Category:    database.DishCategoryMAIN,
		IsAvailable: true,
		CreatedAt:   db.now(),
	}
	db.dishes[d.ID] = d
	return d
}

func (db *fakeDB) setCash(balance string) {
	db.cash = &database.CashRegister{Singleton: true, Balance: money.ToNumeric(decimal.RequireFromString(balance)), UpdatedAt: db.now()}
}

func (db *fakeDB) activeCart(tableID uuid.UUID) (database.Cart, bool) {
	for _, c := range db.carts {
		if c.TableID == tableID && c.IsActive {
			return c, true
		}
	}
	return database.Cart{}, false
}

// --- CartStore ---

func (db *fakeDB) GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error) {
	d, ok := db.dishes[id]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	return d, nil
}

func (db *fakeDB) GetActiveCart(ctx context.Context, tableID uuid.UUID) (database.Cart, error) {
	if c, ok := db.activeCart(tableID); ok {
		return c, nil
	}
	return database.Cart{}, pgx.ErrNoRows
}

func (db *fakeDB) GetActiveCartForUpdate(ctx context.Context, tableID uuid.UUID) (database.Cart, error) {
	return db.GetActiveCart(ctx, tableID)
}

func (db *fakeDB) CreateCart(ctx context.Context, tableID uuid.UUID) (database.Cart, error) {
	if _, ok := db.activeCart(tableID); ok {
		return database.Cart{}, pgx.ErrNoRows
	}
	c := database.Cart{ID: uuid.New(), TableID: tableID, IsActive: true, CreatedAt: db.now()}
	db.carts[c.ID] = c
	return c, nil
}

func (db *fakeDB) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]database.ListCartItemsRow, error) {
	rows := []database.ListCartItemsRow{}
	for _, it := range db.cartItems {
		if it.CartID != cartID {
			continue
		}
		d := db.dishes[it.DishID]
		rows = append(rows, database.ListCartItemsRow{
			ID: it.ID, CartID: it.CartID, DishID: it.DishID, Quantity: it.Quantity,
			UnitPrice: it.UnitPrice, AddedAt: it.AddedAt, DishName: d.Name, DishCategory: d.Category,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AddedAt.Before(rows[j].AddedAt) })
	return rows, nil
}

func (db *fakeDB) GetCartItem(ctx context.Context, arg database.GetCartItemParams) (database.CartItem, error) {
	it, ok := db.cartItems[arg.ID]
	if !ok || it.CartID != arg.CartID {
		return database.CartItem{}, pgx.ErrNoRows
	}
	return it, nil
}

func (db *fakeDB) GetCartItemByDish(ctx context.Context, arg database.GetCartItemByDishParams) (database.CartItem, error) {
	for _, it := range db.cartItems {
		if it.CartID == arg.CartID && it.DishID == arg.DishID {
			return it, nil
		}
	}
	return database.CartItem{}, pgx.ErrNoRows
}

func (db *fakeDB) CreateCartItem(ctx context.Context, arg database.CreateCartItemParams) (database.CartItem, error) {
	if arg.Quantity < 1 || arg.Quantity > 10 {
		return database.CartItem{}, &pgconn.PgError{Code: "23514"}
	}
	it := database.CartItem{ID: uuid.New(), CartID: arg.CartID, DishID: arg.DishID, Quantity: arg.Quantity, UnitPrice: arg.UnitPrice, AddedAt: db.now()}
	db.cartItems[it.ID] = it
	return it, nil
}

func (db *fakeDB) UpdateCartItemQuantity(ctx context.Context, arg database.UpdateCartItemQuantityParams) (database.CartItem, error) {
	it, ok := db.cartItems[arg.ID]
	if !ok {
		return database.CartItem{}, pgx.ErrNoRows
	}
	if arg.Quantity < 1 || arg.Quantity > 10 {
		return database.CartItem{}, &pgconn.PgError{Code: "23514"}
	}
	it.Quantity = arg.Quantity
	db.cartItems[it.ID] = it
	return it, nil
}

func (db *fakeDB) DeleteCartItem(ctx context.Context, arg database.DeleteCartItemParams) (int64, error) {
	it, ok := db.cartItems[arg.ID]
	if !ok || it.CartID != arg.CartID {
		return 0, nil
	}
	delete(db.cartItems, arg.ID)
	return 1, nil
}

func (db *fakeDB) DeleteCartItems(ctx context.Context, cartID uuid.UUID) error {
	for id, it := range db.cartItems {
		if it.CartID == cartID {
			delete(db.cartItems, id)
		}
	}
	return nil
}

// --- OrderStore ---

func (db *fakeDB) DeactivateCart(ctx context.Context, id uuid.UUID) (database.Cart, error) {
	c, ok := db.carts[id]
	if !ok || !c.IsActive {
		return database.Cart{}, pgx.ErrNoRows
	}
	c.IsActive = false
	db.carts[id] = c
	return c, nil
}

func (db *fakeDB) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	if err := db.fail["CreateOrder"]; err != nil {
		return database.Order{}, err
	}
	db.orderSeq++
	now := db.now()
	o := database.Order{
		ID: uuid.New(), OrderNumber: db.orderSeq, TableID: arg.TableID, TotalAmount: arg.TotalAmount,
		Status: database.OrderStatusPENDING, CreatedAt: now, UpdatedAt: now,
	}
	db.orders[o.ID] = o
	return o, nil
}

func (db *fakeDB) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	if err := db.fail["CreateOrderItem"]; err != nil {
		return database.OrderItem{}, err
	}
	it := database.OrderItem{ID: uuid.New(), OrderID: arg.OrderID, DishID: arg.DishID, DishName: arg.DishName, Quantity: arg.Quantity, UnitPrice: arg.UnitPrice}
	db.orderItems = append(db.orderItems, it)
	return it, nil
}

func (db *fakeDB) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := db.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (db *fakeDB) GetOldestOrderByTableStatusForUpdate(ctx context.Context, arg database.GetOldestOrderByTableStatusForUpdateParams) (database.Order, error) {
	var found *database.Order
	for _, o := range db.orders {
		o := o
		if o.TableID != arg.TableID || o.Status != arg.Status {
			continue
		}
		if found == nil || o.OrderNumber < found.OrderNumber {
			found = &o
		}
	}
	if found == nil {
		return database.Order{}, pgx.ErrNoRows
	}
	return *found, nil
}

func (db *fakeDB) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	o, ok := db.orders[arg.ID]
	if !ok || o.Status != arg.FromStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.ServerID.Valid {
		o.ServerID = arg.ServerID
	}
	o.UpdatedAt = db.now()
	db.orders[o.ID] = o
	return o, nil
}

func (db *fakeDB) GetDiningTableForUpdate(ctx context.Context, id uuid.UUID) (database.DiningTable, error) {
	t, ok := db.tables[id]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (db *fakeDB) ListOpenOrderStatusesByTable(ctx context.Context, tableID uuid.UUID) ([]database.OrderStatus, error) {
	out := []database.OrderStatus{}
	for _, o := range db.orders {
		if o.TableID == tableID && o.Status != database.OrderStatusPAID && o.Status != database.OrderStatusCANCELLED {
			out = append(out, o.Status)
		}
	}
	return out, nil
}

func (db *fakeDB) UpdateDiningTableState(ctx context.Context, arg database.UpdateDiningTableStateParams) (database.DiningTable, error) {
	t, ok := db.tables[arg.ID]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.State = arg.State
	db.tables[t.ID] = t
	return t, nil
}

func (db *fakeDB) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	if _, ok := db.payments[arg.OrderID]; ok {
		return database.Payment{}, uniqueViolation("payments_order_id_key")
	}
	p := database.Payment{ID: uuid.New(), OrderID: arg.OrderID, Amount: arg.Amount, PaidAt: db.now()}
	db.payments[arg.OrderID] = p
	return p, nil
}

func (db *fakeDB) CreditCashRegister(ctx context.Context, amount pgtype.Numeric) (database.CashRegister, error) {
	if db.cash == nil {
		return database.CashRegister{}, pgx.ErrNoRows
	}
	db.cash.Balance = money.ToNumeric(money.FromNumeric(db.cash.Balance).Add(money.FromNumeric(amount)))
	db.cash.UpdatedAt = db.now()
	return *db.cash, nil
}

// --- LedgerStore ---

func (db *fakeDB) CreateCashRegister(ctx context.Context, balance pgtype.Numeric) (database.CashRegister, error) {
	if db.cash != nil {
		return database.CashRegister{}, uniqueViolation("cash_register_pkey")
	}
	db.cash = &database.CashRegister{Singleton: true, Balance: balance, UpdatedAt: db.now()}
	return *db.cash, nil
}

func (db *fakeDB) GetCashRegister(ctx context.Context) (database.CashRegister, error) {
	if db.cash == nil {
		return database.CashRegister{}, pgx.ErrNoRows
	}
	return *db.cash, nil
}

func (db *fakeDB) GetCashRegisterForUpdate(ctx context.Context) (database.CashRegister, error) {
	return db.GetCashRegister(ctx)
}

func (db *fakeDB) DebitCashRegister(ctx context.Context, amount pgtype.Numeric) (database.CashRegister, error) {
	if db.cash == nil {
		return database.CashRegister{}, pgx.ErrNoRows
	}
	bal := money.FromNumeric(db.cash.Balance)
	amt := money.FromNumeric(amount)
	if bal.LessThan(amt) {
		return database.CashRegister{}, pgx.ErrNoRows
	}
	db.cash.Balance = money.ToNumeric(bal.Sub(amt))
	db.cash.UpdatedAt = db.now()
	return *db.cash, nil
}

func (db *fakeDB) CreateExpense(ctx context.Context, arg database.CreateExpenseParams) (database.Expense, error) {
	if err := db.fail["CreateExpense"]; err != nil {
		return database.Expense{}, err
	}
	e := database.Expense{ID: uuid.New(), Motif: arg.Motif, Amount: arg.Amount, RecordedBy: arg.RecordedBy, RecordedAt: db.now()}
	db.expenses = append(db.expenses, e)
	return e, nil
}

// --- UserStore ---

func (db *fakeDB) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	for _, u := range db.users {
		if u.Login == arg.Login {
			return database.User{}, uniqueViolation("users_login_key")
		}
	}
	u := database.User{ID: uuid.New(), Login: arg.Login, HashedPassword: arg.HashedPassword, Role: arg.Role, IsActive: true, CreatedAt: db.now()}
	db.users[u.ID] = u
	return u, nil
}

func (db *fakeDB) CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error) {
	for _, t := range db.tables {
		if t.TableNumber == arg.TableNumber {
			return database.DiningTable{}, uniqueViolation("dining_tables_table_number_key")
		}
	}
	t := database.DiningTable{ID: uuid.New(), TableNumber: arg.TableNumber, Seats: arg.Seats, State: database.TableStateFREE, UserID: arg.UserID, CreatedAt: db.now()}
	db.tables[t.ID] = t
	return t, nil
}

// --- Service constructors over the fake ---

func newCartServiceFor(db *fakeDB) *CartService {
	return NewCartService(db, func(database.DBTX) CartStore { return db })
}

func newOrderServiceFor(db *fakeDB) *OrderService {
	return NewOrderService(db, func(database.DBTX) OrderStore { return db })
}

func newLedgerServiceFor(db *fakeDB) *LedgerService {
	return NewLedgerService(db, func(database.DBTX) LedgerStore { return db })
}

func tableActor(user database.User, table database.DiningTable) Actor {
	return Actor{UserID: user.ID, Role: "TABLE", TableID: table.ID}
}

func staffActor(role string) Actor {
	return Actor{UserID: uuid.New(), Role: role}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
