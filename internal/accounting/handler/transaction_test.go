package handler_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restopos/api/internal/accounting/handler"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/middleware"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// --- Mocks ---

type mockTransactionStore struct {
	payments    []database.ListPaymentsRow
	expenses    []database.ListExpensesRow
	lastPayment database.ListPaymentsParams
	lastExpense database.ListExpensesParams
}

func (m *mockTransactionStore) ListPayments(_ context.Context, arg database.ListPaymentsParams) ([]database.ListPaymentsRow, error) {
	m.lastPayment = arg
	return m.payments, nil
}

func (m *mockTransactionStore) ListExpenses(_ context.Context, arg database.ListExpensesParams) ([]database.ListExpensesRow, error) {
	m.lastExpense = arg
	return m.expenses, nil
}

type mockLedger struct {
	balance decimal.Decimal
	motif   string
	amount  decimal.Decimal
}

func (m *mockLedger) RecordExpense(_ context.Context, actor service.Actor, motif string, amount decimal.Decimal) (*service.ExpenseResult, error) {
	if motif == "" {
		return nil, service.ErrMotifRequired
	}
	if amount.GreaterThan(m.balance) {
		return nil, service.ErrInsufficientCash
	}
	m.motif = motif
	m.amount = amount
	m.balance = m.balance.Sub(amount)
	return &service.ExpenseResult{
		Expense: database.Expense{
			ID:         uuid.New(),
			Motif:      motif,
			Amount:     numeric(amount.String()),
			RecordedBy: actor.UserID,
			RecordedAt: time.Now(),
		},
		Balance: m.balance,
	}, nil
}

type eventSpy struct {
	mu     sync.Mutex
	events []string
}

func (s *eventSpy) Publish(channel, eventType string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, channel+"|"+eventType)
}

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		panic(err)
	}
	return n
}

func setupTransactionRouter(store *mockTransactionStore, ledger *mockLedger, pub handler.Publisher) *chi.Mux {
	h := handler.NewTransactionHandler(store, ledger, pub, time.UTC)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/accounting/payments", h.RegisterPaymentRoutes)
	r.Route("/accounting/expenses", func(r chi.Router) {
		h.RegisterExpenseRoutes(r)
		h.RegisterExpenseWriteRoutes(r)
	})
	return r
}

// --- Tests ---

func TestListPayments(t *testing.T) {
	store := &mockTransactionStore{payments: []database.ListPaymentsRow{
		{ID: uuid.New(), OrderID: uuid.New(), Amount: numeric("56000"), PaidAt: time.Now(), OrderNumber: 12, TableNumber: "T1"},
	}}
	router := setupTransactionRouter(store, &mockLedger{}, nil)

	rr := doRequest(t, router, "GET", "/accounting/payments?start_date=2026-03-01&end_date=2026-03-01&limit=10&offset=20", nil, enum.UserRoleAccountant)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !store.lastPayment.StartAt.Equal(start) || !store.lastPayment.EndAt.Equal(start.AddDate(0, 0, 1)) {
		t.Errorf("window: got %v..%v", store.lastPayment.StartAt, store.lastPayment.EndAt)
	}
	if store.lastPayment.Limit != 10 || store.lastPayment.Offset != 20 {
		t.Errorf("pagination: got %d/%d", store.lastPayment.Limit, store.lastPayment.Offset)
	}

	resp := decodeJSON(t, rr)
	items := resp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}
	row := items[0].(map[string]interface{})
	if row["amount"] != "56000.00" || row["table_number"] != "T1" || row["order_number"] != float64(12) {
		t.Errorf("unexpected row: %v", row)
	}
	if resp["currency"] != "GNF" {
		t.Errorf("currency: got %v", resp["currency"])
	}
}

func TestListPayments_PaginationBounds(t *testing.T) {
	store := &mockTransactionStore{}
	router := setupTransactionRouter(store, &mockLedger{}, nil)

	doRequest(t, router, "GET", "/accounting/payments?limit=100000&offset=-4", nil, enum.UserRoleAccountant)
	if store.lastPayment.Limit != 500 || store.lastPayment.Offset != 0 {
		t.Errorf("pagination: got %d/%d, want 500/0", store.lastPayment.Limit, store.lastPayment.Offset)
	}

	rr := doRequest(t, router, "GET", "/accounting/payments", nil, enum.UserRoleAccountant)
	if store.lastPayment.Limit != 50 {
		t.Errorf("default limit: got %d, want 50", store.lastPayment.Limit)
	}
	if items := decodeJSON(t, rr)["items"].([]interface{}); len(items) != 0 {
		t.Errorf("items: got %v, want empty array", items)
	}
}

func TestListExpenses(t *testing.T) {
	store := &mockTransactionStore{expenses: []database.ListExpensesRow{
		{ID: uuid.New(), Motif: "gaz", Amount: numeric("6000"), RecordedBy: uuid.New(), RecordedAt: time.Now(), RecordedByLogin: "compta01"},
	}}
	router := setupTransactionRouter(store, &mockLedger{}, nil)

	rr := doRequest(t, router, "GET", "/accounting/expenses", nil, enum.UserRoleAccountant)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	row := decodeJSON(t, rr)["items"].([]interface{})[0].(map[string]interface{})
	if row["motif"] != "gaz" || row["amount"] != "6000.00" || row["recorded_by_login"] != "compta01" {
		t.Errorf("unexpected row: %v", row)
	}

	rr = doRequest(t, router, "GET", "/accounting/expenses?start_date=nope", nil, enum.UserRoleAccountant)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad date: got %d, want 400", rr.Code)
	}
}

func TestCreateExpense(t *testing.T) {
	ledger := &mockLedger{balance: dec("100000")}
	pub := &eventSpy{}
	router := setupTransactionRouter(&mockTransactionStore{}, ledger, pub)

	rr := doRequest(t, router, "POST", "/accounting/expenses", map[string]interface{}{
		"motif":  "achat légumes",
		"amount": "25000.50",
	}, enum.UserRoleAccountant)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeJSON(t, rr)
	if resp["message"] != "expense recorded" {
		t.Errorf("message: got %v", resp["message"])
	}
	if resp["balance"] != "74999.50" {
		t.Errorf("balance: got %v", resp["balance"])
	}
	data := resp["data"].(map[string]interface{})
	if data["amount"] != "25000.50" || data["motif"] != "achat légumes" {
		t.Errorf("unexpected expense: %v", data)
	}
	if !ledger.amount.Equal(dec("25000.50")) {
		t.Errorf("ledger amount: got %s", ledger.amount)
	}
	if len(pub.events) != 1 || pub.events[0] != ws.ChannelFinance+"|"+ws.EventExpenseRecorded {
		t.Errorf("events: got %v", pub.events)
	}
}

func TestCreateExpense_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
		want   string
	}{
		{"zero amount", map[string]interface{}{"motif": "x", "amount": "0"}, http.StatusBadRequest, service.ErrInvalidAmount.Error()},
		{"three decimals", map[string]interface{}{"motif": "x", "amount": "1.001"}, http.StatusBadRequest, service.ErrInvalidAmount.Error()},
		{"not a number", map[string]interface{}{"motif": "x", "amount": "abc"}, http.StatusBadRequest, service.ErrInvalidAmount.Error()},
		{"beyond column", map[string]interface{}{"motif": "x", "amount": "10000000000"}, http.StatusBadRequest, service.ErrInvalidAmount.Error()},
		{"no motif", map[string]interface{}{"amount": "10"}, http.StatusBadRequest, service.ErrMotifRequired.Error()},
		{"over balance", map[string]interface{}{"motif": "x", "amount": "1000.01"}, http.StatusConflict, service.ErrInsufficientCash.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &eventSpy{}
			router := setupTransactionRouter(&mockTransactionStore{}, &mockLedger{balance: dec("1000")}, pub)
			rr := doRequest(t, router, "POST", "/accounting/expenses", tt.body, enum.UserRoleAccountant)
			if rr.Code != tt.status {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.status)
			}
			if resp := decodeJSON(t, rr); resp["error"] != tt.want {
				t.Errorf("error: got %v, want %q", resp["error"], tt.want)
			}
			if len(pub.events) != 0 {
				t.Errorf("no event expected, got %v", pub.events)
			}
		})
	}
}
