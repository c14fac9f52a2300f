package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
	"github.com/shopspring/decimal"
)

// --- Store interface ---

// TransactionStore lists the money movements of the cash register.
// Satisfied by *database.Queries.
type TransactionStore interface {
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.ListPaymentsRow, error)
	ListExpenses(ctx context.Context, arg database.ListExpensesParams) ([]database.ListExpensesRow, error)
}

// ExpenseRecorder debits the cash register for an expense.
// Satisfied by *service.LedgerService.
type ExpenseRecorder interface {
	RecordExpense(ctx context.Context, actor service.Actor, motif string, amount decimal.Decimal) (*service.ExpenseResult, error)
}

// --- TransactionHandler ---

// TransactionHandler handles payments and expenses.
type TransactionHandler struct {
	store  TransactionStore
	ledger ExpenseRecorder
	pub    Publisher
	loc    *time.Location
	now    func() time.Time
}

// NewTransactionHandler creates a new TransactionHandler. Date filters are
// read as calendar days in loc.
func NewTransactionHandler(store TransactionStore, ledger ExpenseRecorder, pub Publisher, loc *time.Location) *TransactionHandler {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &TransactionHandler{store: store, ledger: ledger, pub: pub, loc: loc, now: time.Now}
}

// RegisterPaymentRoutes registers GET /accounting/payments.
func (h *TransactionHandler) RegisterPaymentRoutes(r chi.Router) {
	r.Get("/", h.ListPayments)
}

// RegisterExpenseRoutes registers GET /accounting/expenses.
func (h *TransactionHandler) RegisterExpenseRoutes(r chi.Router) {
	r.Get("/", h.ListExpenses)
}

// RegisterExpenseWriteRoutes registers POST /accounting/expenses.
func (h *TransactionHandler) RegisterExpenseWriteRoutes(r chi.Router) {
	r.Post("/", h.CreateExpense)
}

// --- Request / Response types ---

type paymentRowResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	TableNumber string    `json:"table_number"`
	Amount      string    `json:"amount"`
	PaidAt      time.Time `json:"paid_at"`
}

type expenseResponse struct {
	ID              uuid.UUID `json:"id"`
	Motif           string    `json:"motif"`
	Amount          string    `json:"amount"`
	RecordedBy      uuid.UUID `json:"recorded_by"`
	RecordedByLogin string    `json:"recorded_by_login,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}

type listResponse struct {
	Items    any    `json:"items"`
	Currency string `json:"currency"`
	Limit    int32  `json:"limit"`
	Offset   int32  `json:"offset"`
}

type createExpenseRequest struct {
	Motif  string `json:"motif"`
	Amount string `json:"amount"`
}

type createExpenseResponse struct {
	Message string          `json:"message"`
	Data    expenseResponse `json:"data"`
	Balance string          `json:"balance"`
}

// --- Handlers ---

// ListPayments returns validated payments in start_date..end_date, newest first.
func (h *TransactionHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, h.loc, h.now())
	if err != nil {
		writeServiceError(w, "parse period", err)
		return
	}
	limit, offset := parsePagination(r)

	rows, err := h.store.ListPayments(r.Context(), database.ListPaymentsParams{
		StartAt: period.Start,
		EndAt:   period.End,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		logger.Errorf("list payments: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]paymentRowResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, paymentRowResponse{
			ID:          row.ID,
			OrderID:     row.OrderID,
			OrderNumber: row.OrderNumber,
			TableNumber: row.TableNumber,
			Amount:      money.String(row.Amount),
			PaidAt:      row.PaidAt,
		})
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Currency: enum.Currency, Limit: limit, Offset: offset})
}

// ListExpenses returns expenses in start_date..end_date, newest first.
func (h *TransactionHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, h.loc, h.now())
	if err != nil {
		writeServiceError(w, "parse period", err)
		return
	}
	limit, offset := parsePagination(r)

	rows, err := h.store.ListExpenses(r.Context(), database.ListExpensesParams{
		StartAt: period.Start,
		EndAt:   period.End,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		logger.Errorf("list expenses: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items := make([]expenseResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, expenseResponse{
			ID:              row.ID,
			Motif:           row.Motif,
			Amount:          money.String(row.Amount),
			RecordedBy:      row.RecordedBy,
			RecordedByLogin: row.RecordedByLogin,
			RecordedAt:      row.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Currency: enum.Currency, Limit: limit, Offset: offset})
}

// CreateExpense records an expense paid from the cash register.
func (h *TransactionHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		writeServiceError(w, "parse amount", service.ErrInvalidAmount)
		return
	}

	result, err := h.ledger.RecordExpense(r.Context(), actor, req.Motif, amount)
	if err != nil {
		writeServiceError(w, "record expense", err)
		return
	}

	resp := createExpenseResponse{
		Message: "expense recorded",
		Data: expenseResponse{
			ID:         result.Expense.ID,
			Motif:      result.Expense.Motif,
			Amount:     money.String(result.Expense.Amount),
			RecordedBy: result.Expense.RecordedBy,
			RecordedAt: result.Expense.RecordedAt,
		},
		Balance: result.Balance.StringFixed(money.Scale),
	}
	h.pub.Publish(ws.ChannelFinance, ws.EventExpenseRecorded, resp.Data)

	writeJSON(w, http.StatusCreated, resp)
}
