package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
)

// --- Service interface ---

// DashboardServicer computes the accountant's landing view.
// Satisfied by *service.ReportService.
type DashboardServicer interface {
	Dashboard(ctx context.Context, now time.Time) (*service.Dashboard, error)
	Location() *time.Location
}

// --- DashboardHandler ---

// DashboardHandler handles accounting dashboard endpoints.
type DashboardHandler struct {
	svc DashboardServicer
	now func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc DashboardServicer) *DashboardHandler {
	return &DashboardHandler{svc: svc, now: time.Now}
}

// RegisterRoutes registers dashboard endpoints.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.GetDashboard)
}

// --- Response types ---

type totalsResponse struct {
	PaymentCount int64  `json:"payment_count"`
	Payments     string `json:"payments"`
	ExpenseCount int64  `json:"expense_count"`
	Expenses     string `json:"expenses"`
	Net          string `json:"net"`
}

type dashboardResponse struct {
	Date            string           `json:"date"`
	Today           totalsResponse   `json:"today"`
	CashInitialized bool             `json:"cash_initialized"`
	Balance         string           `json:"balance"`
	Currency        string           `json:"currency"`
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`
	TablesByState   map[string]int64 `json:"tables_by_state"`
}

// --- Handler ---

// GetDashboard returns today's payments and expenses, the cash balance and
// live order and table counters.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	d, err := h.svc.Dashboard(r.Context(), now)
	if err != nil {
		writeServiceError(w, "get dashboard", err)
		return
	}

	resp := dashboardResponse{
		Date:            now.In(h.svc.Location()).Format(dateLayout),
		Today:           buildTotals(d.Today),
		CashInitialized: d.CashInitialized,
		Balance:         d.Balance.StringFixed(money.Scale),
		Currency:        enum.Currency,
		OrdersByStatus:  make(map[string]int64, len(d.OrdersByStatus)),
		TablesByState:   make(map[string]int64, len(d.TablesByState)),
	}
	for status, n := range d.OrdersByStatus {
		resp.OrdersByStatus[string(status)] = n
	}
	for state, n := range d.TablesByState {
		resp.TablesByState[string(state)] = n
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Response builders ---

func buildTotals(t service.Totals) totalsResponse {
	return totalsResponse{
		PaymentCount: t.PaymentCount,
		Payments:     t.Payments.StringFixed(money.Scale),
		ExpenseCount: t.ExpenseCount,
		Expenses:     t.Expenses.StringFixed(money.Scale),
		Net:          t.Net.StringFixed(money.Scale),
	}
}
