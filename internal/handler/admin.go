package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
)

// AdminStore defines the database methods needed by the admin overview.
// Satisfied by *database.Queries; narrow interface for testability.
type AdminStore interface {
	CountUsers(ctx context.Context) (int64, error)
	CountDishes(ctx context.Context) (database.CountDishesRow, error)
	CountDiningTablesByState(ctx context.Context) ([]database.CountDiningTablesByStateRow, error)
	GetCashRegister(ctx context.Context) (database.CashRegister, error)
	GetLatestOrder(ctx context.Context) (database.Order, error)
}

// AdminHandler serves the admin overview.
type AdminHandler struct {
	store AdminStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store AdminStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// RegisterRoutes registers GET /admin/overview.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/overview", h.Overview)
}

type overviewResponse struct {
	Users           int64            `json:"users"`
	Tables          int64            `json:"tables"`
	TablesByState   map[string]int64 `json:"tables_by_state"`
	Dishes          int64            `json:"dishes"`
	AvailableDishes int64            `json:"available_dishes"`
	CashInitialized bool             `json:"cash_initialized"`
	CashBalance     *string          `json:"cash_balance"`
	Currency        string           `json:"currency"`
	LatestOrderID   *uuid.UUID       `json:"latest_order_id"`
}

// Overview summarizes accounts, floor, menu and cash in one call.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := overviewResponse{TablesByState: map[string]int64{}, Currency: enum.Currency}

	users, err := h.store.CountUsers(ctx)
	if err != nil {
		internalError(w, "count users", err)
		return
	}
	resp.Users = users

	dishes, err := h.store.CountDishes(ctx)
	if err != nil {
		internalError(w, "count dishes", err)
		return
	}
	resp.Dishes = dishes.Total
	resp.AvailableDishes = dishes.Available

	states, err := h.store.CountDiningTablesByState(ctx)
	if err != nil {
		internalError(w, "count tables", err)
		return
	}
	for _, s := range states {
		resp.TablesByState[string(s.State)] = s.Count
		resp.Tables += s.Count
	}

	cash, err := h.store.GetCashRegister(ctx)
	switch {
	case err == nil:
		balance := money.String(cash.Balance)
		resp.CashInitialized = true
		resp.CashBalance = &balance
	case errors.Is(err, pgx.ErrNoRows):
	default:
		internalError(w, "get cash register", err)
		return
	}

	latest, err := h.store.GetLatestOrder(ctx)
	switch {
	case err == nil:
		resp.LatestOrderID = &latest.ID
	case errors.Is(err, pgx.ErrNoRows):
	default:
		internalError(w, "get latest order", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
