package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
)

// TableServicer defines the floor actions on a table.
// Satisfied by *service.OrderService; narrow interface for testability.
type TableServicer interface {
	MarkServed(ctx context.Context, actor service.Actor, tableID uuid.UUID) (*service.TransitionResult, error)
	ValidatePayment(ctx context.Context, actor service.Actor, tableID uuid.UUID) (*service.PaymentResult, error)
}

// TableStore defines the database methods needed by table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListDiningTables(ctx context.Context) ([]database.DiningTable, error)
	GetDiningTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	ListOrdersByTable(ctx context.Context, arg database.ListOrdersByTableParams) ([]database.Order, error)
	GetCurrentOrderByTable(ctx context.Context, tableID uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// TableHandler handles the server's floor view.
type TableHandler struct {
	svc   TableServicer
	store TableStore
	pub   Publisher
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(svc TableServicer, store TableStore, pub Publisher) *TableHandler {
	return &TableHandler{svc: svc, store: store, pub: publisherOrNop(pub)}
}

// RegisterRoutes registers table endpoints: /tables
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/serve", h.Serve)
	r.Post("/{id}/payment", h.Payment)
}

// --- Request / Response types ---

type tableResponse struct {
	ID          uuid.UUID `json:"id"`
	TableNumber string    `json:"table_number"`
	Seats       int32     `json:"seats"`
	State       string    `json:"state"`
	UserID      uuid.UUID `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type tableStats struct {
	Total           int `json:"total"`
	Free            int `json:"free"`
	AwaitingService int `json:"awaiting_service"`
	Served          int `json:"served"`
	Paid            int `json:"paid"`
}

type tableListResponse struct {
	Tables []tableResponse `json:"tables"`
	Stats  tableStats      `json:"stats"`
}

type tableDetailResponse struct {
	tableResponse
	CurrentOrder *orderResponse  `json:"current_order"`
	Orders       []orderResponse `json:"orders"`
}

type paymentResultResponse struct {
	Order    orderResponse   `json:"order"`
	Payment  paymentResponse `json:"payment"`
	Table    tableResponse   `json:"table"`
	Balance  string          `json:"balance"`
	Currency string          `json:"currency"`
}

func toTableResponse(t database.DiningTable) tableResponse {
	return tableResponse{
		ID:          t.ID,
		TableNumber: t.TableNumber,
		Seats:       t.Seats,
		State:       string(t.State),
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
	}
}

// --- Handlers ---

// List returns every table with a count per state.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListDiningTables(r.Context())
	if err != nil {
		internalError(w, "list dining tables", err)
		return
	}

	resp := tableListResponse{Tables: make([]tableResponse, len(tables))}
	resp.Stats.Total = len(tables)
	for i, t := range tables {
		resp.Tables[i] = toTableResponse(t)
		switch t.State {
		case database.TableStateFREE:
			resp.Stats.Free++
		case database.TableStateAWAITINGSERVICE:
			resp.Stats.AwaitingService++
		case database.TableStateSERVED:
			resp.Stats.Served++
		case database.TableStatePAID:
			resp.Stats.Paid++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a table, its current open order and its history, newest first.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	table, err := h.store.GetDiningTable(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "table not found")
			return
		}
		internalError(w, "get dining table", err)
		return
	}

	resp := tableDetailResponse{tableResponse: toTableResponse(table)}

	current, err := h.store.GetCurrentOrderByTable(r.Context(), table.ID)
	switch {
	case err == nil:
		items, err := h.store.ListOrderItemsByOrder(r.Context(), current.ID)
		if err != nil {
			internalError(w, "list order items", err)
			return
		}
		o := toOrderResponse(current, items)
		o.TableNumber = table.TableNumber
		resp.CurrentOrder = &o
	case errors.Is(err, pgx.ErrNoRows):
	default:
		internalError(w, "get current order", err)
		return
	}

	orders, err := h.store.ListOrdersByTable(r.Context(), database.ListOrdersByTableParams{
		TableID: table.ID,
		Limit:   orderHistoryLimit,
	})
	if err != nil {
		internalError(w, "list orders by table", err)
		return
	}
	resp.Orders = make([]orderResponse, len(orders))
	for i, o := range orders {
		resp.Orders[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Serve marks the table's oldest READY order as SERVED.
func (h *TableHandler) Serve(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	result, err := h.svc.MarkServed(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, "mark served", err)
		return
	}

	publishTransition(h.pub, result)
	resp := toOrderResponse(result.Order, nil)
	resp.TableNumber = result.Table.TableNumber
	writeMutation(w, http.StatusOK, "order served", resp)
}

// Payment validates the payment of the table's oldest SERVED order and
// credits the cash register.
func (h *TableHandler) Payment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid table ID")
		return
	}

	result, err := h.svc.ValidatePayment(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, "validate payment", err)
		return
	}

	order := toOrderResponse(result.Order, nil)
	order.TableNumber = result.Table.TableNumber
	resp := paymentResultResponse{
		Order:    order,
		Payment:  *toPaymentResponse(result.Payment),
		Table:    toTableResponse(result.Table),
		Balance:  result.Balance.StringFixed(money.Scale),
		Currency: enum.Currency,
	}

	publishTransition(h.pub, &service.TransitionResult{Order: result.Order, Table: result.Table})
	h.pub.Publish(ws.ChannelFinance, ws.EventPaymentValidated, resp)

	logger.Infof("payment of %s %s validated for table %s", resp.Payment.Amount, enum.Currency, result.Table.TableNumber)
	writeMutation(w, http.StatusOK, "payment validated", resp)
}
