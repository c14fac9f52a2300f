package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restopos/api/internal/access"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
)

const orderHistoryLimit = 50

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Advance(ctx context.Context, actor service.Actor, orderID uuid.UUID, to database.OrderStatus) (*service.TransitionResult, error)
	Cancel(ctx context.Context, actor service.Actor, orderID uuid.UUID) (*service.TransitionResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrdersByTable(ctx context.Context, arg database.ListOrdersByTableParams) ([]database.Order, error)
	ListKitchenOrders(ctx context.Context) ([]database.ListKitchenOrdersRow, error)
	GetDiningTable(ctx context.Context, id uuid.UUID) (database.DiningTable, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	pub   Publisher
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, pub Publisher) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, pub: publisherOrNop(pub)}
}

// RegisterTableRoutes registers the calling table's history: /orders/mine
func (h *OrderHandler) RegisterTableRoutes(r chi.Router) {
	r.Get("/mine", h.Mine)
}

// RegisterRoutes registers order detail, scoped per caller: /orders/{id}
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
}

// RegisterKitchenRoutes registers the kitchen board: /kitchen/orders
func (h *OrderHandler) RegisterKitchenRoutes(r chi.Router) {
	r.Get("/", h.Kitchen)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// RegisterServeRoutes registers server-only order actions: /orders/{id}/cancel
func (h *OrderHandler) RegisterServeRoutes(r chi.Router) {
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	DishID    uuid.UUID `json:"dish_id"`
	DishName  string    `json:"dish_name"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
}

type paymentResponse struct {
	ID      uuid.UUID `json:"id"`
	OrderID uuid.UUID `json:"order_id"`
	Amount  string    `json:"amount"`
	PaidAt  time.Time `json:"paid_at"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	OrderNumber int64               `json:"order_number"`
	TableID     uuid.UUID           `json:"table_id"`
	TableNumber string              `json:"table_number,omitempty"`
	Status      string              `json:"status"`
	StatusLabel string              `json:"status_label"`
	TotalAmount string              `json:"total_amount"`
	Currency    string              `json:"currency"`
	ServerID    *uuid.UUID          `json:"server_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Items       []orderItemResponse `json:"items,omitempty"`
	Payment     *paymentResponse    `json:"payment,omitempty"`
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		TableID:     o.TableID,
		Status:      string(o.Status),
		StatusLabel: enum.OrderStatusLabels[string(o.Status)],
		TotalAmount: money.String(o.TotalAmount),
		Currency:    enum.Currency,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.ServerID.Valid {
		id := uuid.UUID(o.ServerID.Bytes)
		resp.ServerID = &id
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, it := range items {
			price := money.FromNumeric(it.UnitPrice)
			resp.Items[i] = orderItemResponse{
				ID:        it.ID,
				DishID:    it.DishID,
				DishName:  it.DishName,
				Quantity:  it.Quantity,
				UnitPrice: price.StringFixed(money.Scale),
				LineTotal: money.LineTotal(it.Quantity, price).StringFixed(money.Scale),
			}
		}
	}
	return resp
}

func toPaymentResponse(p database.Payment) *paymentResponse {
	return &paymentResponse{ID: p.ID, OrderID: p.OrderID, Amount: money.String(p.Amount), PaidAt: p.PaidAt}
}

func toTableEvent(t database.DiningTable) tableEvent {
	return tableEvent{ID: t.ID, TableNumber: t.TableNumber, State: string(t.State)}
}

// --- Helpers ---

// publishTransition tells every party that follows an order about its new status.
func publishTransition(p Publisher, result *service.TransitionResult) {
	resp := toOrderResponse(result.Order, nil)
	resp.TableNumber = result.Table.TableNumber
	p.Publish(ws.ChannelKitchen, ws.EventOrderStatus, resp)
	p.Publish(ws.ChannelFloor, ws.EventOrderStatus, resp)
	p.Publish(ws.TableChannel(result.Table.ID), ws.EventOrderStatus, resp)
	publishTable(p, toTableEvent(result.Table))
}

// --- Handlers ---

// Mine returns the calling table's orders, newest first.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if actor.TableID == uuid.Nil {
		writeServiceError(w, "list my orders", service.ErrNoTable)
		return
	}

	limit := orderHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v < limit {
			limit = v
		}
	}

	orders, err := h.store.ListOrdersByTable(r.Context(), database.ListOrdersByTableParams{
		TableID: actor.TableID,
		Limit:   int32(limit),
	})
	if err != nil {
		internalError(w, "list orders by table", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns an order with its items. Staff who can view orders see any
// order; a table sees only its own, anything else is reported as not found.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, "get order", err)
		return
	}
	if !actor.Can(access.ViewOrders) && (actor.TableID == uuid.Nil || order.TableID != actor.TableID) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		internalError(w, "list order items", err)
		return
	}

	resp := toOrderResponse(order, items)

	table, err := h.store.GetDiningTable(r.Context(), order.TableID)
	if err != nil {
		internalError(w, "get dining table", err)
		return
	}
	resp.TableNumber = table.TableNumber

	payment, err := h.store.GetPaymentByOrder(r.Context(), order.ID)
	switch {
	case err == nil:
		resp.Payment = toPaymentResponse(payment)
	case errors.Is(err, pgx.ErrNoRows):
	default:
		internalError(w, "get payment", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Kitchen lists PENDING, PREPARING and READY orders, oldest first, with items.
func (h *OrderHandler) Kitchen(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListKitchenOrders(r.Context())
	if err != nil {
		internalError(w, "list kitchen orders", err)
		return
	}

	resp := make([]orderResponse, len(rows))
	for i, row := range rows {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), row.ID)
		if err != nil {
			internalError(w, "list order items", err)
			return
		}
		resp[i] = toOrderResponse(database.Order{
			ID:          row.ID,
			OrderNumber: row.OrderNumber,
			TableID:     row.TableID,
			TotalAmount: row.TotalAmount,
			Status:      row.Status,
			ServerID:    row.ServerID,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		}, items)
		resp[i].TableNumber = row.TableNumber
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order through the kitchen: PREPARING or READY.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to := database.OrderStatus(req.Status)
	if to != database.OrderStatusPREPARING && to != database.OrderStatusREADY {
		writeError(w, http.StatusBadRequest, "status must be PREPARING or READY")
		return
	}

	result, err := h.svc.Advance(r.Context(), actor, orderID, to)
	if err != nil {
		writeServiceError(w, "advance order", err)
		return
	}

	publishTransition(h.pub, result)
	writeMutation(w, http.StatusOK, "order is now "+enum.OrderStatusLabels[string(to)], toOrderResponse(result.Order, nil))
}

// Cancel cancels a PENDING or PREPARING order.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	result, err := h.svc.Cancel(r.Context(), actor, orderID)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}

	publishTransition(h.pub, result)
	writeMutation(w, http.StatusOK, "order cancelled", toOrderResponse(result.Order, nil))
}
