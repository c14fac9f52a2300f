package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/middleware"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/service"
	"github.com/restopos/api/internal/ws"
)

// CartServicer defines the service methods needed by cart handlers.
// Satisfied by *service.CartService; narrow interface for testability.
type CartServicer interface {
	Get(ctx context.Context, actor service.Actor) (*service.CartView, error)
	AddDish(ctx context.Context, actor service.Actor, dishID uuid.UUID, quantity int32) (*service.CartView, error)
	SetQuantity(ctx context.Context, actor service.Actor, itemID uuid.UUID, quantity int32) (*service.CartView, error)
	RemoveLine(ctx context.Context, actor service.Actor, itemID uuid.UUID) (*service.CartView, error)
	Clear(ctx context.Context, actor service.Actor) (*service.CartView, error)
}

// CheckoutServicer turns a cart into an order.
// Satisfied by *service.OrderService.
type CheckoutServicer interface {
	Checkout(ctx context.Context, actor service.Actor) (*service.CheckoutResult, error)
}

// CartHandler handles the calling table's cart.
type CartHandler struct {
	svc      CartServicer
	checkout CheckoutServicer
	pub      Publisher
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(svc CartServicer, checkout CheckoutServicer, pub Publisher) *CartHandler {
	return &CartHandler{svc: svc, checkout: checkout, pub: publisherOrNop(pub)}
}

// RegisterRoutes registers cart editing endpoints: /cart
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.RemoveItem)
}

// RegisterCheckoutRoutes registers POST /cart/checkout.
func (h *CartHandler) RegisterCheckoutRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

// --- Request / Response types ---

type addCartItemRequest struct {
	DishID   string `json:"dish_id"`
	Quantity *int32 `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type cartLineResponse struct {
	ID        uuid.UUID `json:"id"`
	DishID    uuid.UUID `json:"dish_id"`
	DishName  string    `json:"dish_name"`
	Category  string    `json:"category"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	LineTotal string    `json:"line_total"`
	AddedAt   time.Time `json:"added_at"`
}

type cartResponse struct {
	CartID   *uuid.UUID         `json:"cart_id"`
	TableID  uuid.UUID          `json:"table_id"`
	Items    []cartLineResponse `json:"items"`
	Total    string             `json:"total"`
	Currency string             `json:"currency"`
}

func toCartResponse(v *service.CartView) cartResponse {
	resp := cartResponse{
		TableID:  v.TableID,
		Items:    make([]cartLineResponse, len(v.Lines)),
		Total:    v.Total.StringFixed(money.Scale),
		Currency: enum.Currency,
	}
	if v.CartID != uuid.Nil {
		id := v.CartID
		resp.CartID = &id
	}
	for i, l := range v.Lines {
		resp.Items[i] = cartLineResponse{
			ID:        l.ItemID,
			DishID:    l.DishID,
			DishName:  l.DishName,
			Category:  string(l.Category),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(money.Scale),
			LineTotal: l.LineTotal.StringFixed(money.Scale),
			AddedAt:   l.AddedAt,
		}
	}
	return resp
}

// --- Helpers ---

func actorFromRequest(r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

// --- Handlers ---

// Get returns the caller's active cart, empty when there is none.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	view, err := h.svc.Get(r.Context(), actor)
	if err != nil {
		writeServiceError(w, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(view))
}

// AddItem adds a dish to the cart. quantity defaults to 1; an existing line
// for the same dish is incremented.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dishID, err := uuid.Parse(req.DishID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dish_id")
		return
	}
	quantity := int32(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.svc.AddDish(r.Context(), actor, dishID, quantity)
	if err != nil {
		writeServiceError(w, "add cart item", err)
		return
	}
	writeMutation(w, http.StatusOK, "dish added to cart", toCartResponse(view))
}

// UpdateItem sets a line's quantity.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	var req updateCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.svc.SetQuantity(r.Context(), actor, itemID, req.Quantity)
	if err != nil {
		writeServiceError(w, "update cart item", err)
		return
	}
	writeMutation(w, http.StatusOK, "quantity updated", toCartResponse(view))
}

// RemoveItem deletes a line.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}

	view, err := h.svc.RemoveLine(r.Context(), actor, itemID)
	if err != nil {
		writeServiceError(w, "remove cart item", err)
		return
	}
	writeMutation(w, http.StatusOK, "item removed", toCartResponse(view))
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	view, err := h.svc.Clear(r.Context(), actor)
	if err != nil {
		writeServiceError(w, "clear cart", err)
		return
	}
	writeMutation(w, http.StatusOK, "cart cleared", toCartResponse(view))
}

// Checkout places the cart as a new order and notifies the kitchen.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	result, err := h.checkout.Checkout(r.Context(), actor)
	if err != nil {
		writeServiceError(w, "checkout", err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	resp.TableNumber = result.Table.TableNumber
	h.pub.Publish(ws.ChannelKitchen, ws.EventOrderCreated, resp)
	h.pub.Publish(ws.TableChannel(result.Table.ID), ws.EventOrderCreated, resp)
	publishTable(h.pub, toTableEvent(result.Table))

	writeMutation(w, http.StatusCreated, "order placed", resp)
}
