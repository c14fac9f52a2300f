package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/restopos/api/internal/access"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/middleware"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/ws"
)

// DishStore defines the database methods needed by dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DishStore interface {
	ListDishes(ctx context.Context, arg database.ListDishesParams) ([]database.Dish, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error)
	SetDishAvailability(ctx context.Context, arg database.SetDishAvailabilityParams) (database.Dish, error)
}

// DishHandler handles menu endpoints.
type DishHandler struct {
	store DishStore
	pub   Publisher
}

// NewDishHandler creates a new DishHandler.
func NewDishHandler(store DishStore, pub Publisher) *DishHandler {
	return &DishHandler{store: store, pub: publisherOrNop(pub)}
}

// RegisterRoutes registers the read endpoints, open to anyone who can view
// the menu: /dishes
func (h *DishHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterManageRoutes registers the menu editing endpoints: /dishes
func (h *DishHandler) RegisterManageRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/availability", h.SetAvailability)
}

// --- Request / Response types ---

type dishRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	IsAvailable *bool  `json:"is_available"`
}

type availabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

type dishResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         string    `json:"price"`
	Currency      string    `json:"currency"`
	Category      string    `json:"category"`
	CategoryLabel string    `json:"category_label"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toDishResponse(d database.Dish) dishResponse {
	return dishResponse{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         money.String(d.Price),
		Currency:      enum.Currency,
		Category:      string(d.Category),
		CategoryLabel: enum.CategoryLabels[string(d.Category)],
		IsAvailable:   d.IsAvailable,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// --- Helpers ---

func isValidCategory(c string) bool {
	switch database.DishCategory(c) {
	case database.DishCategorySTARTER, database.DishCategoryMAIN,
		database.DishCategoryDESSERT, database.DishCategoryDRINK:
		return true
	}
	return false
}

// canManageMenu reports whether the caller may see unavailable dishes.
func canManageMenu(r *http.Request) bool {
	claims := middleware.ClaimsFromContext(r.Context())
	return claims != nil && access.For(claims.Role).Can(access.ManageMenu)
}

// validateDish checks a create/update body and returns the parsed price.
func validateDish(req *dishRequest) (pgtype.Numeric, string) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return pgtype.Numeric{}, "name is required"
	}
	if utf8.RuneCountInString(req.Name) > enum.DishNameMaxLength {
		return pgtype.Numeric{}, "name must be at most 100 characters"
	}
	if req.Price == "" {
		return pgtype.Numeric{}, "price is required"
	}
	price, err := money.ParsePositive(req.Price)
	if err != nil {
		return pgtype.Numeric{}, "price must be a positive amount with at most 2 decimals"
	}
	if price.GreaterThan(money.MaxUnitPrice) {
		return pgtype.Numeric{}, "price must not exceed " + money.MaxUnitPrice.StringFixed(money.Scale)
	}
	if !isValidCategory(req.Category) {
		return pgtype.Numeric{}, "invalid category"
	}
	return money.ToNumeric(price), ""
}

// --- Handlers ---

// List returns the menu. Filters: category, q (name/description substring)
// and all=true, which includes unavailable dishes for menu managers.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := database.ListDishesParams{AvailableOnly: true}

	if c := q.Get("category"); c != "" {
		if !isValidCategory(c) {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		params.Category = database.NullDishCategory{DishCategory: database.DishCategory(c), Valid: true}
	}
	if s := strings.TrimSpace(q.Get("q")); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}
	if all, _ := strconv.ParseBool(q.Get("all")); all && canManageMenu(r) {
		params.AvailableOnly = false
	}

	dishes, err := h.store.ListDishes(r.Context(), params)
	if err != nil {
		internalError(w, "list dishes", err)
		return
	}

	resp := make([]dishResponse, len(dishes))
	for i, d := range dishes {
		resp[i] = toDishResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single dish. Unavailable dishes are only visible to menu managers.
func (h *DishHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	dish, err := h.store.GetDish(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		internalError(w, "get dish", err)
		return
	}
	if !dish.IsAvailable && !canManageMenu(r) {
		writeError(w, http.StatusNotFound, "dish not found")
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(dish))
}

// Create adds a dish to the menu.
func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, msg := validateDish(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	dish, err := h.store.CreateDish(r.Context(), database.CreateDishParams{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		Category:    database.DishCategory(req.Category),
		IsAvailable: available,
	})
	if err != nil {
		internalError(w, "create dish", err)
		return
	}

	logger.Infof("dish %q created at %s", dish.Name, money.String(dish.Price))
	writeMutation(w, http.StatusCreated, "dish created", toDishResponse(dish))
}

// Update replaces a dish's name, description, price and category. Carts and
// orders keep the price they captured.
func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	var req dishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	price, msg := validateDish(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	dish, err := h.store.UpdateDish(r.Context(), database.UpdateDishParams{
		ID:          id,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Price:       price,
		Category:    database.DishCategory(req.Category),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		internalError(w, "update dish", err)
		return
	}

	writeMutation(w, http.StatusOK, "dish updated", toDishResponse(dish))
}

// SetAvailability toggles whether a dish can be ordered.
func (h *DishHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid dish ID")
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsAvailable == nil {
		writeError(w, http.StatusBadRequest, "is_available is required")
		return
	}

	dish, err := h.store.SetDishAvailability(r.Context(), database.SetDishAvailabilityParams{
		ID:          id,
		IsAvailable: *req.IsAvailable,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "dish not found")
			return
		}
		internalError(w, "set dish availability", err)
		return
	}

	resp := toDishResponse(dish)
	h.pub.Publish(ws.ChannelKitchen, ws.EventDishAvailability, resp)
	h.pub.Publish(ws.ChannelFloor, ws.EventDishAvailability, resp)

	msg := "dish is now unavailable"
	if dish.IsAvailable {
		msg = "dish is now available"
	}
	writeMutation(w, http.StatusOK, msg, resp)
}
