package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"github.com/restopos/api/internal/handler"
	"github.com/restopos/api/internal/middleware"
	"github.com/restopos/api/internal/money"
	"github.com/restopos/api/internal/ws"
)

// --- Mock store ---

type mockDishStore struct {
	dishes     map[uuid.UUID]database.Dish
	lastParams database.ListDishesParams
	createErr  error
}

func newMockDishStore() *mockDishStore {
	return &mockDishStore{dishes: make(map[uuid.UUID]database.Dish)}
}

func (m *mockDishStore) addDish(name, price string, category database.DishCategory, available bool) database.Dish {
	d := database.Dish{
		ID:          uuid.New(),
		Name:        name,
		Price:       numeric(price),
		Category:    category,
		IsAvailable: available,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.dishes[d.ID] = d
	return d
}

func (m *mockDishStore) ListDishes(_ context.Context, arg database.ListDishesParams) ([]database.Dish, error) {
	m.lastParams = arg
	var out []database.Dish
	for _, d := range m.dishes {
		if arg.AvailableOnly && !d.IsAvailable {
			continue
		}
		if arg.Category.Valid && d.Category != arg.Category.DishCategory {
			continue
		}
		if arg.Search.Valid && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(arg.Search.String)) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDishStore) GetDish(_ context.Context, id uuid.UUID) (database.Dish, error) {
	d, ok := m.dishes[id]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *mockDishStore) CreateDish(_ context.Context, arg database.CreateDishParams) (database.Dish, error) {
	if m.createErr != nil {
		return database.Dish{}, m.createErr
	}
	d := database.Dish{
		ID:          uuid.New(),
		Name:        arg.Name,
		Description: arg.Description,
		Price:       arg.Price,
		Category:    arg.Category,
		IsAvailable: arg.IsAvailable,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.dishes[d.ID] = d
	return d, nil
}

func (m *mockDishStore) UpdateDish(_ context.Context, arg database.UpdateDishParams) (database.Dish, error) {
	d, ok := m.dishes[arg.ID]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	d.Name = arg.Name
	d.Description = arg.Description
	d.Price = arg.Price
	d.Category = arg.Category
	d.UpdatedAt = time.Now()
	m.dishes[d.ID] = d
	return d, nil
}

func (m *mockDishStore) SetDishAvailability(_ context.Context, arg database.SetDishAvailabilityParams) (database.Dish, error) {
	d, ok := m.dishes[arg.ID]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	d.IsAvailable = arg.IsAvailable
	m.dishes[d.ID] = d
	return d, nil
}

func setupDishRouter(store *mockDishStore, pub handler.Publisher) *chi.Mux {
	h := handler.NewDishHandler(store, pub)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/dishes", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterManageRoutes(r)
	})
	return r
}

// --- Tests ---

func TestListDishes_HidesUnavailableFromTables(t *testing.T) {
	store := newMockDishStore()
	store.addDish("Soupe", "8000", database.DishCategorySTARTER, true)
	store.addDish("Homard", "90000", database.DishCategoryMAIN, false)
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "GET", "/dishes?all=true", nil, tableClaims(uuid.New()))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["name"] != "Soupe" {
		t.Fatalf("expected only Soupe, got %v", list)
	}
	if list[0]["price"] != "8000.00" || list[0]["currency"] != "GNF" {
		t.Errorf("price/currency: got %v %v", list[0]["price"], list[0]["currency"])
	}
	if list[0]["category_label"] != "Entrée" {
		t.Errorf("category_label: got %v", list[0]["category_label"])
	}
	if !store.lastParams.AvailableOnly {
		t.Error("all=true must be ignored for tables")
	}
}

func TestListDishes_AllForCooks(t *testing.T) {
	store := newMockDishStore()
	store.addDish("Soupe", "8000", database.DishCategorySTARTER, true)
	store.addDish("Homard", "90000", database.DishCategoryMAIN, false)
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "GET", "/dishes?all=true", nil, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if list := decodeList(t, rr); len(list) != 2 {
		t.Errorf("expected 2 dishes, got %d", len(list))
	}
}

func TestListDishes_Filters(t *testing.T) {
	store := newMockDishStore()
	store.addDish("Soupe", "8000", database.DishCategorySTARTER, true)
	store.addDish("Steak", "40000", database.DishCategoryMAIN, true)
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "GET", "/dishes?category=MAIN", nil, tableClaims(uuid.New()))
	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["name"] != "Steak" {
		t.Errorf("category filter: got %v", list)
	}

	rr = doAuthRequest(t, router, "GET", "/dishes?q=sou", nil, tableClaims(uuid.New()))
	list = decodeList(t, rr)
	if len(list) != 1 || list[0]["name"] != "Soupe" {
		t.Errorf("search filter: got %v", list)
	}

	rr = doAuthRequest(t, router, "GET", "/dishes?category=SNACK", nil, tableClaims(uuid.New()))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid category: got %d, want 400", rr.Code)
	}
}

func TestGetDish_UnavailableIsNotFoundForTables(t *testing.T) {
	store := newMockDishStore()
	d := store.addDish("Homard", "90000", database.DishCategoryMAIN, false)
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "GET", "/dishes/"+d.ID.String(), nil, tableClaims(uuid.New()))
	if rr.Code != http.StatusNotFound {
		t.Errorf("table: got %d, want 404", rr.Code)
	}

	rr = doAuthRequest(t, router, "GET", "/dishes/"+d.ID.String(), nil, staffClaims(enum.UserRoleAdmin))
	if rr.Code != http.StatusOK {
		t.Errorf("admin: got %d, want 200", rr.Code)
	}

	rr = doAuthRequest(t, router, "GET", "/dishes/not-a-uuid", nil, staffClaims(enum.UserRoleAdmin))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want 400", rr.Code)
	}
}

func TestCreateDish(t *testing.T) {
	store := newMockDishStore()
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "POST", "/dishes", map[string]interface{}{
		"name":     "  Tarte  ",
		"price":    "12000.50",
		"category": "DESSERT",
	}, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["message"] != "dish created" {
		t.Errorf("message: got %v", resp["message"])
	}
	data := dataOf(t, resp)
	if data["name"] != "Tarte" || data["price"] != "12000.50" || data["is_available"] != true {
		t.Errorf("unexpected dish: %v", data)
	}
}

func TestCreateDish_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"no name", map[string]interface{}{"price": "10", "category": "MAIN"}, "name is required"},
		{"no price", map[string]interface{}{"name": "X", "category": "MAIN"}, "price is required"},
		{"zero price", map[string]interface{}{"name": "X", "price": "0", "category": "MAIN"}, "price must be a positive amount with at most 2 decimals"},
		{"three decimals", map[string]interface{}{"name": "X", "price": "1.005", "category": "MAIN"}, "price must be a positive amount with at most 2 decimals"},
		{"bad category", map[string]interface{}{"name": "X", "price": "10", "category": "SNACK"}, "invalid category"},
		{"name too long", map[string]interface{}{"name": strings.Repeat("x", 101), "price": "10", "category": "MAIN"}, "name must be at most 100 characters"},
		{"price beyond column", map[string]interface{}{"name": "X", "price": "1e12", "category": "MAIN"}, "price must be a positive amount with at most 2 decimals"},
		{"price above ceiling", map[string]interface{}{"name": "X", "price": "100000000", "category": "MAIN"}, "price must not exceed 99999999.99"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupDishRouter(newMockDishStore(), nil)
			rr := doAuthRequest(t, router, "POST", "/dishes", tt.body, staffClaims(enum.UserRoleCook))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rr.Code)
			}
			if resp := decodeResponse(t, rr); resp["error"] != tt.want {
				t.Errorf("error: got %v, want %q", resp["error"], tt.want)
			}
		})
	}
}

func TestCreateDish_AtLimits(t *testing.T) {
	router := setupDishRouter(newMockDishStore(), nil)
	body := map[string]interface{}{"name": strings.Repeat("é", 100), "price": "99999999.99", "category": "MAIN"}

	rr := doAuthRequest(t, router, "POST", "/dishes", body, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201; body: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateDish_ColumnOverflowIsBadRequest(t *testing.T) {
	store := newMockDishStore()
	store.createErr = &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(100)"}
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "POST", "/dishes",
		map[string]interface{}{"name": "Soupe", "price": "8000", "category": "STARTER"}, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rr.Code)
	}
	if resp := decodeResponse(t, rr); resp["error"] != "a text field is longer than allowed" {
		t.Errorf("error: got %v", resp["error"])
	}
}

func TestUpdateDish(t *testing.T) {
	store := newMockDishStore()
	d := store.addDish("Soupe", "8000", database.DishCategorySTARTER, true)
	router := setupDishRouter(store, nil)

	rr := doAuthRequest(t, router, "PUT", "/dishes/"+d.ID.String(), map[string]interface{}{
		"name":        "Soupe du jour",
		"description": "légumes",
		"price":       "9000",
		"category":    "STARTER",
	}, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if got := money.FromNumeric(store.dishes[d.ID].Price).StringFixed(2); got != "9000.00" {
		t.Errorf("stored price: got %s", got)
	}

	rr = doAuthRequest(t, router, "PUT", "/dishes/"+uuid.New().String(), map[string]interface{}{
		"name": "X", "price": "1", "category": "MAIN",
	}, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown dish: got %d, want 404", rr.Code)
	}
}

func TestSetAvailability_Publishes(t *testing.T) {
	store := newMockDishStore()
	d := store.addDish("Steak", "40000", database.DishCategoryMAIN, true)
	pub := &recordingPublisher{}
	router := setupDishRouter(store, pub)

	rr := doAuthRequest(t, router, "PATCH", "/dishes/"+d.ID.String()+"/availability",
		map[string]interface{}{"is_available": false}, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["message"] != "dish is now unavailable" {
		t.Errorf("message: got %v", resp["message"])
	}
	if store.dishes[d.ID].IsAvailable {
		t.Error("dish should be unavailable")
	}
	if !pub.has(ws.ChannelKitchen, ws.EventDishAvailability) || !pub.has(ws.ChannelFloor, ws.EventDishAvailability) {
		t.Errorf("expected kitchen and floor events, got %v", pub.events)
	}

	rr = doAuthRequest(t, router, "PATCH", "/dishes/"+d.ID.String()+"/availability",
		map[string]interface{}{}, staffClaims(enum.UserRoleCook))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing field: got %d, want 400", rr.Code)
	}
}
