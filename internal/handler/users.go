package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/restopos/api/internal/auth"
	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/service"
)

// UserCreator creates accounts, with a dining table for TABLE users.
// Satisfied by *service.UserService.
type UserCreator interface {
	Create(ctx context.Context, req service.CreateUserRequest) (*service.CreateUserResult, error)
}

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context) ([]database.User, error)
	SetUserActive(ctx context.Context, arg database.SetUserActiveParams) (database.User, error)
}

// UserHandler handles account administration.
type UserHandler struct {
	svc     UserCreator
	store   UserStore
	revoked *auth.Revocations
}

// NewUserHandler creates a new UserHandler. Deactivating a user revokes
// their outstanding access tokens in revoked, which may be nil.
func NewUserHandler(svc UserCreator, store UserStore, revoked *auth.Revocations) *UserHandler {
	return &UserHandler{svc: svc, store: store, revoked: revoked}
}

// RegisterRoutes registers user endpoints: /users
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}/active", h.SetActive)
}

// --- Request / Response types ---

type createUserRequest struct {
	Login       string `json:"login"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	TableNumber string `json:"table_number"`
	Seats       int32  `json:"seats"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type userDetailResponse struct {
	ID        uuid.UUID      `json:"id"`
	Login     string         `json:"login"`
	Role      string         `json:"role"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	Table     *tableResponse `json:"table,omitempty"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:        u.ID,
		Login:     u.Login,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// --- Handlers ---

// List returns every account. Password hashes never leave the store.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		internalError(w, "list users", err)
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds an account. Validation lives in the service.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Create(r.Context(), service.CreateUserRequest{
		Login:       req.Login,
		Password:    req.Password,
		Role:        req.Role,
		TableNumber: req.TableNumber,
		Seats:       req.Seats,
	})
	if err != nil {
		writeServiceError(w, "create user", err)
		return
	}

	resp := toUserDetailResponse(result.User)
	if result.Table != nil {
		t := toTableResponse(*result.Table)
		resp.Table = &t
	}

	logger.Infof("user %s created with role %s", result.User.Login, result.User.Role)
	writeMutation(w, http.StatusCreated, "user created", resp)
}

// SetActive enables or disables an account. Admins cannot disable themselves.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	if actor, ok := actorFromRequest(r); ok && actor.UserID == id && !*req.IsActive {
		writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
		return
	}

	user, err := h.store.SetUserActive(r.Context(), database.SetUserActiveParams{
		ID:       id,
		IsActive: *req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, "set user active", err)
		return
	}

	msg := "user deactivated"
	if user.IsActive {
		msg = "user activated"
		h.revoked.Restore(user.ID)
	} else {
		h.revoked.Revoke(user.ID)
	}
	writeMutation(w, http.StatusOK, msg, toUserDetailResponse(user))
}
