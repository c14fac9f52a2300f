package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/juju/loggo"
	"github.com/restopos/api/internal/access"
	"github.com/restopos/api/internal/auth"
	"github.com/restopos/api/internal/database"
)

var logger = loggo.GetLogger("restopos.service")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID  uuid.UUID
	Role    string
	TableID uuid.UUID // uuid.Nil unless Role is TABLE
}

// ActorFromClaims builds an Actor from validated token claims.
func ActorFromClaims(c *auth.Claims) Actor {
	return Actor{UserID: c.UserID, Role: c.Role, TableID: c.TableID}
}

func (a Actor) Can(c access.Capability) bool {
	return access.For(a.Role).Can(c)
}

// ownTable returns the caller's table or ErrNoTable.
func (a Actor) ownTable() (uuid.UUID, error) {
	if a.TableID == uuid.Nil {
		return uuid.Nil, ErrNoTable
	}
	return a.TableID, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

// deriveTableState maps the statuses of a table's open orders to its state.
// Orders still in the kitchen dominate; then orders on the table; else free.
func deriveTableState(open []database.OrderStatus) database.TableState {
	state := database.TableStateFREE
	for _, s := range open {
		switch s {
		case database.OrderStatusPENDING, database.OrderStatusPREPARING:
			return database.TableStateAWAITINGSERVICE
		case database.OrderStatusREADY, database.OrderStatusSERVED:
			state = database.TableStateSERVED
		}
	}
	return state
}

// tableStateStore is the subset of queries used to resync a table's state.
type tableStateStore interface {
	ListOpenOrderStatusesByTable(ctx context.Context, tableID uuid.UUID) ([]database.OrderStatus, error)
	UpdateDiningTableState(ctx context.Context, arg database.UpdateDiningTableStateParams) (database.DiningTable, error)
}

func syncTableState(ctx context.Context, store tableStateStore, tableID uuid.UUID) (database.DiningTable, error) {
	open, err := store.ListOpenOrderStatusesByTable(ctx, tableID)
	if err != nil {
		return database.DiningTable{}, err
	}
	return store.UpdateDiningTableState(ctx, database.UpdateDiningTableStateParams{
		ID:    tableID,
		State: deriveTableState(open),
	})
}
