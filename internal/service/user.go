package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/restopos/api/internal/database"
	"github.com/restopos/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

const defaultSeats = 4

// UserStore defines the DB methods needed to create accounts.
// Satisfied by *database.Queries (and its WithTx variant).
type UserStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	CreateDiningTable(ctx context.Context, arg database.CreateDiningTableParams) (database.DiningTable, error)
}

// NewUserStore creates a UserStore from a DBTX (pool or tx).
type NewUserStore func(db database.DBTX) UserStore

// CreateUserRequest is the input for creating an account. TableNumber and
// Seats only apply to TABLE users.
type CreateUserRequest struct {
	Login       string
	Password    string
	Role        string
	TableNumber string
	Seats       int32
}

// CreateUserResult is the created user and, for TABLE users, its table.
type CreateUserResult struct {
	User  database.User
	Table *database.DiningTable
}

// UserService creates accounts.
type UserService struct {
	pool     TxBeginner
	newStore NewUserStore
	cost     int
}

// NewUserService creates a new UserService hashing with bcrypt.DefaultCost.
func NewUserService(pool TxBeginner, newStore NewUserStore) *UserService {
	return &UserService{pool: pool, newStore: newStore, cost: bcrypt.DefaultCost}
}

// Create validates the request, hashes the password and inserts the user.
// A TABLE user gets its dining table in the same transaction.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*CreateUserResult, error) {
	login := strings.TrimSpace(req.Login)
	if n := utf8.RuneCountInString(login); n < enum.LoginMinLength || n > enum.LoginMaxLength {
		return nil, ErrInvalidLogin
	}
	if utf8.RuneCountInString(req.Password) < enum.PasswordMinLength || len(req.Password) > enum.PasswordMaxBytes {
		return nil, ErrInvalidPassword
	}
	if !enum.IsValidRole(req.Role) {
		return nil, ErrInvalidRole
	}

	tableNumber := strings.TrimSpace(req.TableNumber)
	seats := req.Seats
	if req.Role == enum.UserRoleTable {
		if tableNumber == "" || utf8.RuneCountInString(tableNumber) > enum.TableNumberMaxLength {
			return nil, ErrTableNumber
		}
		if seats == 0 {
			seats = defaultSeats
		}
		if seats < 0 {
			return nil, ErrInvalidSeats
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	user, err := store.CreateUser(ctx, database.CreateUserParams{
		Login:          login,
		HashedPassword: string(hash),
		Role:           req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("login %q: %w", login, ErrDuplicate)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result := &CreateUserResult{User: user}
	if req.Role == enum.UserRoleTable {
		table, err := store.CreateDiningTable(ctx, database.CreateDiningTableParams{
			TableNumber: tableNumber,
			Seats:       seats,
			UserID:      user.ID,
		})
		if err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("table %q: %w", tableNumber, ErrDuplicate)
			}
			return nil, fmt.Errorf("create table: %w", err)
		}
		result.Table = &table
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	logger.Infof("user %s created with role %s", user.Login, user.Role)
	return result, nil
}
