// Package store defines the interfaces the api and mirror services use to reach their databases.
package store

import (
	"context"
	"errors"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/plan"
)

// Collections executes query plans over the mirrored chain collections and the users collection.
type Collections interface {
	// Execute runs p and returns the matching documents in plan order.
	Execute(ctx context.Context, p *plan.Plan) ([]entity.Document, error)
	// ExecuteOne runs p and returns its first document, or ErrNotFound.
	ExecuteOne(ctx context.Context, p *plan.Plan) (entity.Document, error)
}

// Users stores API consumers.
type Users interface {
	CreateUser(ctx context.Context, u *User) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// UpdateUser writes every editable field of u.
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error
}

// Tokens stores refresh and password reset tokens.
type Tokens interface {
	SaveRefreshToken(ctx context.Context, t RefreshToken) error
	// ConsumeRefreshToken removes and returns the refresh token issued to email.
	ConsumeRefreshToken(ctx context.Context, email, token string) (*RefreshToken, error)
	SaveResetToken(ctx context.Context, t ResetToken) error
	// FindResetToken returns the unexpired reset token of email.
	FindResetToken(ctx context.Context, email string) (*ResetToken, error)
	ConsumeResetToken(ctx context.Context, email, token string) (*ResetToken, error)
	// DeleteTokens removes every token of the user.
	DeleteTokens(ctx context.Context, userID string) error
}

// Requests logs faucet account requests.
type Requests interface {
	SaveRequest(ctx context.Context, r FaucetRequest) error
	Close() error
}

// Mirror is written by the chain mirror.
type Mirror interface {
	LoadCursor(ctx context.Context, chain string) (Cursor, error)
	SaveCursor(ctx context.Context, c Cursor) error
	// SaveBlock writes the actions, transactions and block of b, in that order.
	SaveBlock(ctx context.Context, b ChainBlock) error
	SaveAccount(ctx context.Context, a Account) error
}

// DB is implemented by the main database.
type DB interface {
	Collections
	Users
	Tokens
	Mirror
	Close() error
}

// Errors returned
var (
	ErrNotFound       = errors.New("data was not found in store")
	ErrDuplicate      = errors.New("data already exists in store")
	ErrQueryExecution = errors.New("query execution failed")
	ErrTimeout        = errors.New("query timed out")
)
