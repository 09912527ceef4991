// Package postgres implements the faucet request log for PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tarancss/eosapi/lib/store"
)

const schema = `CREATE TABLE IF NOT EXISTS requests (
	eos_account TEXT PRIMARY KEY,
	email       TEXT NOT NULL,
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	owner_key   TEXT NOT NULL DEFAULT '',
	active_key  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

const upsertRequest = `INSERT INTO requests
	(eos_account, email, first_name, last_name, owner_key, active_key, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	ON CONFLICT (eos_account) DO UPDATE SET
	email = EXCLUDED.email, first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
	owner_key = EXCLUDED.owner_key, active_key = EXCLUDED.active_key, updated_at = EXCLUDED.updated_at`

// query_canceled, raised when statement_timeout expires
const queryCanceled = pq.ErrorCode("57014")

var _ store.Requests = (*Postgres)(nil)

// Postgres implements a connection to a PostgreSQL database.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

// New returns a postgres client connection to the specified database in 'connection' and creates the requests table.
func New(connection string, timeout time.Duration) (*Postgres, error) {
	db, err := sql.Open("postgres", connection)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to DB in %s: %w", connection, err)
	}

	p := &Postgres{db: db, timeout: timeout}

	ctx, cancel := p.bound(context.Background())
	defer cancel()

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("cannot create requests table: %w", classify(err))
	}

	return p, nil
}

// Close will close any database connection. Must be called at termination time.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, p.timeout)
}

// SaveRequest logs r, replacing an earlier request for the same account.
func (p *Postgres) SaveRequest(ctx context.Context, r store.FaucetRequest) error {
	ctx, cancel := p.bound(ctx)
	defer cancel()

	_, err := p.db.ExecContext(ctx, upsertRequest,
		r.EOSAccount, r.Email, r.FirstName, r.LastName, r.OwnerKey, r.ActiveKey, time.Now().UTC())

	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}

	var pe *pq.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", store.ErrTimeout, err)
	case errors.As(err, &pe) && pe.Code == queryCanceled:
		return fmt.Errorf("%w: %w", store.ErrTimeout, err)
	case errors.As(err, &pe) && pe.Code.Name() == "unique_violation":
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	}

	return fmt.Errorf("%w: %w", store.ErrQueryExecution, err)
}
