// Package db implements the opening and graceful closing of database connections.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tarancss/eosapi/lib/store"
	"github.com/tarancss/eosapi/lib/store/mongo"
	"github.com/tarancss/eosapi/lib/store/postgres"
)

const (
	MONGODB  string = "mongodb"
	POSTGRES string = "postgresql"
)

// New returns the main database connection. Only MongoDB can hold the collections.
func New(options, connection, database string, timeout time.Duration, log *slog.Logger) (store.DB, error) {
	switch options {
	case MONGODB:
		m, err := mongo.New(connection, database, timeout, log)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err = m.EnsureIndexes(ctx); err != nil {
			_ = m.Close()

			return nil, err
		}

		return m, nil
	}

	return nil, fmt.Errorf("unsupported database type %q", options)
}

// NewRequests returns the faucet request log. When options is empty the main database is used.
func NewRequests(options, connection, database string, timeout time.Duration, main store.DB) (store.Requests, error) {
	switch options {
	case "":
		if r, ok := main.(store.Requests); ok {
			return r, nil
		}
	case MONGODB:
		return mongo.New(connection, database, timeout, nil)
	case POSTGRES:
		return postgres.New(connection, timeout)
	}

	return nil, fmt.Errorf("unsupported request log type %q", options)
}

// Close gracefully closes the database connections.
func Close(dh store.DB, rl store.Requests) error {
	var err error

	if rl != nil {
		if r, ok := rl.(store.DB); !ok || r != dh {
			err = rl.Close()
		}
	}

	if dh != nil {
		if errDB := dh.Close(); errDB != nil {
			err = errDB
		}
	}

	return err
}
