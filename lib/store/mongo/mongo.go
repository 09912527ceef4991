// Package mongo implements the store interfaces for MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/eosapi/lib/entity"
	"github.com/tarancss/eosapi/lib/store"
)

// Collections not described by an entity kind.
const (
	refreshTokens = "refreshtokens"
	resetTokens   = "resettokens"
	requests      = "requests"
	cursors       = "cursors"
)

const connectTimeout = 5 * time.Second

var (
	_ store.DB       = (*Mongo)(nil)
	_ store.Requests = (*Mongo)(nil)
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c       *mgo.Client
	db      *mgo.Database
	timeout time.Duration
	log     *slog.Logger
}

// New returns a Mongo client connected to database in the MongoDB instance at uri. Every call is bounded by timeout
// when it is not zero.
func New(uri, database string, timeout time.Duration, log *slog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	c, err := mgo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}

	if err = c.Ping(ctx, nil); err != nil {
		_ = c.Disconnect(context.Background())

		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return NewWithClient(c, database, timeout, log), nil
}

// NewWithClient wraps an already connected client.
func NewWithClient(c *mgo.Client, database string, timeout time.Duration, log *slog.Logger) *Mongo {
	if log == nil {
		log = slog.Default()
	}

	return &Mongo{c: c, db: c.Database(database), timeout: timeout, log: log.With("db", database)}
}

// Close will close the database connection. Must be called at termination time.
func (m *Mongo) Close() error {
	return m.c.Disconnect(context.Background())
}

func (m *Mongo) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, m.timeout)
}

// classify maps driver errors to store errors, keeping the cause in the chain.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mgo.ErrNoDocuments):
		return store.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded) || mgo.IsTimeout(err):
		return fmt.Errorf("%w: %w", store.ErrTimeout, err)
	case mgo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	}

	return fmt.Errorf("%w: %w", store.ErrQueryExecution, err)
}

type index struct {
	coll   string
	keys   bson.D
	unique bool
}

// Only natural keys are unique.
var indexes = []index{ //nolint:gochecknoglobals // index table
	{entity.Accounts.Collection(), bson.D{{Key: "name", Value: 1}}, true},
	{entity.Blocks.Collection(), bson.D{{Key: "block_id", Value: 1}}, true},
	{entity.Blocks.Collection(), bson.D{{Key: "block_num", Value: 1}}, true},
	{entity.Transactions.Collection(), bson.D{{Key: "transaction_id", Value: 1}}, true},
	{entity.Actions.Collection(), bson.D{{Key: "transaction_id", Value: 1}, {Key: "action_id", Value: 1}}, true},
	{entity.ActionTraces.Collection(), bson.D{{Key: "transaction_id", Value: 1}}, false},
	{entity.Users.Collection(), bson.D{{Key: "email", Value: 1}}, true},
	{refreshTokens, bson.D{{Key: "userEmail", Value: 1}, {Key: "token", Value: 1}}, false},
	{resetTokens, bson.D{{Key: "userEmail", Value: 1}, {Key: "resetToken", Value: 1}}, false},
	{requests, bson.D{{Key: "eos_account", Value: 1}}, true},
	{cursors, bson.D{{Key: "chain", Value: 1}}, true},
}

// EnsureIndexes creates the indexes of every collection, plus a createdAt index on every kind for the default sort.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	models := map[string][]mgo.IndexModel{}

	for _, ix := range indexes {
		models[ix.coll] = append(models[ix.coll], mgo.IndexModel{
			Keys:    ix.keys,
			Options: options.Index().SetUnique(ix.unique),
		})
	}

	for _, name := range entity.Names() {
		k, _ := entity.Lookup(name)
		models[k.Collection()] = append(models[k.Collection()], mgo.IndexModel{
			Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}},
		})
	}

	for coll, ms := range models {
		if _, err := m.db.Collection(coll).Indexes().CreateMany(ctx, ms); err != nil {
			return fmt.Errorf("cannot create indexes on %s: %w", coll, err)
		}
	}

	return nil
}
