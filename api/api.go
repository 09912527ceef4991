// Package api implements the REST API service.
//
// The service authenticates API consumers with JWT access tokens, proxies reads and writes to an EOS node and answers
// list and get queries over the chain entities mirrored into the database. All routes are under /v1.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/collection"
	"github.com/tarancss/eosapi/lib/msg"
	"github.com/tarancss/eosapi/lib/store"
)

// Options are the settings of the service that are not connections.
type Options struct {
	MailFrom     string // sender of the mails published
	FaucetNotify string // mailed on every faucet request when set
}

// API contains the data necessary to deliver the service
type API struct {
	db     store.DB       // users, tokens and collections
	rl     store.Requests // faucet request log
	col    *collection.Service
	node   *chain.Client
	mb     msg.MsgBroker
	tokens *auth.Tokens
	rbac   *auth.Enforcer
	opts   Options
	log    *slog.Logger
	now    func() time.Time
	mu     sync.Mutex    // guards s and ss
	s      *http.Server  // http server
	ss     *http.Server  // https server
	sc     chan struct{} // closed once the servers are shut down
}

// New returns a pointer to a new API service
func New(dh store.DB, rl store.Requests, node *chain.Client, mb msg.MsgBroker, tokens *auth.Tokens,
	rbac *auth.Enforcer, opts Options, log *slog.Logger,
) *API {
	if log == nil {
		log = slog.Default()
	}

	if rl == nil {
		rl = requestsOf(dh)
	}

	return &API{
		db:     dh,
		rl:     rl,
		col:    collection.New(dh, log),
		node:   node,
		mb:     mb,
		tokens: tokens,
		rbac:   rbac,
		opts:   opts,
		log:    log,
		now:    time.Now,
		sc:     make(chan struct{}),
	}
}

func requestsOf(dh store.DB) store.Requests {
	if r, ok := dh.(store.Requests); ok {
		return r
	}

	return nil
}

// Stop shuts down the http servers implementing the RESTful API. Connections to the database and message broker are
// owned by the caller.
func (a *API) Stop(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.s != nil {
		if err := a.s.Shutdown(ctx); err != nil {
			a.log.Error("error in http server shutdown", "err", err)
		}
	}

	if a.ss != nil {
		if err := a.ss.Shutdown(ctx); err != nil {
			a.log.Error("error in https server shutdown", "err", err)
		}
	}

	select {
	case <-a.sc:
	default:
		close(a.sc) // servers are shut down
	}
}
