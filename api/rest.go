package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const timeout = 15 * time.Second

// Handler returns the router of the RESTful API.
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(a.observe)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/status", a.statusHandler).Methods(http.MethodGet)

	// auth
	v1.HandleFunc("/auth/register", a.registerHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", a.loginHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/refresh-token", a.refreshHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/request-api-key", a.apiKeyHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/password/reset", a.resetHandler).Methods(http.MethodPost)
	v1.HandleFunc("/auth/password/reset/change", a.changeHandler).Methods(http.MethodPost)

	// users
	v1.Handle("/users", a.protect(a.listHandler("users"))).Methods(http.MethodGet)
	v1.Handle("/users", a.protect(a.createUserHandler)).Methods(http.MethodPost)
	v1.Handle("/users/profile", a.protect(a.profileHandler)).Methods(http.MethodGet)
	v1.Handle("/users/{userId}", a.protect(a.getUserHandler)).Methods(http.MethodGet)
	v1.Handle("/users/{userId}", a.protect(a.replaceUserHandler)).Methods(http.MethodPut)
	v1.Handle("/users/{userId}", a.protect(a.updateUserHandler)).Methods(http.MethodPatch)
	v1.Handle("/users/{userId}", a.protect(a.deleteUserHandler)).Methods(http.MethodDelete)

	// accounts
	v1.Handle("/accounts", a.protect(a.listHandler("accounts"))).Methods(http.MethodGet)
	v1.Handle("/accounts", a.protect(a.faucetHandler)).Methods(http.MethodPost)
	v1.Handle("/accounts/{accountName}", a.protect(a.getHandler("accounts", "accountName"))).Methods(http.MethodGet)

	// blocks
	v1.Handle("/blocks", a.protect(a.listHandler("blocks"))).Methods(http.MethodGet)
	v1.Handle("/blocks/head", a.protect(a.headHandler("blocks"))).Methods(http.MethodGet)
	v1.Handle("/blocks/{blockIdent}", a.protect(a.getHandler("blocks", "blockIdent"))).Methods(http.MethodGet)
	v1.Handle("/blocks/{blockIdent}/transactions", a.protect(a.blockTransactionsHandler)).Methods(http.MethodGet)
	v1.Handle("/blocks/{blockIdent}/transactions/{txnId}", a.protect(a.blockTransactionHandler)).
		Methods(http.MethodGet)

	// transactions
	v1.Handle("/transactions", a.protect(a.listHandler("transactions"))).Methods(http.MethodGet)
	v1.Handle("/transactions", a.protect(a.pushHandler)).Methods(http.MethodPost)
	v1.Handle("/transactions/{txnId}", a.protect(a.getHandler("transactions", "txnId"))).Methods(http.MethodGet)
	v1.Handle("/transactions/{txnId}/actions", a.protect(a.transactionActionsHandler)).Methods(http.MethodGet)

	// actions
	v1.Handle("/actions", a.protect(a.listHandler("actions"))).Methods(http.MethodGet)
	v1.Handle("/actiontraces", a.protect(a.listHandler("actiontraces"))).Methods(http.MethodGet)

	// chain proxy
	v1.Handle("/chain/get_info", a.protect(a.getInfoHandler)).Methods(http.MethodGet)
	v1.Handle("/chain/get_required_keys", a.protect(a.requiredKeysHandler)).Methods(http.MethodPost)

	return otelhttp.NewHandler(r, "eosapi")
}

// Init sets up and starts the http/https server to service the RESTful API. If sslPort, sslCert and sslKey are
// informed, it will also start an https (TLS) server on the specified endpoint. It returns once Stop is called.
func (a *API) Init(endpoint, port, sslPort, sslCert, sslKey string) error {
	var (
		mu          sync.Mutex
		err, errTLS error
	)

	h := a.Handler()

	a.mu.Lock()

	// start http server
	if port != "" {
		a.s = &http.Server{
			Handler:           h,
			Addr:              endpoint + ":" + port,
			WriteTimeout:      timeout,
			ReadTimeout:       timeout,
			ReadHeaderTimeout: timeout,
		}

		go func(s *http.Server) {
			e := s.ListenAndServe()

			mu.Lock()
			err = e
			mu.Unlock()
		}(a.s)

		a.log.Info("listening to API http requests", "endpoint", endpoint, "port", port)
	}

	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		a.ss = &http.Server{
			Handler:           h,
			Addr:              endpoint + ":" + sslPort,
			WriteTimeout:      timeout,
			ReadTimeout:       timeout,
			ReadHeaderTimeout: timeout,
		}

		go func(s *http.Server) {
			e := s.ListenAndServeTLS(sslCert, sslKey)

			mu.Lock()
			errTLS = e
			mu.Unlock()
		}(a.ss)

		a.log.Info("listening to API https requests", "endpoint", endpoint, "port", sslPort)
	}

	a.mu.Unlock()

	// wait for servers to be shutdown
	<-a.sc

	mu.Lock()
	defer mu.Unlock()

	return errors.Join(ignoreClosed(err), ignoreClosed(errTLS))
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// statusHandler replies OK while the service is up.
func (a *API) statusHandler(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = rw.Write([]byte("OK"))
}
