package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tarancss/eosapi/lib/collection"
)

// listHandler replies the records of kind matching the request query.
func (a *API) listHandler(kind string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		recs, err := a.col.List(r.Context(), kind, r.URL.Query(), nil)
		if err != nil {
			a.fail(rw, r, err)

			return
		}

		a.reply(rw, http.StatusOK, recs)
	}
}

// getHandler replies the record of kind named by the route variable.
func (a *API) getHandler(kind, variable string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rec, err := a.col.Get(r.Context(), kind, mux.Vars(r)[variable], r.URL.Query(), nil)
		if err != nil {
			a.fail(rw, r, err)

			return
		}

		a.reply(rw, http.StatusOK, rec)
	}
}

// headHandler replies the newest record of kind.
func (a *API) headHandler(kind string) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rec, err := a.col.Head(r.Context(), kind, r.URL.Query())
		if err != nil {
			a.fail(rw, r, err)

			return
		}

		a.reply(rw, http.StatusOK, rec)
	}
}

// blockTransactionsHandler lists the transactions of a block.
func (a *API) blockTransactionsHandler(rw http.ResponseWriter, r *http.Request) {
	recs, err := a.col.ListIn(r.Context(), "transactions", r.URL.Query(), collection.Parent{
		Kind: "blocks", Ident: mux.Vars(r)["blockIdent"], Key: "block_id", ChildKey: "block_id",
	})
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, recs)
}

// blockTransactionHandler replies a transaction only when it belongs to the block.
func (a *API) blockTransactionHandler(rw http.ResponseWriter, r *http.Request) {
	v := mux.Vars(r)

	rec, err := a.col.GetIn(r.Context(), "transactions", v["txnId"], r.URL.Query(), collection.Parent{
		Kind: "blocks", Ident: v["blockIdent"], Key: "block_id", ChildKey: "block_id",
	})
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, rec)
}

// transactionActionsHandler lists the actions of a transaction.
func (a *API) transactionActionsHandler(rw http.ResponseWriter, r *http.Request) {
	recs, err := a.col.ListIn(r.Context(), "actions", r.URL.Query(), collection.Parent{
		Kind: "transactions", Ident: mux.Vars(r)["txnId"], Key: "transaction_id", ChildKey: "transaction_id",
	})
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, recs)
}
