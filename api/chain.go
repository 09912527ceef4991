package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tarancss/eosapi/lib/apierror"
	"github.com/tarancss/eosapi/lib/chain/types"
	"github.com/tarancss/eosapi/lib/msg"
	"github.com/tarancss/eosapi/lib/store"
	"github.com/tarancss/eosapi/lib/validate"
)

// FaucetReq asks for an account.
type FaucetReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	WantsTokens bool   `json:"wants_tokens"`
	Keys        struct {
		Owner  string `json:"owner"`
		Active string `json:"active"`
	} `json:"keys"`
}

// faucetHandler looks the account up on the node and logs the request when the node knows it. The node reply is
// passed through.
func (a *API) faucetHandler(rw http.ResponseWriter, r *http.Request) {
	var req FaucetReq
	if err := decode(r, validate.Faucet, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	resp, err := a.node.GetAccount(r.Context(), req.Name)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	if resp.OK() {
		now := a.now().UTC()
		fr := store.FaucetRequest{
			Email:      strings.ToLower(req.Email),
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			EOSAccount: req.Name,
			OwnerKey:   req.Keys.Owner,
			ActiveKey:  req.Keys.Active,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err = a.rl.SaveRequest(r.Context(), fr); err != nil {
			a.fail(rw, r, err)

			return
		}

		a.notifyFaucet(r, fr, req.WantsTokens)
	}

	a.passThrough(rw, resp)
}

// notifyFaucet mails the faucet operator. Failures are only logged, the request is already saved.
func (a *API) notifyFaucet(r *http.Request, fr store.FaucetRequest, wantsTokens bool) {
	if a.opts.FaucetNotify == "" {
		return
	}

	m := msg.Mail{
		To:      a.opts.FaucetNotify,
		From:    a.opts.MailFrom,
		Subject: "[API] Faucet request for " + fr.EOSAccount,
		Message: fmt.Sprintf("account: %s\nemail: %s\nname: %s %s\nowner key: %s\nactive key: %s\nwants tokens: %t",
			fr.EOSAccount, fr.Email, fr.FirstName, fr.LastName, fr.OwnerKey, fr.ActiveKey, wantsTokens),
	}

	if err := a.mb.Publish(r.Context(), msg.MAIL, "mail.faucet", m); err != nil {
		a.log.WarnContext(r.Context(), "cannot notify faucet request", "account", fr.EOSAccount, "err", err)
	}
}

// pushHandler completes the transaction header from the node head block and pushes it. The node reply is passed
// through.
func (a *API) pushHandler(rw http.ResponseWriter, r *http.Request) {
	var req types.PushRequest
	if err := decode(r, validate.Push, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	resp, err := a.node.PushTransaction(r.Context(), req)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.passThrough(rw, resp)
}

func (a *API) getInfoHandler(rw http.ResponseWriter, r *http.Request) {
	resp, err := a.node.GetInfo(r.Context())
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.passThrough(rw, resp)
}

func (a *API) requiredKeysHandler(rw http.ResponseWriter, r *http.Request) {
	b, err := body(r)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	if !json.Valid(b) {
		a.fail(rw, r, apierror.Validation(apierror.Field("body", "body must be valid JSON")))

		return
	}

	resp, err := a.node.GetRequiredKeys(r.Context(), b)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.passThrough(rw, resp)
}
