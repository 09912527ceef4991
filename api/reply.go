package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tarancss/eosapi/lib/apierror"
	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/validate"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// reply writes v as JSON with status.
func (a *API) reply(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		a.log.Error("error encoding reply", "err", err)
	}
}

// fail replies err classified. The cause of server errors is logged only.
func (a *API) fail(rw http.ResponseWriter, r *http.Request, err error) {
	e := apierror.From(err)

	if e.Status >= http.StatusInternalServerError {
		a.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "uri", r.RequestURI,
			"code", e.Code, "err", err)
	}

	a.reply(rw, e.Status, e)
}

// passThrough replies the node response unchanged.
func (a *API) passThrough(rw http.ResponseWriter, resp *chain.Response) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(resp.Status)
	_, _ = rw.Write(resp.Body)
}

// body reads the request body.
func body(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, apierror.Validation(apierror.Field("body", fmt.Sprintf("cannot read body: %v", err)))
	}

	if len(b) > maxBody {
		return nil, apierror.Validation(apierror.Field("body", "body is too large"))
	}

	return b, nil
}

// decode validates the request body against s and decodes it into v.
func decode(r *http.Request, s *validate.Schema, v interface{}) error {
	b, err := body(r)
	if err != nil {
		return err
	}

	return validate.Body(s, b, v)
}
