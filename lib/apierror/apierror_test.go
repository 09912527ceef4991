package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/chain"
	"github.com/tarancss/eosapi/lib/query"
	"github.com/tarancss/eosapi/lib/store"
)

func TestFrom(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("get: %w", store.ErrNotFound), http.StatusNotFound, NotFound},
		{"duplicate", fmt.Errorf("%w: E11000", store.ErrDuplicate), http.StatusConflict, Conflict},
		{"execution", fmt.Errorf("%w: boom", store.ErrQueryExecution), http.StatusInternalServerError, QueryExecutionError},
		{"store timeout", fmt.Errorf("%w: slow", store.ErrTimeout), http.StatusGatewayTimeout, Timeout},
		{"node timeout", fmt.Errorf("%w: get_info", chain.ErrTimeout), http.StatusGatewayTimeout, Timeout},
		{"node down", fmt.Errorf("%w: get_info", chain.ErrUnavailable), http.StatusBadGateway, UpstreamUnavailable},
		{"unauthorized", auth.ErrUnauthorized, http.StatusUnauthorized, Unauthorized},
		{"forbidden", auth.ErrForbidden, http.StatusForbidden, Forbidden},
		{"other", errors.New("boom"), http.StatusInternalServerError, InternalError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := From(c.err)
			assert.Equal(t, c.status, e.Status)
			assert.Equal(t, c.code, e.Code)
			assert.ErrorIs(t, e, c.err)
		})
	}
}

func TestFromInvalidQuery(t *testing.T) {
	_, err := query.Parse(url.Values{"limit": {"-1"}}, query.ListOptions)
	require.Error(t, err)

	e := From(err)
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, InvalidQuery, e.Code)
	require.Len(t, e.Errors, 1)
	assert.Equal(t, "limit", e.Errors[0].Field)
	assert.Equal(t, LocationQuery, e.Errors[0].Location)
	assert.NotEmpty(t, e.Errors[0].Messages)
}

func TestWireFormat(t *testing.T) {
	e := Validation(Field("email", `"email" is required`))
	e.Err = errors.New("hidden")

	// already classified errors are kept
	assert.Same(t, e, From(fmt.Errorf("wrapped: %w", e)))

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":400,"code":"VALIDATION_ERROR","message":"Validation Error",`+
		`"errors":[{"field":"email","location":"body","messages":["\"email\" is required"]}]}`, string(b))

	b, err = json.Marshal(New(http.StatusNotFound, NotFound, "Not found", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":404,"code":"NOT_FOUND","message":"Not found"}`, string(b))
}
