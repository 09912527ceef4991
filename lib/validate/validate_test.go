package validate

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/eosapi/lib/apierror"
)

func fields(t *testing.T, err error) map[string][]string {
	t.Helper()

	var ae *apierror.Error
	require.True(t, errors.As(err, &ae), "not an api error: %v", err)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, apierror.ValidationError, ae.Code)

	out := map[string][]string{}
	for _, f := range ae.Errors {
		assert.Equal(t, apierror.LocationBody, f.Location)
		out[f.Field] = f.Messages
	}

	return out
}

func TestRegister(t *testing.T) {
	var v struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	require.NoError(t, Body(Register, []byte(`{"email":"a@b.co","password":"123456"}`), &v))
	assert.Equal(t, "a@b.co", v.Email)
	assert.Equal(t, "123456", v.Password)

	f := fields(t, Body(Register, []byte(`{"email":"nope","password":"123"}`), &v))
	assert.Contains(t, f, "email")
	assert.Contains(t, f, "password")

	f = fields(t, Body(Register, []byte(`{}`), nil))
	assert.Contains(t, f, "email")
	assert.Contains(t, f, "password")

	f = fields(t, Body(Register, []byte(`{"email":`), nil))
	assert.Contains(t, f, "body")

	f = fields(t, Body(Register, []byte(`[]`), nil))
	assert.Contains(t, f, "body")
}

func TestFaucet(t *testing.T) {
	ok := `{"name":"inita","email":"a@b.co","keys":{"owner":"EOS1","active":"EOS2"}}`
	require.NoError(t, Body(Faucet, []byte(ok), nil))

	f := fields(t, Body(Faucet, []byte(`{"name":"InvalidName!","email":"a@b.co","keys":{"owner":"EOS1"}}`), nil))
	assert.Contains(t, f, "name")
	assert.Contains(t, f, "keys.active")
}

func TestPush(t *testing.T) {
	require.NoError(t, Body(Push, []byte(`{"actions":{"code":"eos","authorization":[]}}`), nil))
	require.NoError(t, Body(Push, []byte(`{"actions":[{"code":"eos","authorization":[]}],"signatures":["s"]}`), nil))

	f := fields(t, Body(Push, []byte(`{"signatures":["s"]}`), nil))
	assert.Contains(t, f, "actions")

	f = fields(t, Body(Push, []byte(`{"actions":[]}`), nil))
	assert.NotEmpty(t, f)
}

func TestUpdateUser(t *testing.T) {
	require.NoError(t, Body(UpdateUser, []byte(`{"name":"someone"}`), nil))

	f := fields(t, Body(UpdateUser, []byte(`{"role":"root"}`), nil))
	assert.Contains(t, f, "role")
}

func TestCompile(t *testing.T) {
	_, err := Compile("bad", `{"type": 12}`)
	assert.Error(t, err)
}
