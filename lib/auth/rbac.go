package auth

import (
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"

	"github.com/tarancss/eosapi/lib/store"
)

// rbacModel grants a role the routes matching a path pattern and a method pattern. Admins inherit the user routes.
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// policies of the REST API routes.
var policies = [][]string{ //nolint:gochecknoglobals // static policy table
	{store.RoleUser, "/v1/users/profile", "GET"},
	{store.RoleUser, "/v1/users/:userId", "^(GET|PUT|PATCH|DELETE)$"},
	{store.RoleUser, "/v1/accounts", "^(GET|POST)$"},
	{store.RoleUser, "/v1/accounts/:accountName", "GET"},
	{store.RoleUser, "/v1/blocks", "GET"},
	{store.RoleUser, "/v1/blocks/*", "GET"},
	{store.RoleUser, "/v1/transactions", "^(GET|POST)$"},
	{store.RoleUser, "/v1/transactions/*", "GET"},
	{store.RoleUser, "/v1/actions", "GET"},
	{store.RoleUser, "/v1/actiontraces", "GET"},
	{store.RoleUser, "/v1/chain/get_info", "GET"},
	{store.RoleUser, "/v1/chain/get_required_keys", "POST"},
	{store.RoleAdmin, "/v1/users", "^(GET|POST)$"},
}

// Enforcer decides which roles can call which routes.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer returns the enforcer of the REST API policies.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("cannot load rbac model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("cannot create rbac enforcer: %w", err)
	}

	if _, err = e.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("cannot load rbac policies: %w", err)
	}

	if _, err = e.AddGroupingPolicy(store.RoleAdmin, store.RoleUser); err != nil {
		return nil, fmt.Errorf("cannot load rbac roles: %w", err)
	}

	return &Enforcer{e: e}, nil
}

// Authorize returns ErrForbidden unless role may call method on path.
func (e *Enforcer) Authorize(role, path, method string) error {
	ok, err := e.e.Enforce(role, path, method)
	if err != nil {
		return fmt.Errorf("cannot enforce rbac policy: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: role %q cannot %s %s", ErrForbidden, role, method, path)
	}

	return nil
}
