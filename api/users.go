package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/store"
	"github.com/tarancss/eosapi/lib/validate"
)

type userReq struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	Picture  *string `json:"picture"`
}

func str(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// createUserHandler lets admins create users of any role.
func (a *API) createUserHandler(rw http.ResponseWriter, r *http.Request) {
	var req userReq
	if err := decode(r, validate.CreateUser, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	u, err := a.newUser(r, str(req.Email), str(req.Password), str(req.Name), str(req.Role), str(req.Picture))
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusCreated, u)
}

// profileHandler replies the authenticated user.
func (a *API) profileHandler(rw http.ResponseWriter, r *http.Request) {
	u, err := a.db.FindUser(r.Context(), claimsOf(r).Subject)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, u)
}

// target returns the user of the route. Users can only reach themselves, admins reach everyone.
func (a *API) target(r *http.Request) (*store.User, error) {
	id := mux.Vars(r)["userId"]

	c := claimsOf(r)
	if c.Role != store.RoleAdmin && c.Subject != id {
		return nil, fmt.Errorf("%w: user %s cannot access user %s", auth.ErrForbidden, c.Subject, id)
	}

	return a.db.FindUser(r.Context(), id)
}

func (a *API) getUserHandler(rw http.ResponseWriter, r *http.Request) {
	u, err := a.target(r)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, u)
}

// replaceUserHandler replaces every editable field, absent ones are cleared.
func (a *API) replaceUserHandler(rw http.ResponseWriter, r *http.Request) {
	a.editUser(rw, r, validate.CreateUser, true)
}

// updateUserHandler changes the fields present in the body.
func (a *API) updateUserHandler(rw http.ResponseWriter, r *http.Request) {
	a.editUser(rw, r, validate.UpdateUser, false)
}

func (a *API) editUser(rw http.ResponseWriter, r *http.Request, s *validate.Schema, replace bool) {
	u, err := a.target(r)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	var req userReq
	if err = decode(r, s, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	// only admins change roles
	if claimsOf(r).Role != store.RoleAdmin {
		req.Role = nil
	}

	if replace {
		u.Name, u.Picture = "", ""
	}

	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}

	if req.Picture != nil {
		u.Picture = strings.TrimSpace(*req.Picture)
	}

	if req.Role != nil {
		u.Role = *req.Role
	}

	if req.Password != nil {
		if u.Password, err = auth.HashPassword(*req.Password); err != nil {
			a.fail(rw, r, err)

			return
		}
	}

	u.UpdatedAt = a.now().UTC()

	if err = a.db.UpdateUser(r.Context(), u); err != nil {
		a.fail(rw, r, emailTaken(err))

		return
	}

	a.reply(rw, http.StatusOK, u)
}

// deleteUserHandler removes the user and its tokens.
func (a *API) deleteUserHandler(rw http.ResponseWriter, r *http.Request) {
	u, err := a.target(r)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	if err = a.db.DeleteUser(r.Context(), u.ID); err != nil {
		a.fail(rw, r, err)

		return
	}

	if err = a.db.DeleteTokens(r.Context(), u.ID); err != nil {
		a.log.WarnContext(r.Context(), "error deleting tokens of deleted user", "user", u.ID, "err", err)
	}

	rw.WriteHeader(http.StatusNoContent)
}
