package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tarancss/eosapi/lib/apierror"
	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/msg"
	"github.com/tarancss/eosapi/lib/store"
	"github.com/tarancss/eosapi/lib/validate"
)

// Token is the token pair replied on register, login and refresh.
type Token struct {
	TokenType    string    `json:"tokenType"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    time.Time `json:"expiresIn"`
}

// Session is the reply of register and login.
type Session struct {
	Token Token       `json:"token"`
	User  *store.User `json:"user"`
}

// UserMessage is the reply of the password reset routes.
type UserMessage struct {
	User    *store.User `json:"user"`
	Message string      `json:"message"`
}

// APIKey is the reply of request-api-key.
type APIKey struct {
	TokenType string    `json:"tokenType"`
	APIKey    string    `json:"apiKey"`
	ExpiresIn time.Time `json:"expiresIn"`
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Ident    string `json:"ident"`
}

// session issues a token pair for u and saves its refresh token.
func (a *API) session(r *http.Request, u *store.User) (Token, error) {
	access, exp, err := a.tokens.Access(u)
	if err != nil {
		return Token{}, err
	}

	rt := auth.NewRefreshToken(u, a.now())
	if err = a.db.SaveRefreshToken(r.Context(), rt); err != nil {
		return Token{}, err
	}

	return Token{TokenType: auth.TokenType, AccessToken: access, RefreshToken: rt.Token, ExpiresIn: exp}, nil
}

// login returns the user of email if password matches.
func (a *API) login(r *http.Request, email, password string) (*store.User, error) {
	u, err := a.db.FindUserByEmail(r.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: incorrect email or password", auth.ErrUnauthorized)
	}

	if err != nil {
		return nil, err
	}

	if err = auth.CheckPassword(u.Password, password); err != nil {
		return nil, err
	}

	return u, nil
}

// registerHandler creates a user and replies a session for it.
func (a *API) registerHandler(rw http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, validate.Register, &c); err != nil {
		a.fail(rw, r, err)

		return
	}

	u, err := a.newUser(r, c.Email, c.Password, c.Name, store.RoleUser, "")
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	t, err := a.session(r, u)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusCreated, Session{Token: t, User: u})
}

// newUser stores a new user. A taken email is a conflict on the email field.
func (a *API) newUser(r *http.Request, email, password, name, role, picture string) (*store.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if role == "" {
		role = store.RoleUser
	}

	now := a.now().UTC()
	u := &store.User{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  hash,
		Name:      strings.TrimSpace(name),
		Role:      role,
		Picture:   strings.TrimSpace(picture),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = a.db.CreateUser(r.Context(), u); err != nil {
		return nil, emailTaken(err)
	}

	return u, nil
}

func emailTaken(err error) error {
	if !errors.Is(err, store.ErrDuplicate) {
		return err
	}

	e := apierror.New(http.StatusConflict, apierror.Conflict, "Validation Error", err)
	e.Errors = []apierror.FieldError{apierror.Field("email", `"email" already exists`)}

	return e
}

// loginHandler replies a session when the email and password match.
func (a *API) loginHandler(rw http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, validate.Login, &c); err != nil {
		a.fail(rw, r, err)

		return
	}

	u, err := a.login(r, strings.ToLower(c.Email), c.Password)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	t, err := a.session(r, u)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, Session{Token: t, User: u})
}

// refreshHandler exchanges a refresh token for a new token pair. The refresh token can only be used once.
func (a *API) refreshHandler(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Email        string `json:"email"`
		RefreshToken string `json:"refreshToken"`
	}

	if err := decode(r, validate.Refresh, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	email := strings.ToLower(req.Email)

	if _, err := a.db.ConsumeRefreshToken(r.Context(), email, req.RefreshToken); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: incorrect email or refreshToken", auth.ErrUnauthorized)
		}

		a.fail(rw, r, err)

		return
	}

	u, err := a.db.FindUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: incorrect email or refreshToken", auth.ErrUnauthorized)
		}

		a.fail(rw, r, err)

		return
	}

	t, err := a.session(r, u)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, t)
}

// apiKeyHandler replies a long lived token for the application named ident.
func (a *API) apiKeyHandler(rw http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, validate.APIKey, &c); err != nil {
		a.fail(rw, r, err)

		return
	}

	u, err := a.login(r, strings.ToLower(c.Email), c.Password)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	key, exp, err := a.tokens.APIKey(u, c.Ident)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, APIKey{TokenType: auth.TokenType, APIKey: key, ExpiresIn: exp})
}

// resetHandler issues a password reset token and mails the user a link to url?token=<token>. Only one live reset
// token per user is allowed.
func (a *API) resetHandler(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		URL   string `json:"url"`
	}

	if err := decode(r, validate.PasswordReset, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	email := strings.ToLower(req.Email)

	u, err := a.db.FindUserByEmail(r.Context(), email)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	_, err = a.db.FindResetToken(r.Context(), email)

	switch {
	case err == nil:
		a.fail(rw, r, apierror.New(http.StatusConflict, apierror.Conflict,
			"A reset token has already been created for this email", nil))

		return
	case !errors.Is(err, store.ErrNotFound):
		a.fail(rw, r, err)

		return
	}

	t := auth.NewResetToken(u, strings.TrimSpace(req.URL), a.now())
	if err = a.db.SaveResetToken(r.Context(), t); err != nil {
		a.fail(rw, r, err)

		return
	}

	m := msg.Mail{
		To:      u.Email,
		From:    a.opts.MailFrom,
		Subject: "[API] Password Reset Requested",
		Message: fmt.Sprintf(`<h3>Reset your API password?</h3>
<p>If you requested a password reset for %s, click the link below. If you didn't make this request, ignore this email.</p>
<a href="%s?token=%s">Reset Password</a>`, u.Email, t.ResetURL, t.Token),
	}

	if err = a.mb.Publish(r.Context(), msg.MAIL, "mail.reset", m); err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, UserMessage{User: u, Message: "Password reset mail sent to " + u.Email})
}

// changeHandler sets a new password given a live reset token. Every token of the user is removed.
func (a *API) changeHandler(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Confirm  string `json:"confirm"`
		Token    string `json:"token"`
	}

	if err := decode(r, validate.PasswordChange, &req); err != nil {
		a.fail(rw, r, err)

		return
	}

	if req.Confirm != req.Password {
		a.fail(rw, r, apierror.Validation(apierror.Field("confirm", "Passwords do not match")))

		return
	}

	email := strings.ToLower(req.Email)

	u, err := a.db.FindUserByEmail(r.Context(), email)
	if err != nil {
		a.fail(rw, r, err)

		return
	}

	if _, err = a.db.ConsumeResetToken(r.Context(), email, req.Token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = apierror.New(http.StatusConflict, apierror.Conflict, "No matching reset token found for email", err)
		}

		a.fail(rw, r, err)

		return
	}

	if err = a.db.DeleteTokens(r.Context(), u.ID); err != nil {
		a.fail(rw, r, err)

		return
	}

	if u.Password, err = auth.HashPassword(req.Password); err != nil {
		a.fail(rw, r, err)

		return
	}

	u.UpdatedAt = a.now().UTC()

	if err = a.db.UpdateUser(r.Context(), u); err != nil {
		a.fail(rw, r, err)

		return
	}

	a.reply(rw, http.StatusOK, UserMessage{User: u, Message: fmt.Sprintf("Password for user %s reset", u.Email)})
}
