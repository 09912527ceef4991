package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tarancss/eosapi/lib/auth"
	"github.com/tarancss/eosapi/lib/metrics"
)

type claimsKey struct{}

// recorder keeps the status written by a handler.
type recorder struct {
	http.ResponseWriter
	status int
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe logs every request and records its metrics by route template.
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: rw, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		elapsed := time.Since(start)

		metrics.RequestTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		a.log.InfoContext(r.Context(), "httpreq", "from", r.RemoteAddr, "method", r.Method, "uri", r.RequestURI,
			"route", route, "status", rec.status, "duration", elapsed)
	})
}

// protect requires a valid bearer token whose role may call the route.
func (a *API) protect(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			a.fail(rw, r, fmt.Errorf("%w: missing bearer token", auth.ErrUnauthorized))

			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			a.fail(rw, r, err)

			return
		}

		if err = a.rbac.Authorize(claims.Role, r.URL.Path, r.Method); err != nil {
			a.fail(rw, r, err)

			return
		}

		h(rw, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, auth.TokenType) || token == "" {
		return "", false
	}

	return strings.TrimSpace(token), true
}

// claimsOf returns the claims of the authenticated caller.
func claimsOf(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(claimsKey{}).(*auth.Claims)

	return c
}
