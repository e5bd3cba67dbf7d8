package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
	"github.com/sanjiv-madhavan/go-natours/utils"
)

// tokenFromRequest prefers the Authorization header and falls back to the
// session cookie.
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(constants.JWTCookie); err == nil && cookie.Value != "loggedout" {
		return cookie.Value
	}
	return ""
}

func withUser(r *http.Request, user *models.User, claims *utils.AuthClaims) *http.Request {
	ctx := context.WithValue(r.Context(), constants.CurrentUser, user)
	if claims != nil {
		ctx = context.WithValue(ctx, constants.IssuedAt, claims.IssuedAt.Unix())
		if claims.ExpiresAt != nil {
			ctx = context.WithValue(ctx, constants.ExpiresAt, claims.ExpiresAt.Unix())
		}
	}
	return r.WithContext(ctx)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(constants.CurrentUser).(*models.User)
	return user
}

// Protect rejects requests without a valid token for an active user.
func (m *Middleware) Protect(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Strict-Transport-Security", "max-age=31353600, includeSubDomains")
		token := tokenFromRequest(r)
		if token == "" {
			m.SendError(w, r, apperror.Unauthorized("You are not logged in! Please log in to get access."))
			return
		}
		user, claims, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			m.SendError(w, r, err)
			return
		}
		inner.ServeHTTP(w, withUser(r, user, claims))
	}
	return http.HandlerFunc(fn)
}

// RestrictTo only lets users holding one of roles through. It must run after
// Protect.
func (m *Middleware) RestrictTo(roles ...string) func(http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r)
			if user == nil || !utils.HasRole(user.Role, roles...) {
				m.SendError(w, r, apperror.Forbidden("You do not have permission to perform this action"))
				return
			}
			inner.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// IsLoggedIn attaches the user behind a valid session cookie, if any. It never
// fails the request.
func (m *Middleware) IsLoggedIn(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(constants.JWTCookie)
		if err != nil || cookie.Value == "" || cookie.Value == "loggedout" {
			inner.ServeHTTP(w, r)
			return
		}
		user, claims, err := m.auth.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			inner.ServeHTTP(w, r)
			return
		}
		inner.ServeHTTP(w, withUser(r, user, claims))
	}
	return http.HandlerFunc(fn)
}
