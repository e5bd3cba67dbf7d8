package controllers

import (
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/middleware"
	"github.com/sanjiv-madhavan/go-natours/models"
)

// createSendToken sets the session cookie and returns the token together
// with the user.
func (c *Controller) createSendToken(w http.ResponseWriter, r *http.Request, statusCode int, user *models.User, token string) {
	http.SetCookie(w, c.sessionCookie(r, token))
	c.middleware.SendJSONResponse(w, statusCode, envelope{
		Status: apperror.StatusSuccess,
		Token:  token,
		Data:   map[string]any{"user": user},
	})
}

func (c *Controller) Signup(w http.ResponseWriter, r *http.Request) error {
	var req models.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, token, err := c.auth.Signup(r.Context(), req, requestBaseURL(r)+"/me")
	if err != nil {
		return err
	}
	c.createSendToken(w, r, http.StatusCreated, user, token)
	return nil
}

// Login accepts JSON from API clients and a urlencoded form from the login
// page, which is redirected home on success.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) error {
	var req models.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	isForm := mediaType == "application/x-www-form-urlencoded"
	if isForm {
		if err := r.ParseForm(); err != nil {
			return apperror.BadRequest("Invalid request body")
		}
		req.Email, req.Password = r.PostForm.Get("email"), r.PostForm.Get("password")
	} else if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, token, err := c.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if isForm {
		http.SetCookie(w, c.sessionCookie(r, token))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil
	}
	c.createSendToken(w, r, http.StatusOK, user, token)
	return nil
}

func (c *Controller) sessionCookie(r *http.Request, token string) *http.Cookie {
	return &http.Cookie{
		Name:     constants.JWTCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(c.settings.CookieExpiresIn) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   c.settings.Production || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

// Logout overwrites the session cookie with a short-lived placeholder.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     constants.JWTCookie,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{Status: apperror.StatusSuccess})
	return nil
}

func (c *Controller) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	var req models.ForgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	base := requestBaseURL(r)
	resetURL := func(token string) string {
		return base + "/api/v1/users/resetPassword/" + token
	}
	if err := c.auth.ForgotPassword(r.Context(), req, resetURL); err != nil {
		return err
	}
	c.respondMessage(w, "Token sent to email!")
	return nil
}

func (c *Controller) ResetPassword(w http.ResponseWriter, r *http.Request) error {
	var req models.ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, token, err := c.auth.ResetPassword(r.Context(), mux.Vars(r)[constants.ParamToken], req)
	if err != nil {
		return err
	}
	c.createSendToken(w, r, http.StatusOK, user, token)
	return nil
}

func (c *Controller) UpdateMyPassword(w http.ResponseWriter, r *http.Request) error {
	var req models.PasswordUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, token, err := c.auth.UpdatePassword(r.Context(), middleware.CurrentUser(r), req)
	if err != nil {
		return err
	}
	c.createSendToken(w, r, http.StatusOK, user, token)
	return nil
}

// RevokeSessions invalidates every token issued so far, the caller's included.
func (c *Controller) RevokeSessions(w http.ResponseWriter, r *http.Request) error {
	if err := c.auth.RevokeAll(r.Context()); err != nil {
		return err
	}
	c.logger.Warn("All sessions revoked", slog.String("by", middleware.CurrentUser(r).ID.Hex()))
	c.respondMessage(w, "All sessions have been revoked.")
	return nil
}
