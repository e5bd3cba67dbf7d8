package controllers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/middleware"
	"github.com/sanjiv-madhavan/go-natours/views"
)

func (c *Controller) GetOverview(w http.ResponseWriter, r *http.Request) error {
	tours, err := c.tours.List(r.Context(), url.Values{}, nil)
	if err != nil {
		return err
	}
	return c.views.Render(w, http.StatusOK, "overview", views.Page{
		Title: "All Tours",
		User:  middleware.CurrentUser(r),
		Tours: tours,
	})
}

func (c *Controller) GetTourPage(w http.ResponseWriter, r *http.Request) error {
	tour, err := c.tours.GetBySlug(r.Context(), mux.Vars(r)[constants.ParamSlug])
	if err != nil {
		return err
	}
	if tour == nil {
		return apperror.NotFound("There is no tour with that name.")
	}
	return c.views.Render(w, http.StatusOK, "tour", views.Page{
		Title: tour.Name + " Tour",
		User:  middleware.CurrentUser(r),
		Tour:  tour,
	})
}

func (c *Controller) GetLoginForm(w http.ResponseWriter, r *http.Request) error {
	return c.views.Render(w, http.StatusOK, "login", views.Page{
		Title: "Log into your account",
		User:  middleware.CurrentUser(r),
	})
}

func (c *Controller) GetAccount(w http.ResponseWriter, r *http.Request) error {
	return c.views.Render(w, http.StatusOK, "account", views.Page{
		Title: "Your account",
		User:  middleware.CurrentUser(r),
	})
}
