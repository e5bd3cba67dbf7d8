package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
)

// AliasTopTours presets the query for the five best rated, cheapest tours.
func (c *Controller) AliasTopTours(inner http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		query.Set("limit", "5")
		query.Set("sort", "-ratingsAverage,price")
		query.Set("fields", "name,price,ratingsAverage,summary,difficulty")
		r.URL.RawQuery = query.Encode()
		inner.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

func (c *Controller) GetAllTours(w http.ResponseWriter, r *http.Request) error {
	return getAll[models.Tour](c, w, r, c.tours, "tours", nil)
}

func (c *Controller) GetTour(w http.ResponseWriter, r *http.Request) error {
	return getOne[models.Tour](c, w, r, c.tours, "tour")
}

func (c *Controller) CreateTour(w http.ResponseWriter, r *http.Request) error {
	return createOne[models.Tour](c, w, r, c.tours, "tour", nil)
}

func (c *Controller) UpdateTour(w http.ResponseWriter, r *http.Request) error {
	return updateOne[models.Tour](c, w, r, c.tours, "tour")
}

func (c *Controller) DeleteTour(w http.ResponseWriter, r *http.Request) error {
	return deleteOne[models.Tour](c, w, r, c.tours)
}

func (c *Controller) GetTourStats(w http.ResponseWriter, r *http.Request) error {
	stats, err := c.tours.Stats(r.Context())
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, "stats", stats)
	return nil
}

func (c *Controller) GetMonthlyPlan(w http.ResponseWriter, r *http.Request) error {
	plan, err := c.tours.MonthlyPlan(r.Context(), mux.Vars(r)[constants.ParamYear])
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, "plan", plan)
	return nil
}

// GetToursWithin serves /tours-within/{distance}/center/{latlng}/unit/{unit}.
func (c *Controller) GetToursWithin(w http.ResponseWriter, r *http.Request) error {
	vars := mux.Vars(r)
	tours, err := c.tours.Within(r.Context(), vars["distance"], vars["latlng"], vars["unit"])
	if err != nil {
		return err
	}
	results := len(tours)
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{
		Status:  apperror.StatusSuccess,
		Results: &results,
		Data:    map[string]any{"data": tours},
	})
	return nil
}

func (c *Controller) GetDistances(w http.ResponseWriter, r *http.Request) error {
	vars := mux.Vars(r)
	distances, err := c.tours.Distances(r.Context(), vars["latlng"], vars["unit"])
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, "data", distances)
	return nil
}
