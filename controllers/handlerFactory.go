package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/features"
)

// Resource is the CRUD surface every service exposes to the generic handlers.
// Lookups report a missing document as a nil result, not an error.
type Resource[T any] interface {
	List(ctx context.Context, params url.Values, scope bson.M) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, doc *T) (*T, error)
	Update(ctx context.Context, id string, apply func(*T) error) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
}

func getAll[T any](c *Controller, w http.ResponseWriter, r *http.Request, res Resource[T], name string, scope bson.M) error {
	docs, err := res.List(r.Context(), r.URL.Query(), scope)
	if err != nil {
		return err
	}
	projected, err := features.Project(r.URL.Query(), docs)
	if err != nil {
		return err
	}
	results := len(docs)
	c.middleware.SendJSONResponse(w, http.StatusOK, envelope{
		Status:  apperror.StatusSuccess,
		Results: &results,
		Data:    map[string]any{name: projected},
	})
	return nil
}

func getOne[T any](c *Controller, w http.ResponseWriter, r *http.Request, res Resource[T], name string) error {
	doc, err := res.Get(r.Context(), mux.Vars(r)[constants.ParamID])
	if err != nil {
		return err
	}
	if doc == nil {
		return apperror.NoDocument()
	}
	c.respond(w, http.StatusOK, name, doc)
	return nil
}

// createOne decodes the body into a fresh document. prepare, when set, runs
// before the document is handed to the service.
func createOne[T any](c *Controller, w http.ResponseWriter, r *http.Request, res Resource[T], name string, prepare func(*http.Request, *T) error) error {
	doc := new(T)
	if err := decodeJSON(r, doc); err != nil {
		return err
	}
	if prepare != nil {
		if err := prepare(r, doc); err != nil {
			return err
		}
	}
	created, err := res.Create(r.Context(), doc)
	if err != nil {
		return err
	}
	c.respond(w, http.StatusCreated, name, created)
	return nil
}

// updateOne overlays the request body onto the stored document, so fields
// absent from the body keep their current values.
func updateOne[T any](c *Controller, w http.ResponseWriter, r *http.Request, res Resource[T], name string) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperror.BadRequest("Invalid request body")
	}
	apply := func(doc *T) error {
		if len(body) == 0 {
			return nil
		}
		return json.Unmarshal(body, doc)
	}
	updated, err := res.Update(r.Context(), mux.Vars(r)[constants.ParamID], apply)
	if err != nil {
		return err
	}
	if updated == nil {
		return apperror.NoDocument()
	}
	c.respond(w, http.StatusOK, name, updated)
	return nil
}

func deleteOne[T any](c *Controller, w http.ResponseWriter, r *http.Request, res Resource[T]) error {
	deleted, err := res.Delete(r.Context(), mux.Vars(r)[constants.ParamID])
	if err != nil {
		return err
	}
	if !deleted {
		return apperror.NoDocument()
	}
	c.middleware.SendJSONResponse(w, http.StatusNoContent, nil)
	return nil
}
