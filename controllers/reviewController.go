package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/middleware"
	"github.com/sanjiv-madhavan/go-natours/models"
)

// tourScope narrows review routes mounted under /tours/{tourId}.
func tourScope(r *http.Request) (bson.M, error) {
	tourID, ok := mux.Vars(r)[constants.ParamTourID]
	if !ok {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(tourID)
	if err != nil {
		return nil, apperror.InvalidID(tourID)
	}
	return bson.M{"tour": id}, nil
}

// setTourUserIDs defaults the review's tour to the route's and its author to
// the caller.
func setTourUserIDs(r *http.Request, review *models.Review) error {
	if review.TourID.IsZero() {
		scope, err := tourScope(r)
		if err != nil {
			return err
		}
		if scope != nil {
			review.TourID = scope["tour"].(primitive.ObjectID)
		}
	}
	if review.UserID.IsZero() {
		if user := middleware.CurrentUser(r); user != nil {
			review.UserID = user.ID
		}
	}
	return nil
}

func (c *Controller) GetAllReviews(w http.ResponseWriter, r *http.Request) error {
	scope, err := tourScope(r)
	if err != nil {
		return err
	}
	return getAll[models.Review](c, w, r, c.reviews, "reviews", scope)
}

func (c *Controller) GetReview(w http.ResponseWriter, r *http.Request) error {
	return getOne[models.Review](c, w, r, c.reviews, "review")
}

func (c *Controller) CreateReview(w http.ResponseWriter, r *http.Request) error {
	return createOne[models.Review](c, w, r, c.reviews, "review", setTourUserIDs)
}

func (c *Controller) UpdateReview(w http.ResponseWriter, r *http.Request) error {
	return updateOne[models.Review](c, w, r, c.reviews, "review")
}

func (c *Controller) DeleteReview(w http.ResponseWriter, r *http.Request) error {
	return deleteOne[models.Review](c, w, r, c.reviews)
}
