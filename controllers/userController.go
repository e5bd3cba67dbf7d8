package controllers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sanjiv-madhavan/go-natours/apperror"
	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/middleware"
	"github.com/sanjiv-madhavan/go-natours/models"
)

const maxPhotoSize = 10 << 20

func (c *Controller) GetAllUsers(w http.ResponseWriter, r *http.Request) error {
	return getAll[models.User](c, w, r, c.users, "users", nil)
}

func (c *Controller) GetUser(w http.ResponseWriter, r *http.Request) error {
	return getOne[models.User](c, w, r, c.users, "user")
}

func (c *Controller) CreateUser(w http.ResponseWriter, r *http.Request) error {
	return createOne[models.User](c, w, r, c.users, "user", nil)
}

func (c *Controller) UpdateUser(w http.ResponseWriter, r *http.Request) error {
	return updateOne[models.User](c, w, r, c.users, "user")
}

func (c *Controller) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	return deleteOne[models.User](c, w, r, c.users)
}

// GetMe serves the caller's own document through the regular lookup.
func (c *Controller) GetMe(w http.ResponseWriter, r *http.Request) error {
	user := middleware.CurrentUser(r)
	r = mux.SetURLVars(r, map[string]string{constants.ParamID: user.ID.Hex()})
	return c.GetUser(w, r)
}

// UpdateMe takes either a JSON body or a multipart form carrying an optional
// photo file.
func (c *Controller) UpdateMe(w http.ResponseWriter, r *http.Request) error {
	var req models.UpdateMeRequest
	var photo []byte
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		if req, photo, err = readUpdateMeForm(r); err != nil {
			return err
		}
	} else if err := decodeJSON(r, &req); err != nil {
		return err
	}
	user, err := c.users.UpdateMe(r.Context(), middleware.CurrentUser(r), req, photo)
	if err != nil {
		return err
	}
	c.respond(w, http.StatusOK, "user", user)
	return nil
}

func readUpdateMeForm(r *http.Request) (models.UpdateMeRequest, []byte, error) {
	var req models.UpdateMeRequest
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		return req, nil, apperror.BadRequest("Invalid request body")
	}
	if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
		req.Name = &values[0]
	}
	if values, ok := r.MultipartForm.Value["email"]; ok && len(values) > 0 {
		req.Email = &values[0]
	}
	req.Password = r.FormValue("password")
	req.PasswordConfirm = r.FormValue("passwordConfirm")

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, apperror.BadRequest("Invalid request body")
	}
	defer file.Close()
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return req, nil, apperror.BadRequest("Not an image! Please upload only images.")
	}
	photo, err := io.ReadAll(file)
	if err != nil {
		return req, nil, err
	}
	return req, photo, nil
}

func (c *Controller) DeleteMe(w http.ResponseWriter, r *http.Request) error {
	if err := c.users.DeleteMe(r.Context(), middleware.CurrentUser(r)); err != nil {
		return err
	}
	c.middleware.SendJSONResponse(w, http.StatusNoContent, nil)
	return nil
}
