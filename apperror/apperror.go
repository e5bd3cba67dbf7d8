// Package apperror classifies failures into operational errors, which carry
// a status code and a message that is safe to show to clients, and
// unexpected ones, which are reported generically.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

type AppError struct {
	StatusCode  int
	Status      string
	Message     string
	Operational bool
	Err         error
	Stack       string
}

func New(message string, statusCode int) *AppError {
	return &AppError{
		StatusCode:  statusCode,
		Status:      statusFor(statusCode),
		Message:     message,
		Operational: true,
		Stack:       string(debug.Stack()),
	}
}

func Newf(statusCode int, format string, args ...any) *AppError {
	return New(fmt.Sprintf(format, args...), statusCode)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func statusFor(code int) string {
	if code >= 400 && code < 500 {
		return StatusFail
	}
	return StatusError
}

func NotFound(message string) *AppError     { return New(message, http.StatusNotFound) }
func BadRequest(message string) *AppError   { return New(message, http.StatusBadRequest) }
func Unauthorized(message string) *AppError { return New(message, http.StatusUnauthorized) }
func Forbidden(message string) *AppError    { return New(message, http.StatusForbidden) }

func InvalidID(id string) *AppError {
	return Newf(http.StatusBadRequest, "Invalid _id: %s", id)
}

const noDocumentMessage = "No document found with that ID"

// NoDocument reports a lookup by ID that matched nothing.
func NoDocument() *AppError { return NotFound(noDocumentMessage) }

var dupValue = regexp.MustCompile(`"(?:\\.|[^"\\])*"`)

// Translate maps any error onto an AppError. Known driver and token errors
// become operational; everything else is wrapped as an unexpected 500.
func Translate(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return &AppError{StatusCode: http.StatusNotFound, Status: StatusFail, Message: noDocumentMessage, Operational: true, Err: err}
	case mongo.IsDuplicateKeyError(err):
		value := dupValue.FindString(err.Error())
		return &AppError{StatusCode: http.StatusBadRequest, Status: StatusFail, Message: fmt.Sprintf("Duplicate field value: %s. Please use another value!", value), Operational: true, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &AppError{StatusCode: http.StatusUnauthorized, Status: StatusFail, Message: "Your token has expired! Please log in again.", Operational: true, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return &AppError{StatusCode: http.StatusUnauthorized, Status: StatusFail, Message: "Invalid token. Please log in again!", Operational: true, Err: err}
	}
	return &AppError{
		StatusCode: http.StatusInternalServerError,
		Status:     StatusError,
		Message:    err.Error(),
		Err:        err,
		Stack:      string(debug.Stack()),
	}
}
