package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/roomly/roomly-server/internal/assets"
	"github.com/roomly/roomly-server/internal/auth"
	"github.com/roomly/roomly-server/internal/chat"
	"github.com/roomly/roomly-server/internal/database"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(code int, err error) *ApiError {
	return &ApiError{
		StatusCode: code,
		Message:    lower(http.StatusText(code)),
		Err:        err,
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest, nil)
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, nil)
}

func NewInternalServerError(err error) *ApiError {
	return newApiError(http.StatusInternalServerError, err)
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, nil)
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden, nil)
}

func NewConflictError() *ApiError {
	return newApiError(http.StatusConflict, nil)
}

func NewRequestEntityTooLargeError() *ApiError {
	return newApiError(http.StatusRequestEntityTooLarge, nil)
}

// errorFor maps an error returned by a collaborator onto the response
// sent to the client. Only 500s carry the underlying error, and it is
// never serialized.
func errorFor(err error) *ApiError {
	var apiErr *ApiError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, chat.ErrInvalidInput),
		errors.Is(err, assets.ErrUnsupportedType):
		return NewBadRequestError()
	case errors.Is(err, assets.ErrTooLarge):
		return NewRequestEntityTooLargeError()
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredential):
		return NewUnauthorizedError()
	case errors.Is(err, chat.ErrForbidden):
		return NewForbiddenError()
	case errors.Is(err, chat.ErrNotFound),
		errors.Is(err, sql.ErrNoRows):
		return NewNotFoundError()
	case errors.Is(err, chat.ErrConflict),
		errors.Is(err, database.ErrConflict):
		return NewConflictError()
	default:
		return NewInternalServerError(err)
	}
}
