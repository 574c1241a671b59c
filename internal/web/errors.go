package web

import (
	"errors"
	"net/http"

	"github.com/franz/bachpedia/internal/util"
)

// httpError attaches a status code and a message safe to show to users
type httpError struct {
	StatusCode int
	Message    string
	Cause      error
}

func withStatus(err error, code int, message string) error {
	if err == nil {
		return nil
	}
	return httpError{StatusCode: code, Message: message, Cause: err}
}

func (e httpError) Error() string {
	return e.Cause.Error()
}

func (e httpError) Unwrap() error {
	return e.Cause
}

// statusOf maps an error to its response status and user-facing message.
// Anything unrecognized is a 500 with a generic message.
func statusOf(err error) (int, string) {
	var herr httpError
	if errors.As(err, &herr) {
		return herr.StatusCode, herr.Message
	}
	switch {
	case errors.Is(err, util.ErrInvalidInput):
		return http.StatusBadRequest, "The request is not valid."
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound, "The requested work does not exist."
	case errors.Is(err, util.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "The catalog is temporarily unavailable."
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again later."
}
