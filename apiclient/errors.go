package apiclient

import (
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
)

// APIError is a response the server did not accept: a non-2xx status or an
// envelope with success=false.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func newAPIError(resp *Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Body: resp.Body}
	if env, err := resp.Envelope(); err == nil {
		e.Message = env.ErrorMessage()
	}
	return e
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return apperrors.ErrUnauthorized
	}
	return apperrors.ErrUnsuccessful
}
