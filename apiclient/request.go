package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
)

// Request describes a call relative to the client's base URL. The body is
// held as bytes so the same request can be sent again after a token refresh.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Header   http.Header
	Body     []byte
	SkipAuth bool // no bearer header and no refresh handling, used for login
}

// NewRequest builds a request with body encoded as JSON. A nil body sends no
// payload.
func NewRequest(method, path string, body any) (*Request, error) {
	r := &Request{Method: method, Path: path, Header: make(http.Header)}
	if body == nil {
		return r, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode body: %v", apperrors.ErrInvalidRequest, err)
	}
	r.Body = data
	r.Header.Set("Content-Type", "application/json")
	return r, nil
}

func (r *Request) build(ctx context.Context, baseURL string) (*http.Request, error) {
	u := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}

	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Envelope is the {success, data} wrapper every HR endpoint responds with.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *EnvelopeError  `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
	Pagination json.RawMessage `json:"pagination,omitempty"`
}

type EnvelopeError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorMessage returns error.message, falling back to message.
func (e *Envelope) ErrorMessage() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

func (r *Response) Envelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidResponse, err)
	}
	return &env, nil
}

// Decode unwraps the envelope into out. An envelope with success=false is
// returned as an *APIError.
func (r *Response) Decode(out any) error {
	env, err := r.Envelope()
	if err != nil {
		return err
	}
	if !env.Success {
		return &APIError{StatusCode: r.StatusCode, Message: env.ErrorMessage(), Body: r.Body}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", apperrors.ErrInvalidResponse, err)
	}
	return nil
}
