package hrapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-hr-admin/apiclient"
	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
)

const (
	TimeOffPath = "/nreport/time-off"

	DefaultTimeOffLimit = 10
)

type TimeOffStatus string

const (
	StatusAll       TimeOffStatus = "ALL"
	StatusPending   TimeOffStatus = "PENDING"
	StatusApproved  TimeOffStatus = "APPROVED"
	StatusRejected  TimeOffStatus = "REJECTED"
	StatusCancelled TimeOffStatus = "CANCELLED"
)

// ParseTimeOffStatus accepts a status in any case. Empty means StatusAll.
func ParseTimeOffStatus(s string) (TimeOffStatus, error) {
	status := TimeOffStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case "":
		return StatusAll, nil
	case StatusAll, StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("%w: unknown time-off status %q", apperrors.ErrInvalidRequest, s)
}

// TimeOffRequest is one leave request. Nullable fields are pointers.
type TimeOffRequest struct {
	ID             string        `json:"id"`
	RequesterID    string        `json:"requester_id"`
	RequesterName  *string       `json:"requester_name"`
	RequesterEmail *string       `json:"requester_email"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	Reason         string        `json:"reason"`
	Status         TimeOffStatus `json:"status"`
	ReviewedBy     *string       `json:"reviewed_by"`
	ReviewerName   *string       `json:"reviewer_name"`
	ReviewedAt     *string       `json:"reviewed_at"`
	CreatedAt      string        `json:"created_at"`
}

type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// TimeOffQuery filters the time-off report. Zero values mean page 1, ten per
// page, every status, no search.
type TimeOffQuery struct {
	Page   int
	Limit  int
	Status TimeOffStatus
	Search string
}

func (q TimeOffQuery) normalize() TimeOffQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultTimeOffLimit
	}
	if q.Status == "" {
		q.Status = StatusAll
	}
	return q
}

// Values encodes the query. StatusAll and an empty search are left out.
func (q TimeOffQuery) Values() url.Values {
	q = q.normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Status != StatusAll {
		v.Set("status", string(q.Status))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

type TimeOffPage struct {
	Requests   []TimeOffRequest `json:"requests"`
	Pagination Pagination       `json:"pagination"`
}

type TimeOffService struct {
	api API
}

func NewTimeOffService(api API) *TimeOffService {
	return &TimeOffService{api: api}
}

// List returns one page of the time-off report.
func (s *TimeOffService) List(ctx context.Context, q TimeOffQuery) (*TimeOffPage, error) {
	q = q.normalize()
	if _, err := ParseTimeOffStatus(string(q.Status)); err != nil {
		return nil, err
	}

	req, err := apiclient.NewRequest(http.MethodGet, TimeOffPath, nil)
	if err != nil {
		return nil, err
	}
	req.Query = q.Values()

	resp, err := s.api.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[TimeOffService List]")
	}

	env, err := resp.Envelope()
	if err != nil {
		return nil, apperrors.Wrapf(err, "[TimeOffService List]")
	}
	if !env.Success {
		msg := env.ErrorMessage()
		if msg == "" {
			msg = "unknown error"
		}
		return nil, &apiclient.APIError{StatusCode: resp.StatusCode, Message: msg, Body: resp.Body}
	}

	page := &TimeOffPage{
		Requests:   []TimeOffRequest{},
		Pagination: Pagination{Page: q.Page, Limit: q.Limit},
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &page.Requests); err != nil {
			return nil, fmt.Errorf("%w: time-off data: %v", apperrors.ErrInvalidResponse, err)
		}
	}
	if len(env.Pagination) > 0 && string(env.Pagination) != "null" {
		if err := json.Unmarshal(env.Pagination, &page.Pagination); err != nil {
			return nil, fmt.Errorf("%w: time-off pagination: %v", apperrors.ErrInvalidResponse, err)
		}
	}
	return page, nil
}
