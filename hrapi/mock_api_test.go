package hrapi_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-hr-admin/apiclient"
	"github.com/jrsteele09/go-hr-admin/hrapi"
	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Do(ctx context.Context, req *apiclient.Request) (*apiclient.Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*apiclient.Response)
	return resp, args.Error(1)
}

func requestTo(method, path string) any {
	return mock.MatchedBy(func(req *apiclient.Request) bool {
		return req.Method == method && req.Path == path && !req.SkipAuth
	})
}

func TestOverviewTransportError(t *testing.T) {
	api := new(mockAPI)
	boom := errors.New("connection refused")
	api.On("Do", mock.Anything, requestTo(http.MethodGet, hrapi.TeamOverviewPath)).Return(nil, boom).Once()

	_, err := hrapi.NewAnalyticsService(api).Overview(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "[AnalyticsService Overview]")
	api.AssertExpectations(t)
}

func TestOverviewUnsuccessfulEnvelope(t *testing.T) {
	api := new(mockAPI)
	api.On("Do", mock.Anything, requestTo(http.MethodGet, hrapi.TeamOverviewPath)).Return(&apiclient.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"success":false,"error":{"message":"analytics offline"}}`),
	}, nil).Once()

	_, err := hrapi.NewAnalyticsService(api).Overview(context.Background())
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "analytics offline", apiErr.Message)
	api.AssertExpectations(t)
}

func TestTimeOffUnsuccessfulWithoutMessage(t *testing.T) {
	api := new(mockAPI)
	api.On("Do", mock.Anything, requestTo(http.MethodGet, hrapi.TimeOffPath)).Return(&apiclient.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"success":false}`),
	}, nil).Once()

	_, err := hrapi.NewTimeOffService(api).List(context.Background(), hrapi.TimeOffQuery{})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "unknown error", apiErr.Message)
	api.AssertExpectations(t)
}

func TestTimeOffMalformedData(t *testing.T) {
	api := new(mockAPI)
	api.On("Do", mock.Anything, mock.Anything).Return(&apiclient.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"success":true,"data":{"id":"not-a-list"}}`),
	}, nil).Once()

	_, err := hrapi.NewTimeOffService(api).List(context.Background(), hrapi.TimeOffQuery{Status: hrapi.StatusRejected})
	require.ErrorIs(t, err, apperrors.ErrInvalidResponse)

	req := api.Calls[0].Arguments.Get(1).(*apiclient.Request)
	require.Equal(t, "REJECTED", req.Query.Get("status"))
}
