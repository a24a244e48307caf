package hrapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/jrsteele09/go-hr-admin/apiclient"
	"github.com/jrsteele09/go-hr-admin/hrapi"
	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/jrsteele09/go-hr-admin/internal/hrapitest"
	"github.com/jrsteele09/go-hr-admin/internal/utils"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/jrsteele09/go-hr-admin/sessions/memstorage"
	"github.com/jrsteele09/go-hr-admin/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend   *hrapitest.Server
	analytics *hrapi.AnalyticsService
	timeOff   *hrapi.TimeOffService
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := hrapitest.New(t)
	user := backend.AddUser("admin@example.com", "password123", users.RoleAdmin)
	store := sessions.NewStore(memstorage.New(), "")
	require.NoError(t, store.Save(context.Background(), user, backend.IssueSession(user.ID)))

	client := apiclient.New(backend.URL, store)
	return &testFixture{
		backend:   backend,
		analytics: hrapi.NewAnalyticsService(client),
		timeOff:   hrapi.NewTimeOffService(client),
	}
}

func rawJSON(t *testing.T, s string) json.RawMessage {
	t.Helper()
	require.True(t, json.Valid([]byte(s)))
	return json.RawMessage(s)
}

func TestOverview(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetOverview(rawJSON(t, `{
		"totalMembers": 12,
		"teamMemberRatio": [{"team": "Design", "count": 4}, {"team": "Marketing", "count": 8}],
		"roleRatio": [
			{"role": "member", "count": 6},
			{"role": "Coleader", "count": 2},
			{"role": "admin", "count": 1},
			{"role": "leader", "count": 2},
			{"role": "AD", "count": 1}
		],
		"ageDistribution": [{"bucket": "18-24", "count": 5}, {"bucket": "25-34", "count": 7}],
		"joinTrend": [{"week": "W1", "count": 3}],
		"teamChangeTrend": [
			{"week": "W1", "team": "Design", "count": 1},
			{"week": "W2", "team": "Design", "count": 2},
			{"week": "W1", "team": "Marketing", "count": 3}
		]
	}`))

	overview, err := f.analytics.Overview(context.Background())
	require.NoError(t, err)

	require.Equal(t, 12, overview.TotalMembers)
	require.Equal(t, []hrapi.TeamMemberRatio{{Team: "Design", Count: 4}, {Team: "Marketing", Count: 8}}, overview.TeamMemberRatio)
	require.Equal(t, []hrapi.RoleRatio{
		{Role: "member", Count: 6},
		{Role: hrapi.ColeadRole, Count: 4},
		{Role: "leader", Count: 2},
	}, overview.RoleRatio)
	require.Equal(t, []hrapi.AgeRatio{{Range: "18-24", Count: 5}, {Range: "25-34", Count: 7}}, overview.AgeRatio)
	require.Equal(t, []hrapi.JoinTrend{{Week: "W1", Count: 3}}, overview.JoinTrend)
	require.Equal(t, []hrapi.TeamChangeTrend{
		{Week: "W1", Teams: map[string]int{"Design": 1, "Marketing": 3}},
		{Week: "W2", Teams: map[string]int{"Design": 2}},
	}, overview.TeamChangeTrend)

	data, err := json.Marshal(overview.TeamChangeTrend[0])
	require.NoError(t, err)
	require.JSONEq(t, `{"week":"W1","Design":1,"Marketing":3}`, string(data))
}

func TestOverviewEmptyLists(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetOverview(rawJSON(t, `{"totalMembers": 0}`))

	overview, err := f.analytics.Overview(context.Background())
	require.NoError(t, err)
	require.Empty(t, overview.RoleRatio)
	require.NotNil(t, overview.RoleRatio)
	require.NotNil(t, overview.TeamChangeTrend)
}

func TestOverviewAfterTokenExpiry(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetOverview(rawJSON(t, `{"totalMembers": 3}`))
	f.backend.ExpireAccessTokens()

	overview, err := f.analytics.Overview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, overview.TotalMembers)
	require.Equal(t, 1, f.backend.RefreshCalls())
}

func TestTimeOffList(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetTimeOff(rawJSON(t, `{
		"success": true,
		"data": [{
			"id": "t-1",
			"requester_id": "u-1",
			"requester_name": "Ada",
			"requester_email": null,
			"start_date": "2025-01-02",
			"end_date": "2025-01-03",
			"reason": "trip",
			"status": "PENDING",
			"reviewed_by": null,
			"reviewer_name": null,
			"reviewed_at": null,
			"created_at": "2025-01-01T00:00:00Z"
		}],
		"pagination": {"total": 11, "page": 2, "limit": 10, "totalPages": 2}
	}`))

	page, err := f.timeOff.List(context.Background(), hrapi.TimeOffQuery{Page: 2, Status: hrapi.StatusPending, Search: "ada"})
	require.NoError(t, err)
	require.Len(t, page.Requests, 1)
	require.Equal(t, "Ada", utils.Value(page.Requests[0].RequesterName))
	require.Nil(t, page.Requests[0].ReviewedBy)
	require.Equal(t, hrapi.StatusPending, page.Requests[0].Status)
	require.Equal(t, hrapi.Pagination{Total: 11, Page: 2, Limit: 10, TotalPages: 2}, page.Pagination)

	queries := f.backend.TimeOffQueries()
	require.Len(t, queries, 1)
	require.Equal(t, url.Values{
		"page":   {"2"},
		"limit":  {"10"},
		"status": {"PENDING"},
		"search": {"ada"},
	}, queries[0])
}

func TestTimeOffListDefaults(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetTimeOff(rawJSON(t, `{"success": true, "data": []}`))

	page, err := f.timeOff.List(context.Background(), hrapi.TimeOffQuery{Status: hrapi.StatusAll})
	require.NoError(t, err)
	require.Empty(t, page.Requests)
	require.Equal(t, hrapi.Pagination{Page: 1, Limit: 10}, page.Pagination)

	queries := f.backend.TimeOffQueries()
	require.Equal(t, url.Values{"page": {"1"}, "limit": {"10"}}, queries[0])
}

func TestTimeOffListUnsuccessful(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetTimeOff(rawJSON(t, `{"success": false, "message": "report unavailable"}`))

	_, err := f.timeOff.List(context.Background(), hrapi.TimeOffQuery{})
	var apiErr *apiclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusOK, apiErr.StatusCode)
	require.Equal(t, "report unavailable", apiErr.Message)
	require.ErrorIs(t, err, apperrors.ErrUnsuccessful)
}

func TestTimeOffListRejectsUnknownStatus(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.timeOff.List(context.Background(), hrapi.TimeOffQuery{Status: "ARCHIVED"})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	require.Empty(t, f.backend.TimeOffQueries())
}

func TestParseTimeOffStatus(t *testing.T) {
	testCases := map[string]hrapi.TimeOffStatus{
		"":          hrapi.StatusAll,
		"all":       hrapi.StatusAll,
		"approved":  hrapi.StatusApproved,
		" Rejected": hrapi.StatusRejected,
		"CANCELLED": hrapi.StatusCancelled,
	}
	for in, want := range testCases {
		got, err := hrapi.ParseTimeOffStatus(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	_, err := hrapi.ParseTimeOffStatus("later")
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}
