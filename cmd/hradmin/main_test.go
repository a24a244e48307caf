package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/jrsteele09/go-hr-admin/internal/hrapitest"
	"github.com/jrsteele09/go-hr-admin/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *hrapitest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	color.NoColor = true

	backend := hrapitest.New(t)
	backend.AddUser("admin@example.com", "password123", users.RoleAdmin)
	backend.AddUser("member@example.com", "password123", users.RoleMember)

	t.Setenv("HRADMIN_CONFIG", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("HR_API_URL", backend.URL)
	t.Setenv("SESSION_STORAGE", "file")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("SESSION_PASSPHRASE", "correct horse")
	return &testFixture{backend: backend}
}

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	setupTestFixture(t)

	_, _, err := runCmd(t, "", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)

	out, _, err := runCmd(t, "password123\n", "login", "-email", "admin@example.com")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as admin@example.com (admin)")

	out, _, err = runCmd(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "admin@example.com")
	require.Contains(t, out, "valid until")

	out, _, err = runCmd(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out")

	_, _, err = runCmd(t, "", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestLoginRefusesMember(t *testing.T) {
	setupTestFixture(t)

	_, _, err := runCmd(t, "", "login", "-email", "member@example.com", "-password", "password123")
	require.EqualError(t, err, "Bạn không có quyền truy cập. Chỉ admin mới được phép.")

	_, _, err = runCmd(t, "", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestOverviewRefreshesExpiredToken(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetOverview(json.RawMessage(`{"totalMembers": 7, "roleRatio": [{"role": "admin", "count": 1}]}`))

	_, _, err := runCmd(t, "", "login", "-email", "admin@example.com", "-password", "password123")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	out, _, err := runCmd(t, "", "overview")
	require.NoError(t, err)
	require.Equal(t, 1, f.backend.RefreshCalls())

	var overview struct {
		TotalMembers int `json:"totalMembers"`
		RoleRatio    []struct {
			Role string `json:"role"`
		} `json:"roleRatio"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &overview))
	require.Equal(t, 7, overview.TotalMembers)
	require.Equal(t, "Colead", overview.RoleRatio[0].Role)
}

func TestRefreshFailureReportsExpiredSession(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := runCmd(t, "", "login", "-email", "admin@example.com", "-password", "password123")
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()
	f.backend.FailRefresh(401)

	_, stderr, err := runCmd(t, "", "timeoff")
	require.Error(t, err)
	require.Contains(t, stderr, "session expired, run `hradmin login`")

	_, _, err = runCmd(t, "", "whoami")
	require.ErrorIs(t, err, errNotSignedIn)
}

func TestTimeOffTable(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.SetTimeOff(json.RawMessage(`{
		"success": true,
		"data": [{"id": "t-1", "requester_id": "u-1", "requester_name": null, "requester_email": "ada@example.com",
			"start_date": "2025-01-02", "end_date": "2025-01-03", "reason": "trip", "status": "APPROVED",
			"reviewer_name": "Bob", "created_at": "2025-01-01"}],
		"pagination": {"total": 1, "page": 1, "limit": 10, "totalPages": 1}
	}`))

	_, _, err := runCmd(t, "", "login", "-email", "admin@example.com", "-password", "password123")
	require.NoError(t, err)

	out, _, err := runCmd(t, "", "timeoff", "-status", "approved", "-search", "ada")
	require.NoError(t, err)
	require.Contains(t, out, "ada@example.com")
	require.Contains(t, out, "Bob")
	require.Contains(t, out, "Page 1 / 1 (1 total)")

	queries := f.backend.TimeOffQueries()
	require.Equal(t, "APPROVED", queries[0].Get("status"))
	require.Equal(t, "ada", queries[0].Get("search"))
}

func TestUsage(t *testing.T) {
	setupTestFixture(t)

	_, stderr, err := runCmd(t, "")
	require.ErrorIs(t, err, flag.ErrHelp)
	require.Contains(t, stderr, "timeoff")

	_, _, err = runCmd(t, "", "payroll")
	require.ErrorContains(t, err, `unknown command "payroll"`)

	_, _, err = runCmd(t, "", "timeoff", "-status", "someday")
	require.Error(t, err)
}
