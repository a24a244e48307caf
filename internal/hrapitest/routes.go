package hrapitest

// Route path constants served by the fake backend
const (
	// Auth Routes
	RouteLogin   = "/hr/auth/admin/login"
	RouteRefresh = "/hr/auth/refresh"

	// Data Routes
	RouteTeamOverview = "/hr/analytics/team-overview"
	RouteTimeOff      = "/nreport/time-off"

	// RouteEcho reflects the authenticated request back to the caller
	RouteEcho = "/hr/test/echo"
	// RouteRevoked answers 401 even to a current access token
	RouteRevoked = "/hr/test/revoked"
	// RouteFail answers with the status given in the status query parameter
	RouteFail = "/hr/test/fail"
)
