package hrapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-hr-admin/apiclient"
	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
)

const TeamOverviewPath = "/hr/analytics/team-overview"

// ColeadRole is the role name that coleader, admin and ad are reported under.
const ColeadRole = "Colead"

type TeamMemberRatio struct {
	Team  string `json:"team"`
	Count int    `json:"count"`
}

type RoleRatio struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

type AgeRatio struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

type JoinTrend struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

// TeamChangeTrend is one week of team size changes keyed by team name.
type TeamChangeTrend struct {
	Week  string
	Teams map[string]int
}

// MarshalJSON flattens the teams next to the week: {"week":"W1","Design":2}.
func (t TeamChangeTrend) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(t.Teams)+1)
	for team, count := range t.Teams {
		m[team] = count
	}
	m["week"] = t.Week
	return json.Marshal(m)
}

type Overview struct {
	TotalMembers    int               `json:"totalMembers"`
	TeamMemberRatio []TeamMemberRatio `json:"teamMemberRatio"`
	RoleRatio       []RoleRatio       `json:"roleRatio"`
	AgeRatio        []AgeRatio        `json:"ageRatio"`
	JoinTrend       []JoinTrend       `json:"joinTrend"`
	TeamChangeTrend []TeamChangeTrend `json:"teamChangeTrend"`
}

// overviewPayload is the overview as the backend sends it.
type overviewPayload struct {
	TotalMembers    int               `json:"totalMembers"`
	TeamMemberRatio []TeamMemberRatio `json:"teamMemberRatio"`
	RoleRatio       []RoleRatio       `json:"roleRatio"`
	AgeDistribution []struct {
		Bucket string `json:"bucket"`
		Count  int    `json:"count"`
	} `json:"ageDistribution"`
	JoinTrend       []JoinTrend `json:"joinTrend"`
	TeamChangeTrend []struct {
		Week  string `json:"week"`
		Team  string `json:"team"`
		Count int    `json:"count"`
	} `json:"teamChangeTrend"`
}

type AnalyticsService struct {
	api API
}

func NewAnalyticsService(api API) *AnalyticsService {
	return &AnalyticsService{api: api}
}

// Overview fetches the team overview and reshapes it for reporting.
func (s *AnalyticsService) Overview(ctx context.Context) (*Overview, error) {
	req, err := apiclient.NewRequest(http.MethodGet, TeamOverviewPath, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Do(ctx, req)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[AnalyticsService Overview]")
	}

	var raw overviewPayload
	if err := resp.Decode(&raw); err != nil {
		return nil, apperrors.Wrapf(err, "[AnalyticsService Overview] decode")
	}
	return newOverview(&raw), nil
}

func newOverview(raw *overviewPayload) *Overview {
	o := &Overview{
		TotalMembers:    raw.TotalMembers,
		TeamMemberRatio: append([]TeamMemberRatio{}, raw.TeamMemberRatio...),
		RoleRatio:       foldRoles(raw.RoleRatio),
		AgeRatio:        make([]AgeRatio, 0, len(raw.AgeDistribution)),
		JoinTrend:       append([]JoinTrend{}, raw.JoinTrend...),
		TeamChangeTrend: []TeamChangeTrend{},
	}
	for _, a := range raw.AgeDistribution {
		o.AgeRatio = append(o.AgeRatio, AgeRatio{Range: a.Bucket, Count: a.Count})
	}

	weeks := make(map[string]int)
	for _, c := range raw.TeamChangeTrend {
		i, ok := weeks[c.Week]
		if !ok {
			i = len(o.TeamChangeTrend)
			weeks[c.Week] = i
			o.TeamChangeTrend = append(o.TeamChangeTrend, TeamChangeTrend{Week: c.Week, Teams: map[string]int{}})
		}
		o.TeamChangeTrend[i].Teams[c.Team] = c.Count
	}
	return o
}

// foldRoles merges coleader, admin and ad into ColeadRole and sums duplicate
// roles, keeping the order roles were first seen in.
func foldRoles(roles []RoleRatio) []RoleRatio {
	out := []RoleRatio{}
	index := make(map[string]int)
	for _, r := range roles {
		name := r.Role
		switch strings.ToLower(name) {
		case "coleader", "admin", "ad":
			name = ColeadRole
		}
		if i, ok := index[name]; ok {
			out[i].Count += r.Count
			continue
		}
		index[name] = len(out)
		out = append(out, RoleRatio{Role: name, Count: r.Count})
	}
	return out
}
