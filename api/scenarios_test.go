/*
scenarios_test.go - Tests for demo scenario loading

Each loader must reset the store first and leave a consistent world
behind: master data, assignments and any pre-committed history.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchensafe/haccp-engine/compliance"
)

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestListScenarios(t *testing.T) {
	_, router := newTestServer(t)

	scenarios := decode[[]ScenarioDTO](t, doJSON(t, router, http.MethodGet, "/api/scenarios", nil))
	require.Len(t, scenarios, 4)

	ids := make([]string, len(scenarios))
	for i, s := range scenarios {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"single-site", "violation-demo", "summer-closure", "multi-site"}, ids)
}

func TestLoadScenario_SingleSite(t *testing.T) {
	// GIVEN: a store with leftover state
	// WHEN: loading single-site
	// THEN: the canteen exists and U1 has open tasks on a workday

	h, router := newTestServer(t)

	// Leftover state that must not survive the reset.
	rec := doJSON(t, router, http.MethodPost, "/api/menus", map[string]any{"name": "Altes Menü"})
	require.Equal(t, http.StatusCreated, rec.Code)

	loadScenario(t, router, "single-site")

	current := decode[ScenarioDTO](t, doJSON(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "single-site", current.ID)

	menus := decode[[]compliance.Menu](t, doJSON(t, router, http.MethodGet, "/api/menus", nil))
	require.Len(t, menus, 1)
	assert.Equal(t, "Menü 1", menus[0].Name)

	assignments, err := h.Store.ListAssignments(context.Background())
	require.NoError(t, err)
	assert.Len(t, assignments, 2, "weekly menu and daily checklist")

	// A workday workspace carries at least the implicit fridge checkpoint.
	day := compliance.Today()
	for day.IsWeekend() {
		day = day.AddDays(1)
	}
	ws := decode[WorkspaceDTO](t, doJSON(t, router, http.MethodGet, "/api/users/U1/workspace?date="+day.String(), nil))
	assert.NotEmpty(t, ws.Tasks)
}

func TestLoadScenario_ViolationDemo(t *testing.T) {
	// The demo pre-commits three readings, two of them out of tolerance.

	_, router := newTestServer(t)
	loadScenario(t, router, "violation-demo")

	readings := decode[[]ReadingDTO](t, doJSON(t, router, http.MethodGet, "/api/readings", nil))
	assert.Len(t, readings, 3)

	alerts := decode[[]AlertDTO](t, doJSON(t, router, http.MethodGet, "/api/alerts?unresolved=true", nil))
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, "Kantine Nord", a.FacilityName)
		assert.NotEmpty(t, a.UserName)
	}
}

func TestLoadScenario_SummerClosure(t *testing.T) {
	// The closure spans today, so the workspace is empty with a reason.

	_, router := newTestServer(t)
	loadScenario(t, router, "summer-closure")

	ws := decode[WorkspaceDTO](t, doJSON(t, router, http.MethodGet, "/api/users/U1/workspace", nil))
	assert.Empty(t, ws.Tasks)
	assert.NotEmpty(t, ws.ExclusionReason)
}

func TestLoadScenario_MultiSite(t *testing.T) {
	// Two weeks of checklist history ranks both supervisors.

	_, router := newTestServer(t)
	loadScenario(t, router, "multi-site")

	from := compliance.Today().AddDays(-20)
	to := compliance.Today()
	rec := doJSON(t, router, http.MethodGet,
		"/api/reports/presence?from="+from.String()+"&to="+to.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stats := decode[[]SupervisorStatsDTO](t, rec)
	require.NotEmpty(t, stats)
	for i := 1; i < len(stats); i++ {
		assert.GreaterOrEqual(t, stats[i-1].TotalVisits, stats[i].TotalVisits)
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	_, router := newTestServer(t)
	rec := doJSON(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
