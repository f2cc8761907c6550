/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Reading submission (commit contract over HTTP: 201/409/422)
- Workspace resolution and exclusion reasons
- Checklist submission validation
- Presence report and lost-day endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchensafe/haccp-engine/compliance"
	"github.com/kitchensafe/haccp-engine/store/sqlite"
)

// newTestServer seeds the base canteen and returns a router over a fresh
// in-memory store.
func newTestServer(t *testing.T) (*Handler, http.Handler) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	require.NoError(t, h.seedSiteNord(context.Background()))
	return h, NewRouter(h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func readingBody(value, reason string) map[string]any {
	body := map[string]any{
		"target_id":       "FR1",
		"target_kind":     "refrigerator",
		"checkpoint_name": "Luft",
		"value":           value,
		"timestamp":       "2025-06-02T08:30:00Z",
		"user_id":         "U1",
		"facility_id":     "F1",
	}
	if reason != "" {
		body["reason"] = reason
	}
	return body
}

// =============================================================================
// READINGS
// =============================================================================

func TestSubmitReading_InRange_Committed(t *testing.T) {
	// GIVEN: fridge checkpoint Luft bounded 2..7
	// WHEN: submitting 4.5
	// THEN: 201 with a locked reading and no alert in the inbox

	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/readings", readingBody("4.5", ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	dto := decode[ReadingDTO](t, rec)
	assert.Equal(t, "FR1", dto.TargetID)
	assert.Equal(t, "4.5", dto.Value)
	assert.Empty(t, dto.Reason)

	alerts := decode[[]AlertDTO](t, doJSON(t, router, http.MethodGet, "/api/alerts", nil))
	assert.Empty(t, alerts)
}

func TestSubmitReading_SameDayDuplicate_Conflict(t *testing.T) {
	_, router := newTestServer(t)

	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/readings", readingBody("4.5", "")).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/readings", readingBody("5.0", ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitReading_OutOfRange_RequiresJustification(t *testing.T) {
	// GIVEN: 9 against band 2..7, no reason
	// WHEN: submitting
	// THEN: 422 with the band so the client can prompt and retry

	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodPost, "/api/readings", readingBody("9", ""))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	resp := decode[JustificationRequiredResponse](t, rec)
	assert.Equal(t, "JUSTIFICATION_REQUIRED", resp.Code)
	assert.Equal(t, "FR1", resp.TargetID)
	assert.Equal(t, "2", resp.MinTemp)
	assert.Equal(t, "7", resp.MaxTemp)

	// Nothing was committed; the retry with a reason succeeds.
	rec = doJSON(t, router, http.MethodPost, "/api/readings", readingBody("9", "Tür stand offen"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Tür stand offen", decode[ReadingDTO](t, rec).Reason)

	alerts := decode[[]AlertDTO](t, doJSON(t, router, http.MethodGet, "/api/alerts?unresolved=true", nil))
	require.Len(t, alerts, 1)
	assert.Equal(t, "Kühlzelle 1", alerts[0].TargetName)
	assert.Equal(t, "9", alerts[0].Value)
	assert.Equal(t, "Anna Vogel", alerts[0].UserName)
}

func TestSubmitReading_SharedMenuAcceptsEachActor(t *testing.T) {
	// GIVEN: two staff members sharing the facility's menu obligation
	// WHEN: each commits a reading for the same menu, checkpoint and day
	// THEN: both are accepted; only a same-user repeat conflicts

	h, router := newTestServer(t)

	_, err := h.Store.SaveUser(context.Background(), compliance.User{
		ID: "U2", Name: "Ben Krause", FacilityID: "F1",
	})
	require.NoError(t, err)

	menuBody := func(user string) map[string]any {
		return map[string]any{
			"target_id":       "M1",
			"target_kind":     "menu",
			"checkpoint_name": "Kern-Temperatur",
			"value":           "78",
			"timestamp":       "2025-06-02T11:30:00Z",
			"user_id":         user,
			"facility_id":     "F1",
		}
	}

	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/readings", menuBody("U1")).Code)
	assert.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/readings", menuBody("U2")).Code)
	assert.Equal(t, http.StatusConflict,
		doJSON(t, router, http.MethodPost, "/api/readings", menuBody("U1")).Code)
}

func TestSubmitReading_Validation(t *testing.T) {
	_, router := newTestServer(t)

	bad := readingBody("4.5", "")
	bad["target_kind"] = "oven"
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/readings", bad).Code)

	bad = readingBody("4.5", "")
	bad["timestamp"] = "not-a-time"
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/readings", bad).Code)

	bad = readingBody("4.5", "")
	delete(bad, "user_id")
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/readings", bad).Code)
}

// =============================================================================
// WORKSPACE
// =============================================================================

func TestGetWorkspace_ListsOpenTasks(t *testing.T) {
	// GIVEN: the seeded canteen, no readings on a Monday
	// WHEN: requesting U1's workspace
	// THEN: the fridge checkpoint task is open, with its band attached

	_, router := newTestServer(t)

	rec := doJSON(t, router, http.MethodGet, "/api/users/U1/workspace?date=2025-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	ws := decode[WorkspaceDTO](t, rec)
	assert.Equal(t, "U1", ws.UserID)
	assert.Equal(t, "2025-06-02", ws.Date)
	assert.Empty(t, ws.ExclusionReason)

	require.Len(t, ws.Tasks, 1)
	assert.Equal(t, "fridge", ws.Tasks[0].Kind)
	assert.Equal(t, "Kühlzelle 1", ws.Tasks[0].ResourceName)
	assert.Equal(t, "Luft", ws.Tasks[0].CheckpointName)
	require.NotNil(t, ws.Tasks[0].MinTemp)
	assert.Equal(t, "2", *ws.Tasks[0].MinTemp)
}

func TestGetWorkspace_ExclusionReasonShown(t *testing.T) {
	h, router := newTestServer(t)

	_, err := h.Store.SaveException(context.Background(), compliance.FacilityException{
		FacilityIDs: []string{"F1"}, Name: "Betriebsferien", Reason: "Sommerpause",
		StartDate: compliance.MustParseDate("2025-06-01"),
		EndDate:   compliance.MustParseDate("2025-06-15"),
	})
	require.NoError(t, err)

	ws := decode[WorkspaceDTO](t, doJSON(t, router, http.MethodGet, "/api/users/U1/workspace?date=2025-06-02", nil))
	assert.Empty(t, ws.Tasks)
	assert.Equal(t, "Sommerpause", ws.ExclusionReason)
}

func TestGetWorkspace_UnknownUser(t *testing.T) {
	_, router := newTestServer(t)
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodGet, "/api/users/ghost/workspace?date=2025-06-02", nil).Code)
}

func TestGetLostDays_AuditsRange(t *testing.T) {
	// GIVEN: one committed reading on Monday out of a Monday-Wednesday range
	// WHEN: auditing
	// THEN: Tuesday and Wednesday show the missed checkpoint

	_, router := newTestServer(t)
	require.Equal(t, http.StatusCreated,
		doJSON(t, router, http.MethodPost, "/api/readings", readingBody("4.5", "")).Code)

	rec := doJSON(t, router, http.MethodGet, "/api/users/U1/lost-days?from=2025-06-02&to=2025-06-04", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	lost := decode[[]LostDayDTO](t, rec)
	require.Len(t, lost, 2)
	assert.Equal(t, "2025-06-03", lost[0].Date)
	assert.Equal(t, "2025-06-04", lost[1].Date)
	assert.Equal(t, "Kühlzelle 1", lost[0].TargetName)

	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodGet, "/api/users/U1/lost-days?from=2025-06-04&to=2025-06-02", nil).Code)
}

// =============================================================================
// FORM RESPONSES
// =============================================================================

func TestSubmitFormResponse_RequiresPresenceAnswer(t *testing.T) {
	_, router := newTestServer(t)

	body := map[string]any{
		"form_id":     "FORM1",
		"facility_id": "F1",
		"user_id":     "U1",
		"timestamp":   "2025-06-02T10:00:00Z",
		"answers":     map[string]string{"q1": "YES"},
	}
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/responses", body).Code)

	// The yes/no questions of the template must be answered too.
	body["answers"] = map[string]string{
		"q1":                          "YES",
		compliance.SupervisorVisitKey: compliance.VisitYes,
	}
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/responses", body).Code)

	// Free-text q3 stays optional.
	body["answers"] = map[string]string{
		"q1":                          "YES",
		"q2":                          "NO",
		compliance.SupervisorVisitKey: compliance.VisitYes,
	}
	rec := doJSON(t, router, http.MethodPost, "/api/responses", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, compliance.VisitYes, decode[FormResponseDTO](t, rec).SupervisorVisit)
}

// =============================================================================
// PRESENCE REPORT
// =============================================================================

func TestGetPresenceReport(t *testing.T) {
	// GIVEN: three submissions in June, two YES and one NO
	// WHEN: requesting the June report
	// THEN: SUP1 is ranked with resolved name and per-facility tallies

	h, router := newTestServer(t)
	ctx := context.Background()

	_, err := h.Store.SaveUser(ctx, compliance.User{ID: "SUP1", Name: "Maria Lindner", Role: "supervisor"})
	require.NoError(t, err)

	for i, visit := range []string{compliance.VisitYes, compliance.VisitYes, compliance.VisitNo} {
		require.NoError(t, h.Store.AppendFormResponse(ctx, compliance.FormResponse{
			ID: fmt.Sprintf("resp-%d", i), FormID: "FORM1", FacilityID: "F1", UserID: "U1",
			Timestamp: fmt.Sprintf("2025-06-0%dT10:00:00Z", i+2),
			Answers:   map[string]string{compliance.SupervisorVisitKey: visit},
		}))
	}

	rec := doJSON(t, router, http.MethodGet, "/api/reports/presence?from=2025-06-01&to=2025-06-30", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stats := decode[[]SupervisorStatsDTO](t, rec)
	require.Len(t, stats, 1)
	assert.Equal(t, "SUP1", stats[0].SupervisorID)
	assert.Equal(t, "Maria Lindner", stats[0].SupervisorName)
	assert.Equal(t, 2, stats[0].TotalVisits)
	assert.Equal(t, 3, stats[0].TotalChecked)
	assert.Equal(t, PresenceCountDTO{Yes: 2, No: 1}, stats[0].Breakdown["F1"])
}

// =============================================================================
// MASTER DATA AND SCENARIOS
// =============================================================================

func TestSaveMenu_Validation(t *testing.T) {
	_, router := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest,
		doJSON(t, router, http.MethodPost, "/api/menus", map[string]any{}).Code)

	rec := doJSON(t, router, http.MethodPost, "/api/menus", map[string]any{"name": "Menü 2"})
	require.Equal(t, http.StatusCreated, rec.Code)

	menu := decode[compliance.Menu](t, rec)
	assert.NotEmpty(t, menu.ID, "id is generated when absent")

	assert.Equal(t, http.StatusNoContent,
		doJSON(t, router, http.MethodDelete, "/api/menus/"+menu.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		doJSON(t, router, http.MethodDelete, "/api/menus/"+menu.ID, nil).Code)
}

func TestSaveAssignment_Validation(t *testing.T) {
	_, router := newTestServer(t)

	valid := map[string]any{
		"target_type":   "facility",
		"target_id":     "F1",
		"resource_type": "menu",
		"resource_id":   "M1",
		"frequency":     "weekly",
		"frequency_day": 1,
		"start_date":    "2025-01-01",
		"end_date":      "2025-12-31",
		"skip_weekend":  true,
	}
	assert.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/assignments", valid).Code)

	bad := map[string]any{}
	for k, v := range valid {
		bad[k] = v
	}
	bad["frequency"] = "fortnightly"
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/assignments", bad).Code)

	bad["frequency"] = "weekly"
	bad["end_date"] = "2024-12-31"
	assert.Equal(t, http.StatusBadRequest, doJSON(t, router, http.MethodPost, "/api/assignments", bad).Code)
}
