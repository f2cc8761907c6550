/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates facilities, equipment
	catalogs, users, assignments and records that demonstrate specific
	features of the engine.

AVAILABLE SCENARIOS:

	single-site:      One canteen with a fridge, a menu and a checklist
	violation-demo:   Out-of-range readings with justifications and alerts
	summer-closure:   A facility exception suspending all obligations
	multi-site:       Three sites, two supervisors, presence report data

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create master data (facilities, catalogs, users)
 3. Create assignments
 4. Optionally add readings / responses / alerts

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "violation-demo"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: shares the Handler context
  - store/sqlite: Reset and the Save* operations used here
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/kitchensafe/haccp-engine/compliance"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-site",
		Name:        "Single Site",
		Description: "One canteen with a cold-storage cell, a weekly menu and a daily checklist",
	},
	{
		ID:          "violation-demo",
		Name:        "Violation Demo",
		Description: "Out-of-range fridge readings committed with justifications, alert inbox populated",
	},
	{
		ID:          "summer-closure",
		Name:        "Summer Closure",
		Description: "A facility exception suspending all obligations for two weeks",
	},
	{
		ID:          "multi-site",
		Name:        "Multi Site",
		Description: "Three sites and two supervisors with checklist data for the presence report",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "single-site":
		err = h.loadSingleSiteScenario(ctx)
	case "violation-demo":
		err = h.loadViolationDemoScenario(ctx)
	case "summer-closure":
		err = h.loadSummerClosureScenario(ctx)
	case "multi-site":
		err = h.loadMultiSiteScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// ResetScenario clears the database without loading anything.
func (h *Handler) ResetScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadSingleSiteScenario seeds one canteen with the full obligation mix.
func (h *Handler) loadSingleSiteScenario(ctx context.Context) error {
	if err := h.seedSiteNord(ctx); err != nil {
		return err
	}

	today := compliance.Today()
	year := compliance.DateRange{Start: today.AddDays(-180), End: today.AddDays(180)}

	saves := []compliance.Assignment{
		{
			ID: "a-menu-weekly", TargetType: compliance.TargetFacility, TargetID: "F1",
			ResourceType: compliance.ResourceMenu, ResourceID: "M1",
			Frequency: compliance.FrequencyWeekly, FrequencyDay: today.ISOWeekday(),
			StartDate: year.Start, EndDate: year.End, SkipWeekend: true,
		},
		{
			ID: "a-checklist-daily", TargetType: compliance.TargetFacility, TargetID: "F1",
			ResourceType: compliance.ResourceForm, ResourceID: "FORM1",
			Frequency: compliance.FrequencyDaily,
			StartDate: year.Start, EndDate: year.End, SkipWeekend: true, SkipHolidays: true,
		},
	}
	for _, a := range saves {
		if _, err := h.Store.SaveAssignment(ctx, a); err != nil {
			return err
		}
	}

	_, err := h.Store.SaveHoliday(ctx, compliance.Holiday{
		ID: "h-1", Name: "Tag der Deutschen Einheit",
		StartDate: compliance.MustParseDate(fmt.Sprintf("%d-10-03", today.Year())),
		EndDate:   compliance.MustParseDate(fmt.Sprintf("%d-10-03", today.Year())),
	})
	return err
}

// loadViolationDemoScenario seeds readings around the tolerance band and a
// populated alert inbox.
func (h *Handler) loadViolationDemoScenario(ctx context.Context) error {
	if err := h.seedSiteNord(ctx); err != nil {
		return err
	}

	snap, err := h.Store.Snapshot(ctx)
	if err != nil {
		return err
	}

	type demoReading struct {
		daysAgo int
		value   float64
		reason  string
	}
	demo := []demoReading{
		{daysAgo: 3, value: 4.5},
		{daysAgo: 2, value: 9.2, reason: "Tür stand während der Anlieferung offen"},
		{daysAgo: 1, value: 8.4, reason: "Kompressor ausgefallen, Techniker bestellt"},
	}

	for i, d := range demo {
		day := compliance.Today().AddDays(-d.daysAgo)
		reading, alert, err := h.evaluator.Propose(compliance.ReadingProposal{
			ID:             fmt.Sprintf("seed-r-%d", i+1),
			TargetID:       "FR1",
			TargetKind:     compliance.KindRefrigerator,
			CheckpointName: "Luft",
			Value:          decimal.NewFromFloat(d.value),
			Timestamp:      day.String() + "T08:30:00Z",
			UserID:         "U1",
			FacilityID:     "F1",
			Reason:         d.reason,
		}, snap)
		if err != nil {
			return err
		}
		if err := h.Store.AppendReading(ctx, reading); err != nil {
			return err
		}
		if alert != nil {
			if err := h.Store.AppendAlert(ctx, *alert); err != nil {
				return err
			}
		}
	}

	return nil
}

// loadSummerClosureScenario seeds the canteen and suspends it for two weeks
// starting a week ago, so both workspace and audit views show the gap.
func (h *Handler) loadSummerClosureScenario(ctx context.Context) error {
	if err := h.loadSingleSiteScenario(ctx); err != nil {
		return err
	}

	today := compliance.Today()
	_, err := h.Store.SaveException(ctx, compliance.FacilityException{
		ID: "ex-closure", Name: "Betriebsferien", FacilityIDs: []string{"F1"},
		Reason:    "Sommerpause, Küche geschlossen",
		StartDate: today.AddDays(-7), EndDate: today.AddDays(7),
	})
	return err
}

// loadMultiSiteScenario seeds three sites with checklist responses feeding
// the supervisor presence report.
func (h *Handler) loadMultiSiteScenario(ctx context.Context) error {
	if err := h.seedSiteNord(ctx); err != nil {
		return err
	}

	extra := []compliance.Facility{
		{ID: "F2", Name: "Kantine Süd", TypeID: "FT1", CookingMethodID: "CM1", SupervisorID: "SUP1"},
		{ID: "F3", Name: "Mensa West", TypeID: "FT1", CookingMethodID: "CM1", SupervisorID: "SUP2"},
	}
	for _, f := range extra {
		if _, err := h.Store.SaveFacility(ctx, f); err != nil {
			return err
		}
	}

	supervisors := []compliance.User{
		{ID: "SUP1", Name: "Maria Lindner", Role: "supervisor"},
		{ID: "SUP2", Name: "Jonas Ebert", Role: "supervisor"},
		{ID: "U2", Name: "Ben Krause", FacilityID: "F2"},
		{ID: "U3", Name: "Clara Weiß", FacilityID: "F3"},
	}
	for _, u := range supervisors {
		if _, err := h.Store.SaveUser(ctx, u); err != nil {
			return err
		}
	}

	// Two weeks of checklist submissions with mixed presence answers.
	answersFor := func(visit string) map[string]string {
		return map[string]string{compliance.SupervisorVisitKey: visit}
	}
	today := compliance.Today()
	for i := 1; i <= 14; i++ {
		day := today.AddDays(-i)
		if day.IsWeekend() {
			continue
		}
		visit := compliance.VisitNo
		if i%3 == 0 {
			visit = compliance.VisitYes
		}
		submissions := []compliance.FormResponse{
			{ID: fmt.Sprintf("seed-fr1-%d", i), FormID: "FORM1", FacilityID: "F1", UserID: "U1",
				Timestamp: day.String() + "T10:00:00Z", Answers: answersFor(visit)},
			{ID: fmt.Sprintf("seed-fr2-%d", i), FormID: "FORM1", FacilityID: "F2", UserID: "U2",
				Timestamp: day.String() + "T10:05:00Z", Answers: answersFor(compliance.VisitYes)},
			{ID: fmt.Sprintf("seed-fr3-%d", i), FormID: "FORM1", FacilityID: "F3", UserID: "U3",
				Timestamp: day.String() + "T10:10:00Z", Answers: answersFor(compliance.VisitNo)},
		}
		for _, fr := range submissions {
			if err := h.Store.AppendFormResponse(ctx, fr); err != nil {
				return err
			}
		}
	}

	return nil
}

// seedSiteNord creates the base canteen shared by every scenario.
func (h *Handler) seedSiteNord(ctx context.Context) error {
	if _, err := h.Store.SaveFacilityType(ctx, compliance.FacilityType{ID: "FT1", Name: "Kantine"}); err != nil {
		return err
	}
	if _, err := h.Store.SaveCookingMethod(ctx, compliance.CookingMethod{
		ID: "CM1", Name: "Cook & Serve",
		Checkpoints: []compliance.Checkpoint{
			{Name: "Kern-Temperatur", MinTemp: compliance.NewBound(72), MaxTemp: compliance.NewBound(95)},
		},
	}); err != nil {
		return err
	}
	if _, err := h.Store.SaveFacility(ctx, compliance.Facility{
		ID: "F1", Name: "Kantine Nord", TypeID: "FT1", CookingMethodID: "CM1", SupervisorID: "SUP1",
	}); err != nil {
		return err
	}
	if _, err := h.Store.SaveRefrigeratorType(ctx, compliance.RefrigeratorType{
		ID: "RT1", Name: "Kühlzelle",
		Checkpoints: []compliance.Checkpoint{
			{Name: "Luft", MinTemp: compliance.NewBound(2), MaxTemp: compliance.NewBound(7)},
		},
	}); err != nil {
		return err
	}
	if _, err := h.Store.SaveRefrigerator(ctx, compliance.Refrigerator{
		ID: "FR1", Name: "Kühlzelle 1", FacilityID: "F1", TypeName: "Kühlzelle",
	}); err != nil {
		return err
	}
	if _, err := h.Store.SaveMenu(ctx, compliance.Menu{ID: "M1", Name: "Menü 1"}); err != nil {
		return err
	}
	if _, err := h.Store.SaveFormTemplate(ctx, compliance.FormTemplate{
		ID: "FORM1", Title: "Tagescheckliste",
		Questions: []compliance.FormQuestion{
			{ID: "q1", Text: "Arbeitsflächen gereinigt und desinfiziert?", Type: compliance.QuestionYesNo},
			{ID: "q2", Text: "Wareneingang kontrolliert?", Type: compliance.QuestionYesNo},
			{ID: "q3", Text: "Anmerkungen", Type: compliance.QuestionText},
		},
	}); err != nil {
		return err
	}
	if _, err := h.Store.SaveUser(ctx, compliance.User{
		ID: "U1", Name: "Anna Vogel", Username: "avogel", Role: "staff", FacilityID: "F1",
	}); err != nil {
		return err
	}
	return nil
}
