package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchensafe/haccp-engine/compliance"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func lockedReading(id, ts string) compliance.Reading {
	return compliance.Reading{
		ID:             id,
		TargetID:       "FR1",
		TargetType:     compliance.KindRefrigerator,
		CheckpointName: "Luft",
		Value:          decimal.NewFromFloat(4.5),
		Timestamp:      ts,
		UserID:         "U1",
		FacilityID:     "F1",
		IsLocked:       true,
	}
}

func TestAppendReading_WriteOncePerDay(t *testing.T) {
	// GIVEN: a committed reading for target FR1, checkpoint Luft, 2025-06-02
	// WHEN: a second reading arrives for the same target, checkpoint and day
	// THEN: the first write stands; the second is rejected as a duplicate

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendReading(ctx, lockedReading("r-1", "2025-06-02T08:30:00Z")))

	err := st.AppendReading(ctx, lockedReading("r-2", "2025-06-02T17:45:00Z"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrDuplicateReading))
	assert.True(t, compliance.IsClientError(err))

	readings, err := st.ListReadings(ctx)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "r-1", readings[0].ID)
	assert.True(t, readings[0].IsLocked)
}

func menuReading(id, userID, ts string) compliance.Reading {
	return compliance.Reading{
		ID:             id,
		TargetID:       "M1",
		TargetType:     compliance.KindMenu,
		CheckpointName: "Kern-Temperatur",
		Value:          decimal.NewFromFloat(78),
		Timestamp:      ts,
		UserID:         userID,
		FacilityID:     "F1",
		IsLocked:       true,
	}
}

func TestAppendReading_MenuUniquenessIsPerActor(t *testing.T) {
	// GIVEN: U1's committed menu reading for M1/Kern-Temperatur on 2025-06-02
	// WHEN: U2 commits their own reading for the same menu, checkpoint and day
	// THEN: both stand; only a same-user repeat is a duplicate

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendReading(ctx, menuReading("r-1", "U1", "2025-06-02T11:30:00Z")))
	require.NoError(t, st.AppendReading(ctx, menuReading("r-2", "U2", "2025-06-02T11:45:00Z")))

	err := st.AppendReading(ctx, menuReading("r-3", "U1", "2025-06-02T17:00:00Z"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrDuplicateReading))

	readings, err := st.ListReadings(ctx)
	require.NoError(t, err)
	assert.Len(t, readings, 2)
}

func TestAppendReading_FridgeUniquenessIsFacilityWide(t *testing.T) {
	// A colleague's same-day fridge reading still conflicts: fridge
	// monitoring belongs to the facility, not to a person.

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendReading(ctx, lockedReading("r-1", "2025-06-02T08:30:00Z")))

	second := lockedReading("r-2", "2025-06-02T09:00:00Z")
	second.UserID = "U2"
	err := st.AppendReading(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrDuplicateReading))
}

func TestAppendReading_NextDayIsFine(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendReading(ctx, lockedReading("r-1", "2025-06-02T08:30:00Z")))
	require.NoError(t, st.AppendReading(ctx, lockedReading("r-2", "2025-06-03T08:30:00Z")))

	rng := compliance.DateRange{Start: date("2025-06-03"), End: date("2025-06-03")}
	readings, err := st.ListReadingsInRange(ctx, rng)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "r-2", readings[0].ID)
}

func TestAppendReading_RejectsUnlockedProposal(t *testing.T) {
	st := newTestStore(t)

	r := lockedReading("r-1", "2025-06-02T08:30:00Z")
	r.IsLocked = false

	err := st.AppendReading(context.Background(), r)
	assert.True(t, errors.Is(err, compliance.ErrReadingLocked))
}

func TestSnapshot_RoundTripsEveryRecordSet(t *testing.T) {
	// GIVEN: one record of each kind persisted
	// WHEN: assembling a snapshot
	// THEN: each record comes back intact, including JSON-encoded catalogs

	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveUser(ctx, compliance.User{ID: "U1", Name: "Anna Vogel", FacilityID: "F1"})
	require.NoError(t, err)
	_, err = st.SaveFacilityType(ctx, compliance.FacilityType{ID: "FT1", Name: "Kantine"})
	require.NoError(t, err)
	_, err = st.SaveFacility(ctx, compliance.Facility{ID: "F1", Name: "Kantine Nord", TypeID: "FT1", CookingMethodID: "CM1", SupervisorID: "SUP1"})
	require.NoError(t, err)
	_, err = st.SaveRefrigerator(ctx, compliance.Refrigerator{ID: "FR1", Name: "Kühlzelle 1", FacilityID: "F1", TypeName: "Kühlzelle"})
	require.NoError(t, err)
	_, err = st.SaveRefrigeratorType(ctx, compliance.RefrigeratorType{
		ID: "RT1", Name: "Kühlzelle",
		Checkpoints: []compliance.Checkpoint{{Name: "Luft", MinTemp: compliance.NewBound(2), MaxTemp: compliance.NewBound(7)}},
	})
	require.NoError(t, err)
	_, err = st.SaveCookingMethod(ctx, compliance.CookingMethod{
		ID: "CM1", Name: "Cook & Serve",
		Checkpoints: []compliance.Checkpoint{{Name: "Kern-Temperatur", MinTemp: compliance.NewBound(72), MaxTemp: compliance.NewBound(95)}},
	})
	require.NoError(t, err)
	_, err = st.SaveMenu(ctx, compliance.Menu{ID: "M1", Name: "Menü 1"})
	require.NoError(t, err)
	_, err = st.SaveFormTemplate(ctx, compliance.FormTemplate{
		ID: "FORM1", Title: "Tagescheckliste",
		Questions: []compliance.FormQuestion{{ID: "q1", Text: "Arbeitsflächen sauber?", Type: compliance.QuestionYesNo}},
	})
	require.NoError(t, err)
	_, err = st.SaveAssignment(ctx, compliance.Assignment{
		ID: "a-1", TargetType: compliance.TargetFacility, TargetID: "F1",
		ResourceType: compliance.ResourceMenu, ResourceID: "M1",
		Frequency: compliance.FrequencyWeekly, FrequencyDay: 1,
		StartDate: date("2025-01-01"), EndDate: date("2025-12-31"),
		SkipWeekend: true,
	})
	require.NoError(t, err)
	_, err = st.SaveHoliday(ctx, compliance.Holiday{ID: "h-1", Name: "Neujahr", StartDate: date("2025-01-01"), EndDate: date("2025-01-01")})
	require.NoError(t, err)
	_, err = st.SaveException(ctx, compliance.FacilityException{
		ID: "ex-1", Name: "Betriebsferien", FacilityIDs: []string{"F1"},
		Reason: "Sommerpause", StartDate: date("2025-07-01"), EndDate: date("2025-07-14"),
	})
	require.NoError(t, err)
	require.NoError(t, st.AppendReading(ctx, lockedReading("r-1", "2025-06-02T08:30:00Z")))
	require.NoError(t, st.AppendFormResponse(ctx, compliance.FormResponse{
		ID: "resp-1", FormID: "FORM1", FacilityID: "F1", UserID: "U1",
		Timestamp: "2025-06-02T10:00:00Z",
		Answers:   map[string]string{compliance.SupervisorVisitKey: compliance.VisitYes},
	}))

	snap, err := st.Snapshot(ctx)
	require.NoError(t, err)

	assert.Len(t, snap.Users, 1)
	assert.Len(t, snap.Facilities, 1)
	assert.Len(t, snap.FacilityTypes, 1)
	assert.Len(t, snap.Refrigerators, 1)
	assert.Len(t, snap.Menus, 1)
	assert.Len(t, snap.Forms, 1)
	assert.Len(t, snap.Holidays, 1)

	require.Len(t, snap.RefrigeratorTypes, 1)
	require.Len(t, snap.RefrigeratorTypes[0].Checkpoints, 1)
	assert.Equal(t, "Luft", snap.RefrigeratorTypes[0].Checkpoints[0].Name)
	assert.True(t, snap.RefrigeratorTypes[0].Checkpoints[0].MinTemp.Valid)

	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, compliance.FrequencyWeekly, snap.Assignments[0].Frequency)
	assert.Equal(t, 1, snap.Assignments[0].FrequencyDay)
	assert.Equal(t, date("2025-01-01"), snap.Assignments[0].StartDate)
	assert.True(t, snap.Assignments[0].SkipWeekend)

	require.Len(t, snap.Exceptions, 1)
	assert.Equal(t, []string{"F1"}, snap.Exceptions[0].FacilityIDs)

	require.Len(t, snap.Readings, 1)
	assert.True(t, snap.Readings[0].Value.Equal(decimal.NewFromFloat(4.5)))

	require.Len(t, snap.FormResponses, 1)
	assert.Equal(t, compliance.VisitYes, snap.FormResponses[0].SupervisorVisit())
}

func TestResolveAlert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendAlert(ctx, compliance.Alert{
		ID: "al-1", FacilityID: "F1", FacilityName: "Kantine Nord",
		TargetName: "Kühlzelle 1", CheckpointName: "Luft",
		Value: decimal.NewFromInt(9), Min: decimal.NewFromInt(2), Max: decimal.NewFromInt(7),
		Timestamp: "2025-06-02T08:30:00Z", UserID: "U1", UserName: "Anna Vogel",
	}))

	open, err := st.ListAlerts(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, st.ResolveAlert(ctx, "al-1"))

	open, err = st.ListAlerts(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := st.ListAlerts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Resolved)

	assert.True(t, compliance.IsNotFound(st.ResolveAlert(ctx, "missing")))
}

func TestDelete_NotFound(t *testing.T) {
	st := newTestStore(t)
	assert.True(t, compliance.IsNotFound(st.DeleteMenu(context.Background(), "missing")))
}

func date(s string) compliance.Date { return compliance.MustParseDate(s) }
