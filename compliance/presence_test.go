package compliance_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchensafe/haccp-engine/compliance"
)

// =============================================================================
// FIXTURE - Two supervised facilities plus one orphan
// =============================================================================

func presenceSnapshot() *compliance.Snapshot {
	return &compliance.Snapshot{
		Facilities: []compliance.Facility{
			{ID: "F1", Name: "Kantine Nord", SupervisorID: "SUP1"},
			{ID: "F2", Name: "Kantine Süd", SupervisorID: "SUP1"},
			{ID: "F3", Name: "Mensa West", SupervisorID: "SUP2"},
			{ID: "F4", Name: "Kiosk Ost"}, // no supervisor
		},
	}
}

func presenceResponse(id, facilityID, day, visit string) compliance.FormResponse {
	return compliance.FormResponse{
		ID:         id,
		FormID:     "FORM1",
		FacilityID: facilityID,
		UserID:     "U1",
		Timestamp:  day + "T09:00:00Z",
		Answers:    map[string]string{compliance.SupervisorVisitKey: visit},
	}
}

func june2025() compliance.DateRange {
	return compliance.DateRange{Start: date("2025-06-01"), End: date("2025-06-30")}
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestAggregate_TalliesPerSupervisorAndFacility(t *testing.T) {
	// GIVEN: SUP1 oversees F1 and F2; June responses YES/YES/NO at F1 and
	//        YES at F2
	// WHEN: aggregating June
	// THEN: totals roll up across facilities, the breakdown keeps them apart

	snap := presenceSnapshot()
	snap.FormResponses = []compliance.FormResponse{
		presenceResponse("r1", "F1", "2025-06-02", compliance.VisitYes),
		presenceResponse("r2", "F1", "2025-06-03", compliance.VisitYes),
		presenceResponse("r3", "F1", "2025-06-04", compliance.VisitNo),
		presenceResponse("r4", "F2", "2025-06-05", compliance.VisitYes),
	}

	stats := compliance.PresenceAggregator{}.Aggregate(june2025(), snap)

	require.Len(t, stats, 1)
	s := stats[0]
	assert.Equal(t, "SUP1", s.SupervisorID)
	assert.Equal(t, 3, s.TotalVisits)
	assert.Equal(t, 4, s.TotalChecked)
	assert.Equal(t, compliance.PresenceCount{Yes: 2, No: 1}, s.Breakdown["F1"])
	assert.Equal(t, compliance.PresenceCount{Yes: 1, No: 0}, s.Breakdown["F2"])
}

func TestAggregate_RangeAndSentinelFiltering(t *testing.T) {
	// Responses outside the range or without the sentinel answer are
	// ignored entirely.
	snap := presenceSnapshot()
	outside := presenceResponse("r1", "F1", "2025-05-31", compliance.VisitYes)
	noSentinel := presenceResponse("r2", "F1", "2025-06-02", compliance.VisitYes)
	noSentinel.Answers = map[string]string{"OTHER": "value"}
	badTimestamp := presenceResponse("r3", "F1", "", compliance.VisitYes)
	badTimestamp.Timestamp = "not-a-time"
	snap.FormResponses = []compliance.FormResponse{outside, noSentinel, badTimestamp}

	assert.Empty(t, compliance.PresenceAggregator{}.Aggregate(june2025(), snap))
}

func TestAggregate_UnsupervisedFacilitiesBucketedAsUnassigned(t *testing.T) {
	// GIVEN: responses from F4 (no supervisor) and from an unknown facility
	// WHEN: aggregating
	// THEN: both land in the UNASSIGNED bucket rather than vanishing

	snap := presenceSnapshot()
	snap.FormResponses = []compliance.FormResponse{
		presenceResponse("r1", "F4", "2025-06-02", compliance.VisitNo),
		presenceResponse("r2", "F-GONE", "2025-06-03", compliance.VisitYes),
	}

	stats := compliance.PresenceAggregator{}.Aggregate(june2025(), snap)

	require.Len(t, stats, 1)
	assert.Equal(t, compliance.UnassignedSupervisor, stats[0].SupervisorID)
	assert.Equal(t, 1, stats[0].TotalVisits)
	assert.Equal(t, 2, stats[0].TotalChecked)
}

func TestAggregate_RanksByVisitsDescending_StableOnTies(t *testing.T) {
	// GIVEN: SUP2 seen first with 1 visit, SUP1 with 3, UNASSIGNED with 1
	// WHEN: aggregating
	// THEN: SUP1 leads; the two singles keep first-seen order

	snap := presenceSnapshot()
	snap.FormResponses = []compliance.FormResponse{
		presenceResponse("r1", "F3", "2025-06-02", compliance.VisitYes),
		presenceResponse("r2", "F1", "2025-06-02", compliance.VisitYes),
		presenceResponse("r3", "F1", "2025-06-03", compliance.VisitYes),
		presenceResponse("r4", "F2", "2025-06-04", compliance.VisitYes),
		presenceResponse("r5", "F4", "2025-06-05", compliance.VisitYes),
	}

	stats := compliance.PresenceAggregator{}.Aggregate(june2025(), snap)

	require.Len(t, stats, 3)
	assert.Equal(t, "SUP1", stats[0].SupervisorID)
	assert.Equal(t, "SUP2", stats[1].SupervisorID)
	assert.Equal(t, compliance.UnassignedSupervisor, stats[2].SupervisorID)
}

func TestAggregate_IndependentOfResponseVolume(t *testing.T) {
	// Many NO answers never outrank a single YES.
	snap := presenceSnapshot()
	var responses []compliance.FormResponse
	for i := 1; i <= 10; i++ {
		responses = append(responses, presenceResponse(
			fmt.Sprintf("r%d", i), "F3", fmt.Sprintf("2025-06-%02d", i), compliance.VisitNo))
	}
	responses = append(responses, presenceResponse("r11", "F1", "2025-06-11", compliance.VisitYes))
	snap.FormResponses = responses

	stats := compliance.PresenceAggregator{}.Aggregate(june2025(), snap)

	require.Len(t, stats, 2)
	assert.Equal(t, "SUP1", stats[0].SupervisorID)
	assert.Equal(t, 1, stats[0].TotalVisits)
	assert.Equal(t, "SUP2", stats[1].SupervisorID)
	assert.Equal(t, 0, stats[1].TotalVisits)
	assert.Equal(t, 10, stats[1].TotalChecked)
}
