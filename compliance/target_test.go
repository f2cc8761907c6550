package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kitchensafe/haccp-engine/compliance"
)

func TestInScope(t *testing.T) {
	actor := compliance.Actor{UserID: "U1", FacilityID: "F1", FacilityTypeID: "FT1"}

	cases := []struct {
		name       string
		targetType compliance.TargetType
		targetID   string
		actor      compliance.Actor
		want       bool
	}{
		{"user match", compliance.TargetUser, "U1", actor, true},
		{"user mismatch", compliance.TargetUser, "U2", actor, false},
		{"facility match", compliance.TargetFacility, "F1", actor, true},
		{"facility mismatch", compliance.TargetFacility, "F2", actor, false},
		{"facility type match", compliance.TargetFacilityType, "FT1", actor, true},
		{"facility type mismatch", compliance.TargetFacilityType, "FT2", actor, false},
		{"no facility never matches facility scope", compliance.TargetFacility, "", compliance.Actor{UserID: "U1"}, false},
		{"no facility never matches type scope", compliance.TargetFacilityType, "", compliance.Actor{UserID: "U1"}, false},
		{"unknown target type", compliance.TargetType("group"), "U1", actor, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := compliance.Assignment{TargetType: tc.targetType, TargetID: tc.targetID}
			assert.Equal(t, tc.want, compliance.InScope(a, tc.actor))
		})
	}
}

func TestIsExcluded(t *testing.T) {
	exceptions := []compliance.FacilityException{{
		ID:          "ex-1",
		FacilityIDs: []string{"F1", "F3"},
		Reason:      "deep clean",
		StartDate:   date("2025-07-01"),
		EndDate:     date("2025-07-14"),
	}}

	assert.True(t, compliance.IsExcluded("F1", date("2025-07-01"), exceptions), "window start")
	assert.True(t, compliance.IsExcluded("F3", date("2025-07-14"), exceptions), "window end")
	assert.False(t, compliance.IsExcluded("F2", date("2025-07-05"), exceptions), "facility not listed")
	assert.False(t, compliance.IsExcluded("F1", date("2025-07-15"), exceptions), "after window")
	assert.False(t, compliance.IsExcluded("", date("2025-07-05"), exceptions), "actor without facility")
}

func TestActiveException_ReturnsReason(t *testing.T) {
	exceptions := []compliance.FacilityException{{
		ID:          "ex-1",
		FacilityIDs: []string{"F1"},
		Reason:      "renovation",
		StartDate:   date("2025-07-01"),
		EndDate:     date("2025-07-14"),
	}}

	ex := compliance.ActiveException("F1", date("2025-07-03"), exceptions)
	if assert.NotNil(t, ex) {
		assert.Equal(t, "renovation", ex.Reason)
	}
	assert.Nil(t, compliance.ActiveException("F1", date("2025-08-01"), exceptions))
}
