package compliance

// =============================================================================
// CALENDAR RULES - Weekend, holiday, and exclusion checks
// =============================================================================

// IsExcluded reports whether any exception suspends the facility on the
// date. Exclusion is all-or-nothing: it suppresses every explicit
// assignment and every implicit fridge obligation for that day.
func IsExcluded(facilityID string, d Date, exceptions []FacilityException) bool {
	if facilityID == "" {
		return false
	}
	for _, ex := range exceptions {
		if ex.Covers(facilityID, d) {
			return true
		}
	}
	return false
}

// ActiveException returns the exception covering the facility on the date,
// if any. Screens use it to show the suspension reason.
func ActiveException(facilityID string, d Date, exceptions []FacilityException) *FacilityException {
	if facilityID == "" {
		return nil
	}
	for i := range exceptions {
		if exceptions[i].Covers(facilityID, d) {
			return &exceptions[i]
		}
	}
	return nil
}

// IsHoliday reports whether the date falls inside any global holiday
// window. Only consulted for assignments with SkipHolidays set.
func IsHoliday(d Date, holidays []Holiday) bool {
	for _, h := range holidays {
		if (DateRange{Start: h.StartDate, End: h.EndDate}).Contains(d) {
			return true
		}
	}
	return false
}
