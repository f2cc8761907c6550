package compliance

// =============================================================================
// RECURRENCE EVALUATOR - Does an assignment apply on a given date?
// =============================================================================

// IsApplicable decides whether an assignment is due on the date, applying
// the active window, the skip flags, and the frequency rule in that order.
//
// A "once" assignment is applicable on every day of its window; whether it
// has already been satisfied is a completion question and belongs to the
// resolution engine, not here.
func IsApplicable(a Assignment, d Date, holidays []Holiday) bool {
	if !a.ActiveOn(d) {
		return false
	}
	if a.SkipWeekend && d.IsWeekend() {
		return false
	}
	if a.SkipHolidays && IsHoliday(d, holidays) {
		return false
	}

	switch a.Frequency {
	case FrequencyDaily, FrequencyOnce:
		return true
	case FrequencyWeekly:
		// FrequencyDay 0 means absent: never match rather than match always.
		return a.FrequencyDay != 0 && d.ISOWeekday() == a.FrequencyDay
	case FrequencyMonthly:
		// Months shorter than FrequencyDay never match; there is no
		// end-of-month rollover.
		return a.FrequencyDay != 0 && d.Day() == a.FrequencyDay
	default:
		return false
	}
}
