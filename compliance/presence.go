package compliance

import "sort"

// =============================================================================
// PRESENCE AGGREGATOR - Supervisor on-site rollup for compliance ranking
// =============================================================================

// UnassignedSupervisor buckets responses from facilities without a
// supervisor so their presence answers are not silently dropped.
const UnassignedSupervisor = "UNASSIGNED"

// PresenceCount tallies sentinel answers for one facility.
type PresenceCount struct {
	Yes int
	No  int
}

// SupervisorStats is the per-supervisor rollup over a date range.
type SupervisorStats struct {
	SupervisorID string
	// TotalVisits counts YES answers; TotalChecked counts every response
	// carrying the sentinel answer.
	TotalVisits  int
	TotalChecked int
	Breakdown    map[string]PresenceCount // facility id -> tally
}

// PresenceAggregator rolls up the fixed supervisor-presence question from
// checklist submissions. Read-only; it shares the completion notion with
// the resolution engine but is otherwise independent of it.
type PresenceAggregator struct{}

// Aggregate tallies responses in the range and ranks supervisors by total
// YES answers, descending. The sort is stable: supervisors with equal
// visit counts keep first-seen order (intentional tie behavior is
// undecided upstream, so no further tie-break is applied).
func (pa PresenceAggregator) Aggregate(rng DateRange, snap *Snapshot) []SupervisorStats {
	stats := make(map[string]*SupervisorStats)
	var order []string

	for _, fr := range snap.FormResponses {
		day := DateOfTimestamp(fr.Timestamp)
		if day.IsZero() || !rng.Contains(day) {
			continue
		}
		visit := fr.SupervisorVisit()
		if visit == "" {
			continue
		}

		supID := UnassignedSupervisor
		if fac, ok := snap.FacilityByID(fr.FacilityID); ok && fac.SupervisorID != "" {
			supID = fac.SupervisorID
		}

		s, ok := stats[supID]
		if !ok {
			s = &SupervisorStats{SupervisorID: supID, Breakdown: make(map[string]PresenceCount)}
			stats[supID] = s
			order = append(order, supID)
		}

		s.TotalChecked++
		count := s.Breakdown[fr.FacilityID]
		if visit == VisitYes {
			s.TotalVisits++
			count.Yes++
		} else {
			count.No++
		}
		s.Breakdown[fr.FacilityID] = count
	}

	out := make([]SupervisorStats, 0, len(order))
	for _, id := range order {
		out = append(out, *stats[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalVisits > out[j].TotalVisits
	})
	return out
}
