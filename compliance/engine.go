/*
engine.go - Task resolution: outstanding, completed, and lost

PURPOSE:
  Composes the calendar rules, recurrence evaluator, and target resolver
  with the existing Reading/FormResponse records to answer "what must this
  actor still do" for a date, and "what was missed" for a range.

ONE CODE PATH:
  Live resolution (today's workspace) and retroactive audit (lost days)
  MUST apply identical semantics; the rules-per-date logic therefore lives
  in a single routine, dueTasks, that both public operations call. The
  audit loop is nothing more than dueTasks replayed over past dates.

IMPLICIT FRIDGE RULE:
  Every refrigerator linked to the actor's facility carries a daily
  obligation per checkpoint, with no Assignment row behind it. Refrigeration
  monitoring is mandatory every operating day; the rule is an explicit,
  named branch here so it is testable separately from assignment-driven
  obligations.

SEE ALSO:
  - recurrence.go: per-assignment applicability
  - calendar.go: weekend/holiday/exclusion checks
  - tolerance.go: the commit contract that feeds completions back in
*/
package compliance

// =============================================================================
// TASK MODEL
// =============================================================================

// TaskKind classifies an obligation.
type TaskKind string

const (
	TaskFridge TaskKind = "fridge"
	TaskMenu   TaskKind = "menu"
	TaskForm   TaskKind = "form"
)

// Task is one outstanding obligation: a checkpoint still to be measured or
// a checklist still to be submitted.
type Task struct {
	Kind         TaskKind
	ResourceID   string
	ResourceName string
	// CheckpointName and Band are set for temperature tasks, empty for forms.
	CheckpointName string
	Band           Band
	// AssignmentID is empty for implicit fridge obligations.
	AssignmentID string
}

// LostDay is one missed obligation in a retroactive audit.
type LostDay struct {
	Date       Date
	TargetName string
	Kind       TaskKind
}

type taskKey struct {
	Kind           TaskKind
	ResourceID     string
	CheckpointName string
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine resolves tasks over immutable snapshots. It is stateless; a zero
// value is ready to use.
type Engine struct{}

// OutstandingTasks returns the obligations due for the actor on the date
// that have no matching completion yet. An active facility exception
// returns the empty set regardless of assignments or fridges.
func (e Engine) OutstandingTasks(actor Actor, d Date, snap *Snapshot) []Task {
	return e.dueTasks(actor, d, snap)
}

// MissedTasks replays outstanding-task resolution over every date of the
// inclusive range against the historical record set. Each obligation that
// was due and never satisfied becomes one LostDay entry.
func (e Engine) MissedTasks(actor Actor, rng DateRange, snap *Snapshot) []LostDay {
	var lost []LostDay
	for _, day := range rng.Days() {
		for _, t := range e.dueTasks(actor, day, snap) {
			lost = append(lost, LostDay{Date: day, TargetName: t.ResourceName, Kind: t.Kind})
		}
	}
	return lost
}

// dueTasks is the single resolution routine shared by live and audit
// callers: everything due for (actor, date) minus everything completed.
func (e Engine) dueTasks(actor Actor, d Date, snap *Snapshot) []Task {
	if IsExcluded(actor.FacilityID, d, snap.Exceptions) {
		return nil
	}

	var tasks []Task
	seen := make(map[taskKey]bool)
	add := func(t Task) {
		k := taskKey{Kind: t.Kind, ResourceID: t.ResourceID, CheckpointName: t.CheckpointName}
		if seen[k] {
			return
		}
		seen[k] = true
		tasks = append(tasks, t)
	}

	// Implicit fridge obligations: daily, weekend off, no assignment row.
	if actor.FacilityID != "" && !d.IsWeekend() {
		for _, fridge := range snap.FacilityRefrigerators(actor.FacilityID) {
			for _, band := range snap.FridgeCheckpoints(fridge) {
				if e.fridgeDone(snap, fridge.ID, band.Name, d) {
					continue
				}
				add(Task{
					Kind:           TaskFridge,
					ResourceID:     fridge.ID,
					ResourceName:   fridge.Name,
					CheckpointName: band.Name,
					Band:           band,
				})
			}
		}
	}

	// Explicit assignments. An actor matched by several scope paths (user,
	// facility, facility type) for the same resource yields one task, not
	// three: dedup is by (kind, resource, checkpoint).
	for _, a := range snap.Assignments {
		if !InScope(a, actor) || !IsApplicable(a, d, snap.Holidays) {
			continue
		}
		switch a.ResourceType {
		case ResourceMenu:
			name := MenuName(snap, a.ResourceID)
			for _, band := range snap.MenuCheckpoints(actor.FacilityID) {
				if e.menuDone(snap, a, actor, band.Name, d) {
					continue
				}
				add(Task{
					Kind:           TaskMenu,
					ResourceID:     a.ResourceID,
					ResourceName:   name,
					CheckpointName: band.Name,
					Band:           band,
					AssignmentID:   a.ID,
				})
			}
		case ResourceForm:
			if e.formDone(snap, a, actor, d) {
				continue
			}
			add(Task{
				Kind:         TaskForm,
				ResourceID:   a.ResourceID,
				ResourceName: FormTitle(snap, a.ResourceID),
				AssignmentID: a.ID,
			})
		}
	}

	return tasks
}

// =============================================================================
// COMPLETION CHECKS
// =============================================================================

// fridgeDone reports a same-day reading for the fridge checkpoint. Any
// colleague's reading satisfies the obligation; fridges belong to the
// facility, not to a person.
func (e Engine) fridgeDone(snap *Snapshot, fridgeID, checkpointName string, d Date) bool {
	for _, r := range snap.Readings {
		if r.TargetType != KindRefrigerator {
			continue
		}
		if r.TargetID == fridgeID && r.CheckpointName == checkpointName && d.MatchesTimestamp(r.Timestamp) {
			return true
		}
	}
	return false
}

// menuDone reports the actor's own reading for the menu checkpoint on the
// date. Once-only assignments are satisfied by a reading on any day of
// their active window.
func (e Engine) menuDone(snap *Snapshot, a Assignment, actor Actor, checkpointName string, d Date) bool {
	for _, r := range snap.Readings {
		if r.TargetType != KindMenu || r.TargetID != a.ResourceID ||
			r.UserID != actor.UserID || r.CheckpointName != checkpointName {
			continue
		}
		if e.completionDateMatch(a, d, r.Timestamp) {
			return true
		}
	}
	return false
}

// formDone reports a matching submission for the checklist. User-scoped
// assignments are satisfied only by the actor's own response; facility and
// facility-type scopes are satisfied by any response from the facility.
func (e Engine) formDone(snap *Snapshot, a Assignment, actor Actor, d Date) bool {
	for _, fr := range snap.FormResponses {
		if fr.FormID != a.ResourceID {
			continue
		}
		if a.TargetType == TargetUser {
			if fr.UserID != actor.UserID {
				continue
			}
		} else if fr.FacilityID != actor.FacilityID {
			continue
		}
		if e.completionDateMatch(a, d, fr.Timestamp) {
			return true
		}
	}
	return false
}

// completionDateMatch is same-day for recurring assignments, any day of
// the active window for once-only ones.
func (e Engine) completionDateMatch(a Assignment, d Date, timestamp string) bool {
	if a.Frequency == FrequencyOnce {
		done := DateOfTimestamp(timestamp)
		return !done.IsZero() && a.ActiveOn(done)
	}
	return d.MatchesTimestamp(timestamp)
}
