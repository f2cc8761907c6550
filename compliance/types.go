/*
Package compliance implements the HACCP task resolution and violation engine.

PURPOSE:
  Given an as-of date, an actor (user / facility / facility type) and an
  immutable snapshot of records, the engine answers four questions:
  - which recurring obligations are due today (outstanding tasks)
  - which have already been satisfied (completions)
  - which were missed on past days (lost days)
  - whether a submitted measurement violates its tolerance band and
    therefore requires a justification and an alert

KEY CONCEPTS IN THIS FILE (types.go):
  - Assignment: a recurring obligation bound to a scope
  - Reading: a captured, write-once temperature measurement
  - FormResponse: a submitted checklist with a mandatory presence answer
  - Holiday / FacilityException: calendar windows narrowing obligations
  - Checkpoint catalogs: named tolerance bands owned by equipment types

DESIGN PRINCIPLES:
  1. Purity: every operation is a total function over (actor, date, snapshot)
  2. Immutability: Readings are locked at commit and never rewritten
  3. Degradation: missing reference data yields placeholders, never errors
  4. One resolver: live screens and retroactive audits share one code path

SEE ALSO:
  - recurrence.go: when an assignment applies to a date
  - engine.go: outstanding-task and lost-day resolution
  - tolerance.go: band validation and the justification contract
*/
package compliance

import "github.com/shopspring/decimal"

// =============================================================================
// SCOPES AND RESOURCE KINDS
// =============================================================================

// TargetType identifies the scope an assignment binds to.
type TargetType string

const (
	TargetUser         TargetType = "user"
	TargetFacility     TargetType = "facility"
	TargetFacilityType TargetType = "facilityType"
)

// ResourceType identifies the obligation an assignment points at.
type ResourceType string

const (
	ResourceForm ResourceType = "form"
	ResourceMenu ResourceType = "menu"
)

// TargetKind identifies what a Reading was captured against.
type TargetKind string

const (
	KindRefrigerator TargetKind = "refrigerator"
	KindMenu         TargetKind = "menu"
)

// Frequency of a recurring assignment.
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// =============================================================================
// ASSIGNMENT - Recurring obligation bound to a scope
// =============================================================================

// Assignment binds a resource (checklist template or menu needing
// temperature logging) to a user, facility, or facility type.
type Assignment struct {
	ID           string
	TargetType   TargetType
	TargetID     string
	ResourceType ResourceType
	ResourceID   string

	Frequency Frequency
	// FrequencyDay is the ISO weekday (1-7) for weekly assignments and the
	// day of month (1-31) for monthly ones. Zero means absent; weekly and
	// monthly assignments without it never match (fail closed).
	FrequencyDay int

	// Inclusive active window.
	StartDate Date
	EndDate   Date

	SkipWeekend  bool
	SkipHolidays bool
}

// ActiveOn reports whether the date lies in the assignment's window.
func (a Assignment) ActiveOn(d Date) bool {
	return DateRange{Start: a.StartDate, End: a.EndDate}.Contains(d)
}

// =============================================================================
// READING - Write-once temperature measurement
// =============================================================================

// Reading is one captured measurement. Once IsLocked is set at commit the
// record is immutable; the engine only ever reads it to decide "already
// done".
type Reading struct {
	ID             string
	TargetID       string
	TargetType     TargetKind
	CheckpointName string
	Value          decimal.Decimal
	Timestamp      string // ISO-8601 with time
	UserID         string
	FacilityID     string
	IsLocked       bool
	// Reason is present iff the value was out of band at save time.
	Reason string
}

// =============================================================================
// FORM RESPONSE - Submitted checklist
// =============================================================================

// SupervisorVisitKey is the fixed sentinel answer key every checklist
// submission must carry ("was the supervisor on site today").
const SupervisorVisitKey = "SUPERVISOR_VISIT"

// Answer values for the sentinel question.
const (
	VisitYes = "YES"
	VisitNo  = "NO"
)

type FormResponse struct {
	ID         string
	FormID     string
	FacilityID string
	UserID     string
	Timestamp  string // ISO-8601 with time
	Answers    map[string]string
	// Signature is an opaque payload (data URI); rendering is out of scope.
	Signature string
}

// SupervisorVisit returns the sentinel answer, empty when absent.
func (fr FormResponse) SupervisorVisit() string {
	return fr.Answers[SupervisorVisitKey]
}

// =============================================================================
// CALENDAR MASTER DATA
// =============================================================================

// Holiday is a global date window, consulted only for assignments with
// SkipHolidays set.
type Holiday struct {
	ID        string
	Name      string
	StartDate Date
	EndDate   Date
}

// FacilityException suspends all obligations for the listed facilities
// during its window. It takes precedence over every recurrence rule.
type FacilityException struct {
	ID          string
	Name        string
	FacilityIDs []string
	Reason      string
	StartDate   Date
	EndDate     Date
}

// Covers reports whether the exception applies to the facility on the date.
func (ex FacilityException) Covers(facilityID string, d Date) bool {
	window := DateRange{Start: ex.StartDate, End: ex.EndDate}
	if !window.Contains(d) {
		return false
	}
	for _, id := range ex.FacilityIDs {
		if id == facilityID {
			return true
		}
	}
	return false
}

// =============================================================================
// CHECKPOINT CATALOGS
// =============================================================================

// Checkpoint is a named tolerance band. Bounds arrive as string-or-number
// JSON and are normalized via Bound (see tolerance.go).
type Checkpoint struct {
	Name    string
	MinTemp Bound
	MaxTemp Bound
}

// RefrigeratorType owns the checkpoints for fridges carrying its name.
type RefrigeratorType struct {
	ID          string
	Name        string
	Checkpoints []Checkpoint
}

// CookingMethod owns the checkpoints for menus, selected per facility.
type CookingMethod struct {
	ID          string
	Name        string
	Checkpoints []Checkpoint
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type FacilityType struct {
	ID   string
	Name string
}

type Facility struct {
	ID              string
	Name            string
	TypeID          string
	CookingMethodID string
	SupervisorID    string
}

type Refrigerator struct {
	ID         string
	Name       string
	FacilityID string
	// TypeName links to RefrigeratorType by name, not id. That is how the
	// historical data is keyed; keep it.
	TypeName string
}

type Menu struct {
	ID   string
	Name string
}

type FormTemplate struct {
	ID                string
	Title             string
	Description       string
	Questions         []FormQuestion
	RequiresSignature bool
}

type FormQuestion struct {
	ID      string
	Text    string
	Type    QuestionType
	Options []string
}

type QuestionType string

const (
	QuestionText   QuestionType = "text"
	QuestionChoice QuestionType = "choice"
	QuestionYesNo  QuestionType = "yesno"
)

type User struct {
	ID         string
	Name       string
	Username   string
	Role       string
	FacilityID string
}

// =============================================================================
// ALERT - Violation record for the delivery collaborator
// =============================================================================

// Alert is produced when an out-of-range Reading is committed with a
// justification. Delivery (email/Telegram) belongs to an external
// collaborator; the engine only constructs the record.
type Alert struct {
	ID             string
	FacilityID     string
	FacilityName   string
	TargetName     string
	CheckpointName string
	Value          decimal.Decimal
	Min            decimal.Decimal
	Max            decimal.Decimal
	Timestamp      string
	UserID         string
	UserName       string
	Resolved       bool
}
