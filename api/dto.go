/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - compliance/: The domain model these types project
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/kitchensafe/haccp-engine/compliance"
)

// =============================================================================
// WORKSPACE
// =============================================================================

// TaskDTO is one outstanding obligation on a user's workspace.
type TaskDTO struct {
	Kind           string  `json:"kind"`
	ResourceID     string  `json:"resource_id"`
	ResourceName   string  `json:"resource_name"`
	CheckpointName string  `json:"checkpoint_name,omitempty"`
	MinTemp        *string `json:"min_temp,omitempty"`
	MaxTemp        *string `json:"max_temp,omitempty"`
	AssignmentID   string  `json:"assignment_id,omitempty"`
}

// WorkspaceDTO is the response for a user's daily task screen.
type WorkspaceDTO struct {
	UserID string    `json:"user_id"`
	Date   string    `json:"date"`
	Tasks  []TaskDTO `json:"tasks"`
	// ExclusionReason is set when the user's facility is suspended on the
	// date, explaining the empty task list.
	ExclusionReason string `json:"exclusion_reason,omitempty"`
}

// LostDayDTO is one missed obligation in a retroactive audit.
type LostDayDTO struct {
	Date       string `json:"date"`
	TargetName string `json:"target_name"`
	Kind       string `json:"kind"`
}

// =============================================================================
// READINGS
// =============================================================================

// SubmitReadingRequest commits a measurement.
type SubmitReadingRequest struct {
	TargetID       string          `json:"target_id"`
	TargetKind     string          `json:"target_kind"`
	CheckpointName string          `json:"checkpoint_name"`
	Value          decimal.Decimal `json:"value"`
	Timestamp      string          `json:"timestamp"`
	UserID         string          `json:"user_id"`
	FacilityID     string          `json:"facility_id"`
	Reason         string          `json:"reason,omitempty"`
}

// ReadingDTO is a committed reading in API responses.
type ReadingDTO struct {
	ID             string `json:"id"`
	TargetID       string `json:"target_id"`
	TargetKind     string `json:"target_kind"`
	CheckpointName string `json:"checkpoint_name"`
	Value          string `json:"value"`
	Timestamp      string `json:"timestamp"`
	UserID         string `json:"user_id"`
	FacilityID     string `json:"facility_id"`
	Reason         string `json:"reason,omitempty"`
}

// JustificationRequiredResponse tells the client to prompt for a reason
// and retry the same submission.
type JustificationRequiredResponse struct {
	Code           string `json:"code"` // always "JUSTIFICATION_REQUIRED"
	TargetID       string `json:"target_id"`
	CheckpointName string `json:"checkpoint_name"`
	Value          string `json:"value"`
	MinTemp        string `json:"min_temp"`
	MaxTemp        string `json:"max_temp"`
}

// =============================================================================
// FORM RESPONSES
// =============================================================================

// SubmitFormResponseRequest submits a completed checklist.
type SubmitFormResponseRequest struct {
	FormID     string            `json:"form_id"`
	FacilityID string            `json:"facility_id"`
	UserID     string            `json:"user_id"`
	Timestamp  string            `json:"timestamp"`
	Answers    map[string]string `json:"answers"`
	Signature  string            `json:"signature,omitempty"`
}

// FormResponseDTO is a submitted checklist in API responses.
type FormResponseDTO struct {
	ID              string            `json:"id"`
	FormID          string            `json:"form_id"`
	FacilityID      string            `json:"facility_id"`
	UserID          string            `json:"user_id"`
	Timestamp       string            `json:"timestamp"`
	Answers         map[string]string `json:"answers"`
	SupervisorVisit string            `json:"supervisor_visit"`
}

// =============================================================================
// PRESENCE REPORT
// =============================================================================

// PresenceCountDTO is the yes/no tally for one facility.
type PresenceCountDTO struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

// SupervisorStatsDTO is one row of the supervisor presence ranking.
type SupervisorStatsDTO struct {
	SupervisorID   string                      `json:"supervisor_id"`
	SupervisorName string                      `json:"supervisor_name"`
	TotalVisits    int                         `json:"total_visits"`
	TotalChecked   int                         `json:"total_checked"`
	Breakdown      map[string]PresenceCountDTO `json:"breakdown"`
}

// =============================================================================
// ALERTS
// =============================================================================

// AlertDTO is a violation record in the alert inbox.
type AlertDTO struct {
	ID             string `json:"id"`
	FacilityID     string `json:"facility_id"`
	FacilityName   string `json:"facility_name"`
	TargetName     string `json:"target_name"`
	CheckpointName string `json:"checkpoint_name"`
	Value          string `json:"value"`
	MinTemp        string `json:"min_temp"`
	MaxTemp        string `json:"max_temp"`
	Timestamp      string `json:"timestamp"`
	UserID         string `json:"user_id"`
	UserName       string `json:"user_name"`
	Resolved       bool   `json:"resolved"`
}

// =============================================================================
// MASTER DATA
// =============================================================================

// CheckpointDTO carries a named band. Bounds accept numbers or strings;
// malformed values degrade to the default band rather than erroring.
type CheckpointDTO struct {
	Name    string           `json:"name"`
	MinTemp compliance.Bound `json:"min_temp"`
	MaxTemp compliance.Bound `json:"max_temp"`
}

// SaveUserRequest creates or updates a user.
type SaveUserRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Username   string `json:"username,omitempty"`
	Role       string `json:"role,omitempty"`
	FacilityID string `json:"facility_id,omitempty"`
}

// SaveFacilityRequest creates or updates a facility.
type SaveFacilityRequest struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	TypeID          string `json:"type_id,omitempty"`
	CookingMethodID string `json:"cooking_method_id,omitempty"`
	SupervisorID    string `json:"supervisor_id,omitempty"`
}

// SaveFacilityTypeRequest creates or updates a facility type.
type SaveFacilityTypeRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SaveRefrigeratorRequest creates or updates a fridge.
type SaveRefrigeratorRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	FacilityID string `json:"facility_id"`
	TypeName   string `json:"type_name,omitempty"`
}

// SaveRefrigeratorTypeRequest creates or updates a fridge type.
type SaveRefrigeratorTypeRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Checkpoints []CheckpointDTO `json:"checkpoints"`
}

// SaveCookingMethodRequest creates or updates a cooking method.
type SaveCookingMethodRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Checkpoints []CheckpointDTO `json:"checkpoints"`
}

// SaveMenuRequest creates or updates a menu.
type SaveMenuRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SaveFormTemplateRequest creates or updates a checklist template.
type SaveFormTemplateRequest struct {
	ID                string            `json:"id,omitempty"`
	Title             string            `json:"title"`
	Description       string            `json:"description,omitempty"`
	Questions         []FormQuestionDTO `json:"questions"`
	RequiresSignature bool              `json:"requires_signature"`
}

// FormQuestionDTO is one checklist question.
type FormQuestionDTO struct {
	ID      string   `json:"id,omitempty"`
	Text    string   `json:"text"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
}

// SaveAssignmentRequest creates or updates a recurring obligation.
type SaveAssignmentRequest struct {
	ID           string `json:"id,omitempty"`
	TargetType   string `json:"target_type"`
	TargetID     string `json:"target_id"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Frequency    string `json:"frequency"`
	FrequencyDay int    `json:"frequency_day,omitempty"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	SkipWeekend  bool   `json:"skip_weekend"`
	SkipHolidays bool   `json:"skip_holidays"`
}

// SaveHolidayRequest creates or updates a holiday window.
type SaveHolidayRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SaveExceptionRequest creates or updates a facility exception.
type SaveExceptionRequest struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	FacilityIDs []string `json:"facility_ids"`
	Reason      string   `json:"reason,omitempty"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTaskDTO(t compliance.Task) TaskDTO {
	dto := TaskDTO{
		Kind:           string(t.Kind),
		ResourceID:     t.ResourceID,
		ResourceName:   t.ResourceName,
		CheckpointName: t.CheckpointName,
		AssignmentID:   t.AssignmentID,
	}
	if t.Kind != compliance.TaskForm {
		min := t.Band.Min.String()
		max := t.Band.Max.String()
		dto.MinTemp = &min
		dto.MaxTemp = &max
	}
	return dto
}

func toReadingDTO(r compliance.Reading) ReadingDTO {
	return ReadingDTO{
		ID:             r.ID,
		TargetID:       r.TargetID,
		TargetKind:     string(r.TargetType),
		CheckpointName: r.CheckpointName,
		Value:          r.Value.String(),
		Timestamp:      r.Timestamp,
		UserID:         r.UserID,
		FacilityID:     r.FacilityID,
		Reason:         r.Reason,
	}
}

func toAlertDTO(a compliance.Alert) AlertDTO {
	return AlertDTO{
		ID:             a.ID,
		FacilityID:     a.FacilityID,
		FacilityName:   a.FacilityName,
		TargetName:     a.TargetName,
		CheckpointName: a.CheckpointName,
		Value:          a.Value.String(),
		MinTemp:        a.Min.String(),
		MaxTemp:        a.Max.String(),
		Timestamp:      a.Timestamp,
		UserID:         a.UserID,
		UserName:       a.UserName,
		Resolved:       a.Resolved,
	}
}

func toCheckpoints(dtos []CheckpointDTO) []compliance.Checkpoint {
	cps := make([]compliance.Checkpoint, len(dtos))
	for i, dto := range dtos {
		cps[i] = compliance.Checkpoint{Name: dto.Name, MinTemp: dto.MinTemp, MaxTemp: dto.MaxTemp}
	}
	return cps
}
