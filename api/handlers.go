/*
handlers.go - HTTP API handlers for the compliance engine

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Workspace:
    GET    /api/users/{id}/workspace   Outstanding tasks for a date
    GET    /api/users/{id}/lost-days   Missed obligations over a range

  Audit records:
    POST   /api/readings               Commit a measurement
    GET    /api/readings               List readings (optional range)
    POST   /api/responses              Submit a checklist
    GET    /api/responses              List checklist submissions

  Reports:
    GET    /api/reports/presence       Supervisor presence ranking

  Alerts:
    GET    /api/alerts                 Alert inbox
    POST   /api/alerts/{id}/resolve    Mark an alert handled

  Master data:
    GET/POST on the collection, DELETE on /{id}, for users,
    facilities, facility-types, refrigerators, refrigerator-types,
    cooking-methods, menus, forms, assignments, holidays, exceptions

  Scenarios:
    GET    /api/scenarios              List demo scenarios
    POST   /api/scenarios/load         Load a demo scenario
    POST   /api/scenarios/reset        Clear all data

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load a snapshot, call domain logic
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate reading for target/checkpoint/day)
  - 422: Out-of-range value submitted without a justification
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kitchensafe/haccp-engine/compliance"
	"github.com/kitchensafe/haccp-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	engine    compliance.Engine
	evaluator compliance.ToleranceEvaluator
	presence  compliance.PresenceAggregator

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// =============================================================================
// WORKSPACE HANDLERS
// =============================================================================

// GetWorkspace returns the outstanding tasks for a user on a date.
// GET /api/users/{id}/workspace?date=YYYY-MM-DD (default: today)
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	day := compliance.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := compliance.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		day = parsed
	}

	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	if _, ok := snap.UserByID(userID); !ok {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	actor := snap.ActorFor(userID)
	tasks := h.engine.OutstandingTasks(actor, day, snap)

	dto := WorkspaceDTO{
		UserID: userID,
		Date:   day.String(),
		Tasks:  make([]TaskDTO, 0, len(tasks)),
	}
	for _, t := range tasks {
		dto.Tasks = append(dto.Tasks, toTaskDTO(t))
	}
	if ex := compliance.ActiveException(actor.FacilityID, day, snap.Exceptions); ex != nil {
		dto.ExclusionReason = ex.Reason
	}

	writeJSON(w, http.StatusOK, dto)
}

// GetLostDays returns the missed obligations for a user over a range.
// GET /api/users/{id}/lost-days?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetLostDays(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	if _, ok := snap.UserByID(userID); !ok {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}

	lost := h.engine.MissedTasks(snap.ActorFor(userID), rng, snap)

	dtos := make([]LostDayDTO, 0, len(lost))
	for _, l := range lost {
		dtos = append(dtos, LostDayDTO{
			Date:       l.Date.String(),
			TargetName: l.TargetName,
			Kind:       string(l.Kind),
		})
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// READING HANDLERS
// =============================================================================

// SubmitReading validates and commits a measurement.
// POST /api/readings
func (h *Handler) SubmitReading(w http.ResponseWriter, r *http.Request) {
	var req SubmitReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.TargetID == "" || req.CheckpointName == "" || req.UserID == "" || req.FacilityID == "" {
		writeError(w, http.StatusBadRequest, "target_id, checkpoint_name, user_id and facility_id are required", nil)
		return
	}
	kind := compliance.TargetKind(req.TargetKind)
	if kind != compliance.KindRefrigerator && kind != compliance.KindMenu {
		writeError(w, http.StatusBadRequest, "target_kind must be refrigerator or menu", nil)
		return
	}
	if compliance.DateOfTimestamp(req.Timestamp).IsZero() {
		writeError(w, http.StatusBadRequest, "timestamp must be ISO-8601 with a date part", nil)
		return
	}

	ctx := r.Context()
	snap, err := h.Store.Snapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	reading, alert, err := h.evaluator.Propose(compliance.ReadingProposal{
		ID:             uuid.NewString(),
		TargetID:       req.TargetID,
		TargetKind:     kind,
		CheckpointName: req.CheckpointName,
		Value:          req.Value,
		Timestamp:      req.Timestamp,
		UserID:         req.UserID,
		FacilityID:     req.FacilityID,
		Reason:         req.Reason,
	}, snap)
	if err != nil {
		var je *compliance.JustificationError
		if errors.As(err, &je) {
			writeJSON(w, http.StatusUnprocessableEntity, JustificationRequiredResponse{
				Code:           "JUSTIFICATION_REQUIRED",
				TargetID:       je.TargetID,
				CheckpointName: je.CheckpointName,
				Value:          je.Value.String(),
				MinTemp:        je.Band.Min.String(),
				MaxTemp:        je.Band.Max.String(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to evaluate reading", err)
		return
	}

	if err := h.Store.AppendReading(ctx, reading); err != nil {
		if errors.Is(err, compliance.ErrDuplicateReading) {
			writeError(w, http.StatusConflict, "A reading for this target, checkpoint and day already exists", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to store reading", err)
		return
	}

	// The reading is committed; an alert that fails to store must not
	// roll it back.
	if alert != nil {
		if err := h.Store.AppendAlert(ctx, *alert); err != nil {
			log.Printf("failed to store alert for reading %s: %v", reading.ID, err)
		} else {
			log.Printf("VIOLATION %s / %s: %s outside %s..%s at %s (by %s)",
				alert.TargetName, alert.CheckpointName,
				alert.Value, alert.Min, alert.Max, alert.FacilityName, alert.UserName)
		}
	}

	writeJSON(w, http.StatusCreated, toReadingDTO(reading))
}

// ListReadings returns readings, optionally limited to a range.
// GET /api/readings?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) ListReadings(w http.ResponseWriter, r *http.Request) {
	var (
		readings []compliance.Reading
		err      error
	)
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		rng, rerr := parseRange(r)
		if rerr != nil {
			writeError(w, http.StatusBadRequest, "Invalid range", rerr)
			return
		}
		readings, err = h.Store.ListReadingsInRange(r.Context(), rng)
	} else {
		readings, err = h.Store.ListReadings(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list readings", err)
		return
	}

	dtos := make([]ReadingDTO, 0, len(readings))
	for _, rd := range readings {
		dtos = append(dtos, toReadingDTO(rd))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// FORM RESPONSE HANDLERS
// =============================================================================

// SubmitFormResponse validates and stores a checklist submission.
// POST /api/responses
func (h *Handler) SubmitFormResponse(w http.ResponseWriter, r *http.Request) {
	var req SubmitFormResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.FormID == "" || req.FacilityID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "form_id, facility_id and user_id are required", nil)
		return
	}
	if compliance.DateOfTimestamp(req.Timestamp).IsZero() {
		writeError(w, http.StatusBadRequest, "timestamp must be ISO-8601 with a date part", nil)
		return
	}

	// Every submission answers the supervisor-presence question.
	visit := req.Answers[compliance.SupervisorVisitKey]
	if visit != compliance.VisitYes && visit != compliance.VisitNo {
		writeError(w, http.StatusBadRequest,
			"answers must include SUPERVISOR_VISIT with value YES or NO", nil)
		return
	}

	ctx := r.Context()
	snap, err := h.Store.Snapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}
	// Template-level validation needs the template; a deleted template
	// degrades to accepting the submission.
	if tpl, ok := snap.FormByID(req.FormID); ok {
		if tpl.RequiresSignature && req.Signature == "" {
			writeError(w, http.StatusBadRequest, "this checklist requires a signature", nil)
			return
		}
		for _, q := range tpl.Questions {
			if q.Type == compliance.QuestionText {
				continue // free-text questions are optional
			}
			if strings.TrimSpace(req.Answers[q.ID]) == "" {
				writeError(w, http.StatusBadRequest,
					fmt.Sprintf("question %q must be answered", q.ID), nil)
				return
			}
		}
	}

	fr := compliance.FormResponse{
		ID:         uuid.NewString(),
		FormID:     req.FormID,
		FacilityID: req.FacilityID,
		UserID:     req.UserID,
		Timestamp:  req.Timestamp,
		Answers:    req.Answers,
		Signature:  req.Signature,
	}
	if err := h.Store.AppendFormResponse(ctx, fr); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store response", err)
		return
	}

	writeJSON(w, http.StatusCreated, FormResponseDTO{
		ID:              fr.ID,
		FormID:          fr.FormID,
		FacilityID:      fr.FacilityID,
		UserID:          fr.UserID,
		Timestamp:       fr.Timestamp,
		Answers:         fr.Answers,
		SupervisorVisit: visit,
	})
}

// ListFormResponses returns all checklist submissions.
// GET /api/responses
func (h *Handler) ListFormResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := h.Store.ListFormResponses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list responses", err)
		return
	}

	dtos := make([]FormResponseDTO, 0, len(responses))
	for _, fr := range responses {
		dtos = append(dtos, FormResponseDTO{
			ID:              fr.ID,
			FormID:          fr.FormID,
			FacilityID:      fr.FacilityID,
			UserID:          fr.UserID,
			Timestamp:       fr.Timestamp,
			Answers:         fr.Answers,
			SupervisorVisit: fr.SupervisorVisit(),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetPresenceReport returns the supervisor presence ranking for a range.
// GET /api/reports/presence?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetPresenceReport(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	stats := h.presence.Aggregate(rng, snap)

	dtos := make([]SupervisorStatsDTO, 0, len(stats))
	for _, s := range stats {
		dto := SupervisorStatsDTO{
			SupervisorID: s.SupervisorID,
			TotalVisits:  s.TotalVisits,
			TotalChecked: s.TotalChecked,
			Breakdown:    make(map[string]PresenceCountDTO, len(s.Breakdown)),
		}
		if s.SupervisorID == compliance.UnassignedSupervisor {
			dto.SupervisorName = compliance.UnassignedSupervisor
		} else {
			dto.SupervisorName = compliance.UserName(snap, s.SupervisorID)
		}
		for facilityID, count := range s.Breakdown {
			dto.Breakdown[facilityID] = PresenceCountDTO{Yes: count.Yes, No: count.No}
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ALERT HANDLERS
// =============================================================================

// ListAlerts returns the alert inbox, newest first.
// GET /api/alerts?unresolved=true
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	unresolvedOnly := r.URL.Query().Get("unresolved") == "true"

	alerts, err := h.Store.ListAlerts(r.Context(), unresolvedOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts", err)
		return
	}

	dtos := make([]AlertDTO, 0, len(alerts))
	for _, a := range alerts {
		dtos = append(dtos, toAlertDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResolveAlert marks an alert as handled.
// POST /api/alerts/{id}/resolve
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.ResolveAlert(r.Context(), id); err != nil {
		if compliance.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Alert not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to resolve alert", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MASTER DATA HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// SaveUser creates or updates a user.
func (h *Handler) SaveUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	u, err := h.Store.SaveUser(r.Context(), compliance.User{
		ID: req.ID, Name: req.Name, Username: req.Username,
		Role: req.Role, FacilityID: req.FacilityID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// DeleteUser removes a user.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteUser)
}

// ListFacilities returns all facilities.
func (h *Handler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	facilities, err := h.Store.ListFacilities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list facilities", err)
		return
	}
	writeJSON(w, http.StatusOK, facilities)
}

// SaveFacility creates or updates a facility.
func (h *Handler) SaveFacility(w http.ResponseWriter, r *http.Request) {
	var req SaveFacilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	f, err := h.Store.SaveFacility(r.Context(), compliance.Facility{
		ID: req.ID, Name: req.Name, TypeID: req.TypeID,
		CookingMethodID: req.CookingMethodID, SupervisorID: req.SupervisorID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save facility", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// DeleteFacility removes a facility.
func (h *Handler) DeleteFacility(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteFacility)
}

// ListFacilityTypes returns all facility types.
func (h *Handler) ListFacilityTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListFacilityTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list facility types", err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// SaveFacilityType creates or updates a facility type.
func (h *Handler) SaveFacilityType(w http.ResponseWriter, r *http.Request) {
	var req SaveFacilityTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	ft, err := h.Store.SaveFacilityType(r.Context(), compliance.FacilityType{ID: req.ID, Name: req.Name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save facility type", err)
		return
	}
	writeJSON(w, http.StatusCreated, ft)
}

// DeleteFacilityType removes a facility type.
func (h *Handler) DeleteFacilityType(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteFacilityType)
}

// ListRefrigerators returns all fridges.
func (h *Handler) ListRefrigerators(w http.ResponseWriter, r *http.Request) {
	fridges, err := h.Store.ListRefrigerators(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refrigerators", err)
		return
	}
	writeJSON(w, http.StatusOK, fridges)
}

// SaveRefrigerator creates or updates a fridge.
func (h *Handler) SaveRefrigerator(w http.ResponseWriter, r *http.Request) {
	var req SaveRefrigeratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.FacilityID == "" {
		writeError(w, http.StatusBadRequest, "name and facility_id are required", nil)
		return
	}

	fridge, err := h.Store.SaveRefrigerator(r.Context(), compliance.Refrigerator{
		ID: req.ID, Name: req.Name, FacilityID: req.FacilityID, TypeName: req.TypeName,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save refrigerator", err)
		return
	}
	writeJSON(w, http.StatusCreated, fridge)
}

// DeleteRefrigerator removes a fridge.
func (h *Handler) DeleteRefrigerator(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteRefrigerator)
}

// ListRefrigeratorTypes returns all fridge types.
func (h *Handler) ListRefrigeratorTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListRefrigeratorTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refrigerator types", err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// SaveRefrigeratorType creates or updates a fridge type.
func (h *Handler) SaveRefrigeratorType(w http.ResponseWriter, r *http.Request) {
	var req SaveRefrigeratorTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	rt, err := h.Store.SaveRefrigeratorType(r.Context(), compliance.RefrigeratorType{
		ID: req.ID, Name: req.Name, Checkpoints: toCheckpoints(req.Checkpoints),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save refrigerator type", err)
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}

// DeleteRefrigeratorType removes a fridge type.
func (h *Handler) DeleteRefrigeratorType(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteRefrigeratorType)
}

// ListCookingMethods returns all cooking methods.
func (h *Handler) ListCookingMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Store.ListCookingMethods(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cooking methods", err)
		return
	}
	writeJSON(w, http.StatusOK, methods)
}

// SaveCookingMethod creates or updates a cooking method.
func (h *Handler) SaveCookingMethod(w http.ResponseWriter, r *http.Request) {
	var req SaveCookingMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	cm, err := h.Store.SaveCookingMethod(r.Context(), compliance.CookingMethod{
		ID: req.ID, Name: req.Name, Checkpoints: toCheckpoints(req.Checkpoints),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save cooking method", err)
		return
	}
	writeJSON(w, http.StatusCreated, cm)
}

// DeleteCookingMethod removes a cooking method.
func (h *Handler) DeleteCookingMethod(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteCookingMethod)
}

// ListMenus returns all menus.
func (h *Handler) ListMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.Store.ListMenus(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list menus", err)
		return
	}
	writeJSON(w, http.StatusOK, menus)
}

// SaveMenu creates or updates a menu.
func (h *Handler) SaveMenu(w http.ResponseWriter, r *http.Request) {
	var req SaveMenuRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	m, err := h.Store.SaveMenu(r.Context(), compliance.Menu{ID: req.ID, Name: req.Name})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save menu", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// DeleteMenu removes a menu.
func (h *Handler) DeleteMenu(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteMenu)
}

// ListFormTemplates returns all checklist templates.
func (h *Handler) ListFormTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ListFormTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list form templates", err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// SaveFormTemplate creates or updates a checklist template.
func (h *Handler) SaveFormTemplate(w http.ResponseWriter, r *http.Request) {
	var req SaveFormTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required", nil)
		return
	}

	questions := make([]compliance.FormQuestion, len(req.Questions))
	for i, q := range req.Questions {
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		questions[i] = compliance.FormQuestion{
			ID: id, Text: q.Text, Type: compliance.QuestionType(q.Type), Options: q.Options,
		}
	}

	ft, err := h.Store.SaveFormTemplate(r.Context(), compliance.FormTemplate{
		ID: req.ID, Title: req.Title, Description: req.Description,
		Questions: questions, RequiresSignature: req.RequiresSignature,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save form template", err)
		return
	}
	writeJSON(w, http.StatusCreated, ft)
}

// DeleteFormTemplate removes a checklist template.
func (h *Handler) DeleteFormTemplate(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteFormTemplate)
}

// ListAssignments returns all assignments.
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Store.ListAssignments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

// SaveAssignment creates or updates a recurring obligation.
func (h *Handler) SaveAssignment(w http.ResponseWriter, r *http.Request) {
	var req SaveAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	a := compliance.Assignment{
		ID:           req.ID,
		TargetType:   compliance.TargetType(req.TargetType),
		TargetID:     req.TargetID,
		ResourceType: compliance.ResourceType(req.ResourceType),
		ResourceID:   req.ResourceID,
		Frequency:    compliance.Frequency(req.Frequency),
		FrequencyDay: req.FrequencyDay,
		SkipWeekend:  req.SkipWeekend,
		SkipHolidays: req.SkipHolidays,
	}

	switch a.TargetType {
	case compliance.TargetUser, compliance.TargetFacility, compliance.TargetFacilityType:
	default:
		writeError(w, http.StatusBadRequest, "target_type must be user, facility or facilityType", nil)
		return
	}
	switch a.ResourceType {
	case compliance.ResourceForm, compliance.ResourceMenu:
	default:
		writeError(w, http.StatusBadRequest, "resource_type must be form or menu", nil)
		return
	}
	switch a.Frequency {
	case compliance.FrequencyOnce, compliance.FrequencyDaily,
		compliance.FrequencyWeekly, compliance.FrequencyMonthly:
	default:
		writeError(w, http.StatusBadRequest, "frequency must be once, daily, weekly or monthly", nil)
		return
	}
	if a.TargetID == "" || a.ResourceID == "" {
		writeError(w, http.StatusBadRequest, "target_id and resource_id are required", nil)
		return
	}

	var err error
	if a.StartDate, err = compliance.ParseDate(req.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	if a.EndDate, err = compliance.ParseDate(req.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	if a.EndDate.Before(a.StartDate) {
		writeError(w, http.StatusBadRequest, "end_date must not precede start_date", nil)
		return
	}

	saved, err := h.Store.SaveAssignment(r.Context(), a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteAssignment removes an assignment.
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteAssignment)
}

// ListHolidays returns all holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

// SaveHoliday creates or updates a holiday window.
func (h *Handler) SaveHoliday(w http.ResponseWriter, r *http.Request) {
	var req SaveHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	hol := compliance.Holiday{ID: req.ID, Name: req.Name}
	var err error
	if hol.StartDate, err = compliance.ParseDate(req.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	if hol.EndDate, err = compliance.ParseDate(req.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}

	saved, err := h.Store.SaveHoliday(r.Context(), hol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteHoliday removes a holiday window.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteHoliday)
}

// ListExceptions returns all facility exceptions.
func (h *Handler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	exceptions, err := h.Store.ListExceptions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exceptions", err)
		return
	}
	writeJSON(w, http.StatusOK, exceptions)
}

// SaveException creates or updates a facility exception.
func (h *Handler) SaveException(w http.ResponseWriter, r *http.Request) {
	var req SaveExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.FacilityIDs) == 0 {
		writeError(w, http.StatusBadRequest, "facility_ids must name at least one facility", nil)
		return
	}

	ex := compliance.FacilityException{
		ID: req.ID, Name: req.Name, FacilityIDs: req.FacilityIDs, Reason: req.Reason,
	}
	var err error
	if ex.StartDate, err = compliance.ParseDate(req.StartDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	if ex.EndDate, err = compliance.ParseDate(req.EndDate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}

	saved, err := h.Store.SaveException(r.Context(), ex)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save exception", err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteException removes a facility exception.
func (h *Handler) DeleteException(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, h.Store.DeleteException)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) deleteByID(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")

	if err := del(r.Context(), id); err != nil {
		if compliance.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Record not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseRange reads the from/to query parameters as an inclusive range.
func parseRange(r *http.Request) (compliance.DateRange, error) {
	from, err := compliance.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		return compliance.DateRange{}, fmt.Errorf("invalid from date: %w", err)
	}
	to, err := compliance.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		return compliance.DateRange{}, fmt.Errorf("invalid to date: %w", err)
	}
	if to.Before(from) {
		return compliance.DateRange{}, fmt.Errorf("to precedes from")
	}
	return compliance.DateRange{Start: from, End: to}, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
