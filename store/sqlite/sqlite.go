/*
Package sqlite provides the SQLite-backed persistence for the compliance
engine.

PURPOSE:
  Stores the master data (users, facilities, equipment catalogs, menus,
  checklist templates, assignments, calendars) and the audit records
  (readings, checklist responses, alerts), and assembles the immutable
  compliance.Snapshot the engine evaluates over.

APPEND-ONLY ENFORCEMENT:
  Readings are the audit trail. The store exposes no UPDATE or DELETE on
  the readings table; the only mutation anywhere near audit data is
  flipping an alert's resolved flag.

KEY TABLES:
  readings:            Immutable measurement log (write-once per day)
  form_responses:      Submitted checklists with the presence answer
  alerts:              Violation records awaiting resolution
  assignments:         Recurring obligations bound to scopes
  facility_exceptions: Calendar windows suspending obligations

INDEXES:
  - idx_fridge_readings_unique_day: one fridge reading per
    (target, checkpoint, day); the first successful write is authoritative
  - idx_menu_readings_unique_day: one menu reading per
    (target, checkpoint, user, day); colleagues each commit their own
  - idx_readings_target / idx_readings_facility: resolution hot paths

CONCURRENCY:
  sync.RWMutex on top of WAL mode. Readers share; writers serialize.

USAGE:
  st, err := sqlite.New("./data/haccp.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  snap, err := st.Snapshot(ctx)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.

SEE ALSO:
  - compliance/snapshot.go: the record set this store assembles
  - compliance/errors.go: ErrDuplicateReading / ErrNotFound
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/kitchensafe/haccp-engine/compliance"
)

// Store persists master data and audit records in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Readings (append-only audit trail)
	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		target_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		checkpoint_name TEXT NOT NULL,
		value TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		user_id TEXT NOT NULL,
		facility_id TEXT NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: the first successful write wins; later attempts get a
	-- conflict. Fridge monitoring is facility-wide, so one reading per
	-- fridge, checkpoint and calendar day. Menu completion is per actor:
	-- colleagues sharing a menu obligation each commit their own reading,
	-- and only a same-user repeat conflicts.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_fridge_readings_unique_day
		ON readings(target_id, checkpoint_name, substr(timestamp, 1, 10))
		WHERE target_type = 'refrigerator';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_menu_readings_unique_day
		ON readings(target_id, checkpoint_name, user_id, substr(timestamp, 1, 10))
		WHERE target_type = 'menu';

	CREATE INDEX IF NOT EXISTS idx_readings_target
		ON readings(target_id, checkpoint_name, timestamp);
	CREATE INDEX IF NOT EXISTS idx_readings_facility
		ON readings(facility_id, timestamp);

	-- Checklist responses
	CREATE TABLE IF NOT EXISTS form_responses (
		id TEXT PRIMARY KEY,
		form_id TEXT NOT NULL,
		facility_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		signature TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_responses_form
		ON form_responses(form_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_responses_facility
		ON form_responses(facility_id, timestamp);

	-- Alerts (violation records)
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		facility_id TEXT NOT NULL,
		facility_name TEXT NOT NULL,
		target_name TEXT NOT NULL,
		checkpoint_name TEXT NOT NULL,
		value TEXT NOT NULL,
		min TEXT NOT NULL,
		max TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_name TEXT NOT NULL,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_resolved
		ON alerts(resolved, timestamp);

	-- Assignments (recurring obligations)
	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		frequency TEXT NOT NULL,
		frequency_day INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		skip_weekend BOOLEAN NOT NULL DEFAULT FALSE,
		skip_holidays BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_target
		ON assignments(target_type, target_id);

	-- Calendars
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS facility_exceptions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		facility_ids_json TEXT NOT NULL,
		reason TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Reference data
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		username TEXT,
		role TEXT,
		facility_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS facility_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS facilities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type_id TEXT,
		cooking_method_id TEXT,
		supervisor_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS refrigerators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		facility_id TEXT NOT NULL,
		type_name TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_refrigerators_facility
		ON refrigerators(facility_id);

	CREATE TABLE IF NOT EXISTS refrigerator_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		checkpoints_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cooking_methods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		checkpoints_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS menus (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS form_templates (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		questions_json TEXT NOT NULL,
		requires_signature BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// READINGS - Append-only
// =============================================================================

// AppendReading commits a locked reading. Returns ErrDuplicateReading when
// a reading for the same target, checkpoint and calendar day already
// exists, and ErrReadingLocked when the proposal was never locked.
func (s *Store) AppendReading(ctx context.Context, r compliance.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !r.IsLocked {
		return compliance.ErrReadingLocked
	}

	query := `
		INSERT INTO readings
		(id, target_id, target_type, checkpoint_name, value, timestamp, user_id, facility_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.TargetID,
		string(r.TargetType),
		r.CheckpointName,
		r.Value.String(),
		r.Timestamp,
		r.UserID,
		r.FacilityID,
		nullString(r.Reason),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return compliance.ErrDuplicateReading
		}
		return fmt.Errorf("failed to append reading: %w", err)
	}

	return nil
}

// ListReadings returns all readings, oldest first.
func (s *Store) ListReadings(ctx context.Context) ([]compliance.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReadings(ctx, `
		SELECT id, target_id, target_type, checkpoint_name, value, timestamp, user_id, facility_id, reason
		FROM readings ORDER BY timestamp ASC, created_at ASC
	`)
}

// ListReadingsInRange returns readings whose day falls inside the range.
func (s *Store) ListReadingsInRange(ctx context.Context, rng compliance.DateRange) ([]compliance.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReadings(ctx, `
		SELECT id, target_id, target_type, checkpoint_name, value, timestamp, user_id, facility_id, reason
		FROM readings
		WHERE substr(timestamp, 1, 10) >= ? AND substr(timestamp, 1, 10) <= ?
		ORDER BY timestamp ASC, created_at ASC
	`, rng.Start.String(), rng.End.String())
}

func (s *Store) queryReadings(ctx context.Context, query string, args ...any) ([]compliance.Reading, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []compliance.Reading
	for rows.Next() {
		var (
			r          compliance.Reading
			targetType string
			value      string
			reason     sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &r.TargetID, &targetType, &r.CheckpointName,
			&value, &r.Timestamp, &r.UserID, &r.FacilityID, &reason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		r.TargetType = compliance.TargetKind(targetType)
		r.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("corrupt reading value %q: %w", value, err)
		}
		r.Reason = reason.String
		// Everything in the table was committed through Propose.
		r.IsLocked = true
		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// =============================================================================
// FORM RESPONSES
// =============================================================================

// AppendFormResponse stores a submitted checklist.
func (s *Store) AppendFormResponse(ctx context.Context, fr compliance.FormResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	answersJSON, err := json.Marshal(fr.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	query := `
		INSERT INTO form_responses
		(id, form_id, facility_id, user_id, timestamp, answers_json, signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		fr.ID, fr.FormID, fr.FacilityID, fr.UserID, fr.Timestamp,
		string(answersJSON), nullString(fr.Signature),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append form response: %w", err)
	}
	return nil
}

// ListFormResponses returns all checklist submissions, oldest first.
func (s *Store) ListFormResponses(ctx context.Context) ([]compliance.FormResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, form_id, facility_id, user_id, timestamp, answers_json, signature
		FROM form_responses ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query form responses: %w", err)
	}
	defer rows.Close()

	var responses []compliance.FormResponse
	for rows.Next() {
		var (
			fr          compliance.FormResponse
			answersJSON string
			signature   sql.NullString
		)
		if err := rows.Scan(&fr.ID, &fr.FormID, &fr.FacilityID, &fr.UserID,
			&fr.Timestamp, &answersJSON, &signature); err != nil {
			return nil, fmt.Errorf("failed to scan form response: %w", err)
		}
		if err := json.Unmarshal([]byte(answersJSON), &fr.Answers); err != nil {
			return nil, fmt.Errorf("corrupt answers for response %s: %w", fr.ID, err)
		}
		fr.Signature = signature.String
		responses = append(responses, fr)
	}

	return responses, rows.Err()
}

// =============================================================================
// ALERTS
// =============================================================================

// AppendAlert stores a violation record.
func (s *Store) AppendAlert(ctx context.Context, a compliance.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO alerts
		(id, facility_id, facility_name, target_name, checkpoint_name, value, min, max,
		 timestamp, user_id, user_name, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.FacilityID, a.FacilityName, a.TargetName, a.CheckpointName,
		a.Value.String(), a.Min.String(), a.Max.String(),
		a.Timestamp, a.UserID, a.UserName, a.Resolved,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append alert: %w", err)
	}
	return nil
}

// ListAlerts returns alerts, newest first. With unresolvedOnly set,
// resolved alerts are filtered out.
func (s *Store) ListAlerts(ctx context.Context, unresolvedOnly bool) ([]compliance.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, facility_id, facility_name, target_name, checkpoint_name, value, min, max,
		       timestamp, user_id, user_name, resolved
		FROM alerts
	`
	if unresolvedOnly {
		query += " WHERE resolved = FALSE"
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []compliance.Alert
	for rows.Next() {
		var (
			a               compliance.Alert
			value, min, max string
		)
		if err := rows.Scan(&a.ID, &a.FacilityID, &a.FacilityName, &a.TargetName,
			&a.CheckpointName, &value, &min, &max,
			&a.Timestamp, &a.UserID, &a.UserName, &a.Resolved); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Value = mustDecimal(value)
		a.Min = mustDecimal(min)
		a.Max = mustDecimal(max)
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// ResolveAlert marks an alert as handled. The only mutation on audit data.
func (s *Store) ResolveAlert(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE alerts SET resolved = TRUE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return compliance.ErrNotFound
	}
	return nil
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// SaveAssignment inserts or replaces an assignment.
func (s *Store) SaveAssignment(ctx context.Context, a compliance.Assignment) (compliance.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `
		INSERT INTO assignments
		(id, target_type, target_id, resource_type, resource_id, frequency, frequency_day,
		 start_date, end_date, skip_weekend, skip_holidays, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target_type = excluded.target_type,
			target_id = excluded.target_id,
			resource_type = excluded.resource_type,
			resource_id = excluded.resource_id,
			frequency = excluded.frequency,
			frequency_day = excluded.frequency_day,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			skip_weekend = excluded.skip_weekend,
			skip_holidays = excluded.skip_holidays
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, string(a.TargetType), a.TargetID, string(a.ResourceType), a.ResourceID,
		string(a.Frequency), a.FrequencyDay,
		a.StartDate.String(), a.EndDate.String(),
		a.SkipWeekend, a.SkipHolidays,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return compliance.Assignment{}, fmt.Errorf("failed to save assignment: %w", err)
	}
	return a, nil
}

// DeleteAssignment removes an assignment. Readings captured under it stay.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "assignments", id)
}

// ListAssignments returns all assignments.
func (s *Store) ListAssignments(ctx context.Context) ([]compliance.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_type, target_id, resource_type, resource_id, frequency, frequency_day,
		       start_date, end_date, skip_weekend, skip_holidays
		FROM assignments ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []compliance.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func scanAssignment(rows *sql.Rows) (compliance.Assignment, error) {
	var (
		a                          compliance.Assignment
		targetType, resourceType   string
		frequency, startD, endD    string
	)
	if err := rows.Scan(&a.ID, &targetType, &a.TargetID, &resourceType, &a.ResourceID,
		&frequency, &a.FrequencyDay, &startD, &endD,
		&a.SkipWeekend, &a.SkipHolidays); err != nil {
		return a, fmt.Errorf("failed to scan assignment: %w", err)
	}

	a.TargetType = compliance.TargetType(targetType)
	a.ResourceType = compliance.ResourceType(resourceType)
	a.Frequency = compliance.Frequency(frequency)
	a.StartDate = parseStoredDate(startD)
	a.EndDate = parseStoredDate(endD)
	return a, nil
}

// =============================================================================
// CALENDARS
// =============================================================================

// SaveHoliday inserts or replaces a holiday window.
func (s *Store) SaveHoliday(ctx context.Context, h compliance.Holiday) (compliance.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, name, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`, h.ID, h.Name, h.StartDate.String(), h.EndDate.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.Holiday{}, fmt.Errorf("failed to save holiday: %w", err)
	}
	return h, nil
}

// DeleteHoliday removes a holiday window.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "holidays", id)
}

// ListHolidays returns all holiday windows.
func (s *Store) ListHolidays(ctx context.Context) ([]compliance.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, start_date, end_date FROM holidays ORDER BY start_date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []compliance.Holiday
	for rows.Next() {
		var h compliance.Holiday
		var startD, endD string
		if err := rows.Scan(&h.ID, &h.Name, &startD, &endD); err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		h.StartDate = parseStoredDate(startD)
		h.EndDate = parseStoredDate(endD)
		holidays = append(holidays, h)
	}

	return holidays, rows.Err()
}

// SaveException inserts or replaces a facility exception.
func (s *Store) SaveException(ctx context.Context, ex compliance.FacilityException) (compliance.FacilityException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}

	idsJSON, err := json.Marshal(ex.FacilityIDs)
	if err != nil {
		return compliance.FacilityException{}, fmt.Errorf("failed to encode facility ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facility_exceptions (id, name, facility_ids_json, reason, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			facility_ids_json = excluded.facility_ids_json,
			reason = excluded.reason,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`, ex.ID, ex.Name, string(idsJSON), ex.Reason,
		ex.StartDate.String(), ex.EndDate.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.FacilityException{}, fmt.Errorf("failed to save exception: %w", err)
	}
	return ex, nil
}

// DeleteException removes a facility exception.
func (s *Store) DeleteException(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "facility_exceptions", id)
}

// ListExceptions returns all facility exceptions.
func (s *Store) ListExceptions(ctx context.Context) ([]compliance.FacilityException, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, facility_ids_json, reason, start_date, end_date
		FROM facility_exceptions ORDER BY start_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []compliance.FacilityException
	for rows.Next() {
		var (
			ex           compliance.FacilityException
			idsJSON      string
			reason       sql.NullString
			startD, endD string
		)
		if err := rows.Scan(&ex.ID, &ex.Name, &idsJSON, &reason, &startD, &endD); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &ex.FacilityIDs); err != nil {
			return nil, fmt.Errorf("corrupt facility ids for exception %s: %w", ex.ID, err)
		}
		ex.Reason = reason.String
		ex.StartDate = parseStoredDate(startD)
		ex.EndDate = parseStoredDate(endD)
		exceptions = append(exceptions, ex)
	}

	return exceptions, rows.Err()
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// SaveUser inserts or replaces a user.
func (s *Store) SaveUser(ctx context.Context, u compliance.User) (compliance.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, username, role, facility_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			role = excluded.role,
			facility_id = excluded.facility_id
	`, u.ID, u.Name, nullString(u.Username), nullString(u.Role), nullString(u.FacilityID),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.User{}, fmt.Errorf("failed to save user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user. Their readings remain and the engine names
// them by a placeholder from then on.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "users", id)
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]compliance.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, username, role, facility_id FROM users ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []compliance.User
	for rows.Next() {
		var u compliance.User
		var username, role, facilityID sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &username, &role, &facilityID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Username = username.String
		u.Role = role.String
		u.FacilityID = facilityID.String
		users = append(users, u)
	}

	return users, rows.Err()
}

// SaveFacilityType inserts or replaces a facility type.
func (s *Store) SaveFacilityType(ctx context.Context, ft compliance.FacilityType) (compliance.FacilityType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ft.ID == "" {
		ft.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facility_types (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, ft.ID, ft.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.FacilityType{}, fmt.Errorf("failed to save facility type: %w", err)
	}
	return ft, nil
}

// DeleteFacilityType removes a facility type.
func (s *Store) DeleteFacilityType(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "facility_types", id)
}

// ListFacilityTypes returns all facility types.
func (s *Store) ListFacilityTypes(ctx context.Context) ([]compliance.FacilityType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name FROM facility_types ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query facility types: %w", err)
	}
	defer rows.Close()

	var types []compliance.FacilityType
	for rows.Next() {
		var ft compliance.FacilityType
		if err := rows.Scan(&ft.ID, &ft.Name); err != nil {
			return nil, fmt.Errorf("failed to scan facility type: %w", err)
		}
		types = append(types, ft)
	}

	return types, rows.Err()
}

// SaveFacility inserts or replaces a facility.
func (s *Store) SaveFacility(ctx context.Context, f compliance.Facility) (compliance.Facility, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facilities (id, name, type_id, cooking_method_id, supervisor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type_id = excluded.type_id,
			cooking_method_id = excluded.cooking_method_id,
			supervisor_id = excluded.supervisor_id
	`, f.ID, f.Name, nullString(f.TypeID), nullString(f.CookingMethodID), nullString(f.SupervisorID),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.Facility{}, fmt.Errorf("failed to save facility: %w", err)
	}
	return f, nil
}

// DeleteFacility removes a facility.
func (s *Store) DeleteFacility(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "facilities", id)
}

// ListFacilities returns all facilities.
func (s *Store) ListFacilities(ctx context.Context) ([]compliance.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type_id, cooking_method_id, supervisor_id
		FROM facilities ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query facilities: %w", err)
	}
	defer rows.Close()

	var facilities []compliance.Facility
	for rows.Next() {
		var f compliance.Facility
		var typeID, cookingMethodID, supervisorID sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &typeID, &cookingMethodID, &supervisorID); err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		f.TypeID = typeID.String
		f.CookingMethodID = cookingMethodID.String
		f.SupervisorID = supervisorID.String
		facilities = append(facilities, f)
	}

	return facilities, rows.Err()
}

// SaveRefrigerator inserts or replaces a fridge.
func (s *Store) SaveRefrigerator(ctx context.Context, r compliance.Refrigerator) (compliance.Refrigerator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refrigerators (id, name, facility_id, type_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			facility_id = excluded.facility_id,
			type_name = excluded.type_name
	`, r.ID, r.Name, r.FacilityID, nullString(r.TypeName),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.Refrigerator{}, fmt.Errorf("failed to save refrigerator: %w", err)
	}
	return r, nil
}

// DeleteRefrigerator removes a fridge. Its readings remain.
func (s *Store) DeleteRefrigerator(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "refrigerators", id)
}

// ListRefrigerators returns all fridges.
func (s *Store) ListRefrigerators(ctx context.Context) ([]compliance.Refrigerator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, facility_id, type_name FROM refrigerators ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query refrigerators: %w", err)
	}
	defer rows.Close()

	var fridges []compliance.Refrigerator
	for rows.Next() {
		var r compliance.Refrigerator
		var typeName sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.FacilityID, &typeName); err != nil {
			return nil, fmt.Errorf("failed to scan refrigerator: %w", err)
		}
		r.TypeName = typeName.String
		fridges = append(fridges, r)
	}

	return fridges, rows.Err()
}

// SaveRefrigeratorType inserts or replaces a fridge type with its
// checkpoint catalog.
func (s *Store) SaveRefrigeratorType(ctx context.Context, rt compliance.RefrigeratorType) (compliance.RefrigeratorType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}

	cpJSON, err := json.Marshal(rt.Checkpoints)
	if err != nil {
		return compliance.RefrigeratorType{}, fmt.Errorf("failed to encode checkpoints: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO refrigerator_types (id, name, checkpoints_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			checkpoints_json = excluded.checkpoints_json
	`, rt.ID, rt.Name, string(cpJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.RefrigeratorType{}, fmt.Errorf("failed to save refrigerator type: %w", err)
	}
	return rt, nil
}

// DeleteRefrigeratorType removes a fridge type. Fridges naming it fall
// back to the default band.
func (s *Store) DeleteRefrigeratorType(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "refrigerator_types", id)
}

// ListRefrigeratorTypes returns all fridge types.
func (s *Store) ListRefrigeratorTypes(ctx context.Context) ([]compliance.RefrigeratorType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, checkpoints_json FROM refrigerator_types ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query refrigerator types: %w", err)
	}
	defer rows.Close()

	var types []compliance.RefrigeratorType
	for rows.Next() {
		var rt compliance.RefrigeratorType
		var cpJSON string
		if err := rows.Scan(&rt.ID, &rt.Name, &cpJSON); err != nil {
			return nil, fmt.Errorf("failed to scan refrigerator type: %w", err)
		}
		if err := json.Unmarshal([]byte(cpJSON), &rt.Checkpoints); err != nil {
			return nil, fmt.Errorf("corrupt checkpoints for refrigerator type %s: %w", rt.ID, err)
		}
		types = append(types, rt)
	}

	return types, rows.Err()
}

// SaveCookingMethod inserts or replaces a cooking method with its
// checkpoint catalog.
func (s *Store) SaveCookingMethod(ctx context.Context, cm compliance.CookingMethod) (compliance.CookingMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cm.ID == "" {
		cm.ID = uuid.NewString()
	}

	cpJSON, err := json.Marshal(cm.Checkpoints)
	if err != nil {
		return compliance.CookingMethod{}, fmt.Errorf("failed to encode checkpoints: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cooking_methods (id, name, checkpoints_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			checkpoints_json = excluded.checkpoints_json
	`, cm.ID, cm.Name, string(cpJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.CookingMethod{}, fmt.Errorf("failed to save cooking method: %w", err)
	}
	return cm, nil
}

// DeleteCookingMethod removes a cooking method.
func (s *Store) DeleteCookingMethod(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "cooking_methods", id)
}

// ListCookingMethods returns all cooking methods.
func (s *Store) ListCookingMethods(ctx context.Context) ([]compliance.CookingMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, checkpoints_json FROM cooking_methods ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query cooking methods: %w", err)
	}
	defer rows.Close()

	var methods []compliance.CookingMethod
	for rows.Next() {
		var cm compliance.CookingMethod
		var cpJSON string
		if err := rows.Scan(&cm.ID, &cm.Name, &cpJSON); err != nil {
			return nil, fmt.Errorf("failed to scan cooking method: %w", err)
		}
		if err := json.Unmarshal([]byte(cpJSON), &cm.Checkpoints); err != nil {
			return nil, fmt.Errorf("corrupt checkpoints for cooking method %s: %w", cm.ID, err)
		}
		methods = append(methods, cm)
	}

	return methods, rows.Err()
}

// SaveMenu inserts or replaces a menu.
func (s *Store) SaveMenu(ctx context.Context, m compliance.Menu) (compliance.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO menus (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, m.ID, m.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.Menu{}, fmt.Errorf("failed to save menu: %w", err)
	}
	return m, nil
}

// DeleteMenu removes a menu. Its readings remain.
func (s *Store) DeleteMenu(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "menus", id)
}

// ListMenus returns all menus.
func (s *Store) ListMenus(ctx context.Context) ([]compliance.Menu, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM menus ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query menus: %w", err)
	}
	defer rows.Close()

	var menus []compliance.Menu
	for rows.Next() {
		var m compliance.Menu
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		menus = append(menus, m)
	}

	return menus, rows.Err()
}

// SaveFormTemplate inserts or replaces a checklist template.
func (s *Store) SaveFormTemplate(ctx context.Context, ft compliance.FormTemplate) (compliance.FormTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ft.ID == "" {
		ft.ID = uuid.NewString()
	}

	qJSON, err := json.Marshal(ft.Questions)
	if err != nil {
		return compliance.FormTemplate{}, fmt.Errorf("failed to encode questions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO form_templates (id, title, description, questions_json, requires_signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			questions_json = excluded.questions_json,
			requires_signature = excluded.requires_signature
	`, ft.ID, ft.Title, nullString(ft.Description), string(qJSON), ft.RequiresSignature,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return compliance.FormTemplate{}, fmt.Errorf("failed to save form template: %w", err)
	}
	return ft, nil
}

// DeleteFormTemplate removes a checklist template. Its responses remain.
func (s *Store) DeleteFormTemplate(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "form_templates", id)
}

// ListFormTemplates returns all checklist templates.
func (s *Store) ListFormTemplates(ctx context.Context) ([]compliance.FormTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, questions_json, requires_signature
		FROM form_templates ORDER BY title ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query form templates: %w", err)
	}
	defer rows.Close()

	var templates []compliance.FormTemplate
	for rows.Next() {
		var (
			ft          compliance.FormTemplate
			description sql.NullString
			qJSON       string
		)
		if err := rows.Scan(&ft.ID, &ft.Title, &description, &qJSON, &ft.RequiresSignature); err != nil {
			return nil, fmt.Errorf("failed to scan form template: %w", err)
		}
		if err := json.Unmarshal([]byte(qJSON), &ft.Questions); err != nil {
			return nil, fmt.Errorf("corrupt questions for form template %s: %w", ft.ID, err)
		}
		ft.Description = description.String
		templates = append(templates, ft)
	}

	return templates, rows.Err()
}

// =============================================================================
// SNAPSHOT ASSEMBLY
// =============================================================================

// Snapshot loads every record set the engine evaluates over. One
// consistent read; the engine never touches the database afterwards.
func (s *Store) Snapshot(ctx context.Context) (*compliance.Snapshot, error) {
	snap := &compliance.Snapshot{}

	loaders := []struct {
		name string
		load func() error
	}{
		{"assignments", func() (err error) { snap.Assignments, err = s.ListAssignments(ctx); return }},
		{"readings", func() (err error) { snap.Readings, err = s.ListReadings(ctx); return }},
		{"form responses", func() (err error) { snap.FormResponses, err = s.ListFormResponses(ctx); return }},
		{"holidays", func() (err error) { snap.Holidays, err = s.ListHolidays(ctx); return }},
		{"exceptions", func() (err error) { snap.Exceptions, err = s.ListExceptions(ctx); return }},
		{"users", func() (err error) { snap.Users, err = s.ListUsers(ctx); return }},
		{"facilities", func() (err error) { snap.Facilities, err = s.ListFacilities(ctx); return }},
		{"facility types", func() (err error) { snap.FacilityTypes, err = s.ListFacilityTypes(ctx); return }},
		{"refrigerators", func() (err error) { snap.Refrigerators, err = s.ListRefrigerators(ctx); return }},
		{"refrigerator types", func() (err error) { snap.RefrigeratorTypes, err = s.ListRefrigeratorTypes(ctx); return }},
		{"cooking methods", func() (err error) { snap.CookingMethods, err = s.ListCookingMethods(ctx); return }},
		{"menus", func() (err error) { snap.Menus, err = s.ListMenus(ctx); return }},
		{"form templates", func() (err error) { snap.Forms, err = s.ListFormTemplates(ctx); return }},
	}

	for _, l := range loaders {
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.name, err)
		}
	}

	return snap, nil
}

// Reset clears every table. Demo/dev only; it destroys the audit trail.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"readings", "form_responses", "alerts", "assignments",
		"holidays", "facility_exceptions", "users", "facility_types",
		"facilities", "refrigerators", "refrigerator_types",
		"cooking_methods", "menus", "form_templates",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) deleteByID(ctx context.Context, table, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return compliance.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseStoredDate(s string) compliance.Date {
	d, _ := compliance.ParseDate(s)
	return d
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
