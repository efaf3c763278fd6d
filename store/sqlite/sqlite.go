/*
Package sqlite provides the SQLite-backed storage backend.

PURPOSE:
  Implements the timesheet repository contracts and the unit-of-work
  boundary on a single SQLite file. The same patterns apply to
  PostgreSQL (see store/postgres) - only dialect details differ.

APPEND-ONLY ENFORCEMENT:
  The events table is never updated or deleted. Record deletion is a
  deleted event plus an index-row flag; the history stays intact.

KEY TABLES:
  events:          Append-only event log, PK (aggregate_id, version)
  aggregates:      Registry of (id, type, current version)
  worklog_index:   Read model for member/date range resolution
  absence_index:   Same for absences
  approval_index:  Read model for (member, period) lookup

OPTIMISTIC LOCKING:
  The version check and append run inside one transaction; the check is
  a single conditional UPDATE (WHERE version = ?), so two writers racing
  on the same aggregate cannot both advance it.

WAL MODE:
  SQLite is opened with WAL so readers do not block the single writer.

USAGE:
  store, err := sqlite.New("./data/timesheet.db")
  svc := timesheet.NewService(store)

SEE ALSO:
  - timesheet/repository.go: the contracts implemented here
  - store/memory:            in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// Store implements timesheet.UnitOfWork over a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer at a time keeps the CAS commit race-free.
	db.SetMaxOpenConns(1)

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

func (s *Store) migrate() error {
	schema := `
	-- Event log (append-only)
	CREATE TABLE IF NOT EXISTS events (
		aggregate_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		PRIMARY KEY (aggregate_id, version)
	);

	-- Aggregate registry (current version per aggregate)
	CREATE TABLE IF NOT EXISTS aggregates (
		id TEXT PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		version INTEGER NOT NULL
	);

	-- Read models for range and period resolution
	CREATE TABLE IF NOT EXISTS worklog_index (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		status TEXT NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_worklog_member_date
		ON worklog_index(member_id, entry_date);

	CREATE TABLE IF NOT EXISTS absence_index (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		absence_date TEXT NOT NULL,
		status TEXT NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_absence_member_date
		ON absence_index(member_id, absence_date);

	CREATE TABLE IF NOT EXISTS approval_index (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_member_period
		ON approval_index(member_id, period_start, period_end);
	`
	_, err := s.db.Exec(schema)
	return err
}

var _ timesheet.UnitOfWork = (*Store)(nil)

// WithTx wraps fn in one database transaction. All repositories handed
// to fn share it, so a failure partway rolls back every staged write.
func (s *Store) WithTx(ctx context.Context, fn func(timesheet.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	repos := timesheet.Repositories{
		WorkLogs:  &worklogRepo{q: tx},
		Absences:  &absenceRepo{q: tx},
		Approvals: &approvalRepo{q: tx},
	}

	if err := fn(repos); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by *sql.Tx (and *sql.DB).
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SHARED EVENT-LOG OPERATIONS
// =============================================================================

func loadEvents(ctx context.Context, q querier, aggregateType string, id uuid.UUID) ([]generic.Event, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT kind, payload FROM events WHERE aggregate_id = ? ORDER BY version`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	var events []generic.Event
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, err
		}
		ev, err := timesheet.DecodeEvent(aggregateType, kind, []byte(payload))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// appendEvents performs the version-checked commit: advance the registry
// with a conditional write, then append the pending events.
func appendEvents(ctx context.Context, q querier, aggregateType string, id uuid.UUID, persistedVersion, newVersion int, pending []generic.Event) error {
	if persistedVersion == 0 {
		_, err := q.ExecContext(ctx,
			`INSERT INTO aggregates (id, aggregate_type, version) VALUES (?, ?, ?)`,
			id.String(), aggregateType, newVersion)
		if err != nil {
			// A row already there means someone created this aggregate first.
			actual := currentVersion(ctx, q, id)
			return &generic.ConflictError{AggregateType: aggregateType, ID: id, Expected: 0, Actual: actual}
		}
	} else {
		res, err := q.ExecContext(ctx,
			`UPDATE aggregates SET version = ? WHERE id = ? AND version = ?`,
			newVersion, id.String(), persistedVersion)
		if err != nil {
			return fmt.Errorf("failed to advance version: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			actual := currentVersion(ctx, q, id)
			return &generic.ConflictError{AggregateType: aggregateType, ID: id, Expected: persistedVersion, Actual: actual}
		}
	}

	version := persistedVersion
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, ev := range pending {
		version++
		payload, err := timesheet.EncodeEvent(ev)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", ev.Kind(), err)
		}
		_, err = q.ExecContext(ctx,
			`INSERT INTO events (aggregate_id, version, kind, payload, recorded_at) VALUES (?, ?, ?, ?, ?)`,
			id.String(), version, ev.Kind(), string(payload), now)
		if err != nil {
			return fmt.Errorf("failed to append event %s: %w", ev.Kind(), err)
		}
	}
	return nil
}

func currentVersion(ctx context.Context, q querier, id uuid.UUID) int {
	var v int
	_ = q.QueryRowContext(ctx, `SELECT version FROM aggregates WHERE id = ?`, id.String()).Scan(&v)
	return v
}

func idsInRange(ctx context.Context, q querier, table, dateColumn string, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error) {
	query := fmt.Sprintf(
		`SELECT id FROM %s WHERE member_id = ? AND deleted = 0 AND %s >= ? AND %s <= ? ORDER BY %s, id`,
		table, dateColumn, dateColumn, dateColumn)
	rows, err := q.QueryContext(ctx, query, memberID.String(), period.Start.String(), period.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt id in %s: %w", table, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// WORK LOG REPOSITORY
// =============================================================================

type worklogRepo struct {
	q querier
}

func (r *worklogRepo) FindByID(ctx context.Context, id uuid.UUID) (*timesheet.WorkLogEntry, error) {
	var deleted bool
	err := r.q.QueryRowContext(ctx,
		`SELECT deleted FROM worklog_index WHERE id = ?`, id.String()).Scan(&deleted)
	if err == sql.ErrNoRows || (err == nil && deleted) {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateWorkLog, ID: id, Code: timesheet.CodeWorkLogNotFound}
	}
	if err != nil {
		return nil, err
	}

	events, err := loadEvents(ctx, r.q, timesheet.AggregateWorkLog, id)
	if err != nil {
		return nil, err
	}
	return timesheet.ReplayWorkLogEntry(id, events)
}

func (r *worklogRepo) Save(ctx context.Context, entry *timesheet.WorkLogEntry) error {
	pending := entry.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	err := appendEvents(ctx, r.q, timesheet.AggregateWorkLog, entry.ID(), entry.PersistedVersion(), entry.Version(), pending)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO worklog_index (id, member_id, project_id, entry_date, status, deleted)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET entry_date = excluded.entry_date,
			status = excluded.status, deleted = excluded.deleted`,
		entry.ID().String(), entry.MemberID().String(), entry.ProjectID().String(),
		entry.Date().String(), string(entry.Status()), boolToInt(entry.Deleted()))
	if err != nil {
		return fmt.Errorf("failed to update worklog index: %w", err)
	}
	entry.ClearPending()
	return nil
}

func (r *worklogRepo) IDsInRange(ctx context.Context, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error) {
	return idsInRange(ctx, r.q, "worklog_index", "entry_date", memberID, period)
}

// =============================================================================
// ABSENCE REPOSITORY
// =============================================================================

type absenceRepo struct {
	q querier
}

func (r *absenceRepo) FindByID(ctx context.Context, id uuid.UUID) (*timesheet.Absence, error) {
	var deleted bool
	err := r.q.QueryRowContext(ctx,
		`SELECT deleted FROM absence_index WHERE id = ?`, id.String()).Scan(&deleted)
	if err == sql.ErrNoRows || (err == nil && deleted) {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateAbsence, ID: id, Code: timesheet.CodeAbsenceNotFound}
	}
	if err != nil {
		return nil, err
	}

	events, err := loadEvents(ctx, r.q, timesheet.AggregateAbsence, id)
	if err != nil {
		return nil, err
	}
	return timesheet.ReplayAbsence(id, events)
}

func (r *absenceRepo) Save(ctx context.Context, absence *timesheet.Absence) error {
	pending := absence.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	err := appendEvents(ctx, r.q, timesheet.AggregateAbsence, absence.ID(), absence.PersistedVersion(), absence.Version(), pending)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO absence_index (id, member_id, absence_date, status, deleted)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET absence_date = excluded.absence_date,
			status = excluded.status, deleted = excluded.deleted`,
		absence.ID().String(), absence.MemberID().String(),
		absence.Date().String(), string(absence.Status()), boolToInt(absence.Deleted()))
	if err != nil {
		return fmt.Errorf("failed to update absence index: %w", err)
	}
	absence.ClearPending()
	return nil
}

func (r *absenceRepo) IDsInRange(ctx context.Context, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error) {
	return idsInRange(ctx, r.q, "absence_index", "absence_date", memberID, period)
}

// =============================================================================
// MONTHLY APPROVAL REPOSITORY
// =============================================================================

type approvalRepo struct {
	q querier
}

func (r *approvalRepo) FindByID(ctx context.Context, id uuid.UUID) (*timesheet.MonthlyApproval, error) {
	var exists int
	err := r.q.QueryRowContext(ctx,
		`SELECT 1 FROM approval_index WHERE id = ?`, id.String()).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateApproval, ID: id, Code: timesheet.CodeApprovalNotFound}
	}
	if err != nil {
		return nil, err
	}

	events, err := loadEvents(ctx, r.q, timesheet.AggregateApproval, id)
	if err != nil {
		return nil, err
	}
	return timesheet.ReplayMonthlyApproval(id, events)
}

func (r *approvalRepo) Save(ctx context.Context, approval *timesheet.MonthlyApproval) error {
	pending := approval.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	err := appendEvents(ctx, r.q, timesheet.AggregateApproval, approval.ID(), approval.PersistedVersion(), approval.Version(), pending)
	if err != nil {
		return err
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO approval_index (id, member_id, period_start, period_end, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		approval.ID().String(), approval.MemberID().String(),
		approval.Period().Start.String(), approval.Period().End.String(), string(approval.Status()))
	if err != nil {
		return fmt.Errorf("failed to update approval index: %w", err)
	}
	approval.ClearPending()
	return nil
}

func (r *approvalRepo) FindByMemberAndPeriod(ctx context.Context, memberID uuid.UUID, period generic.Period) (*timesheet.MonthlyApproval, error) {
	var raw string
	err := r.q.QueryRowContext(ctx,
		`SELECT id FROM approval_index WHERE member_id = ? AND period_start = ? AND period_end = ?`,
		memberID.String(), period.Start.String(), period.End.String()).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateApproval, Code: timesheet.CodeApprovalNotFound}
	}
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt id in approval_index: %w", err)
	}
	return r.FindByID(ctx, id)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
