/*
Package postgres provides the PostgreSQL-backed storage backend.

PURPOSE:
  Same contracts and table shapes as store/sqlite, on a pgx connection
  pool. The optimistic-lock check is the canonical single conditional
  UPDATE (WHERE version = $n); PostgreSQL's row locking makes the
  check-and-append atomic inside the surrounding transaction.

SCHEMA:
  Apply Schema (below) once at deploy time; Migrate runs it for
  development convenience.

USAGE:
  pool, err := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
  store := postgres.New(pool)
  svc := timesheet.NewService(store)

SEE ALSO:
  - store/sqlite: the single-file counterpart and package doc
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// Schema creates the event log, registry, and read-model tables.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	aggregate_id UUID NOT NULL,
	version INTEGER NOT NULL,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (aggregate_id, version)
);

CREATE TABLE IF NOT EXISTS aggregates (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS worklog_index (
	id UUID PRIMARY KEY,
	member_id UUID NOT NULL,
	project_id UUID NOT NULL,
	entry_date DATE NOT NULL,
	status TEXT NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_worklog_member_date ON worklog_index(member_id, entry_date);

CREATE TABLE IF NOT EXISTS absence_index (
	id UUID PRIMARY KEY,
	member_id UUID NOT NULL,
	absence_date DATE NOT NULL,
	status TEXT NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_absence_member_date ON absence_index(member_id, absence_date);

CREATE TABLE IF NOT EXISTS approval_index (
	id UUID PRIMARY KEY,
	member_id UUID NOT NULL,
	period_start DATE NOT NULL,
	period_end DATE NOT NULL,
	status TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_approval_member_period
	ON approval_index(member_id, period_start, period_end);
`

// Store implements timesheet.UnitOfWork over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the schema. Development convenience.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

var _ timesheet.UnitOfWork = (*Store)(nil)

// WithTx wraps fn in one database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(timesheet.Repositories) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	repos := timesheet.Repositories{
		WorkLogs:  &worklogRepo{q: tx},
		Absences:  &absenceRepo{q: tx},
		Approvals: &approvalRepo{q: tx},
	}

	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by pgx.Tx and *pgxpool.Pool.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// SHARED EVENT-LOG OPERATIONS
// =============================================================================

func loadEvents(ctx context.Context, q querier, aggregateType string, id uuid.UUID) ([]generic.Event, error) {
	rows, err := q.Query(ctx,
		`SELECT kind, payload FROM events WHERE aggregate_id = $1 ORDER BY version`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	defer rows.Close()

	var events []generic.Event
	for rows.Next() {
		var kind string
		var payload []byte
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, err
		}
		ev, err := timesheet.DecodeEvent(aggregateType, kind, payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func appendEvents(ctx context.Context, q querier, aggregateType string, id uuid.UUID, persistedVersion, newVersion int, pending []generic.Event) error {
	if persistedVersion == 0 {
		_, err := q.Exec(ctx,
			`INSERT INTO aggregates (id, aggregate_type, version) VALUES ($1, $2, $3)`,
			id, aggregateType, newVersion)
		if err != nil {
			actual := currentVersion(ctx, q, id)
			return &generic.ConflictError{AggregateType: aggregateType, ID: id, Expected: 0, Actual: actual}
		}
	} else {
		tag, err := q.Exec(ctx,
			`UPDATE aggregates SET version = $1 WHERE id = $2 AND version = $3`,
			newVersion, id, persistedVersion)
		if err != nil {
			return fmt.Errorf("failed to advance version: %w", err)
		}
		if tag.RowsAffected() == 0 {
			actual := currentVersion(ctx, q, id)
			return &generic.ConflictError{AggregateType: aggregateType, ID: id, Expected: persistedVersion, Actual: actual}
		}
	}

	version := persistedVersion
	now := time.Now().UTC()
	for _, ev := range pending {
		version++
		payload, err := timesheet.EncodeEvent(ev)
		if err != nil {
			return fmt.Errorf("failed to encode event %s: %w", ev.Kind(), err)
		}
		_, err = q.Exec(ctx,
			`INSERT INTO events (aggregate_id, version, kind, payload, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
			id, version, ev.Kind(), payload, now)
		if err != nil {
			return fmt.Errorf("failed to append event %s: %w", ev.Kind(), err)
		}
	}
	return nil
}

func currentVersion(ctx context.Context, q querier, id uuid.UUID) int {
	var v int
	_ = q.QueryRow(ctx, `SELECT version FROM aggregates WHERE id = $1`, id).Scan(&v)
	return v
}

func idsInRange(ctx context.Context, q querier, table, dateColumn string, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error) {
	query := fmt.Sprintf(
		`SELECT id FROM %s WHERE member_id = $1 AND NOT deleted AND %s >= $2 AND %s <= $3 ORDER BY %s, id`,
		table, dateColumn, dateColumn, dateColumn)
	rows, err := q.Query(ctx, query, memberID, period.Start.Time, period.End.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
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
	err := r.q.QueryRow(ctx, `SELECT deleted FROM worklog_index WHERE id = $1`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && deleted) {
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
	_, err = r.q.Exec(ctx, `
		INSERT INTO worklog_index (id, member_id, project_id, entry_date, status, deleted)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET entry_date = EXCLUDED.entry_date,
			status = EXCLUDED.status, deleted = EXCLUDED.deleted`,
		entry.ID(), entry.MemberID(), entry.ProjectID(),
		entry.Date().Time, string(entry.Status()), entry.Deleted())
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
	err := r.q.QueryRow(ctx, `SELECT deleted FROM absence_index WHERE id = $1`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && deleted) {
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
	_, err = r.q.Exec(ctx, `
		INSERT INTO absence_index (id, member_id, absence_date, status, deleted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET absence_date = EXCLUDED.absence_date,
			status = EXCLUDED.status, deleted = EXCLUDED.deleted`,
		absence.ID(), absence.MemberID(),
		absence.Date().Time, string(absence.Status()), absence.Deleted())
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
	err := r.q.QueryRow(ctx, `SELECT 1 FROM approval_index WHERE id = $1`, id).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
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
	_, err = r.q.Exec(ctx, `
		INSERT INTO approval_index (id, member_id, period_start, period_end, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		approval.ID(), approval.MemberID(),
		approval.Period().Start.Time, approval.Period().End.Time, string(approval.Status()))
	if err != nil {
		return fmt.Errorf("failed to update approval index: %w", err)
	}
	approval.ClearPending()
	return nil
}

func (r *approvalRepo) FindByMemberAndPeriod(ctx context.Context, memberID uuid.UUID, period generic.Period) (*timesheet.MonthlyApproval, error) {
	var id uuid.UUID
	err := r.q.QueryRow(ctx,
		`SELECT id FROM approval_index WHERE member_id = $1 AND period_start = $2 AND period_end = $3`,
		memberID, period.Start.Time, period.End.Time).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateApproval, Code: timesheet.CodeApprovalNotFound}
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}
