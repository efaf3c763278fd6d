/*
Package memory provides the in-memory storage backend (testing/dev).

PURPOSE:
  Implements the timesheet repository contracts and the unit-of-work
  boundary entirely in process memory. Used by tests and by the server
  when no database path is configured.

CONCURRENCY:
  One mutex serializes units of work. The optimistic version check is
  still enforced per aggregate so conflict behavior matches the durable
  backends exactly.

TRANSACTIONS:
  WithTx snapshots the whole store before running fn and restores the
  snapshot if fn fails, giving the same all-or-nothing semantics a
  database transaction provides.

SEE ALSO:
  - store/sqlite:   durable single-file backend
  - store/postgres: durable server backend
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

// =============================================================================
// STORE
// =============================================================================

type worklogMeta struct {
	MemberID uuid.UUID
	Date     generic.TimePoint
	Deleted  bool
}

type absenceMeta struct {
	MemberID uuid.UUID
	Date     generic.TimePoint
	Deleted  bool
}

type approvalMeta struct {
	MemberID uuid.UUID
	Period   generic.Period
}

// Store holds event streams, the aggregate registry, and the read-side
// index rows the range lookups need.
type Store struct {
	mu        sync.Mutex
	streams   map[uuid.UUID][]generic.Event
	registry  map[uuid.UUID]generic.RegistryEntry
	worklogs  map[uuid.UUID]worklogMeta
	absences  map[uuid.UUID]absenceMeta
	approvals map[uuid.UUID]approvalMeta
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		streams:   make(map[uuid.UUID][]generic.Event),
		registry:  make(map[uuid.UUID]generic.RegistryEntry),
		worklogs:  make(map[uuid.UUID]worklogMeta),
		absences:  make(map[uuid.UUID]absenceMeta),
		approvals: make(map[uuid.UUID]approvalMeta),
	}
}

var _ timesheet.UnitOfWork = (*Store)(nil)

// WithTx runs fn against transactional repository views. On error the
// pre-transaction snapshot is restored.
func (s *Store) WithTx(ctx context.Context, fn func(timesheet.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	repos := timesheet.Repositories{
		WorkLogs:  &worklogRepo{s: s},
		Absences:  &absenceRepo{s: s},
		Approvals: &approvalRepo{s: s},
	}

	if err := fn(repos); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	streams   map[uuid.UUID][]generic.Event
	registry  map[uuid.UUID]generic.RegistryEntry
	worklogs  map[uuid.UUID]worklogMeta
	absences  map[uuid.UUID]absenceMeta
	approvals map[uuid.UUID]approvalMeta
}

func (s *Store) snapshot() storeSnapshot {
	streams := make(map[uuid.UUID][]generic.Event, len(s.streams))
	for id, evs := range s.streams {
		streams[id] = append([]generic.Event(nil), evs...)
	}
	registry := make(map[uuid.UUID]generic.RegistryEntry, len(s.registry))
	for id, r := range s.registry {
		registry[id] = r
	}
	worklogs := make(map[uuid.UUID]worklogMeta, len(s.worklogs))
	for id, m := range s.worklogs {
		worklogs[id] = m
	}
	absences := make(map[uuid.UUID]absenceMeta, len(s.absences))
	for id, m := range s.absences {
		absences[id] = m
	}
	approvals := make(map[uuid.UUID]approvalMeta, len(s.approvals))
	for id, m := range s.approvals {
		approvals[id] = m
	}
	return storeSnapshot{streams: streams, registry: registry, worklogs: worklogs, absences: absences, approvals: approvals}
}

func (s *Store) restore(snap storeSnapshot) {
	s.streams = snap.streams
	s.registry = snap.registry
	s.worklogs = snap.worklogs
	s.absences = snap.absences
	s.approvals = snap.approvals
}

// commit enforces the optimistic version check and appends the pending
// events. Shared by the three repositories.
func (s *Store) commit(aggregateType string, id uuid.UUID, persistedVersion, newVersion int, pending []generic.Event) error {
	actual := 0
	if reg, ok := s.registry[id]; ok {
		actual = reg.Version
	}
	if actual != persistedVersion {
		return &generic.ConflictError{
			AggregateType: aggregateType,
			ID:            id,
			Expected:      persistedVersion,
			Actual:        actual,
		}
	}
	s.streams[id] = append(s.streams[id], pending...)
	s.registry[id] = generic.RegistryEntry{AggregateID: id, AggregateType: aggregateType, Version: newVersion}
	return nil
}

// =============================================================================
// WORK LOG REPOSITORY
// =============================================================================

type worklogRepo struct {
	s *Store
}

func (r *worklogRepo) FindByID(_ context.Context, id uuid.UUID) (*timesheet.WorkLogEntry, error) {
	meta, ok := r.s.worklogs[id]
	if !ok || meta.Deleted {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateWorkLog, ID: id, Code: timesheet.CodeWorkLogNotFound}
	}
	return timesheet.ReplayWorkLogEntry(id, r.s.streams[id])
}

func (r *worklogRepo) Save(_ context.Context, entry *timesheet.WorkLogEntry) error {
	pending := entry.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	err := r.s.commit(timesheet.AggregateWorkLog, entry.ID(), entry.PersistedVersion(), entry.Version(), pending)
	if err != nil {
		return err
	}
	r.s.worklogs[entry.ID()] = worklogMeta{MemberID: entry.MemberID(), Date: entry.Date(), Deleted: entry.Deleted()}
	entry.ClearPending()
	return nil
}

func (r *worklogRepo) IDsInRange(_ context.Context, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, meta := range r.s.worklogs {
		if meta.Deleted || meta.MemberID != memberID {
			continue
		}
		if period.Contains(meta.Date) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

// =============================================================================
// ABSENCE REPOSITORY
// =============================================================================

type absenceRepo struct {
	s *Store
}

func (r *absenceRepo) FindByID(_ context.Context, id uuid.UUID) (*timesheet.Absence, error) {
	meta, ok := r.s.absences[id]
	if !ok || meta.Deleted {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateAbsence, ID: id, Code: timesheet.CodeAbsenceNotFound}
	}
	return timesheet.ReplayAbsence(id, r.s.streams[id])
}

func (r *absenceRepo) Save(_ context.Context, absence *timesheet.Absence) error {
	pending := absence.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	err := r.s.commit(timesheet.AggregateAbsence, absence.ID(), absence.PersistedVersion(), absence.Version(), pending)
	if err != nil {
		return err
	}
	r.s.absences[absence.ID()] = absenceMeta{MemberID: absence.MemberID(), Date: absence.Date(), Deleted: absence.Deleted()}
	absence.ClearPending()
	return nil
}

func (r *absenceRepo) IDsInRange(_ context.Context, memberID uuid.UUID, period generic.Period) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, meta := range r.s.absences {
		if meta.Deleted || meta.MemberID != memberID {
			continue
		}
		if period.Contains(meta.Date) {
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

// =============================================================================
// MONTHLY APPROVAL REPOSITORY
// =============================================================================

type approvalRepo struct {
	s *Store
}

func (r *approvalRepo) FindByID(_ context.Context, id uuid.UUID) (*timesheet.MonthlyApproval, error) {
	if _, ok := r.s.approvals[id]; !ok {
		return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateApproval, ID: id, Code: timesheet.CodeApprovalNotFound}
	}
	return timesheet.ReplayMonthlyApproval(id, r.s.streams[id])
}

func (r *approvalRepo) Save(_ context.Context, approval *timesheet.MonthlyApproval) error {
	pending := approval.PendingEvents()
	if len(pending) == 0 {
		return nil
	}
	err := r.s.commit(timesheet.AggregateApproval, approval.ID(), approval.PersistedVersion(), approval.Version(), pending)
	if err != nil {
		return err
	}
	r.s.approvals[approval.ID()] = approvalMeta{MemberID: approval.MemberID(), Period: approval.Period()}
	approval.ClearPending()
	return nil
}

func (r *approvalRepo) FindByMemberAndPeriod(ctx context.Context, memberID uuid.UUID, period generic.Period) (*timesheet.MonthlyApproval, error) {
	for id, meta := range r.s.approvals {
		if meta.MemberID == memberID && meta.Period.Equal(period) {
			return r.FindByID(ctx, id)
		}
	}
	return nil, &generic.NotFoundError{AggregateType: timesheet.AggregateApproval, Code: timesheet.CodeApprovalNotFound}
}

// sortIDs keeps range lookups deterministic across map iteration order.
func sortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
