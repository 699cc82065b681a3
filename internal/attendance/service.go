package attendance

import (
	"context"
	"sync"
	"time"
)

// Machine decides whether a scan is a check-in or a check-out, or rejects it.
// Per student, per tracking day the cycle is:
//
//	no record -> check_in -> check_out -> rejected (ErrDuplicateScan)
//
// A new day resets the cycle; there is no re-entry within the same day except
// through administrative correction.
type Machine struct {
	repo *Repository
	loc  *time.Location

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMachine creates a state machine computing day boundaries in loc.
func NewMachine(repo *Repository, loc *time.Location) *Machine {
	if loc == nil {
		loc = time.UTC
	}
	return &Machine{
		repo:  repo,
		loc:   loc,
		locks: make(map[string]*sync.Mutex),
	}
}

// DayWindow returns the tracking-day bounds [start, end) containing ts,
// a pure function of the timestamp and the configured timezone.
func (m *Machine) DayWindow(ts time.Time) (time.Time, time.Time) {
	local := ts.In(m.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, m.loc)
	return start, start.Add(24 * time.Hour)
}

// Scan records an attendance event for the student at now. The timestamp is
// server-assigned by the caller at receipt; client clocks are never trusted.
// Exactly one ledger row is appended on success, none on rejection.
//
// The read-decide-write sequence is serialized per student: two concurrent
// scans for the same student cannot both land as check_in, while scans for
// different students proceed in parallel.
func (m *Machine) Scan(ctx context.Context, studentID string, now time.Time) (Record, error) {
	lock := m.studentLock(studentID)
	lock.Lock()
	defer lock.Unlock()

	dayStart, dayEnd := m.DayWindow(now)

	tx, err := m.repo.db.Client.BeginTxx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	latest, err := m.repo.latestForTx(ctx, tx, studentID, dayStart, dayEnd)
	if err != nil {
		return Record{}, err
	}

	var status Status
	switch {
	case latest == nil:
		status = StatusCheckIn
	case latest.Status == StatusCheckIn:
		status = StatusCheckOut
	default:
		return Record{}, ErrDuplicateScan
	}

	// Per-student record order must be strict even when scans land on the
	// same clock tick; the alternation invariant reads records by timestamp.
	ts := now
	if latest != nil && !ts.After(latest.Timestamp) {
		ts = latest.Timestamp.Add(time.Microsecond)
	}

	rec, err := m.repo.appendTx(ctx, tx, Record{
		StudentID: studentID,
		Timestamp: ts,
		Status:    status,
	})
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// studentLock returns the mutex guarding one student's scan cycle.
func (m *Machine) studentLock(studentID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[studentID] = lock
	}
	return lock
}
