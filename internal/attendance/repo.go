package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"qrattend/internal/store"
)

// Status is the closed set of ledger record statuses.
type Status string

const (
	StatusCheckIn  Status = "check_in"
	StatusCheckOut Status = "check_out"
)

var (
	// ErrIntegrity is returned when an append references a student that
	// does not exist at write time.
	ErrIntegrity = errors.New("attendance record references unknown student")

	// ErrDuplicateScan is returned when a student who already checked in
	// and out today scans again. No record is written.
	ErrDuplicateScan = errors.New("attendance already completed for today")

	// ErrNotFound is returned when a record id does not resolve.
	ErrNotFound = errors.New("attendance record not found")
)

// Record is an attendance event. Once written it is immutable except through
// administrative correction.
type Record struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Status    Status    `db:"status" json:"status"`
}

// DeletedStudentPlaceholder is rendered for records whose student was later
// removed; history is preserved for audit and must still display.
const DeletedStudentPlaceholder = "(deleted student)"

// RecordView is a ledger row joined with student identity for presentation.
type RecordView struct {
	Record
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

// RecordUpdate carries partial administrative corrections; nil fields are
// left unchanged. Corrections bypass state-machine validation on purpose.
type RecordUpdate struct {
	Timestamp *time.Time
	Status    *Status
}

// Filter narrows ledger queries.
type Filter struct {
	// Day restricts results to [DayStart, DayEnd). Zero values mean no filter.
	DayStart time.Time
	DayEnd   time.Time
	// StudentID restricts to one student when non-empty.
	StudentID string
}

// Repository is the durable attendance ledger, the sole source of truth for
// "last status for student X".
type Repository struct {
	db *store.DB
}

// NewRepository creates a ledger bound to the active backend.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

// Append writes one record after verifying the referenced student exists.
// The existence check and the insert share a transaction so a concurrent
// student deletion cannot slip between them.
func (r *Repository) Append(ctx context.Context, rec Record) (Record, error) {
	tx, err := r.db.Client.BeginTxx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	rec, err = r.appendTx(ctx, tx, rec)
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Repository) appendTx(ctx context.Context, tx *sqlx.Tx, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	// Stored in UTC: sqlite compares DATETIME lexicographically, so mixed
	// offsets would break ordering and window queries.
	rec.Timestamp = rec.Timestamp.UTC()

	var exists int
	err := tx.GetContext(ctx, &exists, r.db.Rebind(
		`SELECT COUNT(*) FROM students WHERE id = ?`,
	), rec.StudentID)
	if err != nil {
		return Record{}, err
	}
	if exists == 0 {
		return Record{}, ErrIntegrity
	}

	_, err = tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO attendance (id, student_id, timestamp, status)
		VALUES (?, ?, ?, ?)
	`), rec.ID, rec.StudentID, rec.Timestamp, rec.Status)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// LatestFor returns the most recent record for a student within the window,
// or nil when the student has no record there yet.
func (r *Repository) LatestFor(ctx context.Context, studentID string, from, to time.Time) (*Record, error) {
	return r.latestForTx(ctx, r.db.Client, studentID, from, to)
}

// latestForTx runs against any queryer so the state machine can read inside
// its own transaction.
func (r *Repository) latestForTx(ctx context.Context, q sqlx.QueryerContext, studentID string, from, to time.Time) (*Record, error) {
	var rec Record
	err := sqlx.GetContext(ctx, q, &rec, r.db.Rebind(`
		SELECT id, student_id, timestamp, status
		FROM attendance
		WHERE student_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT 1
	`), studentID, from.UTC(), to.UTC())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.db.Client.GetContext(ctx, &rec, r.db.Rebind(`
		SELECT id, student_id, timestamp, status FROM attendance WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Query returns records joined with student identity, newest first. Records
// whose student was deleted render with a placeholder instead of failing.
func (r *Repository) Query(ctx context.Context, f Filter) ([]RecordView, error) {
	query := `
		SELECT a.id, a.student_id, a.timestamp, a.status, s.full_name, s.email
		FROM attendance a
		LEFT JOIN students s ON s.id = a.student_id`
	args := []any{}
	clauses := []string{}
	if !f.DayStart.IsZero() {
		clauses = append(clauses, "a.timestamp >= ?")
		args = append(args, f.DayStart.UTC())
	}
	if !f.DayEnd.IsZero() {
		clauses = append(clauses, "a.timestamp < ?")
		args = append(args, f.DayEnd.UTC())
	}
	if f.StudentID != "" {
		clauses = append(clauses, "a.student_id = ?")
		args = append(args, f.StudentID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY a.timestamp DESC"

	rows, err := r.db.Client.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []RecordView
	for rows.Next() {
		var v RecordView
		var name, email sql.NullString
		if err := rows.Scan(&v.ID, &v.StudentID, &v.Timestamp, &v.Status, &name, &email); err != nil {
			return nil, err
		}
		if name.Valid {
			v.StudentName = name.String
			v.StudentEmail = email.String
		} else {
			v.StudentName = DeletedStudentPlaceholder
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// Update applies administrative corrections to a record. State-machine rules
// are not re-checked: administrators may intentionally create non-alternating
// history to fix mistaken scans.
func (r *Repository) Update(ctx context.Context, id string, upd RecordUpdate) (*Record, error) {
	sets, args := []string{}, []any{}
	if upd.Timestamp != nil {
		sets = append(sets, "timestamp = ?")
		args = append(args, upd.Timestamp.UTC())
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(
		`UPDATE attendance SET `+joinClauses(sets, ", ")+` WHERE id = ?`,
	), args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes a record; an administrative escape hatch only.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`DELETE FROM attendance WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAll returns the ledger cardinality.
func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.db.Client.GetContext(ctx, &n, `SELECT COUNT(*) FROM attendance`)
	return n, err
}

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
