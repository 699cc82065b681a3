package identity

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"qrattend/internal/store"
)

// Repository provides CRUD over students and teachers with email uniqueness
// enforced independently within each role.
type Repository struct {
	db *store.DB
}

// NewRepository creates a repo bound to the active backend.
func NewRepository(db *store.DB) *Repository {
	return &Repository{db: db}
}

const studentCols = `id, full_name, email, password_hash, section, grade_level,
	guardian_name, guardian_email, guardian_phone, notify_on_checkin, notify_on_checkout, created_at`

const teacherCols = `id, full_name, email, password_hash, section, grade_level, created_at`

// CreateStudent inserts a new student. ID and CreatedAt are assigned here
// when unset.
func (r *Repository) CreateStudent(ctx context.Context, s *Student) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO students (`+studentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), s.ID, s.FullName, s.Email, s.PasswordHash, s.Section, s.GradeLevel,
		s.GuardianName, s.GuardianEmail, s.GuardianPhone, s.NotifyOnCheckin, s.NotifyOnCheckout, s.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetStudent returns a student by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	var s Student
	err := r.db.Client.GetContext(ctx, &s, r.db.Rebind(`
		SELECT `+studentCols+` FROM students WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStudentByEmail returns a student by email, used by login.
func (r *Repository) GetStudentByEmail(ctx context.Context, email string) (*Student, error) {
	var s Student
	err := r.db.Client.GetContext(ctx, &s, r.db.Rebind(`
		SELECT `+studentCols+` FROM students WHERE email = ?
	`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStudents returns all students ordered by name.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	var res []Student
	err := r.db.Client.SelectContext(ctx, &res, `
		SELECT `+studentCols+` FROM students ORDER BY full_name
	`)
	return res, err
}

// UpdateStudent applies the non-nil fields of upd and returns the updated row.
func (r *Repository) UpdateStudent(ctx context.Context, id string, upd StudentUpdate) (*Student, error) {
	sets, args := []string{}, []any{}
	addSet := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if upd.FullName != nil {
		addSet("full_name", *upd.FullName)
	}
	if upd.Email != nil {
		addSet("email", *upd.Email)
	}
	if upd.Section != nil {
		addSet("section", *upd.Section)
	}
	if upd.GradeLevel != nil {
		addSet("grade_level", *upd.GradeLevel)
	}
	if upd.GuardianName != nil {
		addSet("guardian_name", *upd.GuardianName)
	}
	if upd.GuardianEmail != nil {
		addSet("guardian_email", *upd.GuardianEmail)
	}
	if upd.GuardianPhone != nil {
		addSet("guardian_phone", *upd.GuardianPhone)
	}
	if upd.NotifyOnCheckin != nil {
		addSet("notify_on_checkin", *upd.NotifyOnCheckin)
	}
	if upd.NotifyOnCheckout != nil {
		addSet("notify_on_checkout", *upd.NotifyOnCheckout)
	}
	if len(sets) == 0 {
		return r.GetStudent(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(
		`UPDATE students SET `+joinClauses(sets, ", ")+` WHERE id = ?`,
	), args...)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetStudent(ctx, id)
}

// DeleteStudent removes a student. Attendance history is deliberately left in
// place; the ledger holds only a weak reference.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`DELETE FROM students WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountStudents returns the student cardinality.
func (r *Repository) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.db.Client.GetContext(ctx, &n, `SELECT COUNT(*) FROM students`)
	return n, err
}

// CreateTeacher inserts a new teacher.
func (r *Repository) CreateTeacher(ctx context.Context, t *Teacher) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO teachers (`+teacherCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), t.ID, t.FullName, t.Email, t.PasswordHash, t.Section, t.GradeLevel, t.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetTeacher returns a teacher by id.
func (r *Repository) GetTeacher(ctx context.Context, id string) (*Teacher, error) {
	var t Teacher
	err := r.db.Client.GetContext(ctx, &t, r.db.Rebind(`
		SELECT `+teacherCols+` FROM teachers WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTeacherByEmail returns a teacher by email, used by login.
func (r *Repository) GetTeacherByEmail(ctx context.Context, email string) (*Teacher, error) {
	var t Teacher
	err := r.db.Client.GetContext(ctx, &t, r.db.Rebind(`
		SELECT `+teacherCols+` FROM teachers WHERE email = ?
	`), email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTeachers returns all teachers ordered by name.
func (r *Repository) ListTeachers(ctx context.Context) ([]Teacher, error) {
	var res []Teacher
	err := r.db.Client.SelectContext(ctx, &res, `
		SELECT `+teacherCols+` FROM teachers ORDER BY full_name
	`)
	return res, err
}

// UpdateTeacher applies the non-nil fields of upd and returns the updated row.
func (r *Repository) UpdateTeacher(ctx context.Context, id string, upd TeacherUpdate) (*Teacher, error) {
	sets, args := []string{}, []any{}
	addSet := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	if upd.FullName != nil {
		addSet("full_name", *upd.FullName)
	}
	if upd.Email != nil {
		addSet("email", *upd.Email)
	}
	if upd.Section != nil {
		addSet("section", *upd.Section)
	}
	if upd.GradeLevel != nil {
		addSet("grade_level", *upd.GradeLevel)
	}
	if len(sets) == 0 {
		return r.GetTeacher(ctx, id)
	}
	args = append(args, id)
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(
		`UPDATE teachers SET `+joinClauses(sets, ", ")+` WHERE id = ?`,
	), args...)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.GetTeacher(ctx, id)
}

// DeleteTeacher removes a teacher.
func (r *Repository) DeleteTeacher(ctx context.Context, id string) error {
	res, err := r.db.Client.ExecContext(ctx, r.db.Rebind(`DELETE FROM teachers WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTeachers returns the teacher cardinality.
func (r *Repository) CountTeachers(ctx context.Context) (int, error) {
	var n int
	err := r.db.Client.GetContext(ctx, &n, `SELECT COUNT(*) FROM teachers`)
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
