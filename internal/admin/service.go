package admin

import (
	"context"
	"errors"
	"time"

	"qrattend/internal/attendance"
	"qrattend/internal/identity"
)

// ErrForbidden is returned when the caller does not hold the Teacher role.
// The check runs before any store access, so a forbidden call neither
// mutates nor leaks data.
var ErrForbidden = errors.New("teacher role required")

// Stats are read-through cardinalities, exact as of the query and
// uncached.
type Stats struct {
	Students          int `json:"students"`
	Teachers          int `json:"teachers"`
	AttendanceRecords int `json:"attendance_records"`
}

// Service is the single entry point privileged callers use to inspect and
// correct state. It orchestrates the identity store and the ledger and
// carries the access-control contract.
type Service struct {
	ids    *identity.Repository
	ledger *attendance.Repository
	loc    *time.Location
}

// NewService creates the administrative facade. loc determines how a plain
// date filter expands into a tracking-day window.
func NewService(ids *identity.Repository, ledger *attendance.Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{ids: ids, ledger: ledger, loc: loc}
}

func (s *Service) authorize(role identity.Role) error {
	if role != identity.RoleTeacher {
		return ErrForbidden
	}
	return nil
}

// ListAttendance returns ledger records joined with student identity, newest
// first. A non-nil day narrows results to that tracking day.
func (s *Service) ListAttendance(ctx context.Context, role identity.Role, day *time.Time) ([]attendance.RecordView, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	var f attendance.Filter
	if day != nil {
		local := day.In(s.loc)
		f.DayStart = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
		f.DayEnd = f.DayStart.Add(24 * time.Hour)
	}
	return s.ledger.Query(ctx, f)
}

// UpdateRecord applies an administrative correction to a ledger row.
func (s *Service) UpdateRecord(ctx context.Context, role identity.Role, id string, upd attendance.RecordUpdate) (*attendance.Record, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ledger.Update(ctx, id, upd)
}

// DeleteRecord removes a ledger row.
func (s *Service) DeleteRecord(ctx context.Context, role identity.Role, id string) error {
	if err := s.authorize(role); err != nil {
		return err
	}
	return s.ledger.Delete(ctx, id)
}

// ListStudents returns all students.
func (s *Service) ListStudents(ctx context.Context, role identity.Role) ([]identity.Student, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ids.ListStudents(ctx)
}

// GetStudent returns one student by id.
func (s *Service) GetStudent(ctx context.Context, role identity.Role, id string) (*identity.Student, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ids.GetStudent(ctx, id)
}

// UpdateStudent applies partial updates to a student.
func (s *Service) UpdateStudent(ctx context.Context, role identity.Role, id string, upd identity.StudentUpdate) (*identity.Student, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ids.UpdateStudent(ctx, id, upd)
}

// DeleteStudent removes a student from the identity store. Their attendance
// history stays in the ledger for audit; listings render a placeholder.
func (s *Service) DeleteStudent(ctx context.Context, role identity.Role, id string) error {
	if err := s.authorize(role); err != nil {
		return err
	}
	return s.ids.DeleteStudent(ctx, id)
}

// CreateTeacher registers a new teacher account.
func (s *Service) CreateTeacher(ctx context.Context, role identity.Role, t *identity.Teacher) error {
	if err := s.authorize(role); err != nil {
		return err
	}
	return s.ids.CreateTeacher(ctx, t)
}

// ListTeachers returns all teachers.
func (s *Service) ListTeachers(ctx context.Context, role identity.Role) ([]identity.Teacher, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ids.ListTeachers(ctx)
}

// GetTeacher returns one teacher by id.
func (s *Service) GetTeacher(ctx context.Context, role identity.Role, id string) (*identity.Teacher, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ids.GetTeacher(ctx, id)
}

// UpdateTeacher applies partial updates to a teacher.
func (s *Service) UpdateTeacher(ctx context.Context, role identity.Role, id string, upd identity.TeacherUpdate) (*identity.Teacher, error) {
	if err := s.authorize(role); err != nil {
		return nil, err
	}
	return s.ids.UpdateTeacher(ctx, id, upd)
}

// DeleteTeacher removes a teacher.
func (s *Service) DeleteTeacher(ctx context.Context, role identity.Role, id string) error {
	if err := s.authorize(role); err != nil {
		return err
	}
	return s.ids.DeleteTeacher(ctx, id)
}

// DBStats returns {students, teachers, attendance_records} counts.
func (s *Service) DBStats(ctx context.Context, role identity.Role) (Stats, error) {
	if err := s.authorize(role); err != nil {
		return Stats{}, err
	}
	students, err := s.ids.CountStudents(ctx)
	if err != nil {
		return Stats{}, err
	}
	teachers, err := s.ids.CountTeachers(ctx)
	if err != nil {
		return Stats{}, err
	}
	records, err := s.ledger.CountAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Students: students, Teachers: teachers, AttendanceRecords: records}, nil
}
