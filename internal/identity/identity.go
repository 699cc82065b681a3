package identity

import (
	"errors"
	"time"
)

// Role is the closed set of caller roles. Access-control branches switch on
// this rather than a boolean flag; every Teacher is an administrator.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

var (
	// ErrNotFound is returned when a referenced identity does not exist.
	// Repeating a delete on an already-deleted id also yields ErrNotFound;
	// callers treat it as the deletion having taken effect.
	ErrNotFound = errors.New("identity not found")

	// ErrDuplicateEmail is returned when an email is already registered
	// within the same role.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Student is an identity tracked by the attendance ledger.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Section      string    `db:"section" json:"section"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	GuardianName     string `db:"guardian_name" json:"guardian_name,omitempty"`
	GuardianEmail    string `db:"guardian_email" json:"guardian_email,omitempty"`
	GuardianPhone    string `db:"guardian_phone" json:"guardian_phone,omitempty"`
	NotifyOnCheckin  bool   `db:"notify_on_checkin" json:"notify_on_checkin"`
	NotifyOnCheckout bool   `db:"notify_on_checkout" json:"notify_on_checkout"`
}

// Teacher is a privileged identity; all teachers hold administrative rights.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Section      string    `db:"section" json:"section"`
	GradeLevel   string    `db:"grade_level" json:"grade_level"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StudentUpdate carries partial field updates; nil fields are left unchanged.
type StudentUpdate struct {
	FullName         *string
	Email            *string
	Section          *string
	GradeLevel       *string
	GuardianName     *string
	GuardianEmail    *string
	GuardianPhone    *string
	NotifyOnCheckin  *bool
	NotifyOnCheckout *bool
}

// TeacherUpdate carries partial field updates; nil fields are left unchanged.
type TeacherUpdate struct {
	FullName   *string
	Email      *string
	Section    *string
	GradeLevel *string
}
