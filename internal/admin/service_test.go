package admin

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/attendance"
	"qrattend/internal/config"
	"qrattend/internal/identity"
	"qrattend/internal/store"
)

type fixture struct {
	db      *store.DB
	ids     *identity.Repository
	ledger  *attendance.Repository
	machine *attendance.Machine
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(config.App{
		Mode:       config.ModeLocal,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ids := identity.NewRepository(db)
	ledger := attendance.NewRepository(db)
	return &fixture{
		db:      db,
		ids:     ids,
		ledger:  ledger,
		machine: attendance.NewMachine(ledger, time.UTC),
		svc:     NewService(ids, ledger, time.UTC),
	}
}

func (f *fixture) addStudent(t *testing.T, email string) *identity.Student {
	t.Helper()
	s := &identity.Student{FullName: "Student " + email, Email: email, PasswordHash: "x"}
	require.NoError(t, f.ids.CreateStudent(context.Background(), s))
	return s
}

func TestNonTeacherIsForbiddenEverywhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.addStudent(t, "victim@example.com")
	before, err := f.svc.DBStats(ctx, identity.RoleTeacher)
	require.NoError(t, err)

	_, err = f.svc.ListAttendance(ctx, identity.RoleStudent, nil)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.ListStudents(ctx, identity.RoleStudent)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.GetStudent(ctx, identity.RoleStudent, student.ID)
	require.ErrorIs(t, err, ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteStudent(ctx, identity.RoleStudent, student.ID), ErrForbidden)
	require.ErrorIs(t, f.svc.CreateTeacher(ctx, identity.RoleStudent, &identity.Teacher{
		FullName: "X", Email: "x@example.com", PasswordHash: "x",
	}), ErrForbidden)
	require.ErrorIs(t, f.svc.DeleteRecord(ctx, identity.RoleStudent, "any"), ErrForbidden)
	_, err = f.svc.DBStats(ctx, identity.RoleStudent)
	require.ErrorIs(t, err, ErrForbidden)

	// Nothing changed behind the store.
	after, err := f.svc.DBStats(ctx, identity.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDBStatsExactCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	students := []*identity.Student{
		f.addStudent(t, "s1@example.com"),
		f.addStudent(t, "s2@example.com"),
		f.addStudent(t, "s3@example.com"),
	}
	require.NoError(t, f.ids.CreateTeacher(ctx, &identity.Teacher{
		FullName: "T", Email: "t@example.com", PasswordHash: "x",
	}))

	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := f.ledger.Append(ctx, attendance.Record{
			StudentID: students[i%3].ID,
			Timestamp: base.Add(time.Duration(i) * 26 * time.Hour),
			Status:    attendance.StatusCheckIn,
		})
		require.NoError(t, err)
	}

	stats, err := f.svc.DBStats(ctx, identity.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, Stats{Students: 3, Teachers: 1, AttendanceRecords: 5}, stats)
}

func TestDeletedStudentKeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.addStudent(t, "history@example.com")
	_, err := f.machine.Scan(ctx, student.ID, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteStudent(ctx, identity.RoleTeacher, student.ID))

	_, err = f.svc.GetStudent(ctx, identity.RoleTeacher, student.ID)
	require.ErrorIs(t, err, identity.ErrNotFound)

	records, err := f.svc.ListAttendance(ctx, identity.RoleTeacher, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.DeletedStudentPlaceholder, records[0].StudentName)
}

func TestListAttendanceDayFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.addStudent(t, "filter@example.com")
	day1 := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	for _, ts := range []time.Time{day1, day2} {
		_, err := f.ledger.Append(ctx, attendance.Record{
			StudentID: student.ID, Timestamp: ts, Status: attendance.StatusCheckIn,
		})
		require.NoError(t, err)
	}

	records, err := f.svc.ListAttendance(ctx, identity.RoleTeacher, &day1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, day1.Unix(), records[0].Timestamp.Unix())

	all, err := f.svc.ListAttendance(ctx, identity.RoleTeacher, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRecordCorrections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.addStudent(t, "fixup@example.com")
	rec, err := f.machine.Scan(ctx, student.ID, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	status := attendance.StatusCheckOut
	updated, err := f.svc.UpdateRecord(ctx, identity.RoleTeacher, rec.ID, attendance.RecordUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckOut, updated.Status)

	require.NoError(t, f.svc.DeleteRecord(ctx, identity.RoleTeacher, rec.ID))
	require.ErrorIs(t, f.svc.DeleteRecord(ctx, identity.RoleTeacher, rec.ID), attendance.ErrNotFound)
}

func TestScanScenario(t *testing.T) {
	// Student scans at 08:00, 08:05 and 08:10 on one day: check_in,
	// check_out, then rejection with exactly two records on the ledger.
	f := newFixture(t)
	ctx := context.Background()

	student := f.addStudent(t, "seven@example.com")
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	first, err := f.machine.Scan(ctx, student.ID, base)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckIn, first.Status)

	second, err := f.machine.Scan(ctx, student.ID, base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusCheckOut, second.Status)

	_, err = f.machine.Scan(ctx, student.ID, base.Add(10*time.Minute))
	require.ErrorIs(t, err, attendance.ErrDuplicateScan)

	records, err := f.svc.ListAttendance(ctx, identity.RoleTeacher, &base)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
