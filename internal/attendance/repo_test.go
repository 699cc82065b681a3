package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/identity"
)

func TestAppendRejectsUnknownStudent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)

	_, err := repo.Append(context.Background(), Record{
		StudentID: "ghost",
		Status:    StatusCheckIn,
	})
	require.ErrorIs(t, err, ErrIntegrity)

	n, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLatestFor(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	student := newTestStudent(t, db, "latest@example.com")
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, Record{StudentID: student.ID, Timestamp: base, Status: StatusCheckIn})
	require.NoError(t, err)
	_, err = repo.Append(ctx, Record{StudentID: student.ID, Timestamp: base.Add(time.Hour), Status: StatusCheckOut})
	require.NoError(t, err)

	latest, err := repo.LatestFor(ctx, student.ID, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, StatusCheckOut, latest.Status)

	// Outside the window there is nothing.
	latest, err = repo.LatestFor(ctx, student.ID, base.Add(-48*time.Hour), base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestQueryJoinsAndOrders(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	student := newTestStudent(t, db, "join@example.com")
	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

	_, err := repo.Append(ctx, Record{StudentID: student.ID, Timestamp: base, Status: StatusCheckIn})
	require.NoError(t, err)
	_, err = repo.Append(ctx, Record{StudentID: student.ID, Timestamp: base.Add(time.Hour), Status: StatusCheckOut})
	require.NoError(t, err)

	records, err := repo.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first, joined with identity.
	assert.Equal(t, StatusCheckOut, records[0].Status)
	assert.Equal(t, "Test Student", records[0].StudentName)
	assert.Equal(t, "join@example.com", records[0].StudentEmail)
}

func TestQueryPlaceholderForDeletedStudent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ids := identity.NewRepository(db)
	ctx := context.Background()

	student := newTestStudent(t, db, "gone@example.com")
	_, err := repo.Append(ctx, Record{StudentID: student.ID, Status: StatusCheckIn})
	require.NoError(t, err)

	require.NoError(t, ids.DeleteStudent(ctx, student.ID))

	records, err := repo.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, DeletedStudentPlaceholder, records[0].StudentName)
	assert.Empty(t, records[0].StudentEmail)
}

func TestQueryDayFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	student := newTestStudent(t, db, "dayfilter@example.com")
	day1 := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	_, err := repo.Append(ctx, Record{StudentID: student.ID, Timestamp: day1, Status: StatusCheckIn})
	require.NoError(t, err)
	_, err = repo.Append(ctx, Record{StudentID: student.ID, Timestamp: day2, Status: StatusCheckIn})
	require.NoError(t, err)

	start := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	records, err := repo.Query(ctx, Filter{DayStart: start, DayEnd: start.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, day1.Unix(), records[0].Timestamp.Unix())
}

func TestAdminCorrectionsBypassValidation(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	student := newTestStudent(t, db, "correct@example.com")
	rec, err := repo.Append(ctx, Record{StudentID: student.ID, Status: StatusCheckIn})
	require.NoError(t, err)

	// Flipping a record to check_out without a preceding check_in elsewhere
	// is allowed; administrators fix mistakes directly.
	status := StatusCheckOut
	updated, err := repo.Update(ctx, rec.ID, RecordUpdate{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusCheckOut, updated.Status)

	require.NoError(t, repo.Delete(ctx, rec.ID))
	require.ErrorIs(t, repo.Delete(ctx, rec.ID), ErrNotFound)

	_, err = repo.Update(ctx, rec.ID, RecordUpdate{Status: &status})
	require.ErrorIs(t, err, ErrNotFound)
}
