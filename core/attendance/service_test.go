package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core/attendance"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
)

func newTestService(t *testing.T) *attendance.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return attendance.NewService(dummydb.NewAttendanceRepository(db))
}

func TestService_Mark(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	records, err := svc.Mark(ctx, attendance.MarkAttendance{
		ClassID: "cls-1",
		Date:    date,
		Method:  attendance.MethodManual,
		Entries: []attendance.MarkEntry{
			{StudentID: "std-1", Status: attendance.StatusPresent},
			{StudentID: "std-2", Status: attendance.StatusAbsent, Note: "sick"},
		},
	}, "tch-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, attendance.StatusPresent, records[0].Status)
	assert.Equal(t, "tch-1", records[0].RecordedBy)
	assert.Equal(t, "sick", records[1].Note)

	// re-marking the same (student, class, date) overwrites, not duplicates
	records, err = svc.Mark(ctx, attendance.MarkAttendance{
		ClassID: "cls-1",
		Date:    date,
		Method:  attendance.MethodQR,
		Entries: []attendance.MarkEntry{{StudentID: "std-2", Status: attendance.StatusLate}},
	}, "tch-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusLate, records[0].Status)
	assert.Equal(t, attendance.MethodQR, records[0].Method)

	all, err := svc.Filter(ctx, attendance.QueryFilter{ClassID: "cls-1"})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_Filter(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	day := func(d int) time.Time { return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC) }
	for d := 1; d <= 3; d++ {
		_, err := svc.Mark(ctx, attendance.MarkAttendance{
			ClassID: "cls-1",
			Date:    day(d),
			Method:  attendance.MethodManual,
			Entries: []attendance.MarkEntry{{StudentID: "std-1", Status: attendance.StatusPresent}},
		}, "tch-1")
		require.NoError(t, err)
	}

	records, err := svc.Filter(ctx, attendance.QueryFilter{
		StudentID: "std-1",
		DateFrom:  day(2),
		DateTo:    day(3),
	})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = svc.Filter(ctx, attendance.QueryFilter{ClassID: "nope"})
	require.NoError(t, err)
	assert.Empty(t, records)
}
