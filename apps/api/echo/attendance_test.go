package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/user"
)

func Test_attendanceApi(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher@test.com", user.RoleTeacher)
	tchToken := getToken(t, teacher)
	stdToken := getToken(t, app.createUser(t, "student@test.com", user.RoleStudent))

	sheet := attendance.MarkAttendance{
		ClassID: "cls-1",
		Date:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Entries: []attendance.MarkEntry{
			{StudentID: "std-1", Status: attendance.StatusPresent},
			{StudentID: "std-2", Status: attendance.StatusAbsent, Note: "sick"},
		},
	}

	t.Run("teacher role required", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/attendance", stdToken, marchallObj(t, sheet))
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	t.Run("mark", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/attendance", tchToken, marchallObj(t, sheet))
		checkCode(t, rec, http.StatusCreated)
		var records []attendance.Attendance
		decode(t, rec, &records)
		if len(records) != 2 {
			t.Fatalf("records = %d; want 2", len(records))
		}
		if records[0].Method != attendance.MethodManual { // default
			t.Errorf("method = %q; want manual", records[0].Method)
		}
		if records[0].RecordedBy != teacher.ID {
			t.Errorf("recordedBy = %q; want %q", records[0].RecordedBy, teacher.ID)
		}
	})

	t.Run("re-mark overwrites", func(t *testing.T) {
		resheet := sheet
		resheet.Entries = []attendance.MarkEntry{{StudentID: "std-2", Status: attendance.StatusLate}}
		rec := app.do(http.MethodPost, "/v1/attendance", tchToken, marchallObj(t, resheet))
		checkCode(t, rec, http.StatusCreated)

		rec = app.do(http.MethodGet, "/v1/attendance?class_id=cls-1", tchToken)
		checkCode(t, rec, http.StatusOK)
		var records []attendance.Attendance
		decode(t, rec, &records)
		if len(records) != 2 {
			t.Errorf("records = %d; want 2", len(records))
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		bad := sheet
		bad.Entries = []attendance.MarkEntry{{StudentID: "std-1", Status: "X"}}
		rec := app.do(http.MethodPost, "/v1/attendance", tchToken, marchallObj(t, bad))
		checkErrCode(t, rec, http.StatusBadRequest, "VALIDATION")
	})
}
