package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		action Action
		want   bool
	}{
		{"admin manages users", RoleAdmin, ActionManageUsers, true},
		{"teacher cannot manage users", RoleTeacher, ActionManageUsers, false},
		{"academic admin writes students", RoleAcademicAdmin, ActionWriteStudents, true},
		{"only admin deletes students", RoleAcademicAdmin, ActionDeleteStudents, false},
		{"teacher marks attendance", RoleTeacher, ActionMarkAttendance, true},
		{"student cannot mark attendance", RoleStudent, ActionMarkAttendance, false},
		{"teacher writes exams", RoleTeacher, ActionWriteExams, true},
		{"only students submit exams", RoleStudent, ActionSubmitExams, true},
		{"admin does not submit exams", RoleAdmin, ActionSubmitExams, false},
		{"finance writes invoices", RoleFinance, ActionWriteInvoices, true},
		{"parent writes nothing", RoleParent, ActionWriteInvoices, false},
		{"unknown role", "nope", ActionWriteStudents, false},
		{"unknown action", RoleAdmin, Action("nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.action))
		})
	}
}
