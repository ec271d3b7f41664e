package user

// Action names a guarded write path. Read paths only require authentication.
type Action string

const (
	ActionManageUsers    Action = "users:manage"
	ActionWriteStudents  Action = "students:write"
	ActionDeleteStudents Action = "students:delete"
	ActionWriteAcademics Action = "academics:write"
	ActionMarkAttendance Action = "attendance:mark"
	ActionWriteExams     Action = "exams:write"
	ActionSubmitExams    Action = "exams:submit"
	ActionWriteInvoices  Action = "finance:invoices:write"
)

// policy is the single source of truth for role checks; every guarded
// route evaluates it through Allowed instead of carrying its own role list.
var policy = map[Action][]string{
	ActionManageUsers:    {RoleAdmin},
	ActionWriteStudents:  {RoleAdmin, RoleAcademicAdmin},
	ActionDeleteStudents: {RoleAdmin},
	ActionWriteAcademics: {RoleAdmin, RoleAcademicAdmin},
	ActionMarkAttendance: {RoleTeacher, RoleAdmin, RoleAcademicAdmin},
	ActionWriteExams:     {RoleTeacher, RoleAdmin, RoleAcademicAdmin},
	ActionSubmitExams:    {RoleStudent},
	ActionWriteInvoices:  {RoleAdmin, RoleFinance},
}

// Allowed reports whether a principal with the given role may perform action.
func Allowed(role string, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}
