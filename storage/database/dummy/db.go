package dummydb

import (
	"sync"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/finance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type (
	DB struct {
		user       *userTable
		student    *studentTable
		academic   *academicTable
		attendance *attendanceTable
		exam       *examTable
		finance    *financeTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		students  map[string]*student.Student
		guardians map[string]*student.Guardian
	}

	academicTable struct {
		sync.RWMutex
		classes    map[string]*academic.Class
		subjects   map[string]*academic.Subject
		timetables map[string]*academic.Timetable
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Attendance
	}

	examTable struct {
		sync.RWMutex
		exams       map[string]*exam.Exam
		questions   map[string]*exam.Question
		submissions map[string]*exam.Submission
		grades      map[string]*exam.Grade
	}

	financeTable struct {
		sync.RWMutex
		invoices map[string]*finance.Invoice
		payments map[string]*finance.Payment
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{students: make(map[string]*student.Student), guardians: make(map[string]*student.Guardian)},
		academic: &academicTable{
			classes:    make(map[string]*academic.Class),
			subjects:   make(map[string]*academic.Subject),
			timetables: make(map[string]*academic.Timetable),
		},
		attendance: &attendanceTable{table: make(map[string]*attendance.Attendance)},
		exam: &examTable{
			exams:       make(map[string]*exam.Exam),
			questions:   make(map[string]*exam.Question),
			submissions: make(map[string]*exam.Submission),
			grades:      make(map[string]*exam.Grade),
		},
		finance: &financeTable{invoices: make(map[string]*finance.Invoice), payments: make(map[string]*finance.Payment)},
	}
	return db, nil
}
