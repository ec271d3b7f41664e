package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Class statuses
const (
	ClassActive   = "ACTIVE"
	ClassInactive = "INACTIVE"
)

type (
	Class struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		GradeLevel int       `json:"grade_level"`
		Capacity   int       `json:"capacity"`
		TeacherID  string    `json:"teacher_id,omitempty"`
		Status     string    `json:"status"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}

	Subject struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Code         string    `json:"code"`
		DepartmentID string    `json:"department_id,omitempty"`
		GradeLevel   int       `json:"grade_level"`
		Credits      int       `json:"credits"`
		CreatedAt    time.Time `json:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at"` // UTC
	}

	TimetableSlot struct {
		Day       string `json:"day"` // Mon, Tue, ...
		Period    int    `json:"period"`
		SubjectID string `json:"subject_id"`
		TeacherID string `json:"teacher_id"`
		Room      string `json:"room,omitempty"`
	}

	Timetable struct {
		ID             string          `json:"id"`
		ClassID        string          `json:"class_id"`
		AcademicYearID string          `json:"academic_year_id"`
		Slots          []TimetableSlot `json:"slots"`
		Version        int             `json:"version"`
		CreatedAt      time.Time       `json:"created_at"` // UTC
		UpdatedAt      time.Time       `json:"updated_at"` // UTC
	}
)

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name       string `json:"name" validate:"required"`
	GradeLevel int    `json:"grade_level" validate:"required,min=1"`
	Capacity   int    `json:"capacity" validate:"omitempty,min=1"`
	TeacherID  string `json:"teacher_id"`
}

func (nc *NewClass) Validate(validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	if nc.Capacity == 0 {
		nc.Capacity = 30
	}
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckClassNameUniqueness(nc.Name)
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name         string `json:"name" validate:"required"`
	Code         string `json:"code" validate:"required"`
	DepartmentID string `json:"department_id"`
	GradeLevel   int    `json:"grade_level" validate:"required,min=1"`
	Credits      int    `json:"credits"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc *Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code)
	if ns.Credits == 0 {
		ns.Credits = 1
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckSubjectCodeUniqueness(ns.Code)
}

// NewTimetable contains information needed to create a class Timetable.
type NewTimetable struct {
	ClassID        string          `json:"class_id" validate:"required"`
	AcademicYearID string          `json:"academic_year_id" validate:"required"`
	Slots          []TimetableSlot `json:"slots" validate:"required,dive"`
}

func (nt *NewTimetable) Validate(validate *validator.Validate) error {
	return validate.Struct(nt)
}

type ClassQueryFilter struct {
	GradeLevel int `query:"grade_level"`
	Page       core.Page
}

type TimetableQueryFilter struct {
	ClassID        string `query:"class_id"`
	AcademicYearID string `query:"academic_year_id"`
}
