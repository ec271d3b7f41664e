package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrClassNotFound     = errors.New("class not found")
	ErrClassNameExists   = errors.New("a class with this name already exists")
	ErrSubjectCodeExists = errors.New("a subject with this code already exists")
	ErrTimetableExists   = errors.New("a timetable already exists for this class and academic year")
	ErrTimetableConflict = errors.New("teacher has a conflict in the timetable")
)

type (
	Repository interface {
		CheckClassNameUniqueness(ctx context.Context, name string) error
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		FilterClasses(ctx context.Context, filter ClassQueryFilter) ([]Class, int, error)

		CheckSubjectCodeUniqueness(ctx context.Context, code string) error
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)

		// HasTeacherConflict reports whether any existing timetable of the
		// academic year already books one of the given slots' teachers for
		// the same day and period.
		HasTeacherConflict(ctx context.Context, academicYearID string, slots []TimetableSlot) (bool, error)
		CreateTimetable(ctx context.Context, tt Timetable) (Timetable, error)
		FilterTimetables(ctx context.Context, filter TimetableQueryFilter) ([]Timetable, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckClassNameUniqueness(name string) error {
	if err := svc.repo.CheckClassNameUniqueness(context.Background(), name); err != nil {
		if errors.Cause(err) == ErrClassNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) CheckSubjectCodeUniqueness(code string) error {
	if err := svc.repo.CheckSubjectCodeUniqueness(context.Background(), code); err != nil {
		if errors.Cause(err) == ErrSubjectCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:       nc.Name,
		GradeLevel: nc.GradeLevel,
		Capacity:   nc.Capacity,
		TeacherID:  nc.TeacherID,
		Status:     ClassActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *Service) GetClassByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) FilterClasses(ctx context.Context, filter ClassQueryFilter) ([]Class, int, error) {
	filter.Page.Clean()
	return svc.repo.FilterClasses(ctx, filter)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		Name:         ns.Name,
		Code:         ns.Code,
		DepartmentID: ns.DepartmentID,
		GradeLevel:   ns.GradeLevel,
		Credits:      ns.Credits,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) QueryAllSubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QueryAllSubjects(ctx)
}

func (svc *Service) CreateTimetable(ctx context.Context, nt NewTimetable) (Timetable, error) {
	conflict, err := svc.repo.HasTeacherConflict(ctx, nt.AcademicYearID, nt.Slots)
	if err != nil {
		return Timetable{}, errors.Wrap(err, "checking timetable conflicts")
	}
	if conflict {
		return Timetable{}, ErrTimetableConflict
	}

	now := time.Now().UTC()
	tt := Timetable{
		ClassID:        nt.ClassID,
		AcademicYearID: nt.AcademicYearID,
		Slots:          nt.Slots,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateTimetable(ctx, tt)
}

func (svc *Service) FilterTimetables(ctx context.Context, filter TimetableQueryFilter) ([]Timetable, error) {
	return svc.repo.FilterTimetables(ctx, filter)
}
