package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/academic"
)

type academicRepository struct {
	db *academicTable
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db.academic}
}

func (repo *academicRepository) CheckClassNameUniqueness(_ context.Context, name string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cls := range repo.db.classes {
		if cls.Name == name {
			return academic.ErrClassNameExists
		}
	}
	return nil
}

func (repo *academicRepository) CreateClass(_ context.Context, cls academic.Class) (academic.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.classes {
		if c.Name == cls.Name {
			return academic.Class{}, academic.ErrClassNameExists
		}
	}
	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *academicRepository) GetClassByID(_ context.Context, id string) (academic.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return academic.Class{}, academic.ErrClassNotFound
}

func (repo *academicRepository) FilterClasses(_ context.Context, filter academic.ClassQueryFilter) ([]academic.Class, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []academic.Class
	for _, cls := range repo.db.classes {
		if filter.GradeLevel > 0 && cls.GradeLevel != filter.GradeLevel {
			continue
		}
		matched = append(matched, *cls)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].GradeLevel != matched[j].GradeLevel {
			return matched[i].GradeLevel < matched[j].GradeLevel
		}
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	start := filter.Page.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (repo *academicRepository) CheckSubjectCodeUniqueness(_ context.Context, code string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.db.subjects {
		if sub.Code == code {
			return academic.ErrSubjectCodeExists
		}
	}
	return nil
}

func (repo *academicRepository) CreateSubject(_ context.Context, sub academic.Subject) (academic.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.subjects {
		if s.Code == sub.Code {
			return academic.Subject{}, academic.ErrSubjectCodeExists
		}
	}
	sub.ID = uuid.New().String()
	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *academicRepository) QueryAllSubjects(_ context.Context) ([]academic.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]academic.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].GradeLevel != subjects[j].GradeLevel {
			return subjects[i].GradeLevel < subjects[j].GradeLevel
		}
		return subjects[i].Name < subjects[j].Name
	})
	return subjects, nil
}

func (repo *academicRepository) HasTeacherConflict(_ context.Context, academicYearID string, slots []academic.TimetableSlot) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	type booking struct {
		day     string
		period  int
		teacher string
	}
	booked := make(map[booking]bool)
	for _, tt := range repo.db.timetables {
		if tt.AcademicYearID != academicYearID {
			continue
		}
		for _, slot := range tt.Slots {
			booked[booking{slot.Day, slot.Period, slot.TeacherID}] = true
		}
	}
	for _, slot := range slots {
		if slot.TeacherID == "" {
			continue
		}
		if booked[booking{slot.Day, slot.Period, slot.TeacherID}] {
			return true, nil
		}
	}
	return false, nil
}

func (repo *academicRepository) CreateTimetable(_ context.Context, tt academic.Timetable) (academic.Timetable, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.timetables {
		if existing.ClassID == tt.ClassID && existing.AcademicYearID == tt.AcademicYearID {
			return academic.Timetable{}, academic.ErrTimetableExists
		}
	}
	tt.ID = uuid.New().String()
	repo.db.timetables[tt.ID] = &tt
	return tt, nil
}

func (repo *academicRepository) FilterTimetables(_ context.Context, filter academic.TimetableQueryFilter) ([]academic.Timetable, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []academic.Timetable
	for _, tt := range repo.db.timetables {
		if filter.ClassID != "" && tt.ClassID != filter.ClassID {
			continue
		}
		if filter.AcademicYearID != "" && tt.AcademicYearID != filter.AcademicYearID {
			continue
		}
		matched = append(matched, *tt)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}
