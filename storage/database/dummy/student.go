package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		students = append(students, *s)
	}
	return students
}

func (repo *studentRepository) CheckAdmissionNoUniqueness(_ context.Context, admissionNo string, excludedStudents ...student.Student) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedStudents))
	for _, s := range excludedStudents {
		excluded[s.ID] = true
	}
	for _, std := range repo.query() {
		if std.AdmissionNo == admissionNo && !excluded[std.ID] {
			return student.ErrAdmissionNoExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range repo.db.students {
		if s.AdmissionNo == std.AdmissionNo {
			return student.Student{}, student.ErrAdmissionNoExists
		}
	}
	std.ID = uuid.New().String()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.students[id]; ok && !std.IsDeleted() {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(_ context.Context, filter student.QueryFilter) ([]student.Student, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []student.Student
	search := strings.ToLower(filter.Search)
	for _, std := range repo.query() {
		if std.IsDeleted() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(std.FirstName), search) &&
			!strings.Contains(strings.ToLower(std.LastName), search) &&
			!strings.Contains(strings.ToLower(std.AdmissionNo), search) {
			continue
		}
		if filter.ClassID != "" && std.ClassID != filter.ClassID {
			continue
		}
		if filter.Status != "" && std.Status != filter.Status {
			continue
		}
		matched = append(matched, std)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
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

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) QueryGuardians(_ context.Context, studentID string) ([]student.Guardian, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var guardians []student.Guardian
	for _, grd := range repo.db.guardians {
		if grd.StudentID == studentID {
			guardians = append(guardians, *grd)
		}
	}
	sort.Slice(guardians, func(i, j int) bool {
		if guardians[i].IsPrimary != guardians[j].IsPrimary {
			return guardians[i].IsPrimary
		}
		return guardians[i].Name < guardians[j].Name
	})
	return guardians, nil
}

func (repo *studentRepository) GetGuardianByID(_ context.Context, studentID, guardianID string) (student.Guardian, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grd, ok := repo.db.guardians[guardianID]; ok && grd.StudentID == studentID {
		return *grd, nil
	}
	return student.Guardian{}, student.ErrGuardianNotFound
}

func (repo *studentRepository) CreateGuardian(_ context.Context, grd student.Guardian) (student.Guardian, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	grd.ID = uuid.New().String()
	repo.db.guardians[grd.ID] = &grd
	return grd, nil
}

func (repo *studentRepository) UpdateGuardian(_ context.Context, grd student.Guardian) (student.Guardian, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.guardians[grd.ID]
	if !ok || orig.StudentID != grd.StudentID {
		return student.Guardian{}, student.ErrGuardianNotFound
	}
	repo.db.guardians[grd.ID] = &grd
	return grd, nil
}

func (repo *studentRepository) ClearPrimaryGuardians(_ context.Context, studentID, excludedID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, grd := range repo.db.guardians {
		if grd.StudentID == studentID && grd.ID != excludedID {
			grd.IsPrimary = false
		}
	}
	return nil
}
