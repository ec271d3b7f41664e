package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) UpsertAttendance(_ context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.StudentID == att.StudentID && existing.ClassID == att.ClassID && existing.Date.Equal(att.Date) {
			existing.Status = att.Status
			existing.Method = att.Method
			existing.RecordedBy = att.RecordedBy
			existing.Note = att.Note
			existing.UpdatedAt = att.UpdatedAt
			return *existing, nil
		}
	}
	att.ID = uuid.New().String()
	repo.db.table[att.ID] = &att
	return att, nil
}

func (repo *attendanceRepository) FilterAttendance(_ context.Context, filter attendance.QueryFilter) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []attendance.Attendance
	for _, att := range repo.db.table {
		if filter.ClassID != "" && att.ClassID != filter.ClassID {
			continue
		}
		if filter.StudentID != "" && att.StudentID != filter.StudentID {
			continue
		}
		if !filter.DateFrom.IsZero() && att.Date.Before(filter.DateFrom) {
			continue
		}
		if !filter.DateTo.IsZero() && att.Date.After(filter.DateTo) {
			continue
		}
		matched = append(matched, *att)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[i].Date.Before(matched[j].Date)
		}
		return matched[i].StudentID < matched[j].StudentID
	})
	return matched, nil
}
