package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("attendance record not found")

type (
	Repository interface {
		// UpsertAttendance creates the record or overwrites the existing
		// one with the same (student, class, date) key.
		UpsertAttendance(ctx context.Context, att Attendance) (Attendance, error)
		FilterAttendance(ctx context.Context, filter QueryFilter) ([]Attendance, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Mark records a class attendance sheet. Re-marking a (student, class, date)
// entry overwrites the previous mark instead of duplicating it.
func (svc *Service) Mark(ctx context.Context, ma MarkAttendance, recordedBy string) ([]Attendance, error) {
	now := time.Now().UTC()
	records := make([]Attendance, 0, len(ma.Entries))
	for _, entry := range ma.Entries {
		att := Attendance{
			StudentID:  entry.StudentID,
			ClassID:    ma.ClassID,
			Date:       ma.Date,
			Status:     entry.Status,
			Method:     ma.Method,
			RecordedBy: recordedBy,
			Note:       entry.Note,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		att, err := svc.repo.UpsertAttendance(ctx, att)
		if err != nil {
			return nil, errors.Wrap(err, "upserting attendance")
		}
		records = append(records, att)
	}
	return records, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Attendance, error) {
	return svc.repo.FilterAttendance(ctx, filter)
}
