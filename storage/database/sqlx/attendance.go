package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/attendance"
)

type attendanceRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	ClassID    string      `db:"class_id"`
	Date       time.Time   `db:"date"`
	Status     string      `db:"status"`
	Method     string      `db:"method"`
	RecordedBy string      `db:"recorded_by"`
	Note       null.String `db:"note"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r attendanceRow) unpack() attendance.Attendance {
	return attendance.Attendance{
		ID:         r.ID,
		StudentID:  r.StudentID,
		ClassID:    r.ClassID,
		Date:       r.Date,
		Status:     r.Status,
		Method:     r.Method,
		RecordedBy: r.RecordedBy,
		Note:       r.Note.String,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) UpsertAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	att.ID = uuid.New().String()
	row := attendanceRow{
		ID:         att.ID,
		StudentID:  att.StudentID,
		ClassID:    att.ClassID,
		Date:       att.Date.UTC(),
		Status:     att.Status,
		Method:     att.Method,
		RecordedBy: att.RecordedBy,
		Note:       null.NewString(att.Note, att.Note != ""),
		CreatedAt:  att.CreatedAt.UTC(),
		UpdatedAt:  att.UpdatedAt.UTC(),
	}

	// a re-marked sheet overwrites the previous mark for the same key
	var saved attendanceRow
	rows, err := repo.db.NamedQueryContext(ctx, `
		INSERT INTO attendance (id, student_id, class_id, date, status, method, recorded_by, note, created_at, updated_at)
		VALUES (:id, :student_id, :class_id, :date, :status, :method, :recorded_by, :note, :created_at, :updated_at)
		ON CONFLICT ON CONSTRAINT attendance_student_id_class_id_date_key DO UPDATE
		SET status = EXCLUDED.status, method = EXCLUDED.method, recorded_by = EXCLUDED.recorded_by,
		    note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
		RETURNING *`,
		row)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return attendance.Attendance{}, errors.New("upserting attendance: no row returned")
	}
	if err = rows.StructScan(&saved); err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "scanning attendance")
	}
	return saved.unpack(), nil
}

func (repo attendanceRepository) FilterAttendance(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Attendance, error) {
	where := []string{"true"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ClassID != "" {
		where = append(where, "class_id = "+arg(filter.ClassID))
	}
	if filter.StudentID != "" {
		where = append(where, "student_id = "+arg(filter.StudentID))
	}
	if !filter.DateFrom.IsZero() {
		where = append(where, "date >= "+arg(filter.DateFrom.UTC()))
	}
	if !filter.DateTo.IsZero() {
		where = append(where, "date <= "+arg(filter.DateTo.UTC()))
	}

	var rows []attendanceRow
	query := "SELECT * FROM attendance WHERE " + strings.Join(where, " AND ") + " ORDER BY date, student_id"
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance")
	}

	records := make([]attendance.Attendance, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.unpack())
	}
	return records, nil
}
