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

	"github.com/trezcool/academia/core/academic"
)

type classRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	GradeLevel int         `db:"grade_level"`
	Capacity   int         `db:"capacity"`
	TeacherID  null.String `db:"teacher_id"`
	Status     string      `db:"status"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r classRow) unpack() academic.Class {
	return academic.Class{
		ID:         r.ID,
		Name:       r.Name,
		GradeLevel: r.GradeLevel,
		Capacity:   r.Capacity,
		TeacherID:  r.TeacherID.String,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func packClass(cls academic.Class) classRow {
	return classRow{
		ID:         cls.ID,
		Name:       cls.Name,
		GradeLevel: cls.GradeLevel,
		Capacity:   cls.Capacity,
		TeacherID:  null.NewString(cls.TeacherID, cls.TeacherID != ""),
		Status:     cls.Status,
		CreatedAt:  cls.CreatedAt.UTC(),
		UpdatedAt:  cls.UpdatedAt.UTC(),
	}
}

type subjectRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Code         string      `db:"code"`
	DepartmentID null.String `db:"department_id"`
	GradeLevel   int         `db:"grade_level"`
	Credits      int         `db:"credits"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func (r subjectRow) unpack() academic.Subject {
	return academic.Subject{
		ID:           r.ID,
		Name:         r.Name,
		Code:         r.Code,
		DepartmentID: r.DepartmentID.String,
		GradeLevel:   r.GradeLevel,
		Credits:      r.Credits,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type timetableRow struct {
	ID             string    `db:"id"`
	ClassID        string    `db:"class_id"`
	AcademicYearID string    `db:"academic_year_id"`
	Slots          []byte    `db:"slots"`
	Version        int       `db:"version"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r timetableRow) unpack() (academic.Timetable, error) {
	tt := academic.Timetable{
		ID:             r.ID,
		ClassID:        r.ClassID,
		AcademicYearID: r.AcademicYearID,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if err := jsonbScan(r.Slots, &tt.Slots); err != nil {
		return academic.Timetable{}, err
	}
	return tt, nil
}

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) *academicRepository {
	return &academicRepository{db: db}
}

func (repo academicRepository) CheckClassNameUniqueness(ctx context.Context, name string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM class WHERE name = $1)`, name)
	if err != nil {
		return errors.Wrap(err, "checking class uniqueness")
	}
	if exists {
		return academic.ErrClassNameExists
	}
	return nil
}

func (repo academicRepository) CreateClass(ctx context.Context, cls academic.Class) (academic.Class, error) {
	cls.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO class (id, name, grade_level, capacity, teacher_id, status, created_at, updated_at)
		VALUES (:id, :name, :grade_level, :capacity, :teacher_id, :status, :created_at, :updated_at)`,
		packClass(cls))
	if err != nil {
		if isUniqueViolation(err, "class_name_key") {
			return academic.Class{}, academic.ErrClassNameExists
		}
		return academic.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo academicRepository) GetClassByID(ctx context.Context, id string) (academic.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return academic.Class{}, trapNoRowsErr(err, academic.ErrClassNotFound, "getting class by ID")
	}
	return row.unpack(), nil
}

func (repo academicRepository) FilterClasses(ctx context.Context, filter academic.ClassQueryFilter) ([]academic.Class, int, error) {
	where := []string{"true"}
	var args []interface{}
	if filter.GradeLevel > 0 {
		args = append(args, filter.GradeLevel)
		where = append(where, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM class WHERE "+cond, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting classes")
	}

	args = append(args, filter.Page.Size, filter.Page.Offset())
	query := fmt.Sprintf(
		"SELECT * FROM class WHERE %s ORDER BY grade_level, name LIMIT $%d OFFSET $%d",
		cond, len(args)-1, len(args),
	)
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering classes")
	}

	classes := make([]academic.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.unpack())
	}
	return classes, total, nil
}

func (repo academicRepository) CheckSubjectCodeUniqueness(ctx context.Context, code string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM subject WHERE code = $1)`, code)
	if err != nil {
		return errors.Wrap(err, "checking subject uniqueness")
	}
	if exists {
		return academic.ErrSubjectCodeExists
	}
	return nil
}

func (repo academicRepository) CreateSubject(ctx context.Context, sub academic.Subject) (academic.Subject, error) {
	sub.ID = uuid.New().String()
	row := subjectRow{
		ID:           sub.ID,
		Name:         sub.Name,
		Code:         sub.Code,
		DepartmentID: null.NewString(sub.DepartmentID, sub.DepartmentID != ""),
		GradeLevel:   sub.GradeLevel,
		Credits:      sub.Credits,
		CreatedAt:    sub.CreatedAt.UTC(),
		UpdatedAt:    sub.UpdatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO subject (id, name, code, department_id, grade_level, credits, created_at, updated_at)
		VALUES (:id, :name, :code, :department_id, :grade_level, :credits, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err, "subject_code_key") {
			return academic.Subject{}, academic.ErrSubjectCodeExists
		}
		return academic.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return sub, nil
}

func (repo academicRepository) QueryAllSubjects(ctx context.Context) ([]academic.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM subject ORDER BY grade_level, name`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]academic.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.unpack())
	}
	return subjects, nil
}

// HasTeacherConflict decodes the year's timetable slots and checks bookings
// in memory; slot lists are small (one per class per year).
func (repo academicRepository) HasTeacherConflict(ctx context.Context, academicYearID string, slots []academic.TimetableSlot) (bool, error) {
	var rows []timetableRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM timetable WHERE academic_year_id = $1`, academicYearID)
	if err != nil {
		return false, errors.Wrap(err, "querying timetables")
	}

	type booking struct {
		day     string
		period  int
		teacher string
	}
	booked := make(map[booking]bool)
	for _, row := range rows {
		tt, err := row.unpack()
		if err != nil {
			return false, err
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

func (repo academicRepository) CreateTimetable(ctx context.Context, tt academic.Timetable) (academic.Timetable, error) {
	tt.ID = uuid.New().String()
	slots, err := jsonbValue(tt.Slots)
	if err != nil {
		return academic.Timetable{}, err
	}
	row := timetableRow{
		ID:             tt.ID,
		ClassID:        tt.ClassID,
		AcademicYearID: tt.AcademicYearID,
		Slots:          slots,
		Version:        tt.Version,
		CreatedAt:      tt.CreatedAt.UTC(),
		UpdatedAt:      tt.UpdatedAt.UTC(),
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO timetable (id, class_id, academic_year_id, slots, version, created_at, updated_at)
		VALUES (:id, :class_id, :academic_year_id, :slots, :version, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err, "timetable_class_id_academic_year_id_key") {
			return academic.Timetable{}, academic.ErrTimetableExists
		}
		return academic.Timetable{}, errors.Wrap(err, "inserting timetable")
	}
	return tt, nil
}

func (repo academicRepository) FilterTimetables(ctx context.Context, filter academic.TimetableQueryFilter) ([]academic.Timetable, error) {
	where := []string{"true"}
	var args []interface{}
	if filter.ClassID != "" {
		args = append(args, filter.ClassID)
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		where = append(where, fmt.Sprintf("academic_year_id = $%d", len(args)))
	}

	var rows []timetableRow
	query := "SELECT * FROM timetable WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering timetables")
	}

	timetables := make([]academic.Timetable, 0, len(rows))
	for _, row := range rows {
		tt, err := row.unpack()
		if err != nil {
			return nil, err
		}
		timetables = append(timetables, tt)
	}
	return timetables, nil
}
