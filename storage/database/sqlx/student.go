package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core/student"
)

type studentRow struct {
	ID          string         `db:"id"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	DOB         time.Time      `db:"dob"`
	Gender      string         `db:"gender"`
	AdmissionNo string         `db:"admission_no"`
	Emails      pq.StringArray `db:"emails"`
	Contacts    pq.StringArray `db:"contacts"`
	Address     []byte         `db:"address"`
	ClassID     null.String    `db:"class_id"`
	Status      string         `db:"status"`
	Medical     []byte         `db:"medical"`
	DeletedAt   null.Time      `db:"deleted_at"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r studentRow) unpack() (student.Student, error) {
	std := student.Student{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DOB:         r.DOB,
		Gender:      r.Gender,
		AdmissionNo: r.AdmissionNo,
		Emails:      r.Emails,
		Contacts:    r.Contacts,
		ClassID:     r.ClassID.String,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt.Ptr(),
	}
	if len(r.Address) > 0 {
		std.Address = new(student.Address)
		if err := jsonbScan(r.Address, std.Address); err != nil {
			return student.Student{}, err
		}
	}
	if len(r.Medical) > 0 {
		std.Medical = new(student.Medical)
		if err := jsonbScan(r.Medical, std.Medical); err != nil {
			return student.Student{}, err
		}
	}
	return std, nil
}

func packStudent(std student.Student) (studentRow, error) {
	row := studentRow{
		ID:          std.ID,
		FirstName:   std.FirstName,
		LastName:    std.LastName,
		DOB:         std.DOB.UTC(),
		Gender:      std.Gender,
		AdmissionNo: std.AdmissionNo,
		Emails:      std.Emails,
		Contacts:    std.Contacts,
		ClassID:     null.NewString(std.ClassID, std.ClassID != ""),
		Status:      std.Status,
		DeletedAt:   null.TimeFromPtr(std.DeletedAt),
		CreatedAt:   std.CreatedAt.UTC(),
		UpdatedAt:   std.UpdatedAt.UTC(),
	}
	var err error
	if std.Address != nil {
		if row.Address, err = jsonbValue(std.Address); err != nil {
			return studentRow{}, err
		}
	}
	if std.Medical != nil {
		if row.Medical, err = jsonbValue(std.Medical); err != nil {
			return studentRow{}, err
		}
	}
	return row, nil
}

type guardianRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	Name      string    `db:"name"`
	Relation  string    `db:"relation"`
	Phone     string    `db:"phone"`
	Email     string    `db:"email"`
	Address   []byte    `db:"address"`
	IsPrimary bool      `db:"is_primary"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r guardianRow) unpack() (student.Guardian, error) {
	grd := student.Guardian{
		ID:        r.ID,
		StudentID: r.StudentID,
		Name:      r.Name,
		Relation:  r.Relation,
		Phone:     r.Phone,
		Email:     r.Email,
		IsPrimary: r.IsPrimary,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Address) > 0 {
		grd.Address = new(student.Address)
		if err := jsonbScan(r.Address, grd.Address); err != nil {
			return student.Guardian{}, err
		}
	}
	return grd, nil
}

func packGuardian(grd student.Guardian) (guardianRow, error) {
	row := guardianRow{
		ID:        grd.ID,
		StudentID: grd.StudentID,
		Name:      grd.Name,
		Relation:  grd.Relation,
		Phone:     grd.Phone,
		Email:     grd.Email,
		IsPrimary: grd.IsPrimary,
		CreatedAt: grd.CreatedAt.UTC(),
		UpdatedAt: grd.UpdatedAt.UTC(),
	}
	var err error
	if grd.Address != nil {
		if row.Address, err = jsonbValue(grd.Address); err != nil {
			return guardianRow{}, err
		}
	}
	return row, nil
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CheckAdmissionNoUniqueness(ctx context.Context, admissionNo string, excludedStudents ...student.Student) error {
	ids := make([]string, 0, len(excludedStudents))
	for _, s := range excludedStudents {
		ids = append(ids, s.ID)
	}

	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM student WHERE admission_no = $1 AND id <> ALL($2))`,
		admissionNo, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "checking student uniqueness")
	}
	if exists {
		return student.ErrAdmissionNoExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	row, err := packStudent(std)
	if err != nil {
		return student.Student{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO student (id, first_name, last_name, dob, gender, admission_no, emails, contacts, address,
		                     class_id, status, medical, deleted_at, created_at, updated_at)
		VALUES (:id, :first_name, :last_name, :dob, :gender, :admission_no, :emails, :contacts, :address,
		        :class_id, :status, :medical, :deleted_at, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err, "student_admission_no_key") {
			return student.Student{}, student.ErrAdmissionNoExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student by ID")
	}
	return row.unpack()
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR admission_no ILIKE %[1]s)", p))
	}
	if filter.ClassID != "" {
		where = append(where, "class_id = "+arg(filter.ClassID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM student WHERE "+cond, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	query := fmt.Sprintf(
		"SELECT * FROM student WHERE %s ORDER BY last_name, first_name LIMIT %s OFFSET %s",
		cond, arg(filter.Page.Size), arg(filter.Page.Offset()),
	)
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering students")
	}

	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		std, err := row.unpack()
		if err != nil {
			return nil, 0, err
		}
		students = append(students, std)
	}
	return students, total, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	row, err := packStudent(std)
	if err != nil {
		return student.Student{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE student
		SET first_name = :first_name, last_name = :last_name, dob = :dob, gender = :gender,
		    emails = :emails, contacts = :contacts, address = :address, class_id = :class_id,
		    status = :status, medical = :medical, deleted_at = :deleted_at, updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

func (repo studentRepository) QueryGuardians(ctx context.Context, studentID string) ([]student.Guardian, error) {
	var rows []guardianRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM guardian WHERE student_id = $1 ORDER BY is_primary DESC, name`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardians")
	}

	guardians := make([]student.Guardian, 0, len(rows))
	for _, row := range rows {
		grd, err := row.unpack()
		if err != nil {
			return nil, err
		}
		guardians = append(guardians, grd)
	}
	return guardians, nil
}

func (repo studentRepository) GetGuardianByID(ctx context.Context, studentID, guardianID string) (student.Guardian, error) {
	var row guardianRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM guardian WHERE id = $1 AND student_id = $2`, guardianID, studentID)
	if err != nil {
		return student.Guardian{}, trapNoRowsErr(err, student.ErrGuardianNotFound, "getting guardian by ID")
	}
	return row.unpack()
}

func (repo studentRepository) CreateGuardian(ctx context.Context, grd student.Guardian) (student.Guardian, error) {
	grd.ID = uuid.New().String()
	row, err := packGuardian(grd)
	if err != nil {
		return student.Guardian{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO guardian (id, student_id, name, relation, phone, email, address, is_primary, created_at, updated_at)
		VALUES (:id, :student_id, :name, :relation, :phone, :email, :address, :is_primary, :created_at, :updated_at)`,
		row)
	if err != nil {
		return student.Guardian{}, errors.Wrap(err, "inserting guardian")
	}
	return grd, nil
}

func (repo studentRepository) UpdateGuardian(ctx context.Context, grd student.Guardian) (student.Guardian, error) {
	row, err := packGuardian(grd)
	if err != nil {
		return student.Guardian{}, err
	}
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE guardian
		SET name = :name, relation = :relation, phone = :phone, email = :email,
		    address = :address, is_primary = :is_primary, updated_at = :updated_at
		WHERE id = :id AND student_id = :student_id`,
		row)
	if err != nil {
		return student.Guardian{}, errors.Wrap(err, "updating guardian")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Guardian{}, student.ErrGuardianNotFound
	}
	return grd, nil
}

func (repo studentRepository) ClearPrimaryGuardians(ctx context.Context, studentID, excludedID string) error {
	query := `UPDATE guardian SET is_primary = false, updated_at = now() WHERE student_id = $1 AND is_primary`
	args := []interface{}{studentID}
	if excludedID != "" {
		query += ` AND id <> $2`
		args = append(args, excludedID)
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "clearing primary guardians")
	}
	return nil
}
