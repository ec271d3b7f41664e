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

	"github.com/trezcool/academia/core/exam"
)

type examRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	SubjectID   string    `db:"subject_id"`
	ClassID     string    `db:"class_id"`
	Date        time.Time `db:"date"`
	DurationMin int       `db:"duration_min"`
	Sections    []byte    `db:"sections"`
	Settings    []byte    `db:"settings"`
	Status      string    `db:"status"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r examRow) unpack() (exam.Exam, error) {
	ex := exam.Exam{
		ID:          r.ID,
		Name:        r.Name,
		SubjectID:   r.SubjectID,
		ClassID:     r.ClassID,
		Date:        r.Date,
		DurationMin: r.DurationMin,
		Status:      r.Status,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := jsonbScan(r.Sections, &ex.Sections); err != nil {
		return exam.Exam{}, err
	}
	if err := jsonbScan(r.Settings, &ex.Settings); err != nil {
		return exam.Exam{}, err
	}
	return ex, nil
}

func packExam(ex exam.Exam) (examRow, error) {
	sections, err := jsonbValue(ex.Sections)
	if err != nil {
		return examRow{}, err
	}
	if ex.Sections == nil {
		sections = []byte("[]")
	}
	settings, err := jsonbValue(ex.Settings)
	if err != nil {
		return examRow{}, err
	}
	return examRow{
		ID:          ex.ID,
		Name:        ex.Name,
		SubjectID:   ex.SubjectID,
		ClassID:     ex.ClassID,
		Date:        ex.Date.UTC(),
		DurationMin: ex.DurationMin,
		Sections:    sections,
		Settings:    settings,
		Status:      ex.Status,
		CreatedBy:   ex.CreatedBy,
		CreatedAt:   ex.CreatedAt.UTC(),
		UpdatedAt:   ex.UpdatedAt.UTC(),
	}, nil
}

type questionRow struct {
	ID             string         `db:"id"`
	Type           string         `db:"type"`
	Prompt         string         `db:"prompt"`
	Choices        pq.StringArray `db:"choices"`
	CorrectAnswers pq.StringArray `db:"correct_answers"`
	Points         int            `db:"points"`
	SubjectID      string         `db:"subject_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r questionRow) unpack() exam.Question {
	return exam.Question{
		ID:             r.ID,
		Type:           r.Type,
		Prompt:         r.Prompt,
		Choices:        r.Choices,
		CorrectAnswers: r.CorrectAnswers,
		Points:         r.Points,
		SubjectID:      r.SubjectID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type submissionRow struct {
	ID          string    `db:"id"`
	ExamID      string    `db:"exam_id"`
	StudentID   string    `db:"student_id"`
	Answers     []byte    `db:"answers"`
	StartedAt   time.Time `db:"started_at"`
	SubmittedAt time.Time `db:"submitted_at"`
	ScoreAuto   int       `db:"score_auto"`
	ScoreManual null.Int  `db:"score_manual"`
	TotalScore  int       `db:"total_score"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r submissionRow) unpack() (exam.Submission, error) {
	sub := exam.Submission{
		ID:          r.ID,
		ExamID:      r.ExamID,
		StudentID:   r.StudentID,
		StartedAt:   r.StartedAt,
		SubmittedAt: r.SubmittedAt,
		ScoreAuto:   r.ScoreAuto,
		TotalScore:  r.TotalScore,
	}
	if r.ScoreManual.Valid {
		score := r.ScoreManual.Int
		sub.ScoreManual = &score
	}
	if err := jsonbScan(r.Answers, &sub.Answers); err != nil {
		return exam.Submission{}, err
	}
	return sub, nil
}

type gradeRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	SubjectID  string      `db:"subject_id"`
	TermID     null.String `db:"term_id"`
	ExamID     null.String `db:"exam_id"`
	Score      int         `db:"score"`
	MaxScore   int         `db:"max_score"`
	Grade      string      `db:"grade"`
	Remarks    null.String `db:"remarks"`
	RecordedBy string      `db:"recorded_by"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r gradeRow) unpack() exam.Grade {
	return exam.Grade{
		ID:         r.ID,
		StudentID:  r.StudentID,
		SubjectID:  r.SubjectID,
		TermID:     r.TermID.String,
		ExamID:     r.ExamID.String,
		Score:      r.Score,
		MaxScore:   r.MaxScore,
		Grade:      r.Grade,
		Remarks:    r.Remarks.String,
		RecordedBy: r.RecordedBy,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{db: db}
}

func (repo examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	ex.ID = uuid.New().String()
	row, err := packExam(ex)
	if err != nil {
		return exam.Exam{}, err
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO exam (id, name, subject_id, class_id, date, duration_min, sections, settings, status, created_by, created_at, updated_at)
		VALUES (:id, :name, :subject_id, :class_id, :date, :duration_min, :sections, :settings, :status, :created_by, :created_at, :updated_at)`,
		row)
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return ex, nil
}

func (repo examRepository) GetExamByID(ctx context.Context, id string) (exam.Exam, error) {
	var row examRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM exam WHERE id = $1`, id); err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrNotFound, "getting exam by ID")
	}
	return row.unpack()
}

func (repo examRepository) FilterExams(ctx context.Context, filter exam.ExamQueryFilter) ([]exam.Exam, error) {
	where := []string{"true"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ClassID != "" {
		where = append(where, "class_id = "+arg(filter.ClassID))
	}
	if filter.SubjectID != "" {
		where = append(where, "subject_id = "+arg(filter.SubjectID))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}

	var rows []examRow
	query := "SELECT * FROM exam WHERE " + strings.Join(where, " AND ") + " ORDER BY date"
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering exams")
	}

	exams := make([]exam.Exam, 0, len(rows))
	for _, row := range rows {
		ex, err := row.unpack()
		if err != nil {
			return nil, err
		}
		exams = append(exams, ex)
	}
	return exams, nil
}

func (repo examRepository) SetExamStatus(ctx context.Context, id, status string) (exam.Exam, error) {
	var row examRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE exam SET status = $2, updated_at = now() WHERE id = $1 RETURNING *`, id, status)
	if err != nil {
		return exam.Exam{}, trapNoRowsErr(err, exam.ErrNotFound, "setting exam status")
	}
	return row.unpack()
}

func (repo examRepository) CreateQuestion(ctx context.Context, q exam.Question) (exam.Question, error) {
	q.ID = uuid.New().String()
	row := questionRow{
		ID:             q.ID,
		Type:           q.Type,
		Prompt:         q.Prompt,
		Choices:        q.Choices,
		CorrectAnswers: q.CorrectAnswers,
		Points:         q.Points,
		SubjectID:      q.SubjectID,
		CreatedAt:      q.CreatedAt.UTC(),
		UpdatedAt:      q.UpdatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO question (id, type, prompt, choices, correct_answers, points, subject_id, created_at, updated_at)
		VALUES (:id, :type, :prompt, :choices, :correct_answers, :points, :subject_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		return exam.Question{}, errors.Wrap(err, "inserting question")
	}
	return q, nil
}

func (repo examRepository) FilterQuestions(ctx context.Context, filter exam.QuestionQueryFilter) ([]exam.Question, error) {
	where := []string{"true"}
	var args []interface{}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		where = append(where, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	var rows []questionRow
	query := "SELECT * FROM question WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering questions")
	}

	questions := make([]exam.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.unpack())
	}
	return questions, nil
}

func (repo examRepository) QueryQuestionsByID(ctx context.Context, ids []string) ([]exam.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []questionRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM question WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, errors.Wrap(err, "querying questions by ID")
	}

	questions := make([]exam.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.unpack())
	}
	return questions, nil
}

func (repo examRepository) GetSubmission(ctx context.Context, examID, studentID string) (exam.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM submission WHERE exam_id = $1 AND student_id = $2`, examID, studentID)
	if err != nil {
		return exam.Submission{}, trapNoRowsErr(err, exam.ErrSubmissionNotFound, "getting submission")
	}
	return row.unpack()
}

func (repo examRepository) CreateSubmission(ctx context.Context, sub exam.Submission) (exam.Submission, error) {
	sub.ID = uuid.New().String()
	answers, err := jsonbValue(sub.Answers)
	if err != nil {
		return exam.Submission{}, err
	}
	if sub.Answers == nil {
		answers = []byte("[]")
	}
	row := submissionRow{
		ID:          sub.ID,
		ExamID:      sub.ExamID,
		StudentID:   sub.StudentID,
		Answers:     answers,
		StartedAt:   sub.StartedAt.UTC(),
		SubmittedAt: sub.SubmittedAt.UTC(),
		ScoreAuto:   sub.ScoreAuto,
		TotalScore:  sub.TotalScore,
		CreatedAt:   sub.SubmittedAt.UTC(),
		UpdatedAt:   sub.SubmittedAt.UTC(),
	}
	if sub.ScoreManual != nil {
		row.ScoreManual = null.IntFrom(*sub.ScoreManual)
	}
	_, err = repo.db.NamedExecContext(ctx, `
		INSERT INTO submission (id, exam_id, student_id, answers, started_at, submitted_at, score_auto, score_manual, total_score, created_at, updated_at)
		VALUES (:id, :exam_id, :student_id, :answers, :started_at, :submitted_at, :score_auto, :score_manual, :total_score, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err, "submission_exam_id_student_id_key") {
			return exam.Submission{}, exam.ErrAlreadySubmitted
		}
		return exam.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo examRepository) FilterGrades(ctx context.Context, filter exam.GradeQueryFilter) ([]exam.Grade, error) {
	where := []string{"true"}
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TermID != "" {
		args = append(args, filter.TermID)
		where = append(where, fmt.Sprintf("term_id = $%d", len(args)))
	}

	var rows []gradeRow
	query := "SELECT * FROM grade WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at"
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering grades")
	}

	grades := make([]exam.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, row.unpack())
	}
	return grades, nil
}
