package exam

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound           = errors.New("exam not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrExamNotPublished   = errors.New("exam is not published")
	ErrAlreadySubmitted   = errors.New("exam already submitted")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, ex Exam) (Exam, error)
		GetExamByID(ctx context.Context, id string) (Exam, error)
		FilterExams(ctx context.Context, filter ExamQueryFilter) ([]Exam, error)
		SetExamStatus(ctx context.Context, id, status string) (Exam, error)

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		FilterQuestions(ctx context.Context, filter QuestionQueryFilter) ([]Question, error)
		QueryQuestionsByID(ctx context.Context, ids []string) ([]Question, error)

		GetSubmission(ctx context.Context, examID, studentID string) (Submission, error)
		// CreateSubmission fails with ErrAlreadySubmitted when a submission
		// already exists for the (exam, student) pair; the uniqueness must be
		// enforced by the store, not only by a prior read.
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)

		FilterGrades(ctx context.Context, filter GradeQueryFilter) ([]Grade, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ne NewExam, createdBy string) (Exam, error) {
	now := time.Now().UTC()
	ex := Exam{
		Name:        ne.Name,
		SubjectID:   ne.SubjectID,
		ClassID:     ne.ClassID,
		Date:        ne.Date,
		DurationMin: ne.DurationMin,
		Sections:    ne.Sections,
		Settings:    Settings{AllowReview: true},
		Status:      StatusDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ne.Settings != nil {
		ex.Settings = *ne.Settings
	}
	return svc.repo.CreateExam(ctx, ex)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Exam, error) {
	return svc.repo.GetExamByID(ctx, id)
}

func (svc *Service) Filter(ctx context.Context, filter ExamQueryFilter) ([]Exam, error) {
	return svc.repo.FilterExams(ctx, filter)
}

// Publish moves the exam to the published state. Publishing an already
// published exam is a no-op success; there is no guard on the current
// status on purpose.
func (svc *Service) Publish(ctx context.Context, id string) (Exam, error) {
	return svc.repo.SetExamStatus(ctx, id, StatusPublished)
}

// Submit stores a student's one and only submission for a published exam
// and auto-grades its mcq answers. Duplicate submissions are rejected by
// the store's (exam, student) unique key, so concurrent first submissions
// yield exactly one stored submission.
func (svc *Service) Submit(ctx context.Context, examID, studentID string, se SubmitExam) (Submission, error) {
	ex, err := svc.repo.GetExamByID(ctx, examID)
	if err != nil {
		return Submission{}, err
	}
	if ex.Status != StatusPublished {
		return Submission{}, ErrExamNotPublished
	}

	if _, err = svc.repo.GetSubmission(ctx, examID, studentID); err == nil {
		return Submission{}, ErrAlreadySubmitted
	} else if errors.Cause(err) != ErrSubmissionNotFound {
		return Submission{}, errors.Wrap(err, "checking existing submission")
	}

	questions, err := svc.repo.QueryQuestionsByID(ctx, ex.QuestionIDs())
	if err != nil {
		return Submission{}, errors.Wrap(err, "loading exam questions")
	}

	scoreAuto := AutoGrade(questions, se.Answers)
	now := time.Now().UTC()
	sub := Submission{
		ExamID:      examID,
		StudentID:   studentID,
		Answers:     se.Answers,
		StartedAt:   now,
		SubmittedAt: now,
		ScoreAuto:   scoreAuto,
		TotalScore:  scoreAuto,
	}
	return svc.repo.CreateSubmission(ctx, sub)
}

func (svc *Service) CreateQuestion(ctx context.Context, nq NewQuestion) (Question, error) {
	now := time.Now().UTC()
	q := Question{
		Type:           nq.Type,
		Prompt:         nq.Prompt,
		Choices:        nq.Choices,
		CorrectAnswers: nq.CorrectAnswers,
		Points:         nq.Points,
		SubjectID:      nq.SubjectID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *Service) FilterQuestions(ctx context.Context, filter QuestionQueryFilter) ([]Question, error) {
	return svc.repo.FilterQuestions(ctx, filter)
}

func (svc *Service) FilterGrades(ctx context.Context, filter GradeQueryFilter) ([]Grade, error) {
	return svc.repo.FilterGrades(ctx, filter)
}
