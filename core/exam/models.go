package exam

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Exam statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusClosed    = "closed" // declared for completeness; no transition sets it yet
)

// Question types
const (
	TypeMCQ   = "mcq"
	TypeShort = "short"
	TypeEssay = "essay"
)

type (
	Section struct {
		Name        string   `json:"name"`
		QuestionIDs []string `json:"question_ids"`
	}

	Settings struct {
		NegativeMarking bool `json:"negative_marking"`
		Proctoring      bool `json:"proctoring"`
		AllowReview     bool `json:"allow_review"`
	}

	Exam struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		SubjectID   string    `json:"subject_id"`
		ClassID     string    `json:"class_id"`
		Date        time.Time `json:"date"`
		DurationMin int       `json:"duration_min"`
		Sections    []Section `json:"sections"`
		Settings    Settings  `json:"settings"`
		Status      string    `json:"status"`
		CreatedBy   string    `json:"created_by"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}

	Question struct {
		ID             string    `json:"id"`
		Type           string    `json:"type"`
		Prompt         string    `json:"prompt"`
		Choices        []string  `json:"choices,omitempty"`
		CorrectAnswers []string  `json:"correct_answers,omitempty"`
		Points         int       `json:"points"`
		SubjectID      string    `json:"subject_id"`
		CreatedAt      time.Time `json:"created_at"` // UTC
		UpdatedAt      time.Time `json:"updated_at"` // UTC
	}

	Submission struct {
		ID          string    `json:"id"`
		ExamID      string    `json:"exam_id"`
		StudentID   string    `json:"student_id"`
		Answers     []Answer  `json:"answers"`
		StartedAt   time.Time `json:"started_at"`   // UTC
		SubmittedAt time.Time `json:"submitted_at"` // UTC
		ScoreAuto   int       `json:"score_auto"`
		ScoreManual *int      `json:"score_manual,omitempty"`
		TotalScore  int       `json:"total_score"`
	}

	Grade struct {
		ID         string    `json:"id"`
		StudentID  string    `json:"student_id"`
		SubjectID  string    `json:"subject_id"`
		TermID     string    `json:"term_id,omitempty"`
		ExamID     string    `json:"exam_id,omitempty"`
		Score      int       `json:"score"`
		MaxScore   int       `json:"max_score"`
		Grade      string    `json:"grade"`
		Remarks    string    `json:"remarks,omitempty"`
		RecordedBy string    `json:"recorded_by"`
		CreatedAt  time.Time `json:"created_at"` // UTC
		UpdatedAt  time.Time `json:"updated_at"` // UTC
	}
)

// QuestionIDs flattens the exam's sections into the ordered question list.
func (e *Exam) QuestionIDs() []string {
	var ids []string
	for _, sec := range e.Sections {
		ids = append(ids, sec.QuestionIDs...)
	}
	return ids
}

// AnswerValue accepts either a single JSON string or an array of strings
// and always holds the set form.
type AnswerValue []string

func (v *AnswerValue) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*v = AnswerValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*v = AnswerValue(many)
	return nil
}

type Answer struct {
	QuestionID string      `json:"question_id" validate:"required"`
	Answer     AnswerValue `json:"answer"`
}

// IsCorrect reports whether the submitted answer set matches the question's
// correct-answer set exactly: same elements, same cardinality, any order.
// Partial overlap scores zero.
func (q *Question) IsCorrect(answer AnswerValue) bool {
	if q.Type != TypeMCQ || len(q.CorrectAnswers) == 0 {
		return false
	}
	if len(answer) != len(q.CorrectAnswers) {
		return false
	}
	correct := make(map[string]bool, len(q.CorrectAnswers))
	for _, a := range q.CorrectAnswers {
		correct[a] = true
	}
	for _, a := range answer {
		if !correct[a] {
			return false
		}
	}
	return true
}

// AutoGrade scores the mcq answers against their questions; non-mcq types
// contribute zero (manual grading happens elsewhere).
func AutoGrade(questions []Question, answers []Answer) int {
	byID := make(map[string]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var score int
	for _, ans := range answers {
		q, ok := byID[ans.QuestionID]
		if !ok {
			continue
		}
		if q.IsCorrect(ans.Answer) {
			score += q.Points
		}
	}
	return score
}

// NewExam contains information needed to create a new Exam (in draft).
type NewExam struct {
	Name        string    `json:"name" validate:"required"`
	SubjectID   string    `json:"subject_id" validate:"required"`
	ClassID     string    `json:"class_id" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	DurationMin int       `json:"duration_min" validate:"required,min=1"`
	Sections    []Section `json:"sections"`
	Settings    *Settings `json:"settings"`
}

func (ne *NewExam) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	return validate.Struct(ne)
}

// NewQuestion contains information needed to create a new Question.
type NewQuestion struct {
	Type           string   `json:"type" validate:"required,oneof=mcq short essay"`
	Prompt         string   `json:"prompt" validate:"required"`
	Choices        []string `json:"choices" validate:"required_if=Type mcq"`
	CorrectAnswers []string `json:"correct_answers" validate:"required_if=Type mcq"`
	Points         int      `json:"points" validate:"omitempty,min=1"`
	SubjectID      string   `json:"subject_id" validate:"required"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Prompt = core.CleanString(nq.Prompt)
	if nq.Points == 0 {
		nq.Points = 1
	}
	return validate.Struct(nq)
}

// SubmitExam is a student's answer sheet.
type SubmitExam struct {
	Answers []Answer `json:"answers" validate:"required,dive"`
}

func (se *SubmitExam) Validate(validate *validator.Validate) error {
	return validate.Struct(se)
}

type ExamQueryFilter struct {
	ClassID   string `query:"class_id"`
	SubjectID string `query:"subject_id"`
	Status    string `query:"status"`
}

type QuestionQueryFilter struct {
	SubjectID string `query:"subject_id"`
	Type      string `query:"type"`
}

type GradeQueryFilter struct {
	StudentID string `query:"student_id"`
	TermID    string `query:"term_id"`
}
