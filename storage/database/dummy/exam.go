package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/exam"
)

type examRepository struct {
	db *examTable
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db.exam}
}

func (repo *examRepository) CreateExam(_ context.Context, ex exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ex.ID = uuid.New().String()
	repo.db.exams[ex.ID] = &ex
	return ex, nil
}

func (repo *examRepository) GetExamByID(_ context.Context, id string) (exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.exams[id]; ok {
		return *ex, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) FilterExams(_ context.Context, filter exam.ExamQueryFilter) ([]exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []exam.Exam
	for _, ex := range repo.db.exams {
		if filter.ClassID != "" && ex.ClassID != filter.ClassID {
			continue
		}
		if filter.SubjectID != "" && ex.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Status != "" && ex.Status != filter.Status {
			continue
		}
		matched = append(matched, *ex)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })
	return matched, nil
}

func (repo *examRepository) SetExamStatus(_ context.Context, id, status string) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ex, ok := repo.db.exams[id]
	if !ok {
		return exam.Exam{}, exam.ErrNotFound
	}
	ex.Status = status
	return *ex, nil
}

func (repo *examRepository) CreateQuestion(_ context.Context, q exam.Question) (exam.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = uuid.New().String()
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *examRepository) FilterQuestions(_ context.Context, filter exam.QuestionQueryFilter) ([]exam.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []exam.Question
	for _, q := range repo.db.questions {
		if filter.SubjectID != "" && q.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Type != "" && q.Type != filter.Type {
			continue
		}
		matched = append(matched, *q)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

func (repo *examRepository) QueryQuestionsByID(_ context.Context, ids []string) ([]exam.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]exam.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := repo.db.questions[id]; ok {
			questions = append(questions, *q)
		}
	}
	return questions, nil
}

func (repo *examRepository) GetSubmission(_ context.Context, examID, studentID string) (exam.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sub := range repo.db.submissions {
		if sub.ExamID == examID && sub.StudentID == studentID {
			return *sub, nil
		}
	}
	return exam.Submission{}, exam.ErrSubmissionNotFound
}

func (repo *examRepository) CreateSubmission(_ context.Context, sub exam.Submission) (exam.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.submissions {
		if existing.ExamID == sub.ExamID && existing.StudentID == sub.StudentID {
			return exam.Submission{}, exam.ErrAlreadySubmitted
		}
	}
	sub.ID = uuid.New().String()
	repo.db.submissions[sub.ID] = &sub
	return sub, nil
}

func (repo *examRepository) FilterGrades(_ context.Context, filter exam.GradeQueryFilter) ([]exam.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []exam.Grade
	for _, grd := range repo.db.grades {
		if filter.StudentID != "" && grd.StudentID != filter.StudentID {
			continue
		}
		if filter.TermID != "" && grd.TermID != filter.TermID {
			continue
		}
		matched = append(matched, *grd)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}
