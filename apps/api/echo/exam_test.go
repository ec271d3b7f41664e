package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/user"
)

func Test_examApi(t *testing.T) {
	app := setup(t)
	tchToken := getToken(t, app.createUser(t, "teacher@test.com", user.RoleTeacher))
	stdUsr := app.createUser(t, "student@test.com", user.RoleStudent)
	stdToken := getToken(t, stdUsr)
	std2Usr := app.createUser(t, "student2@test.com", user.RoleStudent)
	std2Token := getToken(t, std2Usr)

	var q exam.Question
	t.Run("create question", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/questions", tchToken, marchallObj(t, exam.NewQuestion{
			Type:           exam.TypeMCQ,
			Prompt:         "2 + 2 = ?",
			Choices:        []string{"3", "4", "5"},
			CorrectAnswers: []string{"4"},
			Points:         5,
			SubjectID:      "sub-1",
		}))
		checkCode(t, rec, http.StatusCreated)
		decode(t, rec, &q)
	})

	var ex exam.Exam
	t.Run("create exam", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams", tchToken, marchallObj(t, exam.NewExam{
			Name:        "Math Midterm",
			SubjectID:   "sub-1",
			ClassID:     "cls-1",
			Date:        time.Now().Add(24 * time.Hour),
			DurationMin: 60,
			Sections:    []exam.Section{{Name: "A", QuestionIDs: []string{q.ID}}},
		}))
		checkCode(t, rec, http.StatusCreated)
		decode(t, rec, &ex)
		if ex.Status != exam.StatusDraft {
			t.Errorf("status = %q; want draft", ex.Status)
		}
	})

	t.Run("students cannot create exams", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams", stdToken, marchallObj(t, exam.NewExam{
			Name: "Sneaky", SubjectID: "sub-1", ClassID: "cls-1",
			Date: time.Now(), DurationMin: 10,
		}))
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	submission := map[string]interface{}{
		"answers": []map[string]interface{}{{"question_id": q.ID, "answer": "4"}},
	}

	t.Run("submit before publish", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams/"+ex.ID+"/submissions", stdToken, marchallObj(t, submission))
		checkErrCode(t, rec, http.StatusBadRequest, "EXAM_NOT_PUBLISHED")
	})

	t.Run("publish", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams/"+ex.ID+"/publish", tchToken)
		checkCode(t, rec, http.StatusOK)
		decode(t, rec, &ex)
		if ex.Status != exam.StatusPublished {
			t.Errorf("status = %q; want published", ex.Status)
		}
	})

	t.Run("teachers cannot submit", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams/"+ex.ID+"/submissions", tchToken, marchallObj(t, submission))
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	t.Run("submit", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams/"+ex.ID+"/submissions", stdToken, marchallObj(t, submission))
		checkCode(t, rec, http.StatusCreated)
		var sub exam.Submission
		decode(t, rec, &sub)
		if sub.ScoreAuto != 5 || sub.TotalScore != 5 {
			t.Errorf("unexpected scores: %+v", sub)
		}
		if sub.StudentID != stdUsr.ID {
			t.Errorf("studentId = %q; want the caller %q", sub.StudentID, stdUsr.ID)
		}
	})

	t.Run("duplicate submit", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams/"+ex.ID+"/submissions", stdToken, marchallObj(t, submission))
		checkErrCode(t, rec, http.StatusConflict, "ALREADY_SUBMITTED")
	})

	t.Run("answers accept arrays", func(t *testing.T) {
		// a student_id in the body is ignored: the submission belongs to the caller
		body, _ := json.Marshal(map[string]interface{}{
			"student_id": "someone-else",
			"answers":    []map[string]interface{}{{"question_id": q.ID, "answer": []string{"4", "5"}}},
		})
		rec := app.do(http.MethodPost, "/v1/exams/"+ex.ID+"/submissions", std2Token, body)
		checkCode(t, rec, http.StatusCreated)
		var sub exam.Submission
		decode(t, rec, &sub)
		if sub.ScoreAuto != 0 { // superset of the key scores zero
			t.Errorf("score = %d; want 0", sub.ScoreAuto)
		}
		if sub.StudentID != std2Usr.ID {
			t.Errorf("studentId = %q; want the caller %q", sub.StudentID, std2Usr.ID)
		}
	})

	t.Run("unknown exam", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/exams/nope/submissions", stdToken, marchallObj(t, submission))
		checkErrCode(t, rec, http.StatusNotFound, "NOT_FOUND")
	})

	t.Run("list exams", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/exams?subject_id=sub-1", stdToken)
		checkCode(t, rec, http.StatusOK)
		var exams []exam.Exam
		decode(t, rec, &exams)
		if len(exams) != 1 {
			t.Errorf("exams = %d; want 1", len(exams))
		}
	})
}
