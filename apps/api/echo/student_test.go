package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

func Test_studentApi(t *testing.T) {
	app := setup(t)
	adminToken := getToken(t, app.createUser(t, "admin@test.com", user.RoleAdmin))
	acadToken := getToken(t, app.createUser(t, "acad@test.com", user.RoleAcademicAdmin))
	tchToken := getToken(t, app.createUser(t, "teacher@test.com", user.RoleTeacher))

	newStd := student.NewStudent{
		FirstName:   "Jane",
		LastName:    "Doe",
		DOB:         time.Date(2012, 5, 10, 0, 0, 0, 0, time.UTC),
		Gender:      "F",
		AdmissionNo: "ADM-001",
	}

	t.Run("write role required", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/students", tchToken, marchallObj(t, newStd))
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	var std student.Student
	t.Run("create", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/students", acadToken, marchallObj(t, newStd))
		checkCode(t, rec, http.StatusCreated)
		decode(t, rec, &std)
		if std.Status != student.StatusActive {
			t.Errorf("status = %q; want active", std.Status)
		}
	})

	t.Run("duplicate admission no", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/students", acadToken, marchallObj(t, newStd))
		checkErrCode(t, rec, http.StatusBadRequest, "VALIDATION")
		if body := decodeErr(t, rec); body.Details["admission_no"] == "" {
			t.Errorf("expected admission_no field error; body = %s", rec.Body.String())
		}
	})

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students?q=jane&page=1&pageSize=5", tchToken)
		checkCode(t, rec, http.StatusOK)
		var res struct {
			Data []student.Student `json:"data"`
			Meta pageMeta          `json:"meta"`
		}
		decode(t, rec, &res)
		if len(res.Data) != 1 || res.Meta.Total != 1 || res.Meta.Page != 1 {
			t.Errorf("unexpected page: %+v", res)
		}
		if res.Meta.PageSize != 5 {
			t.Errorf("pageSize = %d; want 5", res.Meta.PageSize)
		}
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/v1/students/"+std.ID, acadToken, marchallObj(t, student.UpdateStudent{
			FirstName: "Janet",
			ClassID:   "cls-1",
		}))
		checkCode(t, rec, http.StatusOK)
		decode(t, rec, &std)
		if std.FirstName != "Janet" || std.ClassID != "cls-1" || std.LastName != "Doe" {
			t.Errorf("unexpected student: %+v", std)
		}
	})

	t.Run("guardians", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/students/"+std.ID+"/guardians", acadToken, marchallObj(t, student.NewGuardian{
			Name: "Mary Doe", Relation: "mother", Phone: "+1111", Email: "mary@test.com", IsPrimary: true,
		}))
		checkCode(t, rec, http.StatusCreated)

		rec = app.do(http.MethodPost, "/v1/students/"+std.ID+"/guardians", acadToken, marchallObj(t, student.NewGuardian{
			Name: "Mark Doe", Relation: "father", Phone: "+2222", Email: "mark@test.com", IsPrimary: true,
		}))
		checkCode(t, rec, http.StatusCreated)

		rec = app.do(http.MethodGet, "/v1/students/"+std.ID+"/guardians", tchToken)
		checkCode(t, rec, http.StatusOK)
		var guardians []student.Guardian
		decode(t, rec, &guardians)
		primaries := 0
		for _, g := range guardians {
			if g.IsPrimary {
				primaries++
			}
		}
		if len(guardians) != 2 || primaries != 1 {
			t.Errorf("guardians = %d, primaries = %d; want 2, 1", len(guardians), primaries)
		}
	})

	t.Run("archive is admin only", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/students/"+std.ID, acadToken)
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	t.Run("archive", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/v1/students/"+std.ID, adminToken)
		checkCode(t, rec, http.StatusOK)
		var got student.Student
		decode(t, rec, &got)
		if got.Status != student.StatusArchived {
			t.Errorf("status = %q; want archived", got.Status)
		}

		// archived students are gone from reads
		rec = app.do(http.MethodGet, "/v1/students/"+std.ID, adminToken)
		checkErrCode(t, rec, http.StatusNotFound, "NOT_FOUND")
	})
}
