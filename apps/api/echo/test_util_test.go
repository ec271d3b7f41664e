package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/exam"
	"github.com/trezcool/academia/core/finance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	dummydb "github.com/trezcool/academia/storage/database/dummy"
)

type testApp struct {
	server echoapi.Server

	usrSvc *user.Service
	stdSvc *student.Service
}

func setup(t *testing.T) *testApp {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	conf := core.NewConfig()
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)

	usrSvc := user.NewService(dummydb.NewUserRepository(db))
	stdSvc := student.NewService(dummydb.NewStudentRepository(db))

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		StudentSvc:     stdSvc,
		AcademicSvc:    academic.NewService(dummydb.NewAcademicRepository(db)),
		AttendanceSvc:  attendance.NewService(dummydb.NewAttendanceRepository(db)),
		ExamSvc:        exam.NewService(dummydb.NewExamRepository(db)),
		FinanceSvc:     finance.NewService(dummydb.NewFinanceRepository(db), stdSvc, mailSvc),
		Validate:       validate,
		Translator:     translator,
	})
	return &testApp{server: server, usrSvc: usrSvc, stdSvc: stdSvc}
}

func (app *testApp) createUser(t *testing.T, email, role string) user.User {
	usr, err := app.usrSvc.Create(context.Background(), user.NewUser{
		Email:     email,
		Password:  "passwd123",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

type (
	errBody struct {
		Code          string            `json:"code"`
		Message       interface{}       `json:"message"`
		Details       map[string]string `json:"details"`
		CorrelationID string            `json:"correlationId"`
	}

	errResponse struct {
		Error errBody `json:"error"`
	}

	pageMeta struct {
		Page      int `json:"page"`
		PageSize  int `json:"pageSize"`
		Total     int `json:"total"`
		PageCount int `json:"pageCount"`
	}
)

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body = %s", err, rec.Body.String())
	}
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	var res errResponse
	decode(t, rec, &res)
	if res.Error.CorrelationID == "" {
		t.Errorf("missing correlationId; body = %s", rec.Body.String())
	}
	return res.Error
}

func checkCode(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) {
	if rec.Code != wantCode {
		t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, wantCode, rec.Body.String())
	}
}

func checkErrCode(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantErrCode string) {
	checkCode(t, rec, wantCode)
	if body := decodeErr(t, rec); body.Code != wantErrCode {
		t.Errorf("failed! error code = %q; want %q; body = %s", body.Code, wantErrCode, rec.Body.String())
	}
}
