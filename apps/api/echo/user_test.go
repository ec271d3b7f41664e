package echoapi_test

import (
	"net/http"
	"testing"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/user"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	app.createUser(t, "jane@test.com", user.RoleTeacher)

	tests := []struct {
		name     string
		body     echoapi.LoginRequest
		wantCode int
	}{
		{"valid credentials", echoapi.LoginRequest{Email: "jane@test.com", Password: "passwd123"}, http.StatusOK},
		{"email is case-insensitive", echoapi.LoginRequest{Email: "Jane@Test.com", Password: "passwd123"}, http.StatusOK},
		{"bad password", echoapi.LoginRequest{Email: "jane@test.com", Password: "nope"}, http.StatusUnauthorized},
		{"unknown email", echoapi.LoginRequest{Email: "ghost@test.com", Password: "passwd123"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/v1/auth/login", "", marchallObj(t, tt.body))
			checkCode(t, rec, tt.wantCode)
			if tt.wantCode == http.StatusOK {
				var res echoapi.LoginResponse
				decode(t, rec, &res)
				if res.Token == "" {
					t.Error("expected a token")
				}
			} else {
				decodeErr(t, rec)
			}
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/login", "", []byte(`{}`))
		checkErrCode(t, rec, http.StatusBadRequest, "VALIDATION")
		if body := decodeErr(t, rec); body.Details["email"] == "" {
			t.Errorf("expected email field error; body = %s", rec.Body.String())
		}
	})
}

func Test_authApi_me(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "jane@test.com", user.RoleTeacher)

	t.Run("auth required", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/auth/me", "")
		checkErrCode(t, rec, http.StatusUnauthorized, "UNAUTHORIZED")
	})

	t.Run("returns the authenticated user", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/auth/me", getToken(t, usr))
		checkCode(t, rec, http.StatusOK)
		var got user.User
		decode(t, rec, &got)
		if got.Email != usr.Email {
			t.Errorf("email = %q; want %q", got.Email, usr.Email)
		}
	})
}

func Test_authApi_refreshToken(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "jane@test.com", user.RoleStudent)

	rec := app.do(http.MethodPost, "/v1/auth/token-refresh", getToken(t, usr))
	checkCode(t, rec, http.StatusOK)
	var res echoapi.LoginResponse
	decode(t, rec, &res)
	if res.Token == "" {
		t.Error("expected a token")
	}
}

func Test_authApi_register(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin@test.com", user.RoleAdmin)
	teacher := app.createUser(t, "teacher@test.com", user.RoleTeacher)

	newUsr := user.NewUser{
		Email:     "new@test.com",
		Password:  "passwd123",
		FirstName: "New",
		LastName:  "User",
		Role:      user.RoleFinance,
	}

	t.Run("admin only", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/register", getToken(t, teacher), marchallObj(t, newUsr))
		checkErrCode(t, rec, http.StatusForbidden, "FORBIDDEN")
	})

	t.Run("created", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/register", getToken(t, admin), marchallObj(t, newUsr))
		checkCode(t, rec, http.StatusCreated)
		var got user.User
		decode(t, rec, &got)
		if got.Role != user.RoleFinance || !got.IsActive {
			t.Errorf("unexpected user: %+v", got)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/auth/register", getToken(t, admin), marchallObj(t, newUsr))
		checkErrCode(t, rec, http.StatusBadRequest, "VALIDATION")
		if body := decodeErr(t, rec); body.Details["email"] == "" {
			t.Errorf("expected email field error; body = %s", rec.Body.String())
		}
	})

	t.Run("invalid role", func(t *testing.T) {
		bad := newUsr
		bad.Email = "other@test.com"
		bad.Role = "superhero"
		rec := app.do(http.MethodPost, "/v1/auth/register", getToken(t, admin), marchallObj(t, bad))
		checkErrCode(t, rec, http.StatusBadRequest, "VALIDATION")
	})
}
