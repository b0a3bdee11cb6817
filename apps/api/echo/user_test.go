package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/kazi/core/user"
	testutil "github.com/trezcool/kazi/tests"
)

func Test_home(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "Welcome to Kazi API!" {
		t.Errorf("home: code = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func Test_userApi(t *testing.T) {
	app := newTestApp(t)

	now := time.Now()
	teacher := testutil.CreateUser(t, app.usrRepo, "teacher", "Mwalimu", "mwalimu@test.cd", []string{user.RoleTeacher}, true, now)
	student := testutil.CreateUser(t, app.usrRepo, "student", "Mwanafunzi", "mwanafunzi@test.cd", []string{user.RoleStudent}, true, now.Add(time.Second))
	inactive := testutil.CreateUser(t, app.usrRepo, "inactive", "Mzimu", "mzimu@test.cd", []string{user.RoleStudent}, false, now.Add(2*time.Second))

	// identities unknown to the roster are taken from their token
	stranger := user.User{ID: "stranger", Name: "Mgeni", Email: "mgeni@test.cd", IsActive: true, Roles: []string{user.RoleStudent}}

	teacherToken := getToken(t, teacher, app.conf)
	studentToken := getToken(t, student, app.conf)

	otherConf := *app.conf
	otherConf.SecretKey = "not the secret"

	runHttpTests(t, app, []httpTest{
		{name: "auth required", path: "/api/users/me", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{
			name: "token signed with another key", path: "/api/users/me", token: getToken(t, student, &otherConf),
			wantCode: http.StatusUnauthorized, wantData: marshallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{name: "me", path: "/api/users/me", token: studentToken, wantCode: http.StatusOK, wantData: marshallObj(t, student)},
		{name: "me (not on roster)", path: "/api/users/me", token: getToken(t, stranger, app.conf), wantCode: http.StatusOK, wantData: marshallObj(t, stranger)},
		{
			name: "me (deactivated)", path: "/api/users/me", token: getToken(t, inactive, app.conf),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "list: elevated required", path: "/api/users", token: studentToken,
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "list", path: "/api/users", token: teacherToken, wantCode: http.StatusOK, wantData: marshallList(t, teacher, student, inactive)},
		{name: "list: search", path: "/api/users?search=MZIMU", token: teacherToken, wantCode: http.StatusOK, wantData: marshallList(t, inactive)},
		{name: "list: role", path: "/api/users?role=teacher:", token: teacherToken, wantCode: http.StatusOK, wantData: marshallList(t, teacher)},
		{name: "list: no match", path: "/api/users?search=lol", token: teacherToken, wantCode: http.StatusOK, wantData: marshallList(t)},
		{
			name: "roles", path: "/api/users/roles", token: teacherToken,
			wantCode: http.StatusOK, wantData: marshallObj(t, user.Roles),
		},
	})
}
