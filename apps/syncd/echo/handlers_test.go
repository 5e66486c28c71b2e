package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/schoolnotes/gradesync/core/grades"
	"github.com/schoolnotes/gradesync/core/portal"
	notifsvc "github.com/schoolnotes/gradesync/services/notification"
	testutil "github.com/schoolnotes/gradesync/tests"
)

func checkCodeAndData(t *testing.T, code, wantCode int, data, wantData []byte) {
	t.Helper()
	assert.Equal(t, wantCode, code)
	if wantData != nil {
		testutil.AssertJSONEq(t, wantData, data)
	}
}

func sessionBody(t *testing.T, device string, cookies ...portal.Cookie) []byte {
	t.Helper()
	return testutil.MustMarshal(t, loginRequest{
		Device:  device,
		Session: portal.Snapshot{Cookies: cookies, SavedAt: time.Now().Unix()},
	})
}

func portalCookie() portal.Cookie {
	return portal.Cookie{
		Name:    "_session_id",
		Value:   "s3cret",
		Domain:  "127.0.0.1",
		Path:    "/",
		Expires: time.Now().Add(time.Hour).Unix(),
	}
}

func TestServer_home(t *testing.T) {
	env := setup(t, newPortalStub(t))

	req, rec := newRequest(http.MethodGet, "/")
	env.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to GradeSync API!", rec.Body.String())
}

func TestServer_authRequired(t *testing.T) {
	env := setup(t, newPortalStub(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/token-refresh"},
		{http.MethodGet, "/v1/courses"},
		{http.MethodGet, "/v1/courses/77/assignments"},
		{http.MethodPost, "/v1/sync"},
		{http.MethodPost, "/v1/assignments/501/read"},
		{http.MethodPut, "/v1/assignments/501/completion"},
		{http.MethodGet, "/v1/completion"},
		{http.MethodGet, "/v1/settings"},
		{http.MethodPut, "/v1/settings"},
		{http.MethodGet, "/v1/status"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, rec.Code, http.StatusUnauthorized, rec.Body.Bytes(), errMissingToken)
		})
	}
}

func TestServer_sessionLogin(t *testing.T) {
	env := setup(t, newPortalStub(t))

	tests := []struct {
		name     string
		body     []byte
		wantCode int
		wantData []byte
	}{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"device": "this field is required"}`),
		},
		{
			name:     "no cookies",
			body:     sessionBody(t, "iPhone 13"),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"session": "at least one cookie is required"}`),
		},
		{
			name:     "ok",
			body:     sessionBody(t, "iPhone 13", portalCookie()),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/session/login", tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, rec.Code, tt.wantCode, rec.Body.Bytes(), tt.wantData)

			if tt.wantCode == http.StatusOK {
				var resp tokenResponse
				assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				// the imported session landed in the live jar
				assert.Len(t, env.jar.ListAll(), 1)
			}
		})
	}
}

func TestServer_tokenRefresh(t *testing.T) {
	env := setup(t, newPortalStub(t))

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/token-refresh", getToken(t, env.conf))
		env.server.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp tokenResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("refresh expired", func(t *testing.T) {
		oriat := time.Now().Add(-(env.conf.Server.JWTRefreshExpirationDelta + time.Minute)).Unix()
		token, err := GenerateToken(env.conf, NewClaims(env.conf, "test-device", oriat))
		assert.NoError(t, err)

		req, rec := newAuthRequest(http.MethodPost, "/v1/token-refresh", token)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec.Code, http.StatusForbidden, rec.Body.Bytes(), []byte(`{"error": "refresh has expired"}`))
	})
}

func TestServer_syncFlow(t *testing.T) {
	notifsvc.ClearSentNotifications()
	env := setup(t, newPortalStub(t))
	token := getToken(t, env.conf)

	// run one foreground cycle
	req, rec := newAuthRequest(http.MethodPost, "/v1/sync", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var report grades.Report
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Courses)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.Notified)
	assert.False(t, report.NeedsLogin)

	if assert.Len(t, notifsvc.SentNotifications, 1) {
		assert.Equal(t, "47/50 • Precalculus now at 92%", notifsvc.SentNotifications[0].Body)
	}

	// the fetched model is queryable
	req, rec = newAuthRequest(http.MethodGet, "/v1/courses", token)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`[
		{
			"class_id": "PRE-401",
			"class_name": "Precalculus",
			"enrollment_pk": 77,
			"ptd_grade": "92",
			"ptd_letter_grade": "A-",
			"grade_band": "excellent",
			"assignments": [
				{
					"score_id": 501,
					"assignment_type": "Test",
					"assignment_description": "Chapter 5 Test",
					"raw_score": "47",
					"maximum_score": 50,
					"is_unread": 1
				}
			]
		}
	]`))

	// graded work was seeded as done
	req, rec = newAuthRequest(http.MethodGet, "/v1/completion", token)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"501": true}`))

	// status mirrors the last report
	req, rec = newAuthRequest(http.MethodGet, "/v1/status", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var last grades.Report
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Equal(t, 1, last.Notified)
}

func TestServer_syncNeedsLogin(t *testing.T) {
	env := setup(t, newLoginWallStub(t))

	req, rec := newAuthRequest(http.MethodPost, "/v1/sync", getToken(t, env.conf))
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusUnauthorized, rec.Body.Bytes(), []byte(`{"error": "portal login required"}`))
}

func TestServer_courseAssignments(t *testing.T) {
	env := setup(t, newPortalStub(t))
	token := getToken(t, env.conf)

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/77/assignments", token)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`[
			{
				"score_id": 501,
				"assignment_type": "Test",
				"assignment_description": "Chapter 5 Test",
				"raw_score": "47",
				"maximum_score": 50,
				"is_unread": 1
			}
		]`))
	})

	t.Run("bad pk", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/precalc/assignments", token)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec.Code, http.StatusNotFound, rec.Body.Bytes(), []byte(`{"error": "not found"}`))
	})
}

func TestServer_assignmentMarkRead(t *testing.T) {
	env := setup(t, newPortalStub(t))
	token := getToken(t, env.conf)

	req, rec := newAuthRequest(http.MethodPost, "/v1/assignments/501/read", token)
	env.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/completion", token)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"501": true}`))
}

func TestServer_assignmentSetCompletion(t *testing.T) {
	env := setup(t, newPortalStub(t))
	token := getToken(t, env.conf)

	t.Run("missing done", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/assignments/999/completion", token, []byte(`{}`))
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec.Code, http.StatusBadRequest, rec.Body.Bytes(), []byte(`{"done": "this field is required"}`))
	})

	t.Run("toggle", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/assignments/999/completion", token, []byte(`{"done": true}`))
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/completion", token)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"999": true}`))

		req, rec = newAuthRequest(http.MethodPut, "/v1/assignments/999/completion", token, []byte(`{"done": false}`))
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		req, rec = newAuthRequest(http.MethodGet, "/v1/completion", token)
		env.server.ServeHTTP(rec, req)
		checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"999": false}`))
	})
}

func TestServer_settings(t *testing.T) {
	env := setup(t, newPortalStub(t))
	token := getToken(t, env.conf)

	// notifications default on
	req, rec := newAuthRequest(http.MethodGet, "/v1/settings", token)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"notifications_enabled": true}`))

	req, rec = newAuthRequest(http.MethodPut, "/v1/settings", token, []byte(`{"notifications_enabled": false}`))
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"notifications_enabled": false}`))

	req, rec = newAuthRequest(http.MethodGet, "/v1/settings", token)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusOK, rec.Body.Bytes(), []byte(`{"notifications_enabled": false}`))

	req, rec = newAuthRequest(http.MethodPut, "/v1/settings", token, []byte(`{}`))
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, rec.Code, http.StatusBadRequest, rec.Body.Bytes(), []byte(`{"notifications_enabled": "this field is required"}`))
}
