package echoapi

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/schoolnotes/gradesync/core"
	"github.com/schoolnotes/gradesync/core/grades"
	"github.com/schoolnotes/gradesync/core/portal"
	notifsvc "github.com/schoolnotes/gradesync/services/notification"
	inmemstate "github.com/schoolnotes/gradesync/storage/state/inmem"
)

var errMissingToken = []byte(`{"error": "missing or malformed jwt"}`)

type testEnv struct {
	server *Server
	store  *inmemstate.Store
	conf   *core.Config
	jar    *portal.Jar
}

// coursesJSON is the portal fixture: one graded unread test in Precalculus.
const (
	coursesJSON = `{"courses": [
		{"class_id": "PRE-401", "class_name": "Precalculus", "enrollment_pk": 77, "ptd_grade": "92", "ptd_letter_grade": "A-"}
	]}`
	assignmentsJSON = `{"assignments": [
		{"score_id": 501, "assignment_description": "Chapter 5 Test", "assignment_type": "Test", "raw_score": "47", "maximum_score": 50, "is_unread": 1}
	]}`
)

// newPortalStub serves the portal fixture endpoints.
func newPortalStub(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oakwood/student/component/ClassListStudent/1308/load_data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(coursesJSON))
	})
	mux.HandleFunc("/embed/enrollment/77/assignments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(assignmentsJSON))
	})
	mux.HandleFunc("/oakwood/student", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><meta name="csrf-token" content="tok-123"></head><body></body></html>`))
	})
	mux.HandleFunc("/embed/assignments/mark_read", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newLoginWallStub serves the portal's login page at 200 for everything.
func newLoginWallStub(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>Sign in to continue</body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setup(t *testing.T, portalSrv *httptest.Server) *testEnv {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "GradeSync",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Portal: core.PortalConfig{
			BaseURL:              portalSrv.URL,
			EmbedBaseURL:         portalSrv.URL + "/embed",
			School:               "oakwood",
			ComponentID:          1308,
			Timeout:              5 * time.Second,
			MaxConcurrentFetches: 4,
		},
	}

	logger := &testLogger{std: log.New(os.Stdout, "API-TEST : ", log.LstdFlags)}
	jar := portal.NewJar()
	client := portal.NewClient(conf, jar)
	store := inmemstate.NewStore()
	svc := grades.NewService(conf, logger, client, store, notifsvc.NewConsoleServiceMock(conf), jar)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		GradeSvc:   svc,
		Store:      store,
		Validate:   validate,
		Translator: translator,
	})
	return &testEnv{server: server, store: store, conf: conf, jar: jar}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config) string {
	token, err := GenerateToken(conf, NewClaims(conf, "test-device"))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

type testLogger struct {
	std *log.Logger
}

var _ core.Logger = (*testLogger)(nil)

func (l *testLogger) Enable(bool) {}

func (l *testLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *testLogger) Info(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *testLogger) Warn(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *testLogger) Error(msg string, args ...interface{}) { l.std.Println(msg) }

func (l *testLogger) Fatal(msg string, args ...interface{}) { l.std.Fatal(msg) }
