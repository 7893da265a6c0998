package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/cclient/apps/api/echo"
	"github.com/trezcool/cclient/core"
	"github.com/trezcool/cclient/core/admin"
	"github.com/trezcool/cclient/core/course"
	"github.com/trezcool/cclient/core/dashboard"
	"github.com/trezcool/cclient/core/invoice"
	"github.com/trezcool/cclient/core/learner"
	"github.com/trezcool/cclient/core/session"
	"github.com/trezcool/cclient/core/track"
	emailsvc "github.com/trezcool/cclient/services/email"
	smssvc "github.com/trezcool/cclient/services/sms"
	sqlxrepos "github.com/trezcool/cclient/storage/database/sqlx"
	testutil "github.com/trezcool/cclient/tests"
)

type testApp struct {
	app     echoapi.Server
	conf    *core.Config
	issuer  *session.Issuer
	mailSvc *emailsvc.ConsoleService
	smsSvc  *smssvc.ConsoleService

	adminRepo   admin.Repository
	trackRepo   track.Repository
	courseRepo  course.Repository
	learnerRepo learner.Repository
	invoiceRepo invoice.Repository
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator(conf)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	ta := &testApp{
		conf:        conf,
		adminRepo:   sqlxrepos.NewAdminRepository(db),
		trackRepo:   sqlxrepos.NewTrackRepository(db),
		courseRepo:  sqlxrepos.NewCourseRepository(db),
		learnerRepo: sqlxrepos.NewLearnerRepository(db),
		invoiceRepo: sqlxrepos.NewInvoiceRepository(db),
	}

	// set up services
	var err error
	if ta.issuer, err = session.NewIssuer(conf); err != nil {
		t.Fatalf("session.NewIssuer() failed: %v", err)
	}
	ta.mailSvc = emailsvc.NewConsoleServiceMock(conf, testutil.NewEmailTemplates(t, conf))
	ta.smsSvc = smssvc.NewConsoleService(nil)
	adminSvc := admin.NewService(admin.Deps{
		DB:      db,
		Repo:    ta.adminRepo,
		Issuer:  ta.issuer,
		MailSvc: ta.mailSvc,
		SMSSvc:  ta.smsSvc,
		Logger:  logger,
		Conf:    conf,
	})

	// set up server
	ta.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logger,
		AdminSvc:     adminSvc,
		Tokens:       ta.issuer,
		TrackSvc:     track.NewService(ta.trackRepo),
		CourseSvc:    course.NewService(ta.courseRepo),
		LearnerSvc:   learner.NewService(ta.learnerRepo),
		InvoiceSvc:   invoice.NewService(ta.invoiceRepo),
		DashboardSvc: dashboard.NewService(sqlxrepos.NewDashboardRepository(db)),
		Validate:     validate,
		Translator:   translator,
	})
	return ta
}

// loggedIn creates a verified admin and returns it with a valid token.
func (ta *testApp) loggedIn(t *testing.T) (admin.Admin, string) {
	adm := testutil.CreateAdmin(t, ta.adminRepo, "Bob", "Admin", "bob@cclient.test", testutil.Password, true)
	return adm, ta.getToken(t, adm.ID)
}

func (ta *testApp) getToken(t *testing.T, adminID int) string {
	token, err := ta.issuer.Issue(adminID)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (ta *testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	ta.app.ServeHTTP(rec, req)
}

type httpMsg struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
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

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func msg(t *testing.T, message string) []byte {
	return marshalObj(t, httpMsg{Message: message})
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, ta *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			ta.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
