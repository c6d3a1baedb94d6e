package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/jamii/apps/api/echo"
	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/activity"
	"github.com/trezcool/jamii/core/dashboard"
	"github.com/trezcool/jamii/core/event"
	"github.com/trezcool/jamii/core/post"
	"github.com/trezcool/jamii/core/record"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/services/email"
	"github.com/trezcool/jamii/services/files"
	"github.com/trezcool/jamii/services/logger"
	"github.com/trezcool/jamii/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf    *core.Config
	client  *flakyClient
	usrRepo user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	files   *filesvc.MemoryStore

	activitySvc *activity.Service
	eventSvc    *event.Service
	resourceSvc *resource.Service
	postSvc     *post.Service
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	client := &flakyClient{Client: inmemdb.NewRecordClient(db)}

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	files := filesvc.NewMemoryStore()

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	event.InitValidators(validate, translator)
	resource.InitValidators(validate, translator)

	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	activitySvc := activity.NewService(client)
	eventSvc := event.NewService(client, conf.CalendarLocation)
	resourceSvc := resource.NewService(client, files, resource.NewUploadPolicy(conf))
	postSvc := post.NewService(client)

	// set up server
	app := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		ActivitySvc:    activitySvc,
		EventSvc:       eventSvc,
		ResourceSvc:    resourceSvc,
		PostSvc:        postSvc,
		DashboardSvc:   dashboard.NewService(usrSvc, activitySvc, eventSvc, resourceSvc, postSvc),
		Validate:       validate,
		Translator:     translator,
	})
	t.Cleanup(func() { _ = app.Close() })

	return &testApp{
		Server:      app,
		conf:        conf,
		client:      client,
		usrRepo:     usrRepo,
		mailSvc:     mailSvc,
		files:       files,
		activitySvc: activitySvc,
		eventSvc:    eventSvc,
		resourceSvc: resourceSvc,
		postSvc:     postSvc,
	}
}

// flakyClient fails the next fetches on demand.
type flakyClient struct {
	record.Client

	mu       sync.Mutex
	failures int
	fetches  int
}

func (c *flakyClient) failNextFetches(n int) {
	c.mu.Lock()
	c.failures = n
	c.mu.Unlock()
}

func (c *flakyClient) fetchCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

func (c *flakyClient) FetchRecords(ctx context.Context, table string, params record.FetchParams) ([]record.Record, error) {
	c.mu.Lock()
	c.fetches++
	fail := c.failures > 0
	if fail {
		c.failures--
	}
	c.mu.Unlock()

	if fail {
		return nil, errors.Wrap(record.ErrFailed, "connection reset by peer")
	}
	return c.Client.FetchRecords(ctx, table, params)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
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

func getToken(t *testing.T, usr user.User, conf *core.Config) string {
	token, err := GenerateToken(NewClaims(usr, conf), conf)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
