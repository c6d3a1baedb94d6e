package echoapi_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/apps/api/echo"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/core/user"
	"github.com/trezcool/jamii/testutil"
)

func createResource(t *testing.T, app *testApp, title, category string, date time.Time, featured bool) resource.Resource {
	res, err := app.resourceSvc.Create(context.Background(), resource.NewResource{
		Title:    title,
		Type:     resource.TypeLink,
		Category: category,
		URL:      "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		Date:     &date,
		Featured: featured,
	})
	require.NoError(t, err)
	return res
}

func newUploadRequest(t *testing.T, token string, fields map[string]string, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, rec := newAuthRequest(http.MethodPost, "/v1/resources/upload", token, body.Bytes())
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, rec
}

func Test_resourceApi_query(t *testing.T) {
	app := setup(t)

	resident := testutil.CreateUser(t, app.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleResident}, true)
	token := getToken(t, resident, app.conf)

	now := time.Now().UTC().Truncate(time.Second)
	bylaws := createResource(t, app, "Building bylaws", "Governance", now.Add(-72*time.Hour), true)
	minutes := createResource(t, app, "AGM minutes", "Governance", now.Add(-48*time.Hour), false)
	recycling := createResource(t, app, "Recycling guide", "Environment", now.Add(-24*time.Hour), false)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/resources", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "category=All", path: "/v1/resources?category=All", token: token, wantData: marchallList(t, recycling, minutes, bylaws)},
		{name: "category=Governance", path: "/v1/resources?category=Governance", token: token, wantData: marchallList(t, minutes, bylaws)},
		{name: "category (unknown)", path: "/v1/resources?category=Sports", token: token, wantData: marchallList(t)},
		{name: "featured", path: "/v1/resources?featured=true", token: token, wantData: marchallList(t, bylaws)},
		{name: "search", path: "/v1/resources?search=GUIDE", token: token, wantData: marchallList(t, recycling)},
		{name: "sort=oldest", path: "/v1/resources?sort=oldest", token: token, wantData: marchallList(t, bylaws, minutes, recycling)},
		{name: "sort=a-z", path: "/v1/resources?sort=a-z", token: token, wantData: marchallList(t, minutes, bylaws, recycling)},
		{name: "sort=Z-A", path: "/v1/resources?sort=Z-A", token: token, wantData: marchallList(t, recycling, bylaws, minutes)},
		{
			name: "categories", path: "/v1/resources/categories", token: token,
			wantData: marchallList(t,
				resource.CategoryCount{Name: resource.AllCategories, Count: 3},
				resource.CategoryCount{Name: "Environment", Count: 1},
				resource.CategoryCount{Name: "Governance", Count: 2},
			),
		},
		{name: "retrieve", path: "/v1/resources/" + minutes.ID, token: token, wantData: marchallObj(t, minutes)},
		{
			name: "create: staff required", method: http.MethodPost, path: "/v1/resources", token: token,
			body: marchallObj(t, resource.NewResource{Title: "lol", Type: resource.TypeLink, Category: "lol", URL: "https://lol.cd"}), wantCode: http.StatusForbidden,
		},
	}
	runTests(t, app, tests)
}

func Test_resourceApi_write(t *testing.T) {
	app := setup(t)

	resident := testutil.CreateUser(t, app.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleResident}, true)
	staff := testutil.CreateUser(t, app.usrRepo, "Staff", "staff", "staff@test.cd", "", []string{user.RoleStaff}, true)
	residentToken := getToken(t, resident, app.conf)
	staffToken := getToken(t, staff, app.conf)

	link := createResource(t, app, "Bus timetable", "Transport", time.Now().UTC(), false)

	tests := []httpTest{
		{
			name: "create: link without url", method: http.MethodPost, path: "/v1/resources", token: staffToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, resource.NewResource{Title: "Map", Type: resource.TypeLink, Category: "Transport"}),
			wantData: marchallObj(t, map[string]string{"url": "url is required for links"}),
		},
		{
			name: "create", method: http.MethodPost, path: "/v1/resources", token: staffToken, wantCode: http.StatusCreated,
			body: marchallObj(t, resource.NewResource{Title: "Map", Type: resource.TypeLink, Category: "Transport", URL: "https://maps.cd"}),
		},
		{
			name: "update: staff required", method: http.MethodPut, path: "/v1/resources/" + link.ID, token: residentToken,
			body: []byte(`{"featured": true}`), wantCode: http.StatusForbidden,
		},
		{name: "update", method: http.MethodPut, path: "/v1/resources/" + link.ID, token: staffToken, body: []byte(`{"featured": true}`)},
		{name: "delete: staff required", method: http.MethodDelete, path: "/v1/resources/" + link.ID, token: residentToken, wantCode: http.StatusForbidden},
		{
			name: "download (link)", path: "/v1/resources/" + link.ID + "/download", token: residentToken,
			wantData: marchallObj(t, echoapi.DownloadResponse{URL: link.URL}),
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/resources/" + link.ID, token: staffToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/v1/resources/" + link.ID, token: residentToken, wantCode: http.StatusNotFound},
	}
	runTests(t, app, tests)
}

func Test_resourceApi_upload(t *testing.T) {
	app := setup(t)

	resident := testutil.CreateUser(t, app.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleResident}, true)
	staff := testutil.CreateUser(t, app.usrRepo, "Staff", "staff", "staff@test.cd", "", []string{user.RoleStaff}, true)
	residentToken := getToken(t, resident, app.conf)
	staffToken := getToken(t, staff, app.conf)

	form := map[string]string{"title": "House rules", "category": "Governance", "featured": "true"}
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		filename string
		content  []byte
		wantCode int
		wantData []byte
	}{
		{name: "staff required", token: residentToken, fields: form, filename: "rules.txt", content: []byte("be nice"), wantCode: http.StatusForbidden},
		{
			name: "required fields", token: staffToken, filename: "rules.txt", content: []byte("be nice"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"title": "this field is required", "category": "this field is required"}),
		},
		{
			name: "missing file", token: staffToken, fields: form, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"file": "this field is required"}),
		},
		{
			name: "type denied", token: staffToken, fields: form, filename: "rules.txt", content: png, wantCode: http.StatusUnsupportedMediaType,
			wantData: marchallObj(t, httpErr{Error: resource.ErrFileTypeDenied.Error()}),
		},
		{
			name: "too large", token: staffToken, fields: form, filename: "rules.txt", content: bytes.Repeat([]byte("a"), int(app.conf.Files.MaxSize)+1),
			wantCode: http.StatusRequestEntityTooLarge, wantData: marchallObj(t, httpErr{Error: resource.ErrFileTooLarge.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newUploadRequest(t, tt.token, tt.fields, tt.filename, tt.content)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
		})
	}
	assert.Zero(t, app.files.Len())

	t.Run("uploaded & downloaded", func(t *testing.T) {
		req, rec := newUploadRequest(t, staffToken, form, `../"house rules".txt`, []byte("Be nice to your neighbours."))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var res resource.Resource
		unmarshal(t, rec, &res)
		assert.Equal(t, resource.TypeDocument, res.Type)
		assert.Equal(t, "text/plain", res.FileType)
		assert.Equal(t, int64(27), res.FileSize)
		assert.Equal(t, "house rules.txt", res.FileName)
		assert.True(t, res.Featured)
		assert.Equal(t, 1, app.files.Len())

		req, rec = newAuthRequest(http.MethodGet, "/v1/resources/"+res.ID+"/download", residentToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var dl echoapi.DownloadResponse
		unmarshal(t, rec, &dl)
		assert.True(t, strings.HasPrefix(dl.URL, "http://files.local/"), dl.URL)

		req, rec = newAuthRequest(http.MethodGet, "/v1/resources/"+res.ID+"/download?redirect=true", residentToken)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)

		got, err := app.resourceSvc.Get(context.Background(), res.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Downloads)

		req, rec = newAuthRequest(http.MethodDelete, "/v1/resources/"+res.ID, staffToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, app.files.Len())
	})
}
