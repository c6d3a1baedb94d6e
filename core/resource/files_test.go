package resource_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/resource"
	"github.com/trezcool/jamii/services/files"
	"github.com/trezcool/jamii/storage/database/inmem"
)

const pdfContent = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"

func TestUploadPolicy_Check(t *testing.T) {
	policy := resource.UploadPolicy{MaxSize: 100, AllowedTypes: []string{"application/pdf", "text/plain; charset=utf-8"}}

	tests := []struct {
		name    string
		size    int64
		mime    string
		wantErr error
	}{
		{name: "allowed", size: 10, mime: "application/pdf"},
		{name: "parameters are ignored", size: 10, mime: "text/plain; charset=utf-16"},
		{name: "exact limit", size: 100, mime: "text/plain"},
		{name: "too large", size: 101, mime: "application/pdf", wantErr: resource.ErrFileTooLarge},
		{name: "denied type", size: 10, mime: "image/png", wantErr: resource.ErrFileTypeDenied},
		{name: "no type", size: 10, wantErr: resource.ErrFileTypeDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, policy.Check(tt.size, tt.mime))
		})
	}

	t.Run("no size limit", func(t *testing.T) {
		assert.NoError(t, resource.UploadPolicy{AllowedTypes: []string{"application/pdf"}}.Check(1<<40, "application/pdf"))
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "rules.pdf", want: "rules.pdf"},
		{name: "path traversal", in: "../../etc/passwd", want: "etcpasswd"},
		{name: "quotes & backslashes", in: `a"b\c.txt`, want: "abc.txt"},
		{name: "control characters", in: "re\x00port\r\n.pdf", want: "report.pdf"},
		{name: "spaces collapsed", in: "  house   rules .txt ", want: "house rules .txt"},
		{name: "empty", in: "\x01/\x02", want: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resource.SanitizeFilename(tt.in))
		})
	}
}

func TestService_Upload(t *testing.T) {
	conf := core.NewTestConfig()
	ctx := context.Background()
	store := filesvc.NewMemoryStore()
	svc := resource.NewService(inmemdb.NewRecordClient(inmemdb.Open()), store, resource.NewUploadPolicy(conf))

	upload := func(filename, content string) resource.NewUpload {
		return resource.NewUpload{
			Title:    "Bylaws",
			Category: "Governance",
			Filename: filename,
			Size:     int64(len(content)),
			File:     strings.NewReader(content),
		}
	}

	t.Run("content type is sniffed", func(t *testing.T) {
		res, err := svc.Upload(ctx, upload("bylaws.txt", pdfContent))
		require.NoError(t, err)
		assert.Equal(t, resource.TypeDocument, res.Type)
		assert.Equal(t, "application/pdf", res.FileType)
		assert.Equal(t, int64(len(pdfContent)), res.FileSize)
		assert.Equal(t, "bylaws.txt", res.FileName)
		assert.True(t, strings.HasSuffix(res.FileKey, "/bylaws.txt"))

		stored, ok := store.Get(res.FileKey)
		require.True(t, ok)
		assert.Equal(t, pdfContent, string(stored.Content))
		assert.Equal(t, "application/pdf", stored.ContentType)

		url, err := svc.DownloadURL(ctx, res.ID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "http://files.local/"+res.FileKey))

		got, err := svc.Get(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Downloads)

		require.NoError(t, svc.Delete(ctx, res.ID))
		_, ok = store.Get(res.FileKey)
		assert.False(t, ok)
	})

	t.Run("denied type", func(t *testing.T) {
		_, err := svc.Upload(ctx, upload("logo.pdf", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
		assert.Equal(t, resource.ErrFileTypeDenied, err)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("too large", func(t *testing.T) {
		nu := upload("big.txt", "hello")
		nu.Size = conf.Files.MaxSize + 1
		_, err := svc.Upload(ctx, nu)
		assert.Equal(t, resource.ErrFileTooLarge, err)
	})

	t.Run("no file", func(t *testing.T) {
		_, err := svc.Upload(ctx, resource.NewUpload{Title: "x", Category: "y"})
		assert.Equal(t, resource.ErrNoFile, err)
	})

	t.Run("uploads disabled", func(t *testing.T) {
		noFiles := resource.NewService(inmemdb.NewRecordClient(inmemdb.Open()), nil, resource.NewUploadPolicy(conf))
		_, err := noFiles.Upload(ctx, upload("a.txt", "hello"))
		assert.Equal(t, resource.ErrFilesUnavailable, err)
	})

	t.Run("unknown resource", func(t *testing.T) {
		_, err := svc.DownloadURL(ctx, "nope")
		assert.Equal(t, resource.ErrNotFound, errors.Cause(err))
	})
}

func TestService_DownloadURLConcurrent(t *testing.T) {
	ctx := context.Background()
	svc := resource.NewService(inmemdb.NewRecordClient(inmemdb.Open()), nil, resource.NewUploadPolicy(core.NewTestConfig()))
	link, err := svc.Create(ctx, resource.NewResource{
		Title:    "Recycling guide",
		Type:     resource.TypeLink,
		Category: "Environment",
		URL:      "https://example.org/recycling",
	})
	require.NoError(t, err)

	const downloads = 20
	var wg sync.WaitGroup
	for i := 0; i < downloads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := svc.DownloadURL(ctx, link.ID)
			assert.NoError(t, err)
			assert.Equal(t, link.URL, url)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, downloads, got.Downloads)
}
