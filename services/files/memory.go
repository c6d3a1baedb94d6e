package filesvc

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core/resource"
)

var ErrNotFound = errors.New("file not found")

type File struct {
	Content     []byte
	ContentType string
}

// MemoryStore keeps files in memory. Presigned URLs point at a fake host.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]File
}

var _ resource.FileStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]File)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, size)); err != nil {
		return errors.Wrapf(err, "storing %s", key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = File{Content: buf.Bytes(), ContentType: contentType}
	return nil
}

func (s *MemoryStore) PresignedURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.files[key]; !ok {
		return "", errors.Wrapf(ErrNotFound, "presigning %s", key)
	}
	u := url.URL{Scheme: "http", Host: "files.local", Path: "/" + key}
	q := u.Query()
	q.Set("filename", resource.SanitizeFilename(filename))
	q.Set("expires", expiry.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

// Get returns the stored file.
func (s *MemoryStore) Get(key string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[key]
	return f, ok
}

// Len returns the number of stored files.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
