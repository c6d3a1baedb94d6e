package resource

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
)

var (
	// errors
	ErrFileTooLarge     = errors.New("file size exceeds the limit")
	ErrFileTypeDenied   = errors.New("file type is not allowed")
	ErrFilesUnavailable = errors.New("file storage is not configured")
	ErrNoFile           = errors.New("resource has no file")
)

// FileStore stores the files of document resources.
type FileStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PresignedURL returns a temporary download URL serving the file as filename.
	PresignedURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// UploadPolicy restricts the files accepted by Service.Upload.
type UploadPolicy struct {
	MaxSize      int64
	AllowedTypes []string
	URLExpiry    time.Duration
}

func NewUploadPolicy(conf *core.Config) UploadPolicy {
	return UploadPolicy{
		MaxSize:      conf.Files.MaxSize,
		AllowedTypes: conf.Files.AllowedTypes,
		URLExpiry:    conf.Files.URLExpiry,
	}
}

// NewUpload contains information needed to publish a document resource along with its file.
type NewUpload struct {
	Title       string
	Description string
	Category    string
	Featured    bool
	Filename    string
	Size        int64
	File        io.ReadSeeker
}

// Check returns an error when a file of the given size & MIME type is not accepted.
func (p UploadPolicy) Check(size int64, mime string) error {
	if p.MaxSize > 0 && size > p.MaxSize {
		return ErrFileTooLarge
	}
	incoming := baseMIME(mime)
	for _, t := range p.AllowedTypes {
		if baseMIME(t) == incoming {
			return nil
		}
	}
	return ErrFileTypeDenied
}

func baseMIME(mime string) string {
	if mime == "" {
		return ""
	}
	parts := strings.Split(mime, ";")
	return strings.TrimSpace(parts[0])
}

// SanitizeFilename strips quotes, path separators & control characters from name.
func SanitizeFilename(name string) string {
	cleaned := strings.NewReplacer(`"`, "", `\`, "", "/", "", "..", "").Replace(name)
	b := make([]rune, 0, len(cleaned))
	for _, r := range cleaned {
		if r < 32 || r == 127 {
			continue
		}
		b = append(b, r)
	}
	s := strings.Join(strings.Fields(string(b)), " ")
	if s == "" {
		s = "file"
	}
	return s
}
