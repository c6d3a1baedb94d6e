// Package filesvc stores resource files.
package filesvc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/resource"
)

type minioStore struct {
	client *minio.Client
	bucket string
}

var _ resource.FileStore = (*minioStore)(nil)

// NewMinioStore connects to the configured MinIO (or S3) endpoint and creates the bucket if needed.
func NewMinioStore(ctx context.Context, conf *core.Config) (resource.FileStore, error) {
	client, err := minio.New(conf.Files.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.Files.AccessKey, conf.Files.SecretKey, ""),
		Secure: conf.Files.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}

	exists, err := client.BucketExists(ctx, conf.Files.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err := client.MakeBucket(ctx, conf.Files.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}
	return &minioStore{client: client, bucket: conf.Files.Bucket}, nil
}

func (s *minioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return errors.Wrapf(err, "storing %s", key)
}

func (s *minioStore) PresignedURL(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition",
		fmt.Sprintf("attachment; filename=\"%s\"", resource.SanitizeFilename(filename)))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, reqParams)
	if err != nil {
		return "", errors.Wrapf(err, "presigning %s", key)
	}
	return u.String(), nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}), "removing %s", key)
}

// NewStore returns the MinIO store when credentials are configured, an in-memory store otherwise.
func NewStore(ctx context.Context, conf *core.Config) (resource.FileStore, error) {
	if conf.Files.AccessKey == "" {
		return NewMemoryStore(), nil
	}
	return NewMinioStore(ctx, conf)
}
