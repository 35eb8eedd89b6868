package objstore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// ObjectStore is a generic interface for object store operations. pdoflow
// uses it to offload profiler artifacts (see profiler.go) that are too
// large or too rarely read to justify a bytea column.
type ObjectStore interface {
	Put(ctx context.Context, bucket, obj string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, obj string) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, obj string) error
}

// MinioObjStore is an ObjectStore backed by a Minio (or any S3-compatible) client.
type MinioObjStore struct {
	client *minio.Client
}

// NewMinioObjectStore creates a new instance of MinioObjStore with the provided Minio client.
func NewMinioObjectStore(client *minio.Client) *MinioObjStore {
	return &MinioObjStore{client: client}
}

func (s *MinioObjStore) Put(ctx context.Context, bucket, obj string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, obj, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (s *MinioObjStore) Get(ctx context.Context, bucket, obj string) (io.ReadCloser, error) {
	return s.client.GetObject(ctx, bucket, obj, minio.GetObjectOptions{})
}

func (s *MinioObjStore) Delete(ctx context.Context, bucket, obj string) error {
	return s.client.RemoveObject(ctx, bucket, obj, minio.RemoveObjectOptions{})
}
