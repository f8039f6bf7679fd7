package mediaindex

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/storage"
)

var _ storage.AbortWriter = (*minioWriter)(nil)

// MinioVolume stores entries as objects in a MinIO or S3 bucket.
type MinioVolume struct {
	client *minio.Client
	bucket string
}

func NewMinioVolume(ctx context.Context, cfg config.StorageMinioConfig) (*MinioVolume, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	v := &MinioVolume{
		client: client,
		bucket: cfg.Bucket,
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket '%s': %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.Bucket, err)
		}
	}

	return v, nil
}

// minioWriter streams into a PutObject call of unknown size.
type minioWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *minioWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *minioWriter) Close() error {
	w.pw.Close()
	return <-w.done
}

// CloseWithError fails the upload with err so no object is committed.
func (w *minioWriter) CloseWithError(err error) error {
	w.pw.CloseWithError(err)
	<-w.done
	return nil
}

func (v *MinioVolume) Create(ctx context.Context, key string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &minioWriter{
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		_, err := v.client.PutObject(ctx, v.bucket, key, pr, -1, minio.PutObjectOptions{})
		pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

func (v *MinioVolume) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := v.client.GetObject(ctx, v.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces missing objects now
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (v *MinioVolume) Remove(ctx context.Context, key string) error {
	return v.client.RemoveObject(ctx, v.bucket, key, minio.RemoveObjectOptions{})
}

func (v *MinioVolume) Ping(ctx context.Context) error {
	exists, err := v.client.BucketExists(ctx, v.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", v.bucket)
	}
	return nil
}
