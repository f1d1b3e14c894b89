// Package archive mirrors accepted images into an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tejaswa-jaiswal/facedata-iist/internal/config"
)

// Store wraps MinIO/S3 interactions for archived images.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates a MinIO client from the archive settings.
func New(cfg config.Archive) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// ObjectKey is the bucket key for an image: <enrollment>/<filename>.
func ObjectKey(enrollment, filename string) string {
	return path.Join(enrollment, filename)
}

// PutImage uploads the file at localPath under ObjectKey(enrollment, filename).
func (s *Store) PutImage(ctx context.Context, enrollment, filename, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}

	opts := minio.PutObjectOptions{ContentType: contentType(filename)}
	if _, err := s.client.PutObject(ctx, s.bucket, ObjectKey(enrollment, filename), f, info.Size(), opts); err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
