package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/emilythestrangee/storymap/backend/internal/apperr"
)

// Uploader stores an image and returns a stable reference to it.
type Uploader interface {
	Upload(ctx context.Context, prefix string, file File) (string, error)
}

// File is an uploaded image as received from the client.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// MaxImageSize caps uploaded images.
const MaxImageSize = 10 << 20

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectName validates f and returns the key it is stored under: prefix/<uuid><ext>.
func ObjectName(prefix string, f File) (string, error) {
	ext, ok := imageTypes[strings.ToLower(f.ContentType)]
	if !ok {
		return "", apperr.Validation("Only JPEG, PNG, GIF and WebP images are accepted")
	}
	if f.Size <= 0 || f.Size > MaxImageSize {
		return "", apperr.Validation("Image must be between 1 byte and %d MB", MaxImageSize>>20)
	}
	if e := strings.ToLower(filepath.Ext(f.Name)); ext == ".jpg" && e == ".jpeg" {
		ext = e
	}
	return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.NewString(), ext), nil
}

type FileStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewFileStorage connects to MinIO and makes sure the bucket exists with a
// public read policy.
func NewFileStorage(endpoint, publicURL, accessKey, secretKey, bucket string, useSSL bool) (*FileStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
		if err := client.SetBucketPolicy(ctx, bucket, policy); err != nil {
			zap.L().Warn("failed to set bucket policy", zap.String("bucket", bucket), zap.Error(err))
		}
		zap.L().Info("bucket created", zap.String("bucket", bucket))
	}

	return &FileStorage{client: client, bucket: bucket, publicURL: publicURL}, nil
}

func (s *FileStorage) Upload(ctx context.Context, prefix string, f File) (string, error) {
	name, err := ObjectName(prefix, f)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, name, f.Body, f.Size, minio.PutObjectOptions{
		ContentType: f.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}

	// path.Join would collapse the scheme's double slash
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.publicURL, "/"), s.bucket, name), nil
}

// ErrUnavailable is returned when no object store is configured.
var ErrUnavailable = fmt.Errorf("file storage is not configured")

// Unavailable rejects every upload. It stands in when MinIO is not configured.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, string, File) (string, error) {
	return "", ErrUnavailable
}
