package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/simplim/backend-go/internal/config"
	"github.com/simplim/backend-go/internal/logger"
	"go.uber.org/zap"
)

// MinIOStorage MinIO对象存储实现
type MinIOStorage struct {
	client *minio.Client
	bucket string
}

// NewMinIOStorage 创建MinIO存储并确保bucket存在
func NewMinIOStorage(cfg config.ObjectStorageConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint not configured")
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "simplim"
	}

	// minio.New 不接受带协议的endpoint
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	storage := &MinIOStorage{
		client: client,
		bucket: bucket,
	}

	if err := storage.ensureBucket(); err != nil {
		return nil, err
	}

	return storage, nil
}

// ensureBucket 确保bucket存在，MinIO服务可能尚在启动中，带重试
func (s *MinIOStorage) ensureBucket() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var exists bool
	var err error
	for i := 0; i < 5; i++ {
		exists, err = s.client.BucketExists(ctx, s.bucket)
		if err == nil {
			break
		}
		if i < 4 {
			waitTime := time.Second * time.Duration((i+1)*2)
			logger.Warn("⚠️ MinIO连接失败，稍后重试",
				zap.Int("attempt", i+1),
				zap.Duration("wait", waitTime),
				zap.Error(err))
			time.Sleep(waitTime)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "BucketAlreadyExists") ||
				strings.Contains(errStr, "BucketAlreadyOwnedByYou") {
				return nil
			}
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
		logger.Info("✅ MinIO bucket创建成功", zap.String("bucket", s.bucket))
	}

	return nil
}

// Upload 上传对象
func (s *MinIOStorage) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// Download 下载对象
func (s *MinIOStorage) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	object, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return object, nil
}

// Delete 删除对象
func (s *MinIOStorage) Delete(ctx context.Context, objectKey string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{})
}

// Exists 检查对象是否存在
func (s *MinIOStorage) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
