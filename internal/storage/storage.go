package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/simplim/backend-go/internal/config"
)

// ObjectStorage 对象存储抽象
// 上传的PDF原件经此接口落盘，provider由配置决定
type ObjectStorage interface {
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error
	Exists(ctx context.Context, objectKey string) (bool, error)
}

// NewObjectStorage 根据配置创建对象存储实例
func NewObjectStorage(cfg config.ObjectStorageConfig) (ObjectStorage, error) {
	switch cfg.Provider {
	case "minio", "s3":
		return NewMinIOStorage(cfg)
	case "local", "":
		return NewLocalStorage(cfg.BasePath)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

// PDFObjectKey 上传PDF的对象键布局
func PDFObjectKey(userID uint, documentID uint, filename string) string {
	return fmt.Sprintf("pdf/%d/%d/%s", userID, documentID, filename)
}
