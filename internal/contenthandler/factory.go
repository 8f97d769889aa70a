package contenthandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/arkstore/catalog-module/internal/delivery"
)

// Backends отдачи контента файлов.
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// FileBackendConfig — параметры backend'а отдачи файлов.
type FileBackendConfig struct {
	// Backend — disk или s3
	Backend string
	// --- disk ---
	Root        string
	AccelPrefix string
	// --- s3 ---
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3PresignExpiry time.Duration
	S3UsePathStyle  bool
}

// NewFileHandler создаёт file handler по конфигурации backend'а.
func NewFileHandler(ctx context.Context, cfg FileBackendConfig, logger *slog.Logger) (delivery.FileHandler, error) {
	switch cfg.Backend {
	case BackendDisk:
		return NewDiskHandler(cfg.Root, cfg.AccelPrefix, logger), nil

	case BackendS3:
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3Handler(client, cfg.S3Bucket, cfg.S3PresignExpiry, logger), nil

	default:
		return nil, fmt.Errorf("неизвестный backend отдачи файлов: %q", cfg.Backend)
	}
}

// newS3Client создаёт S3-клиент со статическими кредами и опциональным
// кастомным endpoint (MinIO и совместимые).
func newS3Client(ctx context.Context, cfg FileBackendConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("загрузка AWS-конфигурации: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
		}
		// MinIO и совместимые требуют path-style адресацию
		o.UsePathStyle = cfg.S3UsePathStyle || cfg.S3Endpoint != ""
	}), nil
}
