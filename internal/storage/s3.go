package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// S3Options configures the S3/MinIO uploader.
type S3Options struct {
	Endpoint  string // host[:port], no scheme
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Prefix    string
}

// S3Uploader puts objects with a public-read canned ACL.
type S3Uploader struct {
	api    *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ Uploader = (*S3Uploader)(nil)

func NewS3Uploader(opts S3Options, logger *slog.Logger) (*S3Uploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, common.ConfigError("s3 endpoint and bucket are required", common.ErrInvalidInput)
	}
	endpoint := strings.TrimPrefix(strings.TrimPrefix(opts.Endpoint, "https://"), "http://")
	api, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, common.ConfigError("set up s3 client", err)
	}
	logger.Info("storage.s3.ready", "endpoint", endpoint, "bucket", opts.Bucket)
	return &S3Uploader{api: api, bucket: opts.Bucket, prefix: opts.Prefix, logger: logger}, nil
}

func (u *S3Uploader) Backend() string { return constants.StorageS3 }

func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}
	start := time.Now()
	key := objectKey(u.prefix, localPath)

	info, err := u.api.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{
		ContentType:  "application/pdf",
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		u.logger.Error("storage.s3.upload_failed", "object", key, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if resp := minio.ToErrorResponse(err); resp.StatusCode != 0 {
			return "", common.RemoteError(fmt.Sprintf("s3 put object: %s", resp.Code), err)
		}
		return "", common.NetworkError("s3 put object", err)
	}

	u.logger.Info("storage.s3.uploaded",
		"path", localPath,
		"object", key,
		"bytes", info.Size,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return u.publicURL(key), nil
}

func (u *S3Uploader) publicURL(key string) string {
	endpoint := u.api.EndpointURL()
	return (&url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/" + u.bucket + "/" + key}).String()
}
