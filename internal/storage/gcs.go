package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// GCSOptions configures the Google Cloud Storage uploader.
type GCSOptions struct {
	CredentialsFile string
	Bucket          string
	Prefix          string
	ClientOptions   []option.ClientOption
}

// GCSUploader writes objects with a public-read ACL and returns their public URL.
type GCSUploader struct {
	client *gcs.Client
	bucket string
	prefix string
	logger *slog.Logger
}

var _ Uploader = (*GCSUploader)(nil)

func NewGCSUploader(ctx context.Context, opts GCSOptions, logger *slog.Logger) (*GCSUploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Bucket == "" {
		return nil, common.ConfigError("gcs bucket is required", common.ErrInvalidInput)
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		logger.Error("storage.gcs.setup_failed", "error", err)
		return nil, common.ConfigError("set up gcs client", err)
	}
	logger.Info("storage.gcs.ready", "bucket", opts.Bucket, "prefix", opts.Prefix)
	return &GCSUploader{client: client, bucket: opts.Bucket, prefix: opts.Prefix, logger: logger}, nil
}

func (u *GCSUploader) Backend() string { return constants.StorageGCS }

func (u *GCSUploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	start := time.Now()
	key := objectKey(u.prefix, localPath)
	w := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/pdf"
	w.PredefinedACL = "publicRead"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		u.logger.Error("storage.gcs.upload_failed", "object", key, "error", err)
		return "", classifyGoogle(ctx, "gcs write object", err)
	}
	if err := w.Close(); err != nil {
		u.logger.Error("storage.gcs.finalize_failed", "object", key, "error", err)
		return "", classifyGoogle(ctx, "gcs finalize object", err)
	}

	link := gcsPublicURL(u.bucket, key)
	u.logger.Info("storage.gcs.uploaded",
		"path", localPath,
		"object", key,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return link, nil
}

// Close releases the underlying client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}

func gcsPublicURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, (&url.URL{Path: key}).EscapedPath())
}
