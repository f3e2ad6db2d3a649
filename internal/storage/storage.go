package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// Uploader copies a local file to cloud storage, makes it publicly readable and returns
// a shareable link.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Backend() string
}

// Options selects and configures a backend.
type Options struct {
	Backend         string
	CredentialsFile string
	DriveFolderID   string
	GCSBucket       string
	Prefix          string
	S3              S3Options
}

// New builds the uploader named by opts.Backend. Drive is the default.
func New(ctx context.Context, opts Options, logger *slog.Logger) (Uploader, error) {
	switch opts.Backend {
	case constants.StorageDrive, "":
		return NewDriveUploader(ctx, DriveOptions{
			CredentialsFile: opts.CredentialsFile,
			FolderID:        opts.DriveFolderID,
		}, logger)
	case constants.StorageGCS:
		return NewGCSUploader(ctx, GCSOptions{
			CredentialsFile: opts.CredentialsFile,
			Bucket:          opts.GCSBucket,
			Prefix:          opts.Prefix,
		}, logger)
	case constants.StorageS3:
		s3 := opts.S3
		if s3.Prefix == "" {
			s3.Prefix = opts.Prefix
		}
		return NewS3Uploader(s3, logger)
	default:
		return nil, common.ConfigError(fmt.Sprintf("unknown storage backend %q", opts.Backend), common.ErrInvalidInput)
	}
}

// objectKey joins prefix and the file's base name with forward slashes.
func objectKey(prefix, localPath string) string {
	name := filepath.Base(localPath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// classifyGoogle maps a Google API failure onto the error taxonomy.
func classifyGoogle(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return common.RemoteError(fmt.Sprintf("%s: status %d", op, gerr.Code), err)
	}
	return common.NetworkError(op, err)
}
