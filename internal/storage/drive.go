package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/digital-products/constants"
	"github.com/joseph-ayodele/digital-products/internal/common"
)

// DriveOptions configures the Google Drive uploader.
type DriveOptions struct {
	CredentialsFile string
	FolderID        string // optional parent folder
	// ClientOptions are appended after the credentials option; tests use them to point
	// the service at a local server.
	ClientOptions []option.ClientOption
}

// DriveUploader stores files in Google Drive and shares them with anyone holding the link.
type DriveUploader struct {
	svc      *drive.Service
	folderID string
	logger   *slog.Logger
}

var _ Uploader = (*DriveUploader)(nil)

func NewDriveUploader(ctx context.Context, opts DriveOptions, logger *slog.Logger) (*DriveUploader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts,
			option.WithCredentialsFile(opts.CredentialsFile),
			option.WithScopes(drive.DriveFileScope))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		logger.Error("storage.drive.setup_failed", "error", err)
		return nil, common.ConfigError("set up google drive client", err)
	}
	logger.Info("storage.drive.ready", "folder_id", opts.FolderID)
	return &DriveUploader{svc: svc, folderID: opts.FolderID, logger: logger}, nil
}

func (u *DriveUploader) Backend() string { return constants.StorageDrive }

func (u *DriveUploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	start := time.Now()
	meta := &drive.File{Name: filepath.Base(localPath)}
	if u.folderID != "" {
		meta.Parents = []string{u.folderID}
	}

	created, err := u.svc.Files.Create(meta).
		Media(f, googleapi.ContentType("application/pdf")).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		u.logger.Error("storage.drive.upload_failed", "path", localPath, "error", err)
		return "", classifyGoogle(ctx, "drive create file", err)
	}

	_, err = u.svc.Permissions.Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		u.logger.Error("storage.drive.share_failed", "file_id", created.Id, "error", err)
		return "", classifyGoogle(ctx, "drive share file", err)
	}

	u.logger.Info("storage.drive.uploaded",
		"path", localPath,
		"file_id", created.Id,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return created.WebViewLink, nil
}
