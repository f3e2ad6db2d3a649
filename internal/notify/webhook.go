package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Webhook delivers the ledger file to an HTTP endpoint as a multipart upload in the
// "file" field. Delivery is best effort: failures are logged and never returned.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{url: url, client: &http.Client{Timeout: timeout}, logger: logger}
}

// Send posts the file at path and reports whether the endpoint answered 200.
func (w *Webhook) Send(ctx context.Context, path string) bool {
	if w.url == "" {
		w.logger.Info("notify.webhook.disabled")
		return false
	}
	reqID := uuid.New().String()
	start := time.Now()

	body, contentType, err := multipartFile(path)
	if err != nil {
		w.logger.Error("notify.webhook.read_error", "req_id", reqID, "path", path, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, body)
	if err != nil {
		w.logger.Error("notify.webhook.build_request_error", "req_id", reqID, "error", err)
		return false
	}
	req.Header.Set("Content-Type", contentType)

	w.logger.Info("notify.webhook.request", "req_id", reqID, "url", w.url, "content_length", body.Len())

	resp, err := w.client.Do(req)
	if err != nil {
		w.logger.Error("notify.webhook.send_error",
			"req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		w.logger.Error("notify.webhook.unexpected_status",
			"req_id", reqID, "status", resp.StatusCode, "elapsed_ms", time.Since(start).Milliseconds())
		return false
	}
	w.logger.Info("notify.webhook.ok", "req_id", reqID, "elapsed_ms", time.Since(start).Milliseconds())
	return true
}

func multipartFile(path string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, mw.FormDataContentType(), nil
}
