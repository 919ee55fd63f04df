package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samvad-hq/samvad-uplink/internal/logger"
	"github.com/samvad-hq/samvad-uplink/internal/storage"
	"github.com/samvad-hq/samvad-uplink/pkg/backend"
	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
	"github.com/samvad-hq/samvad-uplink/pkg/publishers"
)

const defaultUploadMessage = "Success!"

var (
	// ErrNotImage is returned for files whose detected type is not image/*.
	ErrNotImage = errors.New("file is not an image")
	// ErrEmptyFile is returned for zero-byte files.
	ErrEmptyFile = errors.New("file is empty")
)

// ImageUploader sends one image to the backend.
type ImageUploader interface {
	UploadImage(ctx context.Context, file httpclient.File) (backend.MessageResponse, error)
}

// EventPublisher fans upload events out to notification sinks.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// UploadOptions tunes a single upload.
type UploadOptions struct {
	// Force uploads even when the ledger already holds the same content.
	Force bool
}

// UploadResult describes the outcome shown to the user.
type UploadResult struct {
	FileName    string `json:"file_name" yaml:"file_name"`
	Size        int64  `json:"size" yaml:"size"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Digest      string `json:"digest" yaml:"digest"`
	Message     string `json:"message,omitempty" yaml:"message,omitempty"`
	Skipped     bool   `json:"skipped" yaml:"skipped"`
	Notified    int    `json:"notified" yaml:"notified"`
	Status      string `json:"status" yaml:"status"`
}

// Uploader validates local image files and uploads them once per content digest.
type Uploader struct {
	backend ImageUploader
	store   storage.Store
	events  EventPublisher
	log     logger.Logger
}

// NewUploader wires an Uploader. A nil store disables deduplication; nil events disables notifications.
func NewUploader(b ImageUploader, store storage.Store, events EventPublisher, log logger.Logger) *Uploader {
	if store == nil {
		store, _ = storage.NewStore("none", "", storage.Options{})
	}
	return &Uploader{
		backend: b,
		store:   store,
		events:  events,
		log:     logger.Ensure(log),
	}
}

// Upload sends the image at path to the backend.
func (u *Uploader) Upload(ctx context.Context, path string, opts UploadOptions) (UploadResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return UploadResult{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() == 0 {
		return UploadResult{}, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("detect content type: %w", err)
	}
	contentType := mt.String()
	if !strings.HasPrefix(contentType, "image/") {
		return UploadResult{}, fmt.Errorf("%s (%s): %w", path, contentType, ErrNotImage)
	}

	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	digest, err := digestOf(f)
	if err != nil {
		return UploadResult{}, err
	}

	result := UploadResult{
		FileName:    filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Digest:      digest,
	}

	if !opts.Force {
		seen, err := u.store.SeenUpload(digest)
		if err != nil {
			u.log.WarnObj("upload ledger lookup failed", "error", err.Error())
		}
		if seen {
			result.Skipped = true
			result.Status = fmt.Sprintf("Already uploaded %s; use --force to upload again", result.FileName)
			return result, nil
		}
	}

	u.log.InfoObj("uploading image", "upload", map[string]any{
		"file_name":    result.FileName,
		"size":         result.Size,
		"content_type": contentType,
	})

	resp, err := u.backend.UploadImage(ctx, httpclient.File{Name: result.FileName, Reader: f})
	if err != nil {
		return result, fmt.Errorf("upload %s: %w", result.FileName, err)
	}

	result.Message = strings.TrimSpace(resp.Message)
	if result.Message == "" {
		result.Message = defaultUploadMessage
	}
	result.Status = fmt.Sprintf("Successfully uploaded %s: %s", result.FileName, result.Message)

	if err := u.store.RecordUpload(storage.UploadRecord{
		Digest:      digest,
		FileName:    result.FileName,
		Size:        result.Size,
		ContentType: contentType,
		Message:     result.Message,
	}); err != nil {
		u.log.WarnObj("upload ledger write failed", "error", err.Error())
	}

	result.Notified = u.notify(ctx, result)
	return result, nil
}

// notify publishes the upload event; delivery failures are logged and never fail the upload.
func (u *Uploader) notify(ctx context.Context, result UploadResult) int {
	if u.events == nil {
		return 0
	}
	evt := publishers.NewEvent(publishers.UploadDetails{
		FileName:    result.FileName,
		Size:        result.Size,
		Digest:      result.Digest,
		ContentType: result.ContentType,
		Endpoint:    backend.UploadImageEndpoint,
		Message:     result.Message,
	})
	n, err := u.events.Publish(ctx, evt)
	if err != nil {
		u.log.ErrorObj("upload notification failed", "notify_error", map[string]any{
			"event_id":  evt.ID,
			"delivered": n,
			"error":     err.Error(),
		})
	}
	return n
}

// digestOf hashes f from the start and rewinds it for the upload.
func digestOf(f *os.File) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
