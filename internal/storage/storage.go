// Package storage keeps a local ledger of completed uploads.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// UploadRecord describes one successful upload.
type UploadRecord struct {
	Digest      string    `json:"digest" yaml:"digest"`
	FileName    string    `json:"file_name" yaml:"file_name"`
	Size        int64     `json:"size" yaml:"size"`
	ContentType string    `json:"content_type" yaml:"content_type"`
	Message     string    `json:"message" yaml:"message"`
	UploadedAt  time.Time `json:"uploaded_at" yaml:"uploaded_at"`
	ExpiresAt   time.Time `json:"expires_at" yaml:"expires_at"`
}

// Store tracks uploaded content by digest.
type Store interface {
	Close() error
	SeenUpload(digest string) (bool, error)
	RecordUpload(rec UploadRecord) error
	Recent(limit int) ([]UploadRecord, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	UploadTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultUploadTTL       = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.UploadTTL <= 0 {
		opts.UploadTTL = defaultUploadTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                       { return nil }
func (noopStore) SeenUpload(string) (bool, error)    { return false, nil }
func (noopStore) RecordUpload(UploadRecord) error    { return nil }
func (noopStore) Recent(int) ([]UploadRecord, error) { return nil, nil }
