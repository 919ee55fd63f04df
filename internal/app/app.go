package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-uplink/internal/config"
	"github.com/samvad-hq/samvad-uplink/internal/logger"
	"github.com/samvad-hq/samvad-uplink/internal/storage"
	"github.com/samvad-hq/samvad-uplink/pkg/backend"
	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
	"github.com/samvad-hq/samvad-uplink/pkg/publishers"
)

// App wires the backend client, upload ledger and notification fanout.
type App struct {
	cfg     *config.Config
	client  *httpclient.RestyClient
	backend *backend.Service
	fanout  *publishers.Fanout
	log     logger.Logger

	// The ledger is opened on first use; bbolt holds an exclusive file lock while open.
	storeOnce sync.Once
	store     storage.Store
	storeErr  error
}

// ErrLedgerUnavailable wraps failures to open the upload ledger.
var ErrLedgerUnavailable = errors.New("upload ledger unavailable")

// New builds the runtime from cfg. The upload ledger is opened lazily. Callers must Close it.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	client := httpclient.NewRestyClient(cfg.APIBaseURL, httpclient.Options{
		Timeout: cfg.RequestTimeout,
		Logger:  log,
	})
	log.DebugObj("backend client configured", "client_config", map[string]any{
		"base_url":        client.BaseURL(),
		"timeout_seconds": int(cfg.RequestTimeout.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		client:  client,
		backend: backend.NewService(client, cfg.UploadField),
		fanout:  fanout,
		log:     log,
	}, nil
}

// buildFanout loads upload notification sinks; an empty path disables notifications.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()

	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Client exposes the raw backend client for ad-hoc requests.
func (a *App) Client() httpclient.Client { return a.client }

// BaseURL returns the configured backend root.
func (a *App) BaseURL() string { return a.client.BaseURL() }

// ledger opens the configured store once.
func (a *App) ledger() (storage.Store, error) {
	a.storeOnce.Do(func() {
		store, err := storage.NewStore(a.cfg.StorageType, a.cfg.BBoltPath, storage.Options{
			UploadTTL:       a.cfg.StorageTTL,
			CleanupInterval: a.cfg.StorageCleanupInterval,
		})
		if err != nil {
			a.storeErr = fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
			return
		}
		a.store = store
		a.log.DebugObj("storage initialized", "storage_config", map[string]any{
			"type":                     a.cfg.StorageType,
			"path":                     a.cfg.BBoltPath,
			"upload_ttl_seconds":       int(a.cfg.StorageTTL.Seconds()),
			"cleanup_interval_seconds": int(a.cfg.StorageCleanupInterval.Seconds()),
		})
	})
	return a.store, a.storeErr
}

// History returns up to limit recent uploads from the ledger.
func (a *App) History(limit int) ([]storage.UploadRecord, error) {
	store, err := a.ledger()
	if err != nil {
		return nil, err
	}
	return store.Recent(limit)
}

// Uploader returns an Uploader bound to this runtime.
func (a *App) Uploader() (*Uploader, error) {
	return a.UploaderFor("")
}

// UploaderFor returns an Uploader that sends the file under field instead of the configured upload_field.
func (a *App) UploaderFor(field string) (*Uploader, error) {
	store, err := a.ledger()
	if err != nil {
		return nil, err
	}
	svc := a.backend
	if field = strings.TrimSpace(field); field != "" && field != a.cfg.UploadField {
		svc = backend.NewService(a.client, field)
	}
	return NewUploader(svc, store, a.fanout, a.log), nil
}

// Close releases the store and publisher connections.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := a.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
