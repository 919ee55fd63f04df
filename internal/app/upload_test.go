package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/samvad-hq/samvad-uplink/internal/storage"
	"github.com/samvad-hq/samvad-uplink/pkg/backend"
	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
	"github.com/samvad-hq/samvad-uplink/pkg/publishers"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// fakeBackend records uploaded files and can inject errors.
type fakeBackend struct {
	mu      sync.Mutex
	names   []string
	bodies  [][]byte
	message string
	err     error
}

func (f *fakeBackend) UploadImage(_ context.Context, file httpclient.File) (backend.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return backend.MessageResponse{}, f.err
	}
	data, _ := io.ReadAll(file.Reader)
	f.names = append(f.names, file.Name)
	f.bodies = append(f.bodies, data)
	return backend.MessageResponse{Message: f.message}, nil
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu      sync.Mutex
	records map[string]storage.UploadRecord
}

func (m *memStore) Close() error { return nil }
func (m *memStore) SeenUpload(d string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[d]
	return ok, nil
}
func (m *memStore) RecordUpload(rec storage.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]storage.UploadRecord)
	}
	m.records[rec.Digest] = rec
	return nil
}
func (m *memStore) Recent(int) ([]storage.UploadRecord, error) { return nil, nil }

// fakeEvents records published events.
type fakeEvents struct {
	events []publishers.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestUploaderUploadsImageOnce(t *testing.T) {
	be := &fakeBackend{message: "stored"}
	store := &memStore{}
	events := &fakeEvents{}
	up := NewUploader(be, store, events, nil)
	path := writeFile(t, "cat.png", pngSignature)

	res, err := up.Upload(context.Background(), path, UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Skipped {
		t.Fatalf("first upload should not be skipped")
	}
	if res.Status != "Successfully uploaded cat.png: stored" {
		t.Fatalf("Status = %q", res.Status)
	}
	if res.ContentType != "image/png" {
		t.Fatalf("ContentType = %q", res.ContentType)
	}
	if len(be.names) != 1 || be.names[0] != "cat.png" || !bytes.Equal(be.bodies[0], pngSignature) {
		t.Fatalf("backend received %v", be.names)
	}
	if _, ok := store.records[res.Digest]; !ok {
		t.Fatalf("expected upload recorded in ledger")
	}
	if res.Notified != 1 || len(events.events) != 1 || events.events[0].Digest != res.Digest {
		t.Fatalf("expected one notification, got %d", res.Notified)
	}

	again, err := up.Upload(context.Background(), path, UploadOptions{})
	if err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	if !again.Skipped || len(be.names) != 1 {
		t.Fatalf("expected duplicate content to be skipped")
	}

	forced, err := up.Upload(context.Background(), path, UploadOptions{Force: true})
	if err != nil {
		t.Fatalf("forced Upload: %v", err)
	}
	if forced.Skipped || len(be.names) != 2 {
		t.Fatalf("expected forced upload to reach backend")
	}
}

func TestUploaderDefaultsMessage(t *testing.T) {
	up := NewUploader(&fakeBackend{}, nil, nil, nil)
	res, err := up.Upload(context.Background(), writeFile(t, "a.png", pngSignature), UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Message != "Success!" {
		t.Fatalf("Message = %q", res.Message)
	}
}

func TestUploaderRejectsInvalidFiles(t *testing.T) {
	up := NewUploader(&fakeBackend{}, nil, nil, nil)

	if _, err := up.Upload(context.Background(), writeFile(t, "notes.txt", []byte("plain text")), UploadOptions{}); !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if _, err := up.Upload(context.Background(), writeFile(t, "empty.png", nil), UploadOptions{}); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile, got %v", err)
	}
	if _, err := up.Upload(context.Background(), t.TempDir(), UploadOptions{}); err == nil {
		t.Fatalf("expected error for directory")
	}
	if _, err := up.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.png"), UploadOptions{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestUploaderPropagatesBackendErrors(t *testing.T) {
	failure := &httpclient.RequestFailedError{Status: 413, StatusText: "Request Entity Too Large", Body: "too big"}
	store := &memStore{}
	up := NewUploader(&fakeBackend{err: failure}, store, &fakeEvents{}, nil)

	_, err := up.Upload(context.Background(), writeFile(t, "big.png", pngSignature), UploadOptions{})
	got, ok := httpclient.IsRequestFailed(err)
	if !ok || got != failure {
		t.Fatalf("expected RequestFailedError to propagate, got %v", err)
	}
	if len(store.records) != 0 {
		t.Fatalf("failed upload must not be recorded")
	}
}

func TestUploaderNotificationFailureDoesNotFailUpload(t *testing.T) {
	up := NewUploader(&fakeBackend{message: "ok"}, nil, &fakeEvents{err: errors.New("sink down")}, nil)

	res, err := up.Upload(context.Background(), writeFile(t, "a.png", pngSignature), UploadOptions{})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Notified != 0 {
		t.Fatalf("Notified = %d", res.Notified)
	}
}
