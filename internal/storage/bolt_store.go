package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const uploadBucket = "uploads"

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	uploadTTL       time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(uploadBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		uploadTTL:       opts.UploadTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenUpload reports whether content with the given digest was uploaded and has not expired.
func (b *boltStore) SeenUpload(digest string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var exists bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}

		key := []byte(digest)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		rec, ok := decodeRecord(value)
		if !ok || !rec.ExpiresAt.After(now) {
			return bucket.Delete(key)
		}

		exists = true
		return nil
	})
	return exists, err
}

// RecordUpload stores rec keyed by its digest, stamping UploadedAt and ExpiresAt when unset.
func (b *boltStore) RecordUpload(rec UploadRecord) error {
	if b == nil || b.db == nil {
		return nil
	}
	rec.Digest = strings.TrimSpace(rec.Digest)
	if rec.Digest == "" {
		return fmt.Errorf("upload record requires a digest")
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = now.UTC()
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = now.Add(b.uploadTTL).UTC()
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode upload record: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}
		return bucket.Put([]byte(rec.Digest), value)
	})
}

// Recent returns unexpired records, newest first. A non-positive limit returns all of them.
func (b *boltStore) Recent(limit int) ([]UploadRecord, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	now := b.now()
	var out []UploadRecord
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}
		return bucket.ForEach(func(_, v []byte) error {
			rec, ok := decodeRecord(v)
			if ok && rec.ExpiresAt.After(now) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// maybeCleanupExpired removes expired records on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadBucket))
		if bucket == nil {
			return fmt.Errorf("upload bucket missing")
		}

		// Deleting through the cursor while iterating skips the next key.
		var expired [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			rec, ok := decodeRecord(v)
			if !ok || !rec.ExpiresAt.After(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeRecord parses a stored record; records without an expiry are treated as corrupt.
func decodeRecord(value []byte) (UploadRecord, bool) {
	var rec UploadRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return UploadRecord{}, false
	}
	if rec.ExpiresAt.IsZero() {
		return UploadRecord{}, false
	}
	return rec, true
}
