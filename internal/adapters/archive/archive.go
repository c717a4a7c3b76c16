// Package archive keeps the raw bytes of every uploaded spreadsheet in a
// bbolt file so an upload can be re-parsed or audited later.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketFiles = []byte("Files")
	bucketMeta  = []byte("Meta")
)

// ErrNotFound is returned when no archive entry exists for an upload ID.
var ErrNotFound = errors.New("archive: entry not found")

// Entry describes one archived upload.
type Entry struct {
	UploadID string    `json:"upload_id"`
	Filename string    `json:"filename"`
	Kind     string    `json:"kind"`
	Digest   string    `json:"digest"`
	Size     int       `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// Archiver stores raw upload bodies and hands them back by upload ID.
type Archiver interface {
	Put(ctx context.Context, e Entry, data []byte) error
	Get(ctx context.Context, uploadID string) (Entry, []byte, error)
}

// Store is a bbolt-backed Archiver.
type Store struct {
	db *bbolt.DB
}

var _ Archiver = (*Store)(nil)

// Open opens or creates the archive file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("archive.Open: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("archive.Open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketFiles, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive.Open: buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying file.
func (s *Store) Close() error { return s.db.Close() }

// Put stores data under e.UploadID, replacing any previous entry.
func (s *Store) Put(ctx context.Context, e Entry, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.UploadID == "" {
		return errors.New("archive.Put: empty upload id")
	}
	if e.StoredAt.IsZero() {
		e.StoredAt = time.Now().UTC()
	}
	e.Size = len(data)
	meta, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("archive.Put: %w", err)
	}
	key := []byte(e.UploadID)
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketFiles).Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(key, meta)
	})
	if err != nil {
		return fmt.Errorf("archive.Put %s: %w", e.UploadID, err)
	}
	return nil
}

// Get returns the entry and a copy of the raw bytes.
func (s *Store) Get(ctx context.Context, uploadID string) (Entry, []byte, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, nil, err
	}
	var (
		e    Entry
		data []byte
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := []byte(uploadID)
		meta := tx.Bucket(bucketMeta).Get(key)
		if meta == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(meta, &e); err != nil {
			return err
		}
		// bbolt values are only valid inside the transaction.
		data = append([]byte(nil), tx.Bucket(bucketFiles).Get(key)...)
		return nil
	})
	if err != nil {
		return Entry{}, nil, err
	}
	return e, data, nil
}

// Nop drops everything; used when archive_path is empty.
type Nop struct{}

var _ Archiver = Nop{}

// Put discards the upload.
func (Nop) Put(context.Context, Entry, []byte) error {
	return nil
}

// Get never finds anything.
func (Nop) Get(context.Context, string) (Entry, []byte, error) {
	return Entry{}, nil, ErrNotFound
}
