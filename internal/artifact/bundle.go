package artifact

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// artifactsBucket holds one key per artifact name inside a bundle file.
const artifactsBucket = "artifacts"

// BundleSource serves artifacts from a single read-only bbolt file, the
// one-file deployment form produced by pmpack.
type BundleSource struct {
	db *bbolt.DB
}

// OpenBundle opens a bundle file read-only.
func OpenBundle(path string) (*BundleSource, error) {
	db, err := bbolt.Open(path, 0o400, &bbolt.Options{ReadOnly: true, Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open artifact bundle %s: %w", path, err)
	}
	return &BundleSource{db: db}, nil
}

func (s *BundleSource) Fetch(_ context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(artifactsBucket))
		if b == nil {
			return fmt.Errorf("bundle has no %q bucket", artifactsBucket)
		}
		v := b.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		// The slice is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BundleSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Entry describes one artifact inside a bundle.
type Entry struct {
	Name string
	Size int
}

// List returns the bundle contents in key order.
func (s *BundleSource) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(artifactsBucket))
		if b == nil {
			return fmt.Errorf("bundle has no %q bucket", artifactsBucket)
		}
		return b.ForEach(func(k, v []byte) error {
			entries = append(entries, Entry{Name: string(k), Size: len(v)})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Pack writes the given blobs into a new bundle file at path. Callers are
// expected to have validated the blobs first; Pack itself only stores bytes.
func Pack(path string, blobs map[string][]byte) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("create artifact bundle %s: %w", path, err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(artifactsBucket))
		if err != nil {
			return fmt.Errorf("create %q bucket: %w", artifactsBucket, err)
		}
		for name, data := range blobs {
			if err := b.Put([]byte(name), data); err != nil {
				return fmt.Errorf("store artifact %q: %w", name, err)
			}
		}
		return nil
	})
}
