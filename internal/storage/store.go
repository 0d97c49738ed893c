package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	bolt "go.etcd.io/bbolt"
)

var (
	sourcesBucket  = []byte("sources")
	productsBucket = []byte("products")
)

// ErrNotFound is returned by lookups for missing keys.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the bbolt database at dbPath. timeout bounds
// the wait for the file lock held by another shelf process.
func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{sourcesBucket, productsBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveSource(src *Source) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := sonic.Marshal(src)
		if err != nil {
			return err
		}
		return tx.Bucket(sourcesBucket).Put([]byte(src.ID), data)
	})
}

func (s *Store) GetSource(id string) (*Source, error) {
	var src Source
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sourcesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return sonic.Unmarshal(data, &src)
	})
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// GetAllSources returns every source ordered by title, falling back to
// the URL for untitled ones.
func (s *Store) GetAllSources() ([]*Source, error) {
	var sources []*Source
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sourcesBucket).ForEach(func(_ []byte, v []byte) error {
			var src Source
			if err := sonic.Unmarshal(v, &src); err != nil {
				return err
			}
			sources = append(sources, &src)
			return nil
		})
	})
	sort.Slice(sources, func(i, j int) bool {
		return strings.ToLower(sourceName(sources[i])) < strings.ToLower(sourceName(sources[j]))
	})
	return sources, err
}

func sourceName(src *Source) string {
	if src.Title != "" {
		return src.Title
	}
	return src.URL
}

// DeleteSource removes the source and every product imported from it.
func (s *Store) DeleteSource(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sourcesBucket).Delete([]byte(id)); err != nil {
			return err
		}
		_, err := deleteProducts(tx, id)
		return err
	})
}

func (s *Store) SaveProducts(products []*Product) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productsBucket)
		for _, p := range products {
			if p.ID == "" {
				return fmt.Errorf("product %q has no id", p.Title)
			}
			data, err := sonic.Marshal(p)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(p.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetProduct(id string) (*Product, error) {
	var p Product
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(productsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return sonic.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAllProducts returns every stored product ordered by title. Records
// that fail to decode are skipped.
func (s *Store) GetAllProducts() ([]*Product, error) {
	var products []*Product
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productsBucket).ForEach(func(_ []byte, v []byte) error {
			var p Product
			if err := sonic.Unmarshal(v, &p); err != nil {
				return nil
			}
			products = append(products, &p)
			return nil
		})
	})
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Title) < strings.ToLower(products[j].Title)
	})
	return products, err
}

// GetProductsBySource returns the products imported from one source.
func (s *Store) GetProductsBySource(sourceID string) ([]*Product, error) {
	all, err := s.GetAllProducts()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.SourceID == sourceID {
			out = append(out, p)
		}
	}
	return out, nil
}

// DeleteProductsBySource removes the products of a source and returns
// their IDs so the index can drop them too.
func (s *Store) DeleteProductsBySource(sourceID string) ([]string, error) {
	var ids []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		ids, err = deleteProducts(tx, sourceID)
		return err
	})
	return ids, err
}

func deleteProducts(tx *bolt.Tx, sourceID string) ([]string, error) {
	b := tx.Bucket(productsBucket)
	var ids []string
	err := b.ForEach(func(k, v []byte) error {
		var p Product
		if err := sonic.Unmarshal(v, &p); err != nil {
			return nil
		}
		if p.SourceID == sourceID {
			ids = append(ids, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Deleting through a cursor while iterating skips entries in bbolt.
	for _, id := range ids {
		if err := b.Delete([]byte(id)); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// CountProducts returns the number of stored products.
func (s *Store) CountProducts() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(productsBucket).Stats().KeyN
		return nil
	})
	return n, err
}
