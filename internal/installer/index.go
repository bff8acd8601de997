package installer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/JNZader/sonarprep/internal/analyzer"
)

const indexKeyPrefix = "plugin/"

// index records which plugins are unpacked in the cache.
type index struct {
	db *badger.DB
}

func openIndex(dir string) (*index, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(8 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening plugin index: %w", err)
	}
	return &index{db: db}, nil
}

func indexKey(p analyzer.Plugin) []byte {
	return []byte(indexKeyPrefix + p.Key + "/" + p.Version + "/" + p.StaticResourceName)
}

// get returns the manifest of p. Missing, expired and foreign entries all
// report false.
func (ix *index) get(p analyzer.Plugin) (manifest, bool, error) {
	var m manifest
	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(p))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return manifest{}, false, nil
	}
	if err != nil {
		return manifest{}, false, fmt.Errorf("reading plugin index: %w", err)
	}

	if m.Plugin != p {
		return manifest{}, false, nil
	}
	if !m.ExpiresAt.IsZero() && time.Now().After(m.ExpiresAt) {
		return manifest{}, false, nil
	}
	return m, true, nil
}

// put stores m. Entries with an expiry are also dropped by badger once
// they lapse.
func (ix *index) put(m manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	entry := badger.NewEntry(indexKey(m.Plugin), data)
	if !m.ExpiresAt.IsZero() {
		entry = entry.WithTTL(time.Until(m.ExpiresAt) + time.Second)
	}

	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	})
}

// remove drops the entry of p.
func (ix *index) remove(p analyzer.Plugin) error {
	return ix.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(indexKey(p))
	})
}

// entries returns every live manifest.
func (ix *index) entries() ([]manifest, error) {
	var out []manifest
	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(indexKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m manifest
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}

func (ix *index) close() error {
	return ix.db.Close()
}
