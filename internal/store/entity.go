package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD over one key prefix, with optional
// unique secondary indexes. Index pointers live under the record
// prefix as "<prefix>idx:<name>:<value>" -> id, so a single prefix
// scan covers both and List skips the idx keys.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []entityIndex[T]
}

// entityIndex is a unique secondary index. keys returns the indexed
// values for a record. Values are stored verbatim; normalization (say,
// lowercasing an email) belongs to the keys function, and lookups must
// normalize the same way.
type entityIndex[T any] struct {
	name string
	keys func(*T) []string
}

// NewEntity creates an Entity for type T under the given key prefix.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{store: s, prefix: prefix}
}

// WithIndex adds a unique secondary index.
func (e *Entity[T]) WithIndex(name string, keys func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, entityIndex[T]{name: name, keys: keys})
	return e
}

func (e *Entity[T]) recordKey(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// checkIndexConflicts fails with ErrAlreadyExists when any index value
// of rec is already claimed. Keys present in reuse are the caller's
// own and don't count as conflicts.
func (e *Entity[T]) checkIndexConflicts(txn *badger.Txn, rec *T, reuse map[string]bool) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keys(rec) {
			key := e.indexKey(idx.name, value)
			if reuse[string(key)] {
				continue
			}
			_, err := txn.Get(key)
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, value, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check index key: %w", err)
			}
		}
	}
	return nil
}

// putIndexes writes the index pointers for rec.
func (e *Entity[T]) putIndexes(txn *badger.Txn, id string, rec *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keys(rec) {
			if err := txn.Set(e.indexKey(idx.name, value), []byte(id)); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}
	return nil
}

// clearIndexes drops the index pointers for rec and returns the keys
// it removed, so an update can treat them as reusable.
func (e *Entity[T]) clearIndexes(txn *badger.Txn, rec *T) (map[string]bool, error) {
	cleared := make(map[string]bool)
	for _, idx := range e.indexes {
		for _, value := range idx.keys(rec) {
			key := e.indexKey(idx.name, value)
			if err := txn.Delete(key); err != nil {
				return nil, fmt.Errorf("delete index key: %w", err)
			}
			cleared[string(key)] = true
		}
	}
	return cleared, nil
}

// load reads and unmarshals the record at key inside txn.
func (e *Entity[T]) load(txn *badger.Txn, key []byte, dest *T) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get key: %w", err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, dest); err != nil {
			return fmt.Errorf("unmarshal record: %w", err)
		}
		return nil
	})
}

// Create stores a new record under id. Returns ErrAlreadyExists when
// the id or any index value is already taken.
func (e *Entity[T]) Create(ctx context.Context, id string, rec *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.recordKey(id))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		if err := e.checkIndexConflicts(txn, rec, nil); err != nil {
			return err
		}
		if err := txn.Set(e.recordKey(id), data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		return e.putIndexes(txn, id, rec)
	})
}

// Get retrieves a record by id. Returns ErrNotFound when absent.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec T
	err := e.store.db.View(func(txn *badger.Txn) error {
		return e.load(txn, e.recordKey(id), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByIndex retrieves a record through a secondary index. The value
// must already be in the index's stored form.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var id string
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, id)
}

// Update replaces the record at id, moving its index pointers to the
// new values. Returns ErrNotFound when absent, ErrAlreadyExists when a
// new index value collides with another record.
func (e *Entity[T]) Update(ctx context.Context, id string, rec *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		var old T
		if err := e.load(txn, e.recordKey(id), &old); err != nil {
			return err
		}

		// The old record's own index keys are fair game for reuse;
		// anything else claimed is a collision with another record.
		cleared, err := e.clearIndexes(txn, &old)
		if err != nil {
			return err
		}
		if err := e.checkIndexConflicts(txn, rec, cleared); err != nil {
			return err
		}

		if err := txn.Set(e.recordKey(id), data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		return e.putIndexes(txn, id, rec)
	})
}

// Delete removes the record at id and its index pointers. Deleting an
// absent id is a no-op.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		var rec T
		err := e.load(txn, e.recordKey(id), &rec)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := e.clearIndexes(txn, &rec); err != nil {
			return err
		}
		if err := txn.Delete(e.recordKey(id)); err != nil {
			return fmt.Errorf("delete key: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all records under the prefix.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Index pointers share the prefix; skip them.
				if strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
					continue
				}

				var rec T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&rec, nil) {
					return nil
				}
			}
			return nil
		})
	}
}
