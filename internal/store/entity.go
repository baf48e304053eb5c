package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity maps a document type onto a key prefix with optional unique secondary
// indexes. All operations run on a caller-supplied transaction so several
// entities can change atomically.
type Entity[T any] struct {
	prefix  string
	idOf    func(*T) string
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity for type T.
func NewEntity[T any](prefix string, idOf func(*T) string) *Entity[T] {
	return &Entity[T]{
		prefix:  prefix,
		idOf:    idOf,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a unique secondary index. keyGen values are stored already
// normalized; lookups must normalize the same way.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// get loads a document. Returns ErrNotFound if absent.
func (e *Entity[T]) get(txn *badger.Txn, id string) (*T, error) {
	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// exists reports whether a document with id is stored.
func (e *Entity[T]) exists(txn *badger.Txn, id string) (bool, error) {
	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// getByIndex resolves a secondary index value to a document.
func (e *Entity[T]) getByIndex(txn *badger.Txn, name, value string) (*T, error) {
	item, err := txn.Get(e.indexKey(name, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return nil, err
	}
	return e.get(txn, id)
}

// create stores a new document. Returns ErrAlreadyExists on an id or index collision.
func (e *Entity[T]) create(txn *badger.Txn, entity *T) error {
	id := e.idOf(entity)

	found, err := e.exists(txn, id)
	if err != nil {
		return fmt.Errorf("failed to check existing key: %w", err)
	}
	if found {
		return ErrAlreadyExists
	}

	if err := e.checkIndexes(txn, nil, entity); err != nil {
		return err
	}
	return e.write(txn, id, nil, entity)
}

// put overwrites an existing document, moving index keys if they changed.
// Returns ErrNotFound if the document does not exist.
func (e *Entity[T]) put(txn *badger.Txn, entity *T) error {
	id := e.idOf(entity)

	old, err := e.get(txn, id)
	if err != nil {
		return err
	}

	if err := e.checkIndexes(txn, old, entity); err != nil {
		return err
	}
	return e.write(txn, id, old, entity)
}

// delete removes a document and its index keys. Deleting a missing id is a no-op.
func (e *Entity[T]) delete(txn *badger.Txn, id string) error {
	old, err := e.get(txn, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, idx := range e.indexes {
		for _, v := range idx.keyGen(old) {
			if err := txn.Delete(e.indexKey(idx.name, v)); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return txn.Delete(e.key(id))
}

// checkIndexes rejects index values already owned by another document.
func (e *Entity[T]) checkIndexes(txn *badger.Txn, old, entity *T) error {
	for _, idx := range e.indexes {
		owned := make(map[string]bool)
		if old != nil {
			for _, v := range idx.keyGen(old) {
				owned[v] = true
			}
		}

		for _, v := range idx.keyGen(entity) {
			if owned[v] {
				continue
			}
			_, err := txn.Get(e.indexKey(idx.name, v))
			if err == nil {
				return fmt.Errorf("index %s conflict on %s: %w", idx.name, v, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}
	return nil
}

// write sets the document and replaces old index keys with current ones.
// Keys passed to txn.Set are freshly allocated: Badger holds them until commit.
func (e *Entity[T]) write(txn *badger.Txn, id string, old, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	for _, idx := range e.indexes {
		if old != nil {
			for _, v := range idx.keyGen(old) {
				if err := txn.Delete(e.indexKey(idx.name, v)); err != nil {
					return fmt.Errorf("failed to delete old index key: %w", err)
				}
			}
		}
		for _, v := range idx.keyGen(entity) {
			if err := txn.Set(e.indexKey(idx.name, v), []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}

	if err := txn.Set(e.key(id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// list iterates all documents of this entity, skipping index keys.
// The iterator must be fully consumed or abandoned before another iterator is
// opened on the same read-write transaction.
func (e *Entity[T]) list(txn *badger.Txn) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		prefix := []byte(e.prefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key[len(e.prefix):], "idx:") {
				continue
			}

			var entity T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entity)
			})
			if err != nil {
				yield(nil, fmt.Errorf("failed to unmarshal %s: %w", key, err))
				return
			}

			if !yield(&entity, nil) {
				return
			}
		}
	}
}
