package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/bestreads/bestreads-server/internal/domain"
)

// SearchIndex wraps a Bleve index of books.
//
// All methods are safe for concurrent use. Rebuild takes the write lock; every
// other operation takes the read lock.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Uses a discard logger if nil
}

// mappingVersion must change whenever buildIndexMapping does. A mismatch
// drops the index on startup so it can be rebuilt from the store.
const mappingVersion = "1"

// batchSize bounds the documents per Bleve batch.
const batchSize = 500

// NewSearchIndex opens the index under opts.DataPath, creating it if missing.
// A corrupt index or one with an outdated mapping is removed and recreated
// empty. The returned bool is true when the index is new and must be filled
// from the store.
func NewSearchIndex(opts Options) (*SearchIndex, bool, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.DataPath, 0o750); err != nil {
		return nil, false, fmt.Errorf("create search dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "books.bleve")
	versionPath := filepath.Join(opts.DataPath, "books.version")

	_, statErr := os.Stat(indexPath)
	exists := statErr == nil

	var index bleve.Index
	if exists {
		version, err := os.ReadFile(versionPath)
		switch {
		case err != nil || string(version) != mappingVersion:
			logger.Info("search mapping version changed, rebuilding",
				"old_version", string(version),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open existing index, will recreate",
					"path", indexPath,
					"error", err,
				)
				index = nil
			}
		}
	}

	if index != nil {
		logger.Info("opened existing search index", "path", indexPath)
		return &SearchIndex{index: index, path: indexPath, logger: logger}, false, nil
	}

	if err := os.RemoveAll(indexPath); err != nil {
		return nil, false, fmt.Errorf("remove old index: %w", err)
	}
	index, err := bleve.New(indexPath, buildIndexMapping())
	if err != nil {
		return nil, false, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o600); err != nil {
		logger.Warn("failed to write search version file", "error", err)
	}
	logger.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)

	return &SearchIndex{index: index, path: indexPath, logger: logger}, true, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces one book.
func (s *SearchIndex) IndexBook(b *domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := NewBookDocument(b)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexBooks indexes books in chunks of batchSize.
func (s *SearchIndex) IndexBooks(books []*domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexBooksLocked(books)
}

func (s *SearchIndex) indexBooksLocked(books []*domain.Book) error {
	for i := 0; i < len(books); i += batchSize {
		end := min(i+batchSize, len(books))

		batch := s.index.NewBatch()
		for _, b := range books[i:end] {
			doc := NewBookDocument(b)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteBook removes a book from the index.
func (s *SearchIndex) DeleteBook(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DocumentCount returns the number of indexed books.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the index and reindexes books. It blocks every other
// operation until done.
func (s *SearchIndex) Rebuild(books []*domain.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index

	if err := s.indexBooksLocked(books); err != nil {
		return err
	}
	s.logger.Info("rebuilt search index", "path", s.path, "books", len(books))
	return nil
}
