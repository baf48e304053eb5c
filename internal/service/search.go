package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/genre"
	"github.com/bestreads/bestreads-server/internal/search"
	"github.com/bestreads/bestreads-server/internal/store"
)

// maxSearchLimit caps a search page.
const maxSearchLimit = 100

// SearchService bridges the Bleve book index and the store.
type SearchService struct {
	index  *search.SearchIndex
	store  *store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store *store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a book query. Genre filters are canonicalized the same way
// stored genres are. Unknown sort orders fall back to relevance.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	params.Query = strings.TrimSpace(params.Query)
	params.Genres = genre.Normalize(params.Genres)
	if params.Limit <= 0 {
		params.Limit = search.DefaultSearchParams().Limit
	}
	params.Limit = min(params.Limit, maxSearchLimit)
	params.Offset = max(params.Offset, 0)
	if params.MinRating < 0 || params.MinRating > domain.MaxRating {
		return nil, domainerrors.Validationf("min rating must be between 0 and %d", domain.MaxRating)
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search failed")
	}
	return result, nil
}

// IndexBook adds or refreshes one book. Call it after the write commits.
func (s *SearchService) IndexBook(_ context.Context, book *domain.Book) error {
	if err := s.index.IndexBook(book); err != nil {
		return fmt.Errorf("index book: %w", err)
	}
	s.logger.Debug("indexed book", "book_id", book.ID, "title", book.Title)
	return nil
}

// DeleteBook removes a book from the index.
func (s *SearchService) DeleteBook(_ context.Context, bookID string) error {
	return s.index.DeleteBook(bookID)
}

// ReindexAll rebuilds the index from every book in the store.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	books, err := s.store.AllBooks(ctx)
	if err != nil {
		return fmt.Errorf("load books: %w", err)
	}
	if err := s.index.Rebuild(books); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.logger.Info("search index rebuilt", "books", len(books))
	return nil
}

// Ping reports whether the index answers.
func (s *SearchService) Ping(context.Context) error {
	_, err := s.index.DocumentCount()
	return err
}
