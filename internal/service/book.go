package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/genre"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/store"
)

// CreateBookRequest is the catalog entry to add.
type CreateBookRequest struct {
	Title         string   `json:"title" validate:"nonblank,max=500"`
	Author        string   `json:"author" validate:"nonblank,max=300"`
	ISBN          string   `json:"isbn,omitempty" validate:"omitempty,max=20"`
	CoverImage    string   `json:"cover_image,omitempty" validate:"omitempty,url"`
	Description   string   `json:"description,omitempty" validate:"max=10000"`
	Genres        []string `json:"genres,omitempty" validate:"max=20,dive,nonblank,max=50"`
	NumberOfPages int      `json:"number_of_pages" validate:"gte=0,lte=100000"`
}

// UpdateBookRequest carries the fields to change. Nil fields are left as they are.
type UpdateBookRequest struct {
	Title         *string   `json:"title,omitempty" validate:"omitempty,nonblank,max=500"`
	Author        *string   `json:"author,omitempty" validate:"omitempty,nonblank,max=300"`
	CoverImage    *string   `json:"cover_image,omitempty" validate:"omitempty,url"`
	Description   *string   `json:"description,omitempty" validate:"omitempty,max=10000"`
	Genres        *[]string `json:"genres,omitempty" validate:"omitempty,max=20"`
	NumberOfPages *int      `json:"number_of_pages,omitempty" validate:"omitempty,gte=0,lte=100000"`
}

// BookService manages the book catalog and keeps the search index current.
type BookService struct {
	store  *store.Store
	search *SearchService
	logger *slog.Logger
	now    func() time.Time
}

// NewBookService creates a new book service. search may be nil, in which case
// nothing is indexed.
func NewBookService(store *store.Store, search *SearchService, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		search: search,
		logger: logger,
		now:    time.Now,
	}
}

// CreateBook adds a book to the catalog. A non-empty ISBN must be unique and
// genres are stored as canonical slugs.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	now := s.now()
	book := &domain.Book{
		ID:            bookID,
		Title:         strings.TrimSpace(req.Title),
		Author:        strings.TrimSpace(req.Author),
		ISBN:          normalizeISBN(req.ISBN),
		CoverImage:    req.CoverImage,
		Description:   req.Description,
		Genres:        genre.Normalize(req.Genres),
		NumberOfPages: req.NumberOfPages,
		Reviews:       []domain.Review{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, translate(err)
	}

	s.index(ctx, book)
	s.logger.Info("book created", "book_id", book.ID, "title", book.Title)
	return book, nil
}

// GetBook returns one book with its reviews.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translate(err)
	}
	return book, nil
}

// ListBooks returns one page of the catalog ordered by title.
func (s *BookService) ListBooks(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[*domain.Book], error) {
	result, err := s.store.ListBooks(ctx, params)
	if err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// UpdateBook applies req. Changing NumberOfPages leaves existing progress
// entries at the page count they were created with.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	var updated *domain.Book
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		updated, err = tx.ModifyBook(bookID, func(b *domain.Book) error {
			if req.Title != nil {
				b.Title = strings.TrimSpace(*req.Title)
			}
			if req.Author != nil {
				b.Author = strings.TrimSpace(*req.Author)
			}
			if req.CoverImage != nil {
				b.CoverImage = *req.CoverImage
			}
			if req.Description != nil {
				b.Description = *req.Description
			}
			if req.Genres != nil {
				b.Genres = genre.Normalize(*req.Genres)
			}
			if req.NumberOfPages != nil {
				b.NumberOfPages = *req.NumberOfPages
			}
			b.UpdatedAt = s.now()
			return nil
		})
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.index(ctx, updated)
	s.logger.Info("book updated", "book_id", bookID)
	return updated, nil
}

// index refreshes the search document. The store is the source of truth, so
// a failure is logged and healed by the next rebuild.
func (s *BookService) index(ctx context.Context, book *domain.Book) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}

func normalizeISBN(isbn string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(isbn), "-", ""))
}
