package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bestreads/bestreads-server/internal/domain"
)

// GetBook loads a book document.
func (tx *Tx) GetBook(id string) (*domain.Book, error) {
	b, err := tx.store.books.get(tx.txn, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrBookNotFound)
	}
	return b, err
}

// CreateBook stores a new book. A non-empty ISBN must be unused.
func (tx *Tx) CreateBook(b *domain.Book) error {
	if b.ISBN != "" {
		if _, err := tx.store.books.getByIndex(tx.txn, "isbn", b.ISBN); err == nil {
			return ErrISBNExists
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return tx.store.books.create(tx.txn, b)
}

// PutBook overwrites an existing book document.
func (tx *Tx) PutBook(b *domain.Book) error {
	err := tx.store.books.put(tx.txn, b)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", b.ID, ErrBookNotFound)
	}
	return err
}

// ModifyBook loads a book, applies fn and writes the after document back.
func (tx *Tx) ModifyBook(id string, fn func(b *domain.Book) error) (*domain.Book, error) {
	b, err := tx.GetBook(id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := tx.PutBook(b); err != nil {
		return nil, err
	}
	return b, nil
}

// GetBook loads a book outside of an explicit transaction.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	var b *domain.Book
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		b, err = tx.GetBook(id)
		return err
	})
	return b, err
}

// GetBookByISBN looks a book up by ISBN.
func (s *Store) GetBookByISBN(ctx context.Context, isbn string) (*domain.Book, error) {
	var b *domain.Book
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		b, err = s.books.getByIndex(tx.txn, "isbn", isbn)
		if errors.Is(err, ErrNotFound) {
			return ErrBookNotFound
		}
		return err
	})
	return b, err
}

// CreateBook stores a new book in its own transaction.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.CreateBook(b)
	})
}

// ListBooks returns one page of books ordered by title.
func (s *Store) ListBooks(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Book], error) {
	params.Validate()

	var books []*domain.Book
	err := s.View(ctx, func(tx *Tx) error {
		for b, err := range s.books.list(tx.txn) {
			if err != nil {
				return err
			}
			books = append(books, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(books, func(a, b *domain.Book) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	return paginate(books, params), nil
}

// AllBooks returns every book, unordered. Used to rebuild the search index.
func (s *Store) AllBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book
	err := s.View(ctx, func(tx *Tx) error {
		for b, err := range s.books.list(tx.txn) {
			if err != nil {
				return err
			}
			books = append(books, b)
		}
		return nil
	})
	return books, err
}
