package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/normalize"
	"github.com/bestreads/bestreads-server/internal/store"
)

// ShelfService manages a user's bookshelves.
//
// Shelves live inside the user document, so each operation is a single
// find-and-modify of that document plus, for adds and moves, the activity
// written in the same transaction.
type ShelfService struct {
	store      *store.Store
	activities *ActivityService
	logger     *slog.Logger
	now        func() time.Time
}

// NewShelfService creates a new shelf service.
func NewShelfService(store *store.Store, activities *ActivityService, logger *slog.Logger) *ShelfService {
	return &ShelfService{
		store:      store,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

func cleanShelfName(name string) (string, error) {
	name = normalize.ShelfName(name)
	if name == "" {
		return "", domainerrors.Validation("shelf name cannot be empty")
	}
	if !domain.ValidShelfName(name) {
		return "", domainerrors.Validationf("shelf name cannot exceed %d characters", domain.MaxShelfNameLength)
	}
	return name, nil
}

func shelfNotFound(shelfID string) error {
	return domainerrors.NotFoundf("shelf %s not found", shelfID)
}

// CreateShelf appends an empty shelf. Names are unique per user.
func (s *ShelfService) CreateShelf(ctx context.Context, userID, name string) (*domain.Bookshelf, error) {
	name, err := cleanShelfName(name)
	if err != nil {
		return nil, err
	}

	shelfID, err := id.Generate(id.PrefixShelf)
	if err != nil {
		return nil, fmt.Errorf("generate shelf ID: %w", err)
	}

	var created domain.Bookshelf
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.ModifyUser(userID, func(u *domain.User) error {
			if u.ShelfNameTaken(name, "") {
				return domainerrors.Conflictf("shelf %q already exists", name)
			}
			created = *u.AddShelf(shelfID, name)
			u.Touch(s.now())
			return nil
		})
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.Info("shelf created",
		"shelf_id", shelfID,
		"user_id", userID,
		"name", name,
	)
	return &created, nil
}

// DeleteShelf removes a shelf. Reading progress for its books is kept.
func (s *ShelfService) DeleteShelf(ctx context.Context, userID, shelfID string) error {
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.ModifyUser(userID, func(u *domain.User) error {
			if !u.RemoveShelf(shelfID) {
				return shelfNotFound(shelfID)
			}
			u.Touch(s.now())
			return nil
		})
		return err
	})
	if err != nil {
		return translate(err)
	}

	s.logger.Info("shelf deleted", "shelf_id", shelfID, "user_id", userID)
	return nil
}

// RenameShelf changes a shelf's name.
func (s *ShelfService) RenameShelf(ctx context.Context, userID, shelfID, newName string) (*domain.Bookshelf, error) {
	name, err := cleanShelfName(newName)
	if err != nil {
		return nil, err
	}

	var renamed domain.Bookshelf
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.ModifyUser(userID, func(u *domain.User) error {
			shelf := u.ShelfByID(shelfID)
			if shelf == nil {
				return shelfNotFound(shelfID)
			}
			if u.ShelfNameTaken(name, shelfID) {
				return domainerrors.Conflictf("shelf %q already exists", name)
			}
			shelf.Name = name
			renamed = *shelf
			u.Touch(s.now())
			return nil
		})
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.Info("shelf renamed", "shelf_id", shelfID, "user_id", userID, "name", name)
	return &renamed, nil
}

// ensureProgress creates zero progress for a book entering "Currently
// Reading", unless the user already tracks it.
func ensureProgress(u *domain.User, shelf *domain.Bookshelf, book *domain.Book, at time.Time) error {
	if !shelf.IsCurrentlyReading() || u.ProgressForBook(book.ID) != nil {
		return nil
	}
	progressID, err := id.Generate(id.PrefixProgress)
	if err != nil {
		return fmt.Errorf("generate progress ID: %w", err)
	}
	u.AddProgress(progressID, book.ID, book.NumberOfPages, at)
	return nil
}

// AddBook puts a book on a shelf and records an AddedBookToShelf activity.
func (s *ShelfService) AddBook(ctx context.Context, userID, shelfID, bookID string) (*domain.Bookshelf, error) {
	var (
		updated domain.Bookshelf
		rec     *recorded
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		rec = nil
		book, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}

		shelf := u.ShelfByID(shelfID)
		if shelf == nil {
			return shelfNotFound(shelfID)
		}

		now := s.now()
		if !shelf.AddBook(bookID, now) {
			return domainerrors.AlreadyExistsf("book %s is already on shelf %q", bookID, shelf.Name)
		}
		if err := ensureProgress(u, shelf, book, now); err != nil {
			return err
		}
		u.Touch(now)
		updated = *shelf

		if err := tx.PutUser(u); err != nil {
			return err
		}

		rec, err = s.activities.record(tx, userID, bookID, domain.ActivityAddedBookToShelf,
			domain.ShelfTransition(domain.ShelfTransitionPayload{
				BookTitle:       book.Title,
				CoverImage:      book.CoverImage,
				TargetShelfName: shelf.Name,
			}))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.activities.publish(rec)
	s.logger.Info("book added to shelf",
		"user_id", userID,
		"shelf_id", shelfID,
		"book_id", bookID,
	)
	return &updated, nil
}

// RemoveBook takes a book off a shelf. No activity is recorded.
func (s *ShelfService) RemoveBook(ctx context.Context, userID, shelfID, bookID string) error {
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.ModifyUser(userID, func(u *domain.User) error {
			shelf := u.ShelfByID(shelfID)
			if shelf == nil {
				return shelfNotFound(shelfID)
			}
			if !shelf.RemoveBook(bookID) {
				return domainerrors.Conflictf("book %s is not on shelf %q", bookID, shelf.Name)
			}
			u.Touch(s.now())
			return nil
		})
		return err
	})
	if err != nil {
		return translate(err)
	}

	s.logger.Info("book removed from shelf",
		"user_id", userID,
		"shelf_id", shelfID,
		"book_id", bookID,
	)
	return nil
}

// MoveBook moves a book between two of the user's shelves atomically. The
// AddedBookToShelf activity is an update: it overwrites the latest one for
// this book when there is one.
func (s *ShelfService) MoveBook(ctx context.Context, userID, fromShelfID, bookID, toShelfID string) (*domain.Bookshelf, error) {
	var (
		target domain.Bookshelf
		rec    *recorded
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		rec = nil
		book, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}

		from := u.ShelfByID(fromShelfID)
		if from == nil {
			return shelfNotFound(fromShelfID)
		}
		to := u.ShelfByID(toShelfID)
		if to == nil {
			return shelfNotFound(toShelfID)
		}
		if !from.ContainsBook(bookID) {
			return domainerrors.Conflictf("book %s is not on shelf %q", bookID, from.Name)
		}
		if to.ContainsBook(bookID) {
			return domainerrors.Conflictf("book %s is already on shelf %q", bookID, to.Name)
		}

		now := s.now()
		from.RemoveBook(bookID)
		to.AddBook(bookID, now)
		if err := ensureProgress(u, to, book, now); err != nil {
			return err
		}
		u.Touch(now)
		target = *to

		if err := tx.PutUser(u); err != nil {
			return err
		}

		rec, err = s.activities.record(tx, userID, bookID, domain.ActivityAddedBookToShelf,
			domain.ShelfTransition(domain.ShelfTransitionPayload{
				BookTitle:       book.Title,
				CoverImage:      book.CoverImage,
				SourceShelfName: from.Name,
				TargetShelfName: to.Name,
				IsUpdate:        true,
			}))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.activities.publish(rec)
	s.logger.Info("book moved",
		"user_id", userID,
		"book_id", bookID,
		"from_shelf_id", fromShelfID,
		"to_shelf_id", toShelfID,
	)
	return &target, nil
}

// GetAllBookshelves returns the user's shelves in order.
func (s *ShelfService) GetAllBookshelves(ctx context.Context, userID string) ([]domain.Bookshelf, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return u.Bookshelves, nil
}

// GetBookshelf returns one shelf.
func (s *ShelfService) GetBookshelf(ctx context.Context, userID, shelfID string) (*domain.Bookshelf, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	shelf := u.ShelfByID(shelfID)
	if shelf == nil {
		return nil, shelfNotFound(shelfID)
	}
	return shelf, nil
}
