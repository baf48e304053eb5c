package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/store"
)

// ProgressService tracks reading progress and moves finished books from
// "Currently Reading" to "Read".
type ProgressService struct {
	store      *store.Store
	activities *ActivityService
	metrics    Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewProgressService creates a new progress service.
func NewProgressService(store *store.Store, activities *ActivityService, metrics Metrics, logger *slog.Logger) *ProgressService {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &ProgressService{
		store:      store,
		activities: activities,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

func progressNotFound(progressID string) error {
	return domainerrors.NotFoundf("progress %s not found", progressID)
}

// AddProgress starts tracking a book at page zero. A user has at most one
// progress entry per book.
func (s *ProgressService) AddProgress(ctx context.Context, userID, bookID string) (*domain.Progress, error) {
	progressID, err := id.Generate(id.PrefixProgress)
	if err != nil {
		return nil, fmt.Errorf("generate progress ID: %w", err)
	}

	var created domain.Progress
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		book, err := tx.GetBook(bookID)
		if err != nil {
			return err
		}
		_, err = tx.ModifyUser(userID, func(u *domain.User) error {
			if u.ProgressForBook(bookID) != nil {
				return domainerrors.AlreadyExistsf("progress for book %s already exists", bookID)
			}
			now := s.now()
			created = *u.AddProgress(progressID, bookID, book.NumberOfPages, now)
			u.Touch(now)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.Info("progress added",
		"progress_id", progressID,
		"user_id", userID,
		"book_id", bookID,
	)
	return &created, nil
}

// UpdateProgress moves the bookmark to currentPage.
//
// Reaching the last page while the book is on "Currently Reading" moves it to
// "Read" in the same transaction, provided the user has both shelves. The
// move records an AddedBookToShelf update. Books with zero pages never
// complete.
func (s *ProgressService) UpdateProgress(ctx context.Context, userID, progressID string, currentPage int) (*domain.Progress, error) {
	if currentPage < 0 {
		return nil, domainerrors.Validation("current page cannot be negative")
	}

	var (
		updated      domain.Progress
		rec          *recorded
		transitioned bool
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		rec, transitioned = nil, false

		u, err := tx.GetUser(userID)
		if err != nil {
			return err
		}
		p := u.ProgressByID(progressID)
		if p == nil {
			return progressNotFound(progressID)
		}
		if !p.ValidPage(currentPage) {
			return domainerrors.Validationf("current page %d exceeds total pages %d", currentPage, p.TotalPages)
		}

		now := s.now()
		p.SetPage(currentPage, now)
		updated = *p

		if p.IsComplete() {
			transitioned = completeBook(u, p.BookID, now)
		}
		u.Touch(now)
		if err := tx.PutUser(u); err != nil {
			return err
		}

		if !transitioned {
			return nil
		}

		payload := domain.ShelfTransitionPayload{
			SourceShelfName: domain.ShelfCurrentlyReading,
			TargetShelfName: domain.ShelfRead,
			IsUpdate:        true,
		}
		book, err := tx.GetBook(p.BookID)
		switch {
		case err == nil:
			payload.BookTitle = book.Title
			payload.CoverImage = book.CoverImage
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		rec, err = s.activities.record(tx, userID, p.BookID, domain.ActivityAddedBookToShelf, domain.ShelfTransition(payload))
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	if transitioned {
		s.metrics.CompletionTransition()
		s.activities.publish(rec)
		s.logger.Info("book finished",
			"user_id", userID,
			"book_id", updated.BookID,
			"progress_id", progressID,
		)
	}
	return &updated, nil
}

// completeBook moves bookID from "Currently Reading" to "Read". It reports
// false when either shelf is missing or the book is not currently reading.
func completeBook(u *domain.User, bookID string, at time.Time) bool {
	reading := u.ShelfByName(domain.ShelfCurrentlyReading)
	read := u.ShelfByName(domain.ShelfRead)
	if reading == nil || read == nil || !reading.ContainsBook(bookID) {
		return false
	}
	reading.RemoveBook(bookID)
	read.AddBook(bookID, at) // no-op if already on Read
	return true
}

// GetProgress returns one progress entry.
func (s *ProgressService) GetProgress(ctx context.Context, userID, progressID string) (*domain.Progress, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	p := u.ProgressByID(progressID)
	if p == nil {
		return nil, progressNotFound(progressID)
	}
	return p, nil
}

// ListProgress returns all of the user's progress entries.
func (s *ProgressService) ListProgress(ctx context.Context, userID string) ([]domain.Progress, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	return u.ReadingProgress, nil
}

// DeleteProgress stops tracking a book. Shelves are untouched.
func (s *ProgressService) DeleteProgress(ctx context.Context, userID, progressID string) error {
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		_, err := tx.ModifyUser(userID, func(u *domain.User) error {
			if !u.RemoveProgress(progressID) {
				return progressNotFound(progressID)
			}
			u.Touch(s.now())
			return nil
		})
		return err
	})
	if err != nil {
		return translate(err)
	}

	s.logger.Info("progress deleted", "progress_id", progressID, "user_id", userID)
	return nil
}
