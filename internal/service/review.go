package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bestreads/bestreads-server/internal/domain"
	domainerrors "github.com/bestreads/bestreads-server/internal/errors"
	"github.com/bestreads/bestreads-server/internal/id"
	"github.com/bestreads/bestreads-server/internal/store"
)

// PostReviewRequest is a new review.
type PostReviewRequest struct {
	Rating     int    `json:"rating" validate:"rating"`
	ReviewText string `json:"review_text,omitempty" validate:"max=5000"`
	IsPublic   bool   `json:"is_public"`
}

// UpdateReviewRequest carries the fields to change.
type UpdateReviewRequest struct {
	Rating     *int    `json:"rating,omitempty" validate:"omitempty,rating"`
	ReviewText *string `json:"review_text,omitempty" validate:"omitempty,max=5000"`
	IsPublic   *bool   `json:"is_public,omitempty"`
}

// ReviewService manages reviews embedded in book documents. Every change
// recomputes the book's average rating in the same write.
type ReviewService struct {
	store      *store.Store
	activities *ActivityService
	search     *SearchService
	logger     *slog.Logger
	now        func() time.Time
}

// NewReviewService creates a new review service. search may be nil.
func NewReviewService(store *store.Store, activities *ActivityService, search *SearchService, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		store:      store,
		activities: activities,
		search:     search,
		logger:     logger,
		now:        time.Now,
	}
}

func ratingPayload(book *domain.Book, r *domain.Review, isUpdate bool) domain.ActivityPayload {
	return domain.Rating(domain.RatingPayload{
		BookTitle:  book.Title,
		CoverImage: book.CoverImage,
		Rating:     r.Rating,
		ReviewText: r.ReviewText,
		IsUpdate:   isUpdate,
	})
}

// PostReview adds the user's review of a book. A user reviews a book once;
// public reviews record a RatedBook activity.
func (s *ReviewService) PostReview(ctx context.Context, userID, bookID string, req PostReviewRequest) (*domain.Review, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	reviewID, err := id.Generate(id.PrefixReview)
	if err != nil {
		return nil, fmt.Errorf("generate review ID: %w", err)
	}

	var (
		review domain.Review
		book   *domain.Book
		rec    *recorded
	)
	err = s.store.Update(ctx, func(tx *store.Tx) error {
		rec = nil
		if _, err := tx.GetUser(userID); err != nil {
			return err
		}

		now := s.now()
		review = domain.Review{
			ID:         reviewID,
			UserID:     userID,
			Rating:     req.Rating,
			ReviewText: req.ReviewText,
			IsPublic:   req.IsPublic,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		var err error
		book, err = tx.ModifyBook(bookID, func(b *domain.Book) error {
			if b.ReviewByUser(userID) != nil {
				return domainerrors.AlreadyExists("you have already reviewed this book")
			}
			b.AddReview(review)
			b.UpdatedAt = now
			return nil
		})
		if err != nil {
			return err
		}

		if review.IsPublic {
			rec, err = s.activities.record(tx, userID, bookID, domain.ActivityRatedBook, ratingPayload(book, &review, false))
		}
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.activities.publish(rec)
	s.reindex(ctx, book)
	s.logger.Info("review posted",
		"review_id", review.ID,
		"book_id", bookID,
		"user_id", userID,
		"rating", review.Rating,
	)
	return &review, nil
}

// UpdateReview edits the user's own review. If the review is public after the
// edit, the RatedBook activity is updated in place.
func (s *ReviewService) UpdateReview(ctx context.Context, userID, bookID, reviewID string, req UpdateReviewRequest) (*domain.Review, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	var (
		review domain.Review
		book   *domain.Book
		rec    *recorded
	)
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		rec = nil
		var err error
		book, err = tx.ModifyBook(bookID, func(b *domain.Book) error {
			r, err := ownReview(b, userID, reviewID)
			if err != nil {
				return err
			}
			if req.Rating != nil {
				r.Rating = *req.Rating
			}
			if req.ReviewText != nil {
				r.ReviewText = *req.ReviewText
			}
			if req.IsPublic != nil {
				r.IsPublic = *req.IsPublic
			}
			now := s.now()
			r.UpdatedAt = now
			review = *r
			b.RecomputeRating()
			b.UpdatedAt = now
			return nil
		})
		if err != nil {
			return err
		}

		if review.IsPublic {
			rec, err = s.activities.record(tx, userID, bookID, domain.ActivityRatedBook, ratingPayload(book, &review, true))
		}
		return err
	})
	if err != nil {
		return nil, translate(err)
	}

	s.activities.publish(rec)
	s.reindex(ctx, book)
	s.logger.Info("review updated", "review_id", reviewID, "book_id", bookID, "user_id", userID)
	return &review, nil
}

// DeleteReview removes the user's own review. Feed activities are kept.
func (s *ReviewService) DeleteReview(ctx context.Context, userID, bookID, reviewID string) error {
	var book *domain.Book
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		book, err = tx.ModifyBook(bookID, func(b *domain.Book) error {
			if _, err := ownReview(b, userID, reviewID); err != nil {
				return err
			}
			b.RemoveReview(reviewID)
			b.UpdatedAt = s.now()
			return nil
		})
		return err
	})
	if err != nil {
		return translate(err)
	}

	s.reindex(ctx, book)
	s.logger.Info("review deleted", "review_id", reviewID, "book_id", bookID, "user_id", userID)
	return nil
}

func ownReview(b *domain.Book, userID, reviewID string) (*domain.Review, error) {
	r := b.ReviewByID(reviewID)
	if r == nil {
		return nil, domainerrors.NotFoundf("review %s not found", reviewID)
	}
	if r.UserID != userID {
		return nil, domainerrors.Forbidden("you can only change your own review")
	}
	return r, nil
}

// reindex refreshes the book's rating in the search index.
func (s *ReviewService) reindex(ctx context.Context, book *domain.Book) {
	if s.search == nil || book == nil {
		return
	}
	if err := s.search.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to reindex book", "book_id", book.ID, "error", err)
	}
}
