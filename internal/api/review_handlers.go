package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bestreads/bestreads-server/internal/domain"
	"github.com/bestreads/bestreads-server/internal/service"
)

func (s *Server) registerReviewRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "postReview",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/reviews",
		Summary:       "Review a book",
		Description:   "Rates a book from 1 to 5 with optional text. Public reviews appear in followers' feeds.",
		Tags:          []string{"Reviews"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handlePostReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReview",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}/reviews/{reviewId}",
		Summary:     "Edit review",
		Description: "Edits the caller's review and updates its feed entry in place",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateReview)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteReview",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}/reviews/{reviewId}",
		Summary:     "Delete review",
		Tags:        []string{"Reviews"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteReview)
}

// === DTOs ===

// PostReviewRequest is the request body for a new review.
type PostReviewRequest struct {
	Rating     int    `json:"rating" doc:"Rating from 1 to 5"`
	ReviewText string `json:"review_text,omitempty" doc:"Review text"`
	IsPublic   bool   `json:"is_public" doc:"Whether other readers can see the review"`
}

// PostReviewInput wraps the new review for Huma.
type PostReviewInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	Body          PostReviewRequest
}

// UpdateReviewRequest contains the review fields to change.
type UpdateReviewRequest struct {
	Rating     *int    `json:"rating,omitempty" doc:"New rating"`
	ReviewText *string `json:"review_text,omitempty" doc:"New review text"`
	IsPublic   *bool   `json:"is_public,omitempty" doc:"New visibility"`
}

// UpdateReviewInput wraps the review edit for Huma.
type UpdateReviewInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	ReviewID      string `path:"reviewId" doc:"Review ID"`
	Body          UpdateReviewRequest
}

// ReviewIDInput selects a review of a book.
type ReviewIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	ReviewID      string `path:"reviewId" doc:"Review ID"`
}

// ReviewOutput wraps a review for Huma.
type ReviewOutput struct {
	Body *domain.Review
}

// === Handlers ===

func (s *Server) handlePostReview(ctx context.Context, input *PostReviewInput) (*ReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.PostReview(ctx, userID, input.ID, service.PostReviewRequest{
		Rating:     input.Body.Rating,
		ReviewText: input.Body.ReviewText,
		IsPublic:   input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: review}, nil
}

func (s *Server) handleUpdateReview(ctx context.Context, input *UpdateReviewInput) (*ReviewOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	review, err := s.services.Review.UpdateReview(ctx, userID, input.ID, input.ReviewID, service.UpdateReviewRequest{
		Rating:     input.Body.Rating,
		ReviewText: input.Body.ReviewText,
		IsPublic:   input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &ReviewOutput{Body: review}, nil
}

func (s *Server) handleDeleteReview(ctx context.Context, input *ReviewIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Review.DeleteReview(ctx, userID, input.ID, input.ReviewID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Review deleted"}}, nil
}
