package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bestreads/bestreads-server/internal/domain"
)

func (s *Server) registerProgressRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress",
		Summary:     "List reading progress",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListProgress)

	huma.Register(s.api, huma.Operation{
		OperationID:   "startProgress",
		Method:        http.MethodPost,
		Path:          "/api/v1/progress",
		Summary:       "Start tracking a book",
		Description:   "Starts progress at page 0. A book has at most one progress entry per user.",
		Tags:          []string{"Progress"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleStartProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress/{id}",
		Summary:     "Get reading progress",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProgress",
		Method:      http.MethodPatch,
		Path:        "/api/v1/progress/{id}",
		Summary:     "Update current page",
		Description: "Sets the current page. Reaching the last page of a book on Currently Reading moves it to Read.",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteProgress",
		Method:      http.MethodDelete,
		Path:        "/api/v1/progress/{id}",
		Summary:     "Stop tracking a book",
		Tags:        []string{"Progress"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteProgress)
}

// === DTOs ===

// ProgressIDInput selects one of the caller's progress entries.
type ProgressIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Progress ID"`
}

// StartProgressRequest is the request body for starting progress.
type StartProgressRequest struct {
	BookID string `json:"book_id" doc:"Book ID"`
}

// StartProgressInput wraps the start request for Huma.
type StartProgressInput struct {
	Authorization string `header:"Authorization"`
	Body          StartProgressRequest
}

// UpdateProgressRequest is the request body for a page update.
type UpdateProgressRequest struct {
	CurrentPage int `json:"current_page" doc:"Page reached, between 0 and the book's page count"`
}

// UpdateProgressInput wraps the page update for Huma.
type UpdateProgressInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Progress ID"`
	Body          UpdateProgressRequest
}

// ProgressOutput wraps a progress entry for Huma.
type ProgressOutput struct {
	Body *domain.Progress
}

// ProgressListResponse lists progress entries.
type ProgressListResponse struct {
	Progress []domain.Progress `json:"progress" doc:"Reading progress entries"`
}

// ProgressListOutput wraps the progress list for Huma.
type ProgressListOutput struct {
	Body ProgressListResponse
}

// === Handlers ===

func (s *Server) handleListProgress(ctx context.Context, _ *AuthenticatedInput) (*ProgressListOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.services.Progress.ListProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProgressListOutput{Body: ProgressListResponse{Progress: entries}}, nil
}

func (s *Server) handleStartProgress(ctx context.Context, input *StartProgressInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Progress.AddProgress(ctx, userID, input.Body.BookID)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: p}, nil
}

func (s *Server) handleGetProgress(ctx context.Context, input *ProgressIDInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Progress.GetProgress(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: p}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.services.Progress.UpdateProgress(ctx, userID, input.ID, input.Body.CurrentPage)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: p}, nil
}

func (s *Server) handleDeleteProgress(ctx context.Context, input *ProgressIDInput) (*MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Progress.DeleteProgress(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Progress deleted"}}, nil
}
